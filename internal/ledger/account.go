package ledger

import "github.com/shopspring/decimal"

// Account is the balance state of one client.
//
// Amounts are arbitrary-precision decimals: additions and subtractions are
// exact and the coefficient grows as needed, so balances cannot overflow.
// Rounding happens only when an account is rendered.
type Account struct {
	ClientID  uint16
	Available decimal.Decimal
	Held      decimal.Decimal
	Locked    bool
}

func newAccount(clientID uint16) *Account {
	return &Account{ClientID: clientID}
}

// Total is the sum of available and held funds.
func (a Account) Total() decimal.Decimal {
	return a.Available.Add(a.Held)
}

func (a *Account) deposit(amount decimal.Decimal) {
	a.Available = a.Available.Add(amount)
}

// withdraw does not check for sufficient funds; available may go negative.
func (a *Account) withdraw(amount decimal.Decimal) {
	a.Available = a.Available.Sub(amount)
}

func (a *Account) dispute(amount decimal.Decimal) {
	a.Available = a.Available.Sub(amount)
	a.Held = a.Held.Add(amount)
}

func (a *Account) resolve(amount decimal.Decimal) {
	a.Available = a.Available.Add(amount)
	a.Held = a.Held.Sub(amount)
}

// chargeback locks the account. Nothing reads Locked back inside the engine:
// a locked account keeps accepting events.
func (a *Account) chargeback(amount decimal.Decimal) {
	a.Held = a.Held.Sub(amount)
	a.Locked = true
}
