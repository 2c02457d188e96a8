// =============================================================================
// Bursar - Transaction Records
// =============================================================================
//
// A Transaction is one immutable ledger event read from the input stream.
// Records reach this package already decoded and validated; the engine never
// sees malformed rows.
//
// OPERATIONS:
//   deposit     - credit the client's available funds
//   withdrawal  - debit the client's available funds
//   dispute     - freeze the amount of a previous deposit/withdrawal
//   resolve     - release a disputed amount back to available funds
//   chargeback  - remove a disputed amount and lock the account
//
// =============================================================================

package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Operation is the closed set of event kinds the engine understands.
type Operation uint8

const (
	Deposit Operation = iota + 1
	Withdrawal
	Dispute
	Resolve
	Chargeback
)

var operationNames = map[Operation]string{
	Deposit:    "deposit",
	Withdrawal: "withdrawal",
	Dispute:    "dispute",
	Resolve:    "resolve",
	Chargeback: "chargeback",
}

// Operations lists every valid operation in declaration order.
func Operations() []Operation {
	return []Operation{Deposit, Withdrawal, Dispute, Resolve, Chargeback}
}

// String returns the lowercase wire name of the operation.
func (o Operation) String() string {
	if name, ok := operationNames[o]; ok {
		return name
	}
	return fmt.Sprintf("operation(%d)", uint8(o))
}

// Valid reports whether o is one of the five known operations.
func (o Operation) Valid() bool {
	_, ok := operationNames[o]
	return ok
}

// CarriesAmount reports whether records of this kind bring their own amount.
// Dispute, resolve and chargeback recover it from the referenced transaction.
func (o Operation) CarriesAmount() bool {
	return o == Deposit || o == Withdrawal
}

// ParseOperation converts a wire name into an Operation. Matching ignores
// case and surrounding whitespace.
func ParseOperation(s string) (Operation, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, op := range Operations() {
		if op.String() == name {
			return op, nil
		}
	}
	return 0, fmt.Errorf("unknown operation %q", s)
}

// =============================================================================
// TRANSACTION RECORD
// =============================================================================

// Transaction is a single ledger event.
type Transaction struct {
	// Type is the kind of event.
	Type Operation

	// ClientID identifies the account the event applies to.
	ClientID uint16

	// TxID is unique among deposits and withdrawals. Disputes, resolves and
	// chargebacks use it to reference an earlier deposit or withdrawal.
	TxID uint32

	// Amount is set for deposits and withdrawals only.
	Amount decimal.NullDecimal
}

// NewDeposit builds a deposit record.
func NewDeposit(clientID uint16, txID uint32, amount decimal.Decimal) Transaction {
	return Transaction{Type: Deposit, ClientID: clientID, TxID: txID, Amount: decimal.NewNullDecimal(amount)}
}

// NewWithdrawal builds a withdrawal record.
func NewWithdrawal(clientID uint16, txID uint32, amount decimal.Decimal) Transaction {
	return Transaction{Type: Withdrawal, ClientID: clientID, TxID: txID, Amount: decimal.NewNullDecimal(amount)}
}

// NewDispute builds a dispute record referencing txID.
func NewDispute(clientID uint16, txID uint32) Transaction {
	return Transaction{Type: Dispute, ClientID: clientID, TxID: txID}
}

// NewResolve builds a resolve record referencing txID.
func NewResolve(clientID uint16, txID uint32) Transaction {
	return Transaction{Type: Resolve, ClientID: clientID, TxID: txID}
}

// NewChargeback builds a chargeback record referencing txID.
func NewChargeback(clientID uint16, txID uint32) Transaction {
	return Transaction{Type: Chargeback, ClientID: clientID, TxID: txID}
}
