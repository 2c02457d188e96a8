// =============================================================================
// Bursar - Ledger Engine
// =============================================================================
//
// The Engine reduces an ordered stream of Transactions into per-client
// Account state. It owns every piece of mutable state of a run:
//
//   accounts  - client id -> Account, created on first reference
//   amounts   - tx id -> amount of the first deposit/withdrawal with that id
//   disputed  - tx ids that have been disputed
//
// PROCESSING:
//   Each record is applied to completion before the next one. An amount is
//   resolved first (see resolveAmount); when none can be resolved the record
//   is discarded with a diagnostic and processing continues.
//
// DISPUTED SET:
//   A tx id stays in the disputed set after resolve or chargeback, so a
//   repeated resolve or chargeback against it re-applies the original amount.
//   Locked accounts are not rejected either. Both behaviours are kept as-is.
//
// The Engine is not safe for concurrent use.
//
// =============================================================================

package ledger

import (
	"iter"
	"maps"
	"slices"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Engine applies transactions to client accounts.
type Engine struct {
	accounts map[uint16]*Account
	amounts  map[uint32]decimal.NullDecimal
	disputed map[uint32]struct{}

	stats  Stats
	logger *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for discarded-record diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an empty engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		accounts: make(map[uint16]*Account),
		amounts:  make(map[uint32]decimal.NullDecimal),
		disputed: make(map[uint32]struct{}),
		stats:    newStats(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// =============================================================================
// APPLYING RECORDS
// =============================================================================

// Consume applies every record in order. Discarded records are logged and
// counted; they never stop the run.
func (e *Engine) Consume(records iter.Seq[Transaction]) {
	for tx := range records {
		_ = e.Apply(tx)
	}
}

// Apply applies a single record. It returns a *SkipError wrapping
// ErrUnresolvedAmount when the record was discarded.
func (e *Engine) Apply(tx Transaction) error {
	account := e.account(tx.ClientID)

	amount, reason := e.resolveAmount(tx)
	if reason != "" {
		e.stats.discard(tx.Type)
		e.logger.Error("transaction is not valid, skipping",
			zap.Stringer("type", tx.Type),
			zap.Uint16("client", tx.ClientID),
			zap.Uint32("tx", tx.TxID),
			zap.String("reason", reason),
		)
		return &SkipError{Tx: tx, Reason: reason}
	}

	switch tx.Type {
	case Deposit:
		account.deposit(amount)
	case Withdrawal:
		account.withdraw(amount)
	case Dispute:
		account.dispute(amount)
	case Resolve:
		account.resolve(amount)
	case Chargeback:
		account.chargeback(amount)
	}

	e.stats.apply(tx.Type)
	e.logger.Debug("transaction applied",
		zap.Stringer("type", tx.Type),
		zap.Uint16("client", tx.ClientID),
		zap.Uint32("tx", tx.TxID),
		zap.Stringer("amount", amount),
	)
	return nil
}

// resolveAmount finds the amount a record moves. A non-empty reason means
// no amount is available and the record must be discarded.
//
//   deposit, withdrawal  - own amount; remembered under TxID unless an
//                          entry already exists (first occurrence wins)
//   dispute              - amount remembered under TxID; TxID is marked
//                          disputed even when the lookup misses
//   resolve, chargeback  - amount remembered under TxID, only if disputed
func (e *Engine) resolveAmount(tx Transaction) (decimal.Decimal, string) {
	if !tx.Type.Valid() {
		return decimal.Zero, "unknown operation"
	}

	var amount decimal.NullDecimal

	switch tx.Type {
	case Deposit, Withdrawal:
		if _, exists := e.amounts[tx.TxID]; !exists {
			e.amounts[tx.TxID] = tx.Amount
		}
		amount = tx.Amount
		if !amount.Valid {
			return decimal.Zero, "record carries no amount"
		}

	case Dispute:
		e.disputed[tx.TxID] = struct{}{}
		recorded, ok := e.amounts[tx.TxID]
		if !ok {
			return decimal.Zero, "referenced transaction not found"
		}
		amount = recorded

	case Resolve, Chargeback:
		if _, ok := e.disputed[tx.TxID]; !ok {
			return decimal.Zero, "referenced transaction is not disputed"
		}
		recorded, ok := e.amounts[tx.TxID]
		if !ok {
			return decimal.Zero, "referenced transaction not found"
		}
		amount = recorded
	}

	if !amount.Valid {
		return decimal.Zero, "referenced transaction has no amount"
	}
	return amount.Decimal, ""
}

// account returns the client's account, creating it on first reference.
func (e *Engine) account(clientID uint16) *Account {
	account, ok := e.accounts[clientID]
	if !ok {
		account = newAccount(clientID)
		e.accounts[clientID] = account
	}
	return account
}

// =============================================================================
// READING STATE
// =============================================================================

// Account returns a copy of one client's account.
func (e *Engine) Account(clientID uint16) (Account, bool) {
	account, ok := e.accounts[clientID]
	if !ok {
		return Account{}, false
	}
	return *account, true
}

// Accounts returns a snapshot of every account keyed by client id.
func (e *Engine) Accounts() map[uint16]Account {
	snapshot := make(map[uint16]Account, len(e.accounts))
	for id, account := range e.accounts {
		snapshot[id] = *account
	}
	return snapshot
}

// SortedAccounts returns a snapshot of every account ordered by client id.
func (e *Engine) SortedAccounts() []Account {
	ids := slices.Sorted(maps.Keys(e.accounts))
	accounts := make([]Account, 0, len(ids))
	for _, id := range ids {
		accounts = append(accounts, *e.accounts[id])
	}
	return accounts
}

// IsDisputed reports whether txID has ever been disputed.
func (e *Engine) IsDisputed(txID uint32) bool {
	_, ok := e.disputed[txID]
	return ok
}

// Stats returns a copy of the processing counters.
func (e *Engine) Stats() Stats {
	return e.stats.clone()
}
