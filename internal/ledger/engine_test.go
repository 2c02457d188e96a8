package ledger

import (
	"errors"
	"slices"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "%s: want %s, got %s", field, want, got)
}

func assertAccount(t *testing.T, e *Engine, clientID uint16, available, held string, locked bool) {
	t.Helper()

	account, ok := e.Account(clientID)
	require.True(t, ok, "account %d should exist", clientID)

	assertDecimal(t, available, account.Available, "available")
	assertDecimal(t, held, account.Held, "held")
	assertDecimal(t, dec(available).Add(dec(held)).String(), account.Total(), "total")
	assert.Equal(t, locked, account.Locked, "locked")
}

func applyAll(e *Engine, txs ...Transaction) {
	e.Consume(slices.Values(txs))
}

func TestEngineDepositAndWithdrawal(t *testing.T) {
	e := NewEngine()

	applyAll(e,
		NewDeposit(1, 1, dec("20")),
		NewWithdrawal(1, 2, dec("10")),
	)

	assertAccount(t, e, 1, "10", "0", false)
}

func TestEngineBasicDispute(t *testing.T) {
	e := NewEngine()

	applyAll(e,
		NewDeposit(1, 1, dec("10")),
		NewDeposit(1, 2, dec("42")),
		NewDispute(1, 1),
	)

	assertAccount(t, e, 1, "42", "10", false)
}

func TestEngineDisputeReversibility(t *testing.T) {
	e := NewEngine()

	applyAll(e,
		NewDeposit(1, 1, dec("7.5")),
		NewDispute(1, 1),
		NewResolve(1, 1),
	)

	assertAccount(t, e, 1, "7.5", "0", false)
}

func TestEngineResolveDispute(t *testing.T) {
	e := NewEngine()

	applyAll(e,
		NewDeposit(1, 1, dec("10")),
		NewDeposit(1, 2, dec("42")),
		NewDispute(1, 1),
		NewResolve(1, 1),
	)

	assertAccount(t, e, 1, "52", "0", false)
}

func TestEngineChargebackFinality(t *testing.T) {
	e := NewEngine()

	applyAll(e,
		NewDeposit(1, 1, dec("10")),
		NewDeposit(1, 2, dec("42")),
		NewDispute(1, 1),
		NewChargeback(1, 1),
	)

	assertAccount(t, e, 1, "42", "0", true)
}

func TestEngineUndisputedResolveIsNoop(t *testing.T) {
	e := NewEngine()

	applyAll(e,
		NewDeposit(1, 1, dec("10")),
		NewDeposit(1, 2, dec("42")),
	)
	err := e.Apply(NewResolve(1, 1))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnresolvedAmount)
	assertAccount(t, e, 1, "52", "0", false)
}

func TestEngineUndisputedChargebackIsNoop(t *testing.T) {
	e := NewEngine()

	applyAll(e, NewDeposit(3, 1, dec("5")))
	err := e.Apply(NewChargeback(3, 1))

	assert.ErrorIs(t, err, ErrUnresolvedAmount)
	assertAccount(t, e, 3, "5", "0", false)
}

func TestEngineUnknownReferenceSafety(t *testing.T) {
	tests := []struct {
		name string
		tx   Transaction
	}{
		{name: "dispute", tx: NewDispute(1, 99)},
		{name: "resolve", tx: NewResolve(1, 99)},
		{name: "chargeback", tx: NewChargeback(1, 99)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine()
			applyAll(e, NewDeposit(1, 1, dec("3")))

			var err error
			assert.NotPanics(t, func() { err = e.Apply(tt.tx) })

			var skip *SkipError
			require.ErrorAs(t, err, &skip)
			assert.Equal(t, tt.tx, skip.Tx)
			assertAccount(t, e, 1, "3", "0", false)
		})
	}
}

func TestEngineDiscardsUnknownOperation(t *testing.T) {
	e := NewEngine()
	applyAll(e, NewDeposit(1, 1, dec("3")))

	err := e.Apply(Transaction{Type: Operation(42), ClientID: 1, TxID: 1, Amount: decimal.NewNullDecimal(dec("1"))})

	var skip *SkipError
	require.ErrorAs(t, err, &skip)
	assert.Equal(t, "unknown operation", skip.Reason)
	assertAccount(t, e, 1, "3", "0", false)
	assert.Equal(t, 1, e.Stats().Discarded)
}

func TestEngineDisputeMarksUnknownIDAsDisputed(t *testing.T) {
	e := NewEngine()

	require.Error(t, e.Apply(NewDispute(1, 5)))
	assert.True(t, e.IsDisputed(5))

	// The deposit arrives after its dispute; the id is already disputed, so
	// a resolve now moves funds out of held.
	applyAll(e,
		NewDeposit(1, 5, dec("4")),
		NewResolve(1, 5),
	)

	assertAccount(t, e, 1, "8", "-4", false)
}

func TestEngineFirstOccurrenceWins(t *testing.T) {
	e := NewEngine()

	applyAll(e,
		NewDeposit(1, 1, dec("10")),
		NewDeposit(1, 1, dec("99")),
		NewDispute(1, 1),
	)

	assertAccount(t, e, 1, "99", "10", false)
}

func TestEngineWithdrawalMayGoNegative(t *testing.T) {
	e := NewEngine()

	applyAll(e, NewWithdrawal(2, 1, dec("1.2345")))

	assertAccount(t, e, 2, "-1.2345", "0", false)
}

func TestEngineDisputedWithdrawal(t *testing.T) {
	e := NewEngine()

	applyAll(e,
		NewDeposit(1, 1, dec("10")),
		NewWithdrawal(1, 2, dec("4")),
		NewDispute(1, 2),
	)

	assertAccount(t, e, 1, "2", "4", false)
}

func TestEngineLockedAccountRemainsWritable(t *testing.T) {
	e := NewEngine()

	applyAll(e,
		NewDeposit(1, 1, dec("10")),
		NewDispute(1, 1),
		NewChargeback(1, 1),
		NewDeposit(1, 2, dec("5")),
		NewWithdrawal(1, 3, dec("1")),
	)

	assertAccount(t, e, 1, "4", "0", true)
}

// The disputed set is never cleared, so repeating a resolve or chargeback
// replays it with the original amount.
func TestEngineRepeatedResolveReplays(t *testing.T) {
	e := NewEngine()

	applyAll(e,
		NewDeposit(1, 1, dec("10")),
		NewDispute(1, 1),
		NewResolve(1, 1),
		NewResolve(1, 1),
	)

	assertAccount(t, e, 1, "20", "-10", false)
	assert.True(t, e.IsDisputed(1))
}

func TestEngineRepeatedChargebackReplays(t *testing.T) {
	e := NewEngine()

	applyAll(e,
		NewDeposit(1, 1, dec("10")),
		NewDispute(1, 1),
		NewChargeback(1, 1),
		NewChargeback(1, 1),
	)

	assertAccount(t, e, 1, "0", "-10", true)
}

func TestEngineDisputeActsOnReferencingClient(t *testing.T) {
	e := NewEngine()

	applyAll(e,
		NewDeposit(1, 1, dec("10")),
		NewDispute(2, 1),
	)

	assertAccount(t, e, 1, "10", "0", false)
	assertAccount(t, e, 2, "-10", "10", false)
}

func TestEngineConservation(t *testing.T) {
	e := NewEngine()

	applyAll(e,
		NewDeposit(1, 1, dec("100.0001")),
		NewWithdrawal(1, 2, dec("30.5")),
		NewDeposit(1, 3, dec("0.4999")),
		NewDispute(1, 1),
		NewDispute(1, 3),
		NewResolve(1, 3),
		NewWithdrawal(1, 4, dec("1")),
	)

	account, ok := e.Account(1)
	require.True(t, ok)
	assertDecimal(t, "69", account.Total(), "total")
	assertDecimal(t, "100.0001", account.Held, "held")
}

func TestEngineExactArithmetic(t *testing.T) {
	e := NewEngine()

	for i := uint32(1); i <= 10; i++ {
		require.NoError(t, e.Apply(NewDeposit(1, i, dec("0.1"))))
	}

	assertAccount(t, e, 1, "1", "0", false)
}

func TestEngineMissingAmountIsDiscarded(t *testing.T) {
	e := NewEngine()

	err := e.Apply(Transaction{Type: Deposit, ClientID: 1, TxID: 1})
	require.ErrorIs(t, err, ErrUnresolvedAmount)

	// The empty amount is still remembered under the id and shadows later
	// deposits with the same id.
	applyAll(e,
		NewDeposit(1, 1, dec("5")),
		NewDispute(1, 1),
	)

	assertAccount(t, e, 1, "5", "0", false)
}

func TestEngineCreatesAccountsLazily(t *testing.T) {
	e := NewEngine()

	_, ok := e.Account(7)
	assert.False(t, ok)

	_ = e.Apply(NewResolve(7, 1))

	assertAccount(t, e, 7, "0", "0", false)
	assert.Len(t, e.Accounts(), 1)
}

func TestEngineSnapshotsAreCopies(t *testing.T) {
	e := NewEngine()
	applyAll(e, NewDeposit(1, 1, dec("1")))

	snapshot := e.Accounts()
	applyAll(e, NewDeposit(1, 2, dec("1")))

	assertDecimal(t, "1", snapshot[1].Available, "snapshot available")
	assertAccount(t, e, 1, "2", "0", false)
}

func TestEngineSortedAccounts(t *testing.T) {
	e := NewEngine()
	applyAll(e,
		NewDeposit(9, 1, dec("1")),
		NewDeposit(2, 2, dec("1")),
		NewDeposit(5, 3, dec("1")),
	)

	var ids []uint16
	for _, account := range e.SortedAccounts() {
		ids = append(ids, account.ClientID)
	}

	assert.Equal(t, []uint16{2, 5, 9}, ids)
}

func TestEngineDeterminism(t *testing.T) {
	txs := []Transaction{
		NewDeposit(1, 1, dec("10")),
		NewDeposit(2, 2, dec("3.3333")),
		NewDispute(1, 1),
		NewWithdrawal(2, 3, dec("1.1111")),
		NewChargeback(1, 1),
		NewResolve(2, 2),
	}

	first, second := NewEngine(), NewEngine()
	applyAll(first, txs...)
	applyAll(second, txs...)

	assert.Equal(t, first.SortedAccounts(), second.SortedAccounts())
	assert.Equal(t, first.Stats(), second.Stats())
}

func TestEngineStats(t *testing.T) {
	e := NewEngine()
	applyAll(e,
		NewDeposit(1, 1, dec("10")),
		NewDispute(1, 1),
		NewResolve(1, 2),
		NewDispute(1, 3),
	)

	stats := e.Stats()
	assert.Equal(t, 2, stats.Applied)
	assert.Equal(t, 2, stats.Discarded)
	assert.Equal(t, 4, stats.Total())
	assert.Equal(t, 1, stats.AppliedByType[Deposit])
	assert.Equal(t, 1, stats.DiscardedByType[Resolve])
	assert.Equal(t, 1, stats.DiscardedByType[Dispute])
}

func TestEngineLogsDiscardedRecords(t *testing.T) {
	core, observed := observer.New(zapcore.ErrorLevel)
	e := NewEngine(WithLogger(zap.New(core)))

	err := e.Apply(NewResolve(4, 42))
	require.True(t, errors.Is(err, ErrUnresolvedAmount))

	entries := observed.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "resolve", fields["type"])
	assert.EqualValues(t, 4, fields["client"])
	assert.EqualValues(t, 42, fields["tx"])
	assert.Equal(t, "referenced transaction is not disputed", fields["reason"])
}
