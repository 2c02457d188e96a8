package ledger

import (
	"errors"
	"fmt"
)

// ErrUnresolvedAmount is returned by Engine.Apply when no amount could be
// resolved for a record. The record is discarded and the engine state is
// unchanged.
var ErrUnresolvedAmount = errors.New("transaction amount could not be resolved")

// SkipError describes a discarded record.
type SkipError struct {
	Tx     Transaction
	Reason string
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("%s tx %d for client %d skipped: %s", e.Tx.Type, e.Tx.TxID, e.Tx.ClientID, e.Reason)
}

func (e *SkipError) Unwrap() error {
	return ErrUnresolvedAmount
}
