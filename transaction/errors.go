package transaction

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/way365/realm-exchange/protocol"
)

var (
	ErrDuplicateTransaction = errors.New("transaction id already registered")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrTerminalState        = errors.New("transaction already in a terminal state")
	ErrUnknownKind          = errors.New("unknown transaction kind")
	ErrUnknownUser          = errors.New("unknown user")
	ErrSessionClosed        = errors.New("session closed")
)

// MaterializationError reports a descriptor that could not be realized on the
// receiving side. The receiver resolves the transaction as INTERRUPTED.
type MaterializationError struct {
	ID     protocol.TransactionID
	Kind   protocol.Kind
	Digest [protocol.DIGEST_SIZE]byte
	Err    error
}

func (e *MaterializationError) Error() string {
	return fmt.Sprintf("materialize %v %v (%x): %v", e.Kind, e.ID, e.Digest[0:8], e.Err)
}

func (e *MaterializationError) Unwrap() error {
	return e.Err
}

func materializationError(tx *Transaction, err error) *MaterializationError {
	return &MaterializationError{
		ID:     tx.ID,
		Kind:   tx.Envelope.Kind,
		Digest: tx.Envelope.Digest,
		Err:    err,
	}
}
