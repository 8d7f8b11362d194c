package protocol

import (
	"fmt"

	"github.com/google/uuid"
)

// TransactionID is assigned by the sender when a transaction is created and is
// the correlation key for every packet that belongs to it.
type TransactionID string

func NewTransactionID() TransactionID {
	return TransactionID(uuid.NewString())
}

type TransactionState uint8

const (
	PENDING TransactionState = iota
	ACCEPTED
	DECLINED
	INTERRUPTED
	INTERCEPTED
)

func (state TransactionState) IsTerminal() bool {
	switch state {
	case ACCEPTED, DECLINED, INTERRUPTED, INTERCEPTED:
		return true
	}
	return false
}

// IsResponse reports whether a receiver is allowed to answer with this state.
func (state TransactionState) IsResponse() bool {
	return state == ACCEPTED || state == DECLINED
}

func (state TransactionState) String() string {
	switch state {
	case PENDING:
		return "PENDING"
	case ACCEPTED:
		return "ACCEPTED"
	case DECLINED:
		return "DECLINED"
	case INTERRUPTED:
		return "INTERRUPTED"
	case INTERCEPTED:
		return "INTERCEPTED"
	}
	return fmt.Sprintf("TransactionState(%d)", uint8(state))
}

// Kind tags the payload of a transaction so both ends pick the same
// materialization and policy rules.
type Kind uint8

const (
	KIND_COLONIST Kind = iota + 1
	KIND_ITEMS
)

func (kind Kind) String() string {
	switch kind {
	case KIND_COLONIST:
		return "colonist"
	case KIND_ITEMS:
		return "items"
	}
	return fmt.Sprintf("Kind(%d)", uint8(kind))
}
