package transaction

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/way365/realm-exchange/protocol"
	"go.uber.org/zap"
)

type Side uint8

const (
	SideSender Side = iota
	SideReceiver
)

func (side Side) String() string {
	if side == SideSender {
		return "sender"
	}
	return "receiver"
}

// Transaction is one transfer attempt as seen by one peer. Its State is
// mutated only by the machine, and only once from PENDING to a terminal state.
type Transaction struct {
	ID       protocol.TransactionID
	Sender   protocol.User
	Receiver protocol.User
	Kind     Kind
	Envelope protocol.Envelope
	State    protocol.TransactionState
	Side     Side
	Created  time.Time

	//Receiver side: the answer we sent and when.
	response    protocol.TransactionState
	respondedAt time.Time

	//Sender side only, never encoded.
	entity  OwnedEntity
	settled bool
}

func (tx *Transaction) Responded() bool {
	return !tx.respondedAt.IsZero()
}

// Counterpart is the other participant from this peer's point of view.
func (tx *Transaction) Counterpart() protocol.User {
	if tx.Side == SideSender {
		return tx.Receiver
	}
	return tx.Sender
}

func (tx *Transaction) resolve(state protocol.TransactionState) error {
	if tx.State.IsTerminal() {
		return errors.Wrapf(ErrTerminalState, "%v is %v, refusing %v", tx.ID, tx.State, state)
	}
	if !state.IsTerminal() {
		return errors.Errorf("%v cannot resolve to non terminal state %v", tx.ID, state)
	}
	tx.State = state
	return nil
}

// settleEntity destroys the sender's live entity when it was transferred and
// hands it back otherwise. It runs at most once per transaction.
func (tx *Transaction) settleEntity(logger *zap.Logger) {
	if tx.entity == nil || tx.settled {
		return
	}
	tx.settled = true

	if tx.State != protocol.ACCEPTED {
		tx.entity.Release()
		return
	}
	if err := tx.entity.Destroy(); err != nil {
		logger.Error("destroy transferred entity",
			zap.String("id", string(tx.ID)),
			zap.String("entity", tx.entity.ID()),
			zap.Error(err))
	}
}

func (tx *Transaction) String() string {
	return fmt.Sprintf(
		"\nID: %v\n"+
			"Kind: %v\n"+
			"Side: %v\n"+
			"Sender: %v\n"+
			"Receiver: %v\n"+
			"State: %v",
		tx.ID,
		tx.Envelope.Kind,
		tx.Side,
		tx.Sender,
		tx.Receiver,
		tx.State,
	)
}
