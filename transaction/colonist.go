package transaction

import (
	"github.com/way365/realm-exchange/protocol"
)

const COLONIST_POD_OPEN_DELAY = 110 //Ticks

// ColonistKind transfers a single pawn. It is gated by ReceiveColonists,
// independently from item transfers.
type ColonistKind struct{}

func (ColonistKind) Name() protocol.Kind { return protocol.KIND_COLONIST }

func (ColonistKind) Allows(preferences protocol.Preferences) bool {
	return preferences.ReceiveColonists
}

func (ColonistKind) Prompt(tx *Transaction) string {
	return tx.Sender.Name + " wants to send you a colonist"
}

func (ColonistKind) Placement() Placement {
	return Placement{Mode: PlacementDropPod, OpenDelay: COLONIST_POD_OPEN_DELAY, LeaveSlag: false}
}

func (kind ColonistKind) Materialize(tx *Transaction, world World) (Entity, error) {
	descriptor, err := openDescriptor(tx)
	if err != nil {
		return nil, err
	}
	if _, ok := descriptor.(*protocol.ColonistDescriptor); !ok {
		return nil, materializationError(tx, protocol.ErrMalformedDescriptor)
	}
	return place(tx, world, descriptor, kind.Placement())
}

func (ColonistKind) Notification(tx *Transaction, side Side, placed Entity) (Notification, bool) {
	if side == SideReceiver {
		switch tx.State {
		case protocol.ACCEPTED:
			notification := Notification{
				Title:    "Colonist pod",
				Text:     "A colonist was sent to you by " + tx.Sender.Name,
				Severity: SeverityPositive,
			}
			if placed != nil {
				position := placed.Position()
				notification.Target = &position
			}
			return notification, true
		case protocol.INTERRUPTED:
			return Notification{
				Text:     "Unexpected interruption during colonist transaction with " + tx.Sender.Name,
				Severity: SeverityNegative,
			}, true
		}
		//INTERCEPTED never reaches a receiver that saw the transaction, nothing to do.
		return Notification{}, false
	}

	switch tx.State {
	case protocol.ACCEPTED:
		return Notification{Text: tx.Receiver.Name + " accepted your colonist", Severity: SeverityPositive}, true
	case protocol.DECLINED:
		return Notification{Text: tx.Receiver.Name + " declined your colonist", Severity: SeverityNeutral}, true
	case protocol.INTERRUPTED:
		return Notification{
			Text:     "Unexpected interruption during colonist transaction with " + tx.Receiver.Name,
			Severity: SeverityNegative,
		}, true
	case protocol.INTERCEPTED:
		return Notification{
			Text:     "Transaction with " + tx.Receiver.Name + " was declined by the server. Are you sending colonists too quickly?",
			Severity: SeverityNegative,
		}, true
	}
	return Notification{}, false
}
