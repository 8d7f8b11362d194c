package transaction

import (
	"fmt"

	"github.com/way365/realm-exchange/protocol"
)

// ItemKind transfers a bundle of things, gated by ReceiveItems.
type ItemKind struct{}

func (ItemKind) Name() protocol.Kind { return protocol.KIND_ITEMS }

func (ItemKind) Allows(preferences protocol.Preferences) bool {
	return preferences.ReceiveItems
}

func (ItemKind) Prompt(tx *Transaction) string {
	return tx.Sender.Name + " wants to send you items"
}

func (ItemKind) Placement() Placement {
	return Placement{Mode: PlacementTradeDrop}
}

func (kind ItemKind) Materialize(tx *Transaction, world World) (Entity, error) {
	descriptor, err := openDescriptor(tx)
	if err != nil {
		return nil, err
	}
	if _, ok := descriptor.(*protocol.ItemsDescriptor); !ok {
		return nil, materializationError(tx, protocol.ErrMalformedDescriptor)
	}
	return place(tx, world, descriptor, kind.Placement())
}

func (ItemKind) Notification(tx *Transaction, side Side, placed Entity) (Notification, bool) {
	if side == SideReceiver {
		switch tx.State {
		case protocol.ACCEPTED:
			text := "Items were sent to you by " + tx.Sender.Name
			if placed != nil {
				text = fmt.Sprintf("%v sent you %v", tx.Sender.Name, placed.Label())
			}
			notification := Notification{Title: "Items pod", Text: text, Severity: SeverityPositive}
			if placed != nil {
				position := placed.Position()
				notification.Target = &position
			}
			return notification, true
		case protocol.INTERRUPTED:
			return Notification{
				Text:     "Unexpected interruption during item transaction with " + tx.Sender.Name,
				Severity: SeverityNegative,
			}, true
		}
		return Notification{}, false
	}

	switch tx.State {
	case protocol.ACCEPTED:
		return Notification{Text: tx.Receiver.Name + " accepted your items", Severity: SeverityPositive}, true
	case protocol.DECLINED:
		return Notification{Text: tx.Receiver.Name + " declined your items", Severity: SeverityNeutral}, true
	case protocol.INTERRUPTED:
		return Notification{
			Text:     "Unexpected interruption during item transaction with " + tx.Receiver.Name,
			Severity: SeverityNegative,
		}, true
	case protocol.INTERCEPTED:
		return Notification{
			Text:     "Transaction with " + tx.Receiver.Name + " was declined by the server.",
			Severity: SeverityNegative,
		}, true
	}
	return Notification{}, false
}
