package transaction

import "github.com/way365/realm-exchange/protocol"

type decisionSlot struct {
	resolved bool
}

// decisions holds the single resolution slot of every outstanding choice.
type decisions struct {
	pending map[protocol.TransactionID]*decisionSlot
}

func newDecisions() *decisions {
	return &decisions{pending: make(map[protocol.TransactionID]*decisionSlot)}
}

func (d *decisions) open(id protocol.TransactionID) *decisionSlot {
	slot := &decisionSlot{}
	d.pending[id] = slot
	return slot
}

// take claims the slot. Only the first call for a still pending slot wins;
// late, repeated or discarded callbacks get false.
func (d *decisions) take(id protocol.TransactionID, slot *decisionSlot) bool {
	current, ok := d.pending[id]
	if !ok || current != slot || slot.resolved {
		return false
	}
	slot.resolved = true
	delete(d.pending, id)
	return true
}

func (d *decisions) discard(id protocol.TransactionID) bool {
	slot, ok := d.pending[id]
	if !ok {
		return false
	}
	slot.resolved = true
	delete(d.pending, id)
	return true
}

func (d *decisions) discardAll() int {
	count := len(d.pending)
	for id := range d.pending {
		d.discard(id)
	}
	return count
}

func (d *decisions) len() int {
	return len(d.pending)
}
