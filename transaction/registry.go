package transaction

import (
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/way365/realm-exchange/protocol"
)

// Registry correlates packets with live transactions. Ids stay reserved for the
// whole session, also after the transaction is removed.
type Registry struct {
	transactions map[protocol.TransactionID]*Transaction
	used         map[protocol.TransactionID]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		transactions: make(map[protocol.TransactionID]*Transaction),
		used:         make(map[protocol.TransactionID]struct{}),
	}
}

func (r *Registry) Register(tx *Transaction) error {
	if tx.ID == "" {
		return errors.New("transaction without id")
	}
	if _, exists := r.used[tx.ID]; exists {
		return errors.Wrapf(ErrDuplicateTransaction, "%v", tx.ID)
	}
	r.used[tx.ID] = struct{}{}
	r.transactions[tx.ID] = tx
	return nil
}

func (r *Registry) Lookup(id protocol.TransactionID) (*Transaction, error) {
	tx, ok := r.transactions[id]
	if !ok {
		return nil, errors.Wrapf(ErrTransactionNotFound, "%v", id)
	}
	return tx, nil
}

// Used reports whether the id was registered at some point in this session.
func (r *Registry) Used(id protocol.TransactionID) bool {
	_, ok := r.used[id]
	return ok
}

func (r *Registry) Remove(id protocol.TransactionID) {
	delete(r.transactions, id)
}

func (r *Registry) Len() int {
	return len(r.transactions)
}

// All returns the live transactions, oldest first.
func (r *Registry) All() []*Transaction {
	all := make([]*Transaction, 0, len(r.transactions))
	for _, tx := range r.transactions {
		all = append(all, tx)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Created.Equal(all[j].Created) {
			return all[i].ID < all[j].ID
		}
		return all[i].Created.Before(all[j].Created)
	})
	return all
}

// Expired returns the transactions waiting for a confirmation longer than
// timeout. A receiver still waiting on its player is never expired here.
func (r *Registry) Expired(now time.Time, timeout time.Duration) (expired []*Transaction) {
	for _, tx := range r.All() {
		if tx.State.IsTerminal() {
			continue
		}
		var since time.Time
		switch {
		case tx.Side == SideSender:
			since = tx.Created
		case tx.Responded():
			since = tx.respondedAt
		default:
			continue
		}
		if now.Sub(since) > timeout {
			expired = append(expired, tx)
		}
	}
	return expired
}
