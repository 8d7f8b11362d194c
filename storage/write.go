package storage

import (
	"time"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"
	"github.com/way365/realm-exchange/protocol"
	"go.uber.org/zap"
)

// WriteOpenTx records a new transaction. Ids are single use: an id that is
// already open or closed is rejected with ErrDuplicateTransaction.
func (s *Store) WriteOpenTx(entry LedgerEntry) error {
	key := []byte(entry.ID)
	encoded, err := encodeEntry(entry)
	if err != nil {
		return errors.Wrap(err, "encode ledger entry")
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		open := tx.Bucket([]byte(OPEN_TX_BUCKET))
		closed := tx.Bucket([]byte(CLOSED_TX_BUCKET))
		if open.Get(key) != nil || closed.Get(key) != nil {
			return errors.Wrapf(ErrDuplicateTransaction, "%v", entry.ID)
		}
		return open.Put(key, encoded)
	})
	if err != nil {
		return err
	}

	s.seenMutex.Lock()
	s.seen.Add(key)
	s.seenMutex.Unlock()

	return nil
}

// WriteClosedTx moves an open transaction to the closed bucket with its final
// state. Closing twice fails with ErrTransactionNotFound.
func (s *Store) WriteClosedTx(id protocol.TransactionID, state protocol.TransactionState, closed time.Time) (entry LedgerEntry, err error) {
	if !state.IsTerminal() {
		return entry, errors.Errorf("cannot close %v with non terminal state %v", id, state)
	}

	key := []byte(id)
	err = s.db.Update(func(tx *bolt.Tx) error {
		open := tx.Bucket([]byte(OPEN_TX_BUCKET))
		encoded := open.Get(key)
		if encoded == nil {
			return errors.Wrapf(ErrTransactionNotFound, "%v is not open", id)
		}
		if err := decodeEntry(encoded, &entry); err != nil {
			return errors.Wrap(err, "decode ledger entry")
		}

		entry.State = state
		entry.Closed = closed
		reencoded, err := encodeEntry(entry)
		if err != nil {
			return errors.Wrap(err, "encode ledger entry")
		}

		if err := open.Delete(key); err != nil {
			return err
		}
		return tx.Bucket([]byte(CLOSED_TX_BUCKET)).Put(key, reencoded)
	})
	if err != nil {
		return LedgerEntry{}, err
	}

	s.logger.Debug("transaction closed", zap.String("id", string(id)), zap.Stringer("state", state))
	return entry, nil
}

func (s *Store) WriteSalvage(entry SalvageEntry) error {
	encoded, err := encodeEntry(entry)
	if err != nil {
		return errors.Wrap(err, "encode salvage entry")
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(SALVAGE_BUCKET)).Put([]byte(entry.ID), encoded)
	})
}
