package storage

import (
	"time"

	"github.com/boltdb/bolt"
	"github.com/way365/realm-exchange/protocol"
)

func (s *Store) DeleteSalvage(id protocol.TransactionID) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(SALVAGE_BUCKET)).Delete([]byte(id))
	})
}

// DeleteClosedTxBefore prunes closed entries older than the cutoff. Pruned ids
// stay in the seen filter until the next restart.
func (s *Store) DeleteClosedTxBefore(cutoff time.Time) (deleted int, err error) {
	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(CLOSED_TX_BUCKET))
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var entry LedgerEntry
			if err := decodeEntry(v, &entry); err != nil {
				return err
			}
			if entry.Closed.Before(cutoff) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		deleted = len(stale)
		return nil
	})
	return deleted, err
}
