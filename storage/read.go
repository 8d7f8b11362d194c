package storage

import (
	"sort"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"
	"github.com/way365/realm-exchange/protocol"
)

// Seen reports whether the id was ever recorded. The bloom filter answers most
// lookups, only possible hits go to disk.
func (s *Store) Seen(id protocol.TransactionID) bool {
	key := []byte(id)

	s.seenMutex.Lock()
	maybe := s.seen.Test(key)
	s.seenMutex.Unlock()
	if !maybe {
		return false
	}

	found := false
	s.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket([]byte(OPEN_TX_BUCKET)).Get(key) != nil ||
			tx.Bucket([]byte(CLOSED_TX_BUCKET)).Get(key) != nil
		return nil
	})
	return found
}

//Always return nil if requested id is not in the storage. This return value is then checked against by the caller
func (s *Store) ReadOpenTx(id protocol.TransactionID) (*LedgerEntry, error) {
	return s.readEntry(OPEN_TX_BUCKET, id)
}

func (s *Store) ReadClosedTx(id protocol.TransactionID) (*LedgerEntry, error) {
	return s.readEntry(CLOSED_TX_BUCKET, id)
}

func (s *Store) readEntry(bucket string, id protocol.TransactionID) (entry *LedgerEntry, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		encoded := tx.Bucket([]byte(bucket)).Get([]byte(id))
		if encoded == nil {
			return nil
		}
		entry = new(LedgerEntry)
		return decodeEntry(encoded, entry)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "read %v from %v", id, bucket)
	}
	return entry, nil
}

// ReadAllOpenTx returns open transactions ordered by opening time.
func (s *Store) ReadAllOpenTx() (entries []LedgerEntry, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(OPEN_TX_BUCKET)).ForEach(func(k, v []byte) error {
			var entry LedgerEntry
			if err := decodeEntry(v, &entry); err != nil {
				return errors.Wrapf(err, "decode %s", k)
			}
			entries = append(entries, entry)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Sort(ByOpened(entries))
	return entries, nil
}

func (s *Store) ReadAllSalvage() (entries []SalvageEntry, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(SALVAGE_BUCKET)).ForEach(func(k, v []byte) error {
			var entry SalvageEntry
			if err := decodeEntry(v, &entry); err != nil {
				return errors.Wrapf(err, "decode %s", k)
			}
			entries = append(entries, entry)
			return nil
		})
	})
	return entries, err
}

type ByOpened []LedgerEntry

func (a ByOpened) Len() int           { return len(a) }
func (a ByOpened) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a ByOpened) Less(i, j int) bool { return a[i].Opened.Before(a[j].Opened) }
