package storage

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sync"
	"time"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"
	"github.com/way365/realm-exchange/protocol"
	"github.com/willf/bloom"
	"go.uber.org/zap"
)

const (
	ERROR_MSG = "Initiate storage aborted: "

	OPEN_TX_BUCKET   = "opentx"
	CLOSED_TX_BUCKET = "closedtx"
	SALVAGE_BUCKET   = "salvage"

	//Sizing of the seen-id bloom filter, rebuilt from the ledger on Init.
	SEEN_FILTER_CAPACITY   = 100000
	SEEN_FILTER_ERROR_RATE = 0.001
)

var (
	ErrDuplicateTransaction = errors.New("transaction id already used")
	ErrTransactionNotFound  = errors.New("transaction not in ledger")
)

// LedgerEntry is the relay's record of one transaction it mediated.
type LedgerEntry struct {
	ID       protocol.TransactionID
	Kind     protocol.Kind
	Sender   protocol.UserID
	Receiver protocol.UserID
	State    protocol.TransactionState
	Digest   [protocol.DIGEST_SIZE]byte
	Opened   time.Time
	Closed   time.Time
}

func (entry LedgerEntry) String() string {
	return fmt.Sprintf("%v %v %v -> %v [%v]", entry.ID, entry.Kind, entry.Sender, entry.Receiver, entry.State)
}

// SalvageEntry keeps an envelope that was accepted but could not be
// materialized, so the payload is never silently lost.
type SalvageEntry struct {
	ID       protocol.TransactionID
	Sender   protocol.User
	Envelope protocol.Envelope
	Reason   string
	Stored   time.Time
}

type Store struct {
	db     *bolt.DB
	logger *zap.Logger

	seenMutex sync.Mutex
	seen      *bloom.BloomFilter
}

//Entry function for the storage package
func Init(dbname string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := bolt.Open(dbname, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, errors.Wrap(err, ERROR_MSG+"open "+dbname)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range []string{OPEN_TX_BUCKET, CLOSED_TX_BUCKET, SALVAGE_BUCKET} {
			if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
				return fmt.Errorf(ERROR_MSG+"Create bucket: %s", err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	store := &Store{
		db:     db,
		logger: logger.Named("storage"),
		seen:   bloom.NewWithEstimates(SEEN_FILTER_CAPACITY, SEEN_FILTER_ERROR_RATE),
	}
	if err := store.rebuildSeenFilter(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *Store) rebuildSeenFilter() error {
	s.seenMutex.Lock()
	defer s.seenMutex.Unlock()

	count := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		for _, bucket := range []string{OPEN_TX_BUCKET, CLOSED_TX_BUCKET} {
			err := tx.Bucket([]byte(bucket)).ForEach(func(k, v []byte) error {
				s.seen.Add(k)
				count++
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "rebuild seen filter")
	}

	s.logger.Debug("seen filter rebuilt", zap.Int("entries", count))
	return nil
}

func (s *Store) TearDown() error {
	return s.db.Close()
}

func encodeEntry(v interface{}) ([]byte, error) {
	buffer := new(bytes.Buffer)
	if err := gob.NewEncoder(buffer).Encode(v); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func decodeEntry(encoded []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(encoded)).Decode(v)
}
