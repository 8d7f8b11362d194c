package storage

import (
	"time"

	"github.com/pkg/errors"
	"github.com/way365/realm-exchange/protocol"
	"go.uber.org/zap"
)

// InterruptOpenTxs closes every transaction still open, typically left over
// from a relay that stopped without delivering a confirmation.
func (s *Store) InterruptOpenTxs(now time.Time) (interrupted []LedgerEntry, err error) {
	open, err := s.ReadAllOpenTx()
	if err != nil {
		return nil, err
	}

	for _, entry := range open {
		closed, err := s.WriteClosedTx(entry.ID, protocol.INTERRUPTED, now)
		if err != nil {
			return interrupted, errors.Wrapf(err, "interrupt %v", entry.ID)
		}
		interrupted = append(interrupted, closed)
	}

	if len(interrupted) > 0 {
		s.logger.Info("interrupted transactions left open", zap.Int("count", len(interrupted)))
	}
	return interrupted, nil
}
