package config

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ReceiptStore hands out immutable Receipt snapshots. A background
// refresher swaps in a new snapshot behind an atomic pointer; readers
// never observe a half-updated configuration.
type ReceiptStore struct {
	cur    atomic.Pointer[Receipt]
	reload func() (Receipt, error)
	logger *zap.Logger
}

// NewReceiptStore seeds the store with an initial snapshot. reload may be
// nil when live refresh is not wanted (tests).
func NewReceiptStore(initial Receipt, reload func() (Receipt, error), logger *zap.Logger) *ReceiptStore {
	s := &ReceiptStore{reload: reload, logger: logger}
	s.cur.Store(&initial)
	return s
}

// Current returns the active snapshot by value.
func (s *ReceiptStore) Current() Receipt {
	return *s.cur.Load()
}

// Swap installs a new snapshot.
func (s *ReceiptStore) Swap(r Receipt) {
	s.cur.Store(&r)
}

// Run refreshes the snapshot on the given interval until ctx is done.
// A failed reload keeps the previous snapshot in place.
func (s *ReceiptStore) Run(ctx context.Context, interval time.Duration) error {
	if s.reload == nil {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			next, err := s.reload()
			if err != nil {
				s.logger.Warn("receipt settings reload failed", zap.Error(err))
				continue
			}
			if next != s.Current() {
				s.Swap(next)
				s.logger.Info("receipt settings reloaded", zap.String("preset", next.Preset))
			}
		}
	}
}
