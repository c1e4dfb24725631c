package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"

	"github.com/printhaus/receiptd/internal/model"
)

const (
	jobPrefix     = "job/"
	archivePrefix = "done/"
)

// PebbleStore is a Pebble LSM-tree backed Store. Job ids carry a zero-padded
// millisecond prefix, so key order equals creation order and a prefix scan
// yields the FIFO drain sequence.
type PebbleStore struct {
	db     *pebble.DB
	path   string
	logger *zap.Logger
	now    func() time.Time
}

// NewPebbleStore creates a PebbleStore instance (not yet opened).
func NewPebbleStore(dbPath string, logger *zap.Logger) *PebbleStore {
	return &PebbleStore{
		path:   dbPath,
		logger: logger,
		now:    time.Now,
	}
}

// Init opens the Pebble database.
func (s *PebbleStore) Init() error {
	db, err := pebble.Open(s.path, &pebble.Options{})
	if err != nil {
		return fmt.Errorf("pebble open %s: %w", s.path, err)
	}
	s.db = db
	s.logger.Info("job store opened", zap.String("path", s.path))
	return nil
}

// Close flushes and closes the database.
func (s *PebbleStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *PebbleStore) Enqueue(bitmapB64 string, cut int, meta map[string]string) (string, error) {
	now := s.now()
	job := &model.PrintJob{
		ID:        model.NewJobID(now),
		BitmapB64: bitmapB64,
		Cut:       cut,
		Meta:      meta,
		CreatedAt: float64(now.UnixNano()) / 1e9,
		Status:    model.JobStatusPending,
	}
	data, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("marshal job: %w", err)
	}
	if err := s.db.Set([]byte(jobPrefix+job.ID), data, pebble.Sync); err != nil {
		return "", fmt.Errorf("pebble set: %w", err)
	}
	return job.ID, nil
}

// PeekOldest scans from the start of the job keyspace. Malformed records
// are deleted on encounter rather than blocking the queue.
func (s *PebbleStore) PeekOldest() (*model.PrintJob, error) {
	iter, err := s.newIter(jobPrefix)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		job := &model.PrintJob{}
		if err := json.Unmarshal(iter.Value(), job); err != nil {
			key := append([]byte(nil), iter.Key()...)
			s.logger.Warn("dropping corrupt job record", zap.ByteString("key", key), zap.Error(err))
			if derr := s.db.Delete(key, pebble.Sync); derr != nil {
				return nil, fmt.Errorf("delete corrupt record: %w", derr)
			}
			continue
		}
		return job, nil
	}
	return nil, iter.Error()
}

func (s *PebbleStore) Remove(id string) error {
	if err := s.db.Delete([]byte(jobPrefix+id), pebble.Sync); err != nil {
		return fmt.Errorf("pebble delete: %w", err)
	}
	return nil
}

func (s *PebbleStore) Archive(job *model.PrintJob, reason model.JobStatus) error {
	archived := *job
	archived.Status = reason
	data, err := json.Marshal(&archived)
	if err != nil {
		return fmt.Errorf("marshal archive record: %w", err)
	}
	if err := s.db.Set([]byte(archivePrefix+job.ID), data, pebble.Sync); err != nil {
		return fmt.Errorf("pebble set archive: %w", err)
	}
	return nil
}

func (s *PebbleStore) Count() (int, error) {
	iter, err := s.newIter(jobPrefix)
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	n := 0
	for iter.First(); iter.Valid(); iter.Next() {
		n++
	}
	return n, iter.Error()
}

// Archived returns archive records oldest-first, for the admin surface.
func (s *PebbleStore) Archived() ([]*model.PrintJob, error) {
	iter, err := s.newIter(archivePrefix)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []*model.PrintJob
	for iter.First(); iter.Valid(); iter.Next() {
		job := &model.PrintJob{}
		if err := json.Unmarshal(iter.Value(), job); err != nil {
			continue
		}
		out = append(out, job)
	}
	return out, iter.Error()
}

func (s *PebbleStore) newIter(prefix string) (*pebble.Iterator, error) {
	if s.db == nil {
		return nil, errors.New("job store not initialized")
	}
	return s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: keyUpperBound([]byte(prefix)),
	})
}

func keyUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil // unreachable for our prefixes
}

var _ Store = (*PebbleStore)(nil)
