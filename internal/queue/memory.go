package queue

import (
	"sync"
	"time"

	"github.com/printhaus/receiptd/internal/model"
)

// MemoryStore is an in-memory Store that preserves FIFO ordering. It backs
// tests and keeps the Store interface honest against a second adapter.
type MemoryStore struct {
	mu       sync.Mutex
	pending  []*model.PrintJob
	archived []*model.PrintJob
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// SetClock overrides the time source. Test hook.
func (s *MemoryStore) SetClock(now func() time.Time) { s.now = now }

func (s *MemoryStore) Enqueue(bitmapB64 string, cut int, meta map[string]string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	job := &model.PrintJob{
		ID:        model.NewJobID(now),
		BitmapB64: bitmapB64,
		Cut:       cut,
		Meta:      meta,
		CreatedAt: float64(now.UnixNano()) / 1e9,
		Status:    model.JobStatusPending,
	}
	s.pending = append(s.pending, job)
	return job.ID, nil
}

func (s *MemoryStore) PeekOldest() (*model.PrintJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return nil, nil
	}
	cp := *s.pending[0]
	return &cp, nil
}

func (s *MemoryStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, j := range s.pending {
		if j.ID == id {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *MemoryStore) Archive(job *model.PrintJob, reason model.JobStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	archived := *job
	archived.Status = reason
	s.archived = append(s.archived, &archived)
	return nil
}

func (s *MemoryStore) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending), nil
}

// Archived returns the archive in insertion order.
func (s *MemoryStore) Archived() []*model.PrintJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.PrintJob, len(s.archived))
	copy(out, s.archived)
	return out
}

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
