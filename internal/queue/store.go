// Package queue is the durable, ordered store of pending print jobs.
package queue

import (
	"github.com/printhaus/receiptd/internal/model"
)

// Store holds pending jobs ordered by creation and an archive of terminal
// ones. Adapters must provide atomic per-record writes and ordered-by-
// creation iteration; concurrent enqueue and drain must not corrupt order.
type Store interface {
	// Enqueue persists a new pending job and returns its id.
	Enqueue(bitmapB64 string, cut int, meta map[string]string) (string, error)
	// PeekOldest returns the oldest pending job, or nil when empty.
	PeekOldest() (*model.PrintJob, error)
	// Remove deletes a pending job.
	Remove(id string) error
	// Archive records a job in a terminal state. Archived jobs are never
	// retried.
	Archive(job *model.PrintJob, reason model.JobStatus) error
	// Count returns the number of pending jobs.
	Count() (int, error)

	Close() error
}

// EvictOverflow archives the oldest pending jobs until at most capacity
// remain. Returns how many were evicted.
func EvictOverflow(s Store, capacity int) (int, error) {
	n, err := s.Count()
	if err != nil {
		return 0, err
	}
	evicted := 0
	for ; n > capacity; n-- {
		job, err := s.PeekOldest()
		if err != nil {
			return evicted, err
		}
		if job == nil {
			break
		}
		if err := s.Archive(job, model.JobStatusOverflow); err != nil {
			return evicted, err
		}
		if err := s.Remove(job.ID); err != nil {
			return evicted, err
		}
		evicted++
	}
	return evicted, nil
}
