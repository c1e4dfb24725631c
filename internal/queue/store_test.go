package queue_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/printhaus/receiptd/internal/model"
	"github.com/printhaus/receiptd/internal/queue"
)

func fakeClock() func() time.Time {
	t := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Millisecond)
		return t
	}
}

func TestEvictOverflowKeepsNewest(t *testing.T) {
	s := queue.NewMemoryStore()
	s.SetClock(fakeClock())

	for i := 0; i < 25; i++ {
		_, err := s.Enqueue(fmt.Sprintf("job-%02d", i), 1, nil)
		require.NoError(t, err)
	}

	evicted, err := queue.EvictOverflow(s, 20)
	require.NoError(t, err)
	assert.Equal(t, 5, evicted)

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 20, n)

	// The oldest five went to the archive as overflow.
	archived := s.Archived()
	require.Len(t, archived, 5)
	for i, job := range archived {
		assert.Equal(t, fmt.Sprintf("job-%02d", i), job.BitmapB64)
		assert.Equal(t, model.JobStatusOverflow, job.Status)
	}

	// The survivor head is the sixth insert.
	head, err := s.PeekOldest()
	require.NoError(t, err)
	require.NotNil(t, head)
	assert.Equal(t, "job-05", head.BitmapB64)
}

func TestEvictOverflowUnderCapacity(t *testing.T) {
	s := queue.NewMemoryStore()
	s.SetClock(fakeClock())

	for i := 0; i < 3; i++ {
		_, err := s.Enqueue("x", 1, nil)
		require.NoError(t, err)
	}

	evicted, err := queue.EvictOverflow(s, 20)
	require.NoError(t, err)
	assert.Zero(t, evicted)

	n, _ := s.Count()
	assert.Equal(t, 3, n)
	assert.Empty(t, s.Archived())
}

func TestJobIDOrdering(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	a := model.NewJobID(base)
	b := model.NewJobID(base.Add(time.Millisecond))
	c := model.NewJobID(base.Add(time.Second))

	assert.Less(t, a, b)
	assert.Less(t, b, c)
}
