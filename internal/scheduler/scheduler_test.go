package scheduler_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/printhaus/receiptd/internal/config"
	"github.com/printhaus/receiptd/internal/model"
	"github.com/printhaus/receiptd/internal/observe"
	"github.com/printhaus/receiptd/internal/queue"
	"github.com/printhaus/receiptd/internal/scheduler"
)

type fakePublisher struct {
	sent    []model.TicketPayload
	failAll bool
	failN   int // fail after N successes
}

func (p *fakePublisher) PublishTicket(t model.TicketPayload) error {
	if p.failAll || (p.failN > 0 && len(p.sent) >= p.failN) {
		return errors.New("broker unavailable")
	}
	p.sent = append(p.sent, t)
	return nil
}

type fakePresence struct {
	online bool
}

func (f *fakePresence) Status(force bool) model.PresenceStatus {
	method := model.PresenceMethodHeartbeat
	if !f.online {
		method = model.PresenceMethodTCP
	}
	return model.PresenceStatus{Online: f.online, Method: method}
}

func newScheduler(t *testing.T, store queue.Store, pub *fakePublisher, pres *fakePresence) *scheduler.Scheduler {
	t.Helper()
	cfg := config.QueueConfig{
		Capacity:     20,
		PollInterval: time.Hour, // RunOnce is driven manually
		DrainPause:   0,
	}
	metrics := observe.NewMetrics(prometheus.NewRegistry())
	return scheduler.New(store, pub, pres, cfg, metrics, zap.NewNop())
}

func fillStore(t *testing.T, store *queue.MemoryStore, n int) {
	t.Helper()
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time {
		clock = clock.Add(time.Millisecond)
		return clock
	})
	for i := 0; i < n; i++ {
		_, err := store.Enqueue(fmt.Sprintf("bitmap-%02d", i), 1, nil)
		require.NoError(t, err)
	}
}

func TestRunOnceSkipsWhenOffline(t *testing.T) {
	store := queue.NewMemoryStore()
	fillStore(t, store, 3)
	pub := &fakePublisher{}

	s := newScheduler(t, store, pub, &fakePresence{online: false})
	assert.Zero(t, s.RunOnce())
	assert.Empty(t, pub.sent)

	n, _ := store.Count()
	assert.Equal(t, 3, n)
}

func TestRunOnceDrainsInOrder(t *testing.T) {
	store := queue.NewMemoryStore()
	fillStore(t, store, 4)
	pub := &fakePublisher{}

	s := newScheduler(t, store, pub, &fakePresence{online: true})
	assert.Equal(t, 4, s.RunOnce())

	require.Len(t, pub.sent, 4)
	for i, ticket := range pub.sent {
		assert.Equal(t, fmt.Sprintf("bitmap-%02d", i), ticket.DataBase64)
		assert.Equal(t, "png", ticket.DataType)
		assert.Equal(t, "printer", ticket.Source)
		assert.Equal(t, 1, ticket.CutPaper)
	}

	n, _ := store.Count()
	assert.Zero(t, n)

	// Delivered jobs are archived as sent.
	archived := store.Archived()
	require.Len(t, archived, 4)
	for _, job := range archived {
		assert.Equal(t, model.JobStatusSent, job.Status)
	}
}

func TestRunOnceStopsOnPublishFailure(t *testing.T) {
	store := queue.NewMemoryStore()
	fillStore(t, store, 5)
	pub := &fakePublisher{failN: 2}

	s := newScheduler(t, store, pub, &fakePresence{online: true})
	assert.Equal(t, 2, s.RunOnce())

	// The failed job and everything younger stay queued for the next cycle.
	n, _ := store.Count()
	assert.Equal(t, 3, n)

	head, err := store.PeekOldest()
	require.NoError(t, err)
	require.NotNil(t, head)
	assert.Equal(t, "bitmap-02", head.BitmapB64)
}

func TestRunOnceRetriesAfterRecovery(t *testing.T) {
	store := queue.NewMemoryStore()
	fillStore(t, store, 2)
	pub := &fakePublisher{failAll: true}

	s := newScheduler(t, store, pub, &fakePresence{online: true})
	assert.Zero(t, s.RunOnce())

	pub.failAll = false
	assert.Equal(t, 2, s.RunOnce())
	n, _ := store.Count()
	assert.Zero(t, n)
}

func TestRunOnceEvictsOverflowFirst(t *testing.T) {
	store := queue.NewMemoryStore()
	fillStore(t, store, 23) // capacity is 20
	pub := &fakePublisher{failAll: true}

	s := newScheduler(t, store, pub, &fakePresence{online: true})
	s.RunOnce()

	// Nothing delivered, but overflow was trimmed before the drain attempt.
	n, _ := store.Count()
	assert.Equal(t, 20, n)

	archived := store.Archived()
	require.Len(t, archived, 3)
	for _, job := range archived {
		assert.Equal(t, model.JobStatusOverflow, job.Status)
	}
}

func TestStartStopIdempotent(t *testing.T) {
	store := queue.NewMemoryStore()
	s := newScheduler(t, store, &fakePublisher{}, &fakePresence{online: true})

	// Stop before start is a no-op.
	s.Stop()

	s.Start()
	s.Start() // second start is a no-op
	s.Stop()
	s.Stop() // second stop is a no-op

	// Restart works after a full stop.
	s.Start()
	s.Stop()
}
