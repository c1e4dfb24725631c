// Package scheduler drains the job store through the transport whenever the
// printer is present.
package scheduler

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/printhaus/receiptd/internal/config"
	"github.com/printhaus/receiptd/internal/model"
	"github.com/printhaus/receiptd/internal/observe"
	"github.com/printhaus/receiptd/internal/queue"
)

// Publisher delivers one ticket to the printer. Success or failure is the
// only signal consumed.
type Publisher interface {
	PublishTicket(t model.TicketPayload) error
}

// PresenceSource reports printer reachability before each drain attempt.
type PresenceSource interface {
	Status(force bool) model.PresenceStatus
}

// Scheduler runs a single background loop. It is the only writer that
// removes or archives jobs while running.
type Scheduler struct {
	store   queue.Store
	pub     Publisher
	pres    PresenceSource
	cfg     config.QueueConfig
	logger  *zap.Logger
	metrics *observe.Metrics

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}

	now   func() time.Time
	pause func(time.Duration)
}

func New(store queue.Store, pub Publisher, pres PresenceSource, cfg config.QueueConfig, metrics *observe.Metrics, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		store:   store,
		pub:     pub,
		pres:    pres,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
		pause:   time.Sleep,
	}
}

// Start launches the background loop. Starting an already-running scheduler
// is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.loop(s.stop, s.done)
	s.logger.Info("delivery scheduler started", zap.Duration("poll", s.cfg.PollInterval))
}

// Stop signals the loop and waits for the current cycle to finish. Safe to
// call when never started; an in-flight publish is not interrupted.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stop, done := s.stop, s.done
	s.mu.Unlock()

	close(stop)
	<-done
	s.logger.Info("delivery scheduler stopped")
}

func (s *Scheduler) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	timer := time.NewTimer(s.cfg.PollInterval)
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return
		case <-timer.C:
		}

		flushed := s.RunOnce()

		// Re-poll quickly after a productive flush so a backlog drains
		// without waiting out the full interval.
		next := s.cfg.PollInterval
		if flushed > 0 {
			next = time.Second
		}
		timer.Reset(next)
	}
}

// RunOnce executes one drain cycle: presence check, overflow eviction, then
// oldest-first delivery until the store is empty or a publish fails.
// Returns the number of jobs delivered.
func (s *Scheduler) RunOnce() int {
	st := s.pres.Status(false)
	s.setOnlineGauge(st.Online)
	if !st.Online {
		s.logger.Debug("printer offline, skipping drain cycle",
			zap.String("method", st.Method), zap.String("detail", st.Detail))
		return 0
	}

	if evicted, err := queue.EvictOverflow(s.store, s.cfg.Capacity); err != nil {
		s.logger.Warn("overflow eviction failed", zap.Error(err))
	} else if evicted > 0 {
		s.metrics.JobsEvicted.Add(float64(evicted))
		s.logger.Info("evicted overflow jobs", zap.Int("count", evicted))
	}

	flushed := 0
	for {
		job, err := s.store.PeekOldest()
		if err != nil {
			s.logger.Warn("peek failed", zap.Error(err))
			break
		}
		if job == nil {
			break
		}

		ticket := model.NewTicket(job.BitmapB64, job.Cut, s.now())
		if err := s.pub.PublishTicket(ticket); err != nil {
			// A mid-drain failure is likely transient; leave this and all
			// younger jobs queued for the next cycle.
			s.metrics.PublishErrors.Inc()
			s.logger.Warn("publish failed, leaving job queued",
				zap.String("job", job.ID), zap.Error(err))
			break
		}

		if err := s.store.Archive(job, model.JobStatusSent); err != nil {
			s.logger.Warn("archive failed", zap.String("job", job.ID), zap.Error(err))
		}
		if err := s.store.Remove(job.ID); err != nil {
			s.logger.Warn("remove failed", zap.String("job", job.ID), zap.Error(err))
			break
		}

		s.metrics.JobsDelivered.Inc()
		flushed++

		// Respect physical printer throughput between deliveries.
		s.pause(s.cfg.DrainPause)
	}

	if n, err := s.store.Count(); err == nil {
		s.metrics.QueueDepth.Set(float64(n))
	}
	return flushed
}

func (s *Scheduler) setOnlineGauge(online bool) {
	if online {
		s.metrics.PrinterOnline.Set(1)
	} else {
		s.metrics.PrinterOnline.Set(0)
	}
}
