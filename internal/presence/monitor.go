// Package presence tracks whether the physical printer is reachable.
// Passive MQTT heartbeats are the cheap, common signal; active probes only
// actuate when the heartbeat is stale.
package presence

import (
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/printhaus/receiptd/internal/config"
	"github.com/printhaus/receiptd/internal/model"
)

// ProbeSender sends a lightweight wake-up probe over the transport.
type ProbeSender interface {
	Connected() bool
	SendProbe() error
}

// Monitor caches the last observed printer state under a single mutex.
// Reads and writes never block for unbounded time; the TCP probe runs with
// a short explicit timeout.
type Monitor struct {
	mu         sync.Mutex
	lastSeen   time.Time
	lastProbe  time.Time
	lastStatus *model.PresenceStatus

	cfg    config.PrinterConfig
	sender ProbeSender
	logger *zap.Logger

	now  func() time.Time
	dial func(addr string, timeout time.Duration) error
}

func NewMonitor(cfg config.PrinterConfig, logger *zap.Logger) *Monitor {
	return &Monitor{
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		dial:   dialTCP,
	}
}

// AttachSender provides the connected transport used for active probes.
func (m *Monitor) AttachSender(s ProbeSender) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sender = s
}

// MarkSeen records a heartbeat or print-success acknowledgement.
func (m *Monitor) MarkSeen(ts time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ts.IsZero() {
		ts = m.now()
	}
	m.lastSeen = ts
}

// LastSeen returns the time of the most recent passive signal.
func (m *Monitor) LastSeen() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSeen
}

// shouldProbe throttles active probes to one per probe interval.
func (m *Monitor) shouldProbe(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if now.Sub(m.lastProbe) < m.cfg.ProbeInterval {
		return false
	}
	m.lastProbe = now
	return true
}

// Status reports the printer's reachability. force bypasses the cached TCP
// result. The fast path is a fresh heartbeat; otherwise an active MQTT
// probe is attempted (throttled), then a direct TCP probe if an address is
// configured.
func (m *Monitor) Status(force bool) model.PresenceStatus {
	now := m.now()
	lastSeen := m.LastSeen()

	var detailParts []string
	if !lastSeen.IsZero() {
		delta := now.Sub(lastSeen)
		detailParts = append(detailParts, fmt.Sprintf("Last heartbeat %.1fs ago.", delta.Seconds()))

		if delta < m.cfg.HeartbeatWindow {
			st := model.PresenceStatus{
				Online:    true,
				CheckedAt: now,
				Method:    model.PresenceMethodHeartbeat,
				Detail:    "Heartbeat fresh.",
				LastSeen:  lastSeen,
			}
			m.storeStatus(st)
			return st
		}
	} else {
		detailParts = append(detailParts, "No heartbeat received yet.")
	}

	// Active MQTT probe (fire and forget)
	_, probeDetail := m.sendProbe(now)
	detailParts = append(detailParts, probeDetail)
	method := model.PresenceMethodProbe
	online := false

	// TCP as final check if configured
	if m.cfg.IP != "" {
		if cached, ok := m.cachedTCP(now, force); ok {
			return cached
		}
		tcpOnline, tcpDetail := m.probeTCP()
		online = tcpOnline
		method = model.PresenceMethodTCP
		detailParts = append(detailParts, tcpDetail)
	}

	st := model.PresenceStatus{
		Online:    online,
		CheckedAt: now,
		Method:    method,
		Detail:    strings.Join(detailParts, " "),
		LastSeen:  lastSeen,
	}
	m.storeStatus(st)
	return st
}

func (m *Monitor) sendProbe(now time.Time) (bool, string) {
	m.mu.Lock()
	sender := m.sender
	m.mu.Unlock()

	if sender == nil {
		return false, "Transport not initialized"
	}
	if !sender.Connected() {
		return false, "MQTT disconnected"
	}
	if !m.shouldProbe(now) {
		return false, "Probe throttled"
	}
	if err := sender.SendProbe(); err != nil {
		return false, fmt.Sprintf("MQTT probe failed: %v", err)
	}
	return true, "Active MQTT probe sent"
}

// cachedTCP reuses a recent TCP result to avoid blocking callers on every
// status check.
func (m *Monitor) cachedTCP(now time.Time, force bool) (model.PresenceStatus, bool) {
	if force {
		return model.PresenceStatus{}, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastStatus == nil || m.lastStatus.Method != model.PresenceMethodTCP {
		return model.PresenceStatus{}, false
	}
	if now.Sub(m.lastStatus.CheckedAt) >= m.cfg.StatusCache {
		return model.PresenceStatus{}, false
	}
	return *m.lastStatus, true
}

func (m *Monitor) probeTCP() (bool, string) {
	addr := fmt.Sprintf("%s:%d", m.cfg.IP, m.cfg.Port)
	if err := m.dial(addr, m.cfg.TCPTimeout); err != nil {
		m.logger.Debug("tcp probe failed", zap.String("addr", addr), zap.Error(err))
		return false, fmt.Sprintf("TCP probe failed: %v", err)
	}
	return true, fmt.Sprintf("TCP %s reachable", addr)
}

func (m *Monitor) storeStatus(st model.PresenceStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastStatus = &st
}

func dialTCP(addr string, timeout time.Duration) error {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return err
	}
	return conn.Close()
}
