package presence

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/printhaus/receiptd/internal/config"
	"github.com/printhaus/receiptd/internal/model"
)

type fakeSender struct {
	connected bool
	probeErr  error
	probes    int
}

func (f *fakeSender) Connected() bool { return f.connected }
func (f *fakeSender) SendProbe() error {
	f.probes++
	return f.probeErr
}

func testConfig() config.PrinterConfig {
	return config.PrinterConfig{
		WidthPx:         576,
		Port:            9100,
		HeartbeatWindow: 60 * time.Second,
		ProbeInterval:   10 * time.Second,
		StatusCache:     25 * time.Second,
		TCPTimeout:      2500 * time.Millisecond,
	}
}

func newTestMonitor(cfg config.PrinterConfig, start time.Time) (*Monitor, *time.Time) {
	m := NewMonitor(cfg, zap.NewNop())
	clock := start
	m.now = func() time.Time { return clock }
	return m, &clock
}

func TestFreshHeartbeatIsOnline(t *testing.T) {
	start := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	m, clock := newTestMonitor(testConfig(), start)

	m.MarkSeen(start)
	*clock = start.Add(30 * time.Second)

	st := m.Status(false)
	assert.True(t, st.Online)
	assert.Equal(t, model.PresenceMethodHeartbeat, st.Method)
	assert.Equal(t, start, st.LastSeen)
}

func TestStaleHeartbeatFallsThrough(t *testing.T) {
	start := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	m, clock := newTestMonitor(testConfig(), start)
	sender := &fakeSender{connected: true}
	m.AttachSender(sender)

	m.MarkSeen(start)
	*clock = start.Add(2 * time.Minute)

	st := m.Status(false)
	assert.False(t, st.Online)
	assert.Equal(t, model.PresenceMethodProbe, st.Method)
	assert.Equal(t, 1, sender.probes)
	assert.Contains(t, st.Detail, "Active MQTT probe sent")
}

func TestProbeThrottled(t *testing.T) {
	start := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	m, clock := newTestMonitor(testConfig(), start)
	sender := &fakeSender{connected: true}
	m.AttachSender(sender)

	m.Status(false)
	assert.Equal(t, 1, sender.probes)

	// Within the probe interval no second probe fires.
	*clock = start.Add(5 * time.Second)
	st := m.Status(false)
	assert.Equal(t, 1, sender.probes)
	assert.Contains(t, st.Detail, "Probe throttled")

	// After the interval it does.
	*clock = start.Add(11 * time.Second)
	m.Status(false)
	assert.Equal(t, 2, sender.probes)
}

func TestProbeWithoutSender(t *testing.T) {
	start := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	m, _ := newTestMonitor(testConfig(), start)

	st := m.Status(false)
	assert.False(t, st.Online)
	assert.Contains(t, st.Detail, "Transport not initialized")
}

func TestProbeDisconnectedTransport(t *testing.T) {
	start := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	m, _ := newTestMonitor(testConfig(), start)
	m.AttachSender(&fakeSender{connected: false})

	st := m.Status(false)
	assert.Contains(t, st.Detail, "MQTT disconnected")
}

func TestTCPFallback(t *testing.T) {
	cfg := testConfig()
	cfg.IP = "192.0.2.10"
	start := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	m, clock := newTestMonitor(cfg, start)

	dials := 0
	m.dial = func(addr string, timeout time.Duration) error {
		dials++
		assert.Equal(t, "192.0.2.10:9100", addr)
		assert.Equal(t, cfg.TCPTimeout, timeout)
		return nil
	}

	st := m.Status(false)
	assert.True(t, st.Online)
	assert.Equal(t, model.PresenceMethodTCP, st.Method)
	assert.Equal(t, 1, dials)

	// A second check within the cache window reuses the result.
	*clock = start.Add(10 * time.Second)
	st = m.Status(false)
	assert.True(t, st.Online)
	assert.Equal(t, 1, dials)

	// force bypasses the cache.
	st = m.Status(true)
	assert.Equal(t, 2, dials)

	// The cache expires.
	*clock = start.Add(50 * time.Second)
	m.Status(false)
	assert.Equal(t, 3, dials)
}

func TestTCPFailure(t *testing.T) {
	cfg := testConfig()
	cfg.IP = "192.0.2.10"
	start := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	m, _ := newTestMonitor(cfg, start)
	m.dial = func(addr string, timeout time.Duration) error {
		return errors.New("connection refused")
	}

	st := m.Status(false)
	assert.False(t, st.Online)
	assert.Equal(t, model.PresenceMethodTCP, st.Method)
	assert.Contains(t, st.Detail, "TCP probe failed")
}

func TestMarkSeenZeroUsesClock(t *testing.T) {
	start := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	m, _ := newTestMonitor(testConfig(), start)

	m.MarkSeen(time.Time{})
	assert.Equal(t, start, m.LastSeen())
}
