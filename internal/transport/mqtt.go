// Package transport owns the MQTT session with the printer's broker and
// the direct ESC/POS network path.
package transport

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/printhaus/receiptd/internal/config"
	"github.com/printhaus/receiptd/internal/model"
	"github.com/printhaus/receiptd/internal/presence"
)

// probePayload is the two-byte wake-up message the printer firmware answers
// with a heartbeat.
var probePayload = []byte{0x01, 0x00}

// InboxHandler receives third-party tickets arriving on the inbox topic.
type InboxHandler func(t model.InboxTicket)

// MQTT publishes tickets to the printer topic and feeds heartbeat and
// print-success messages into the presence monitor.
type MQTT struct {
	cfg     config.MQTTConfig
	monitor *presence.Monitor
	onInbox InboxHandler
	logger  *zap.Logger

	client mqtt.Client

	mu        sync.RWMutex
	connected bool
	published uint64
	errors    uint64
}

func NewMQTT(cfg config.MQTTConfig, monitor *presence.Monitor, onInbox InboxHandler, logger *zap.Logger) *MQTT {
	return &MQTT{
		cfg:     cfg,
		monitor: monitor,
		onInbox: onInbox,
		logger:  logger,
	}
}

// Connect establishes the broker session and subscribes to the inbox,
// heartbeat and print-success topics. Subscriptions are re-established on
// every reconnect.
func (t *MQTT) Connect() error {
	scheme := "tcp"
	if t.cfg.TLS {
		scheme = "ssl"
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, t.cfg.Broker, t.cfg.Port))
	opts.SetClientID(t.cfg.ClientID)
	if t.cfg.Username != "" || t.cfg.Password != "" {
		opts.SetUsername(t.cfg.Username)
		opts.SetPassword(t.cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		t.mu.Lock()
		t.connected = true
		t.mu.Unlock()
		t.subscribe(c)
		t.logger.Info("mqtt connection established",
			zap.String("broker", t.cfg.Broker),
			zap.String("client_id", t.cfg.ClientID))
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		t.mu.Lock()
		t.connected = false
		t.mu.Unlock()
		t.logger.Warn("mqtt connection lost, will auto-reconnect", zap.Error(err))
	}

	t.client = mqtt.NewClient(opts)

	t.logger.Info("connecting to mqtt broker", zap.String("broker", t.cfg.Broker))
	token := t.client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}
	return nil
}

func (t *MQTT) subscribe(c mqtt.Client) {
	subs := map[string]byte{
		t.cfg.InboxTopic:        byte(t.cfg.QoS),
		t.cfg.HeartbeatTopic:    1,
		t.cfg.PrintSuccessTopic: 1,
	}
	if tok := c.SubscribeMultiple(subs, t.handleMessage); tok.WaitTimeout(5*time.Second) && tok.Error() != nil {
		t.logger.Warn("mqtt subscribe failed", zap.Error(tok.Error()))
	}
}

func (t *MQTT) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	topic := msg.Topic()

	// Heartbeat & print-success feed presence tracking.
	if topic == t.cfg.HeartbeatTopic || topic == t.cfg.PrintSuccessTopic {
		t.monitor.MarkSeen(time.Time{})
		return
	}
	if topic != t.cfg.InboxTopic {
		t.logger.Debug("ignoring message on unexpected topic", zap.String("topic", topic))
		return
	}

	var ticket model.InboxTicket
	if err := json.Unmarshal(msg.Payload(), &ticket); err != nil {
		t.logger.Warn("inbox decode error", zap.Error(err))
		return
	}

	// Our own published tickets echo back on shared topics; skip them.
	if ticket.Source == "printer" {
		return
	}
	if ticket.DataType != "png" || ticket.DataBase64 == "" {
		t.logger.Warn("unknown inbox payload", zap.String("data_type", ticket.DataType))
		return
	}
	if t.onInbox != nil {
		t.onInbox(ticket)
	}
}

// PublishTicket delivers one ticket to the printer topic.
func (t *MQTT) PublishTicket(ticket model.TicketPayload) error {
	if !t.Connected() {
		t.addError()
		return fmt.Errorf("mqtt not connected")
	}

	payload, err := json.Marshal(ticket)
	if err != nil {
		t.addError()
		return fmt.Errorf("marshal ticket: %w", err)
	}

	tok := t.client.Publish(t.cfg.PrinterTopic, byte(t.cfg.QoS), false, payload)
	if !tok.WaitTimeout(2 * time.Second) {
		t.addError()
		return fmt.Errorf("publish timeout")
	}
	if err := tok.Error(); err != nil {
		t.addError()
		return fmt.Errorf("publish failed: %w", err)
	}

	t.mu.Lock()
	t.published++
	t.mu.Unlock()

	t.logger.Debug("ticket published",
		zap.String("topic", t.cfg.PrinterTopic),
		zap.String("ticket_id", ticket.TicketID),
		zap.Int("bytes", len(payload)))
	return nil
}

// SendProbe sends the wake-up probe on the printer topic.
func (t *MQTT) SendProbe() error {
	tok := t.client.Publish(t.cfg.PrinterTopic, 1, false, probePayload)
	if !tok.WaitTimeout(2 * time.Second) {
		return fmt.Errorf("probe publish timeout")
	}
	return tok.Error()
}

// Connected reports broker session state.
func (t *MQTT) Connected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.connected && t.client != nil && t.client.IsConnected()
}

// Disconnect closes the broker session with a short grace period.
func (t *MQTT) Disconnect() {
	if t.client != nil && t.client.IsConnected() {
		t.client.Disconnect(250)
		t.logger.Info("mqtt disconnected")
	}
	t.mu.Lock()
	t.connected = false
	t.mu.Unlock()
}

// Stats returns published/error counters.
func (t *MQTT) Stats() (published, errors uint64) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.published, t.errors
}

func (t *MQTT) addError() {
	t.mu.Lock()
	t.errors++
	t.mu.Unlock()
}
