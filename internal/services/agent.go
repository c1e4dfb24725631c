package services

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/printhaus/receiptd/internal/config"
	"github.com/printhaus/receiptd/internal/model"
)

const reconnectDelay = 5 * time.Second

// Agent keeps a websocket session with the relay server and turns incoming
// print_ticket messages into queued jobs. The relay is how receipts reach a
// printer that sits behind NAT with no inbound connectivity.
type Agent struct {
	cfg     config.AgentConfig
	printer *PrintService
	logger  *zap.Logger
}

func NewAgent(cfg config.AgentConfig, printer *PrintService, logger *zap.Logger) *Agent {
	return &Agent{cfg: cfg, printer: printer, logger: logger}
}

// Run dials the relay and reconnects on any failure until ctx is cancelled.
func (a *Agent) Run(ctx context.Context) error {
	header := http.Header{}
	header.Add("X-Api-Key", a.cfg.APIKey)

	a.logger.Info("connecting to relay", zap.String("url", a.cfg.WSURL))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, a.cfg.WSURL, header)
		if err != nil {
			a.logger.Warn("relay connection failed, retrying",
				zap.Error(err),
				zap.Duration("delay", reconnectDelay))
			if !sleepCtx(ctx, reconnectDelay) {
				return ctx.Err()
			}
			continue
		}

		a.logger.Info("relay connected")
		a.handleConnection(ctx, conn)
		conn.Close()

		a.logger.Info("relay disconnected, reconnecting", zap.Duration("delay", reconnectDelay))
		if !sleepCtx(ctx, reconnectDelay) {
			return ctx.Err()
		}
	}
}

func (a *Agent) handleConnection(ctx context.Context, conn *websocket.Conn) {
	// Unblock the read loop when ctx is cancelled.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	reg := model.WSMessage{Type: model.MessageTypeRegister, AgentKey: a.cfg.AgentKey}
	if err := conn.WriteJSON(reg); err != nil {
		a.logger.Warn("failed to send register", zap.Error(err))
		return
	}

	for {
		var msg model.WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() == nil {
				a.logger.Warn("relay read error", zap.Error(err))
			}
			return
		}

		switch msg.Type {
		case model.MessageTypeRegistered:
			a.logger.Info("registered with relay")

		case model.MessageTypePing:
			conn.WriteJSON(model.WSMessage{Type: model.MessageTypePong, AgentKey: a.cfg.AgentKey})

		case model.MessageTypePrintTicket:
			a.handleTicket(conn, msg.Ticket)

		case model.MessageTypeUnregister:
			a.logger.Info("relay requested unregister")
			return

		default:
			a.logger.Debug("unknown relay message type", zap.String("type", string(msg.Type)))
		}
	}
}

func (a *Agent) handleTicket(conn *websocket.Conn, raw json.RawMessage) {
	var req model.RenderRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		a.logger.Warn("bad ticket payload", zap.Error(err))
		a.ack(conn, model.WSMessage{
			Type:     model.MessageTypePrintFailed,
			AgentKey: a.cfg.AgentKey,
			Error:    "invalid ticket payload",
		})
		return
	}

	jobID, err := a.printer.PrintText(req, map[string]string{"source": "relay"})
	if err != nil {
		a.logger.Warn("relay ticket failed", zap.Error(err))
		a.ack(conn, model.WSMessage{
			Type:     model.MessageTypePrintFailed,
			AgentKey: a.cfg.AgentKey,
			Error:    err.Error(),
		})
		return
	}

	a.logger.Info("relay ticket queued", zap.String("job_id", jobID))
	a.ack(conn, model.WSMessage{
		Type:     model.MessageTypeQueued,
		AgentKey: a.cfg.AgentKey,
		JobID:    jobID,
	})
}

func (a *Agent) ack(conn *websocket.Conn, msg model.WSMessage) {
	if err := conn.WriteJSON(msg); err != nil {
		a.logger.Warn("failed to send ack", zap.String("type", string(msg.Type)), zap.Error(err))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
