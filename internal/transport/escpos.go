package transport

import (
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/printhaus/receiptd/internal/halftone"
	"github.com/printhaus/receiptd/internal/model"
	"github.com/printhaus/receiptd/internal/render"
)

// DirectPrinter sends ESC/POS raster jobs straight to a network printer on
// the raw print port. Used when the printer is on the local LAN and the
// broker hop is unnecessary.
type DirectPrinter struct {
	IP      string
	Port    int
	WidthPx int
	Timeout time.Duration
	logger  *zap.Logger
}

func NewDirectPrinter(ip string, port, widthPx int, logger *zap.Logger) *DirectPrinter {
	return &DirectPrinter{
		IP:      ip,
		Port:    port,
		WidthPx: widthPx,
		Timeout: 5 * time.Second,
		logger:  logger,
	}
}

// PublishTicket decodes the ticket bitmap and prints it over TCP. Satisfies
// the same publisher contract as the MQTT path.
func (p *DirectPrinter) PublishTicket(ticket model.TicketPayload) error {
	img, err := halftone.DecodeBase64PNG(ticket.DataBase64)
	if err != nil {
		return fmt.Errorf("decode ticket bitmap: %w", err)
	}

	g := render.ResizeToWidth(img, p.WidthPx)
	job := halftone.PrintJobBytes(g, ticket.CutPaper != 0)

	addr := fmt.Sprintf("%s:%d", p.IP, p.Port)
	p.logger.Debug("sending escpos job", zap.String("addr", addr), zap.Int("bytes", len(job)))

	conn, err := net.DialTimeout("tcp", addr, p.Timeout)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer conn.Close()

	if err := conn.SetWriteDeadline(time.Now().Add(p.Timeout)); err != nil {
		return err
	}
	if _, err := conn.Write(job); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}

	// Give the printer time to spool before the connection drops.
	time.Sleep(500 * time.Millisecond)
	return nil
}

// Probe reports whether the raw print port accepts connections.
func (p *DirectPrinter) Probe() bool {
	addr := fmt.Sprintf("%s:%d", p.IP, p.Port)
	conn, err := net.DialTimeout("tcp", addr, 300*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
