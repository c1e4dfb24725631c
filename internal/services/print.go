// Package services ties rendering, halftoning and the job queue together
// behind the operations callers actually perform.
package services

import (
	"context"
	"errors"
	"image"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/printhaus/receiptd/internal/config"
	"github.com/printhaus/receiptd/internal/guest"
	"github.com/printhaus/receiptd/internal/halftone"
	"github.com/printhaus/receiptd/internal/model"
	"github.com/printhaus/receiptd/internal/observe"
	"github.com/printhaus/receiptd/internal/queue"
	"github.com/printhaus/receiptd/internal/render"
)

var (
	ErrTokenInvalid   = errors.New("guest token invalid or revoked")
	ErrQuotaExhausted = errors.New("daily print quota exhausted")
	ErrMessageTooLong = errors.New("message exceeds maximum length")
)

// PrintService renders content into printer-ready bitmaps and enqueues them.
type PrintService struct {
	engine   *render.Engine
	html     *render.HTMLRenderer
	receipts *config.ReceiptStore
	store    queue.Store
	guests   guest.DB
	maxChars int
	capacity int
	metrics  *observe.Metrics
	logger   *zap.Logger
}

func NewPrintService(
	engine *render.Engine,
	html *render.HTMLRenderer,
	receipts *config.ReceiptStore,
	store queue.Store,
	guests guest.DB,
	guestCfg config.GuestConfig,
	capacity int,
	metrics *observe.Metrics,
	logger *zap.Logger,
) *PrintService {
	return &PrintService{
		engine:   engine,
		html:     html,
		receipts: receipts,
		store:    store,
		guests:   guests,
		maxChars: guestCfg.MaxChars,
		capacity: capacity,
		metrics:  metrics,
		logger:   logger,
	}
}

// PrintText renders a text receipt with the current style snapshot and
// enqueues it. Returns the job ID.
func (s *PrintService) PrintText(req model.RenderRequest, meta map[string]string) (string, error) {
	cfg := s.receipts.Current()
	img := s.engine.Render(req, cfg)
	return s.enqueue(img, cfg, cutFlag(req.CutPaper), meta)
}

// PrintGuest is the quota-gated entry point. The allowance unit is spent
// before rendering; a render that fails after a successful Consume still
// counts against the day.
func (s *PrintService) PrintGuest(token, message, title string) (string, error) {
	if utf8.RuneCountInString(message) > s.maxChars {
		return "", ErrMessageTooLong
	}

	info, err := s.guests.Validate(token)
	if err != nil {
		return "", err
	}
	if info == nil {
		return "", ErrTokenInvalid
	}

	spent, err := s.guests.Consume(token)
	if err != nil {
		return "", err
	}
	if spent == nil {
		return "", ErrQuotaExhausted
	}

	req := model.RenderRequest{
		Title:        title,
		Lines:        strings.Split(message, "\n"),
		AddTimestamp: true,
		CutPaper:     true,
		SenderName:   spent.Name,
	}
	id, err := s.PrintText(req, map[string]string{"source": "guest", "guest": spent.Name})
	if err != nil {
		return "", err
	}

	s.logger.Info("guest job queued",
		zap.String("job_id", id),
		zap.String("guest", spent.Name))
	return id, nil
}

// PrintImage composes an optional header above the image and enqueues the
// result.
func (s *PrintService) PrintImage(src image.Image, title, subtitle, sender string, cut bool, meta map[string]string) (string, error) {
	cfg := s.receipts.Current()
	img := s.engine.ComposeWithHeader(src, cfg, title, subtitle, sender)
	return s.enqueue(img, cfg, cutFlag(cut), meta)
}

// PrintHTML renders the configured HTML template via headless Chrome and
// enqueues the screenshot.
func (s *PrintService) PrintHTML(ctx context.Context, data any, cut bool, meta map[string]string) (string, error) {
	if s.html == nil {
		return "", errors.New("html rendering not configured")
	}
	img, err := s.html.Render(ctx, data)
	if err != nil {
		return "", err
	}
	cfg := s.receipts.Current()
	return s.enqueue(img, cfg, cutFlag(cut), meta)
}

// EnqueueBitmap stores an already-prepared bitmap, rescaling to the printer
// width when needed. Used for tickets arriving from the inbox topic; cut is
// the wire-format 0/1 flag those carry.
func (s *PrintService) EnqueueBitmap(b64 string, cut int, meta map[string]string) (string, error) {
	img, err := halftone.DecodeBase64PNG(b64)
	if err != nil {
		return "", err
	}
	g := render.ResizeToWidth(img, s.engine.WidthPx())
	cfg := s.receipts.Current()
	return s.enqueue(g, cfg, cut, meta)
}

func (s *PrintService) enqueue(img *image.Gray, cfg config.Receipt, cut int, meta map[string]string) (string, error) {
	b64, err := halftone.Encode(img, cfg)
	if err != nil {
		return "", err
	}

	id, err := s.store.Enqueue(b64, cut, meta)
	if err != nil {
		return "", err
	}
	s.metrics.JobsEnqueued.Inc()

	evicted, err := queue.EvictOverflow(s.store, s.capacity)
	if err != nil {
		s.logger.Warn("overflow eviction failed", zap.Error(err))
	}
	if evicted > 0 {
		s.metrics.JobsEvicted.Add(float64(evicted))
		s.logger.Warn("queue overflow, oldest jobs evicted", zap.Int("evicted", evicted))
	}

	if n, err := s.store.Count(); err == nil {
		s.metrics.QueueDepth.Set(float64(n))
	}

	s.logger.Debug("job enqueued", zap.String("job_id", id), zap.Int("cut", cut))
	return id, nil
}

func cutFlag(cut bool) int {
	if cut {
		return 1
	}
	return 0
}
