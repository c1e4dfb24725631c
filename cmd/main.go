package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/printhaus/receiptd/internal/config"
	"github.com/printhaus/receiptd/internal/guest"
	"github.com/printhaus/receiptd/internal/halftone"
	"github.com/printhaus/receiptd/internal/model"
	"github.com/printhaus/receiptd/internal/observe"
	"github.com/printhaus/receiptd/internal/presence"
	"github.com/printhaus/receiptd/internal/queue"
	"github.com/printhaus/receiptd/internal/render"
	"github.com/printhaus/receiptd/internal/scheduler"
	"github.com/printhaus/receiptd/internal/services"
	"github.com/printhaus/receiptd/internal/transport"
)

const receiptReloadInterval = 30 * time.Second

var (
	cfgFile    string
	tokenName  string
	tokenQuota int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "receiptd",
		Short: "receiptd is a thermal receipt rendering and delivery daemon",
	}
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Path to config file (default: configs/config.yaml)")

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the daemon: queue, presence monitor and MQTT delivery",
		RunE:  runStart,
	}
	rootCmd.AddCommand(startCmd)

	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Manage guest print tokens",
	}
	tokenCreateCmd := &cobra.Command{
		Use:   "create",
		Short: "Issue a new guest token",
		RunE:  runTokenCreate,
	}
	tokenCreateCmd.Flags().StringVarP(&tokenName, "name", "n", "", "Guest display name")
	tokenCreateCmd.Flags().IntVarP(&tokenQuota, "quota", "q", 0, "Prints per day (default: guest.defaultQuota)")
	tokenRevokeCmd := &cobra.Command{
		Use:   "revoke <token>",
		Short: "Revoke a guest token",
		Args:  cobra.ExactArgs(1),
		RunE:  runTokenRevoke,
	}
	tokenListCmd := &cobra.Command{
		Use:   "list",
		Short: "List guest tokens, newest first",
		RunE:  runTokenList,
	}
	tokenCmd.AddCommand(tokenCreateCmd, tokenRevokeCmd, tokenListCmd)
	rootCmd.AddCommand(tokenCmd)

	discoverCmd := &cobra.Command{
		Use:   "discover",
		Short: "Scan the local subnet for raw-port printers",
		RunE:  runDiscover,
	}
	rootCmd.AddCommand(discoverCmd)

	printCmd := &cobra.Command{
		Use:   "print [text...]",
		Short: "Render a receipt and send it straight to the printer over TCP",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runPrint,
	}
	rootCmd.AddCommand(printCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runStart(cmd *cobra.Command, args []string) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer logger.Sync()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("config load: %w", err)
	}
	tz, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("timezone %q: %w", cfg.Timezone, err)
	}

	metrics := observe.NewMetrics(prometheus.DefaultRegisterer)
	engine := render.NewEngine(cfg.Printer.WidthPx, tz)

	receipts := config.NewReceiptStore(cfg.Receipt, func() (config.Receipt, error) {
		return config.LoadReceipt(cfgFile)
	}, logger)

	store := queue.NewPebbleStore(cfg.Queue.Dir, logger)
	if err := store.Init(); err != nil {
		return fmt.Errorf("job store init: %w", err)
	}
	defer store.Close()

	guests := guest.NewPebbleDB(cfg.Guest.Dir, tz, logger)
	if err := guests.Init(); err != nil {
		return fmt.Errorf("guest store init: %w", err)
	}
	defer guests.Close()

	html := newHTMLRenderer(cfg.Printer.WidthPx, logger)
	printSvc := services.NewPrintService(engine, html, receipts, store, guests,
		cfg.Guest, cfg.Queue.Capacity, metrics, logger)

	monitor := presence.NewMonitor(cfg.Printer, logger)
	mq := transport.NewMQTT(cfg.MQTT, monitor, func(t model.InboxTicket) {
		cut := 1
		if t.CutPaper != nil {
			cut = *t.CutPaper
		}
		if _, err := printSvc.EnqueueBitmap(t.DataBase64, cut, map[string]string{"source": "inbox"}); err != nil {
			logger.Warn("inbox ticket rejected", zap.Error(err))
		}
	}, logger)

	if err := mq.Connect(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	defer mq.Disconnect()
	monitor.AttachSender(mq)

	sched := scheduler.New(store, mq, monitor, cfg.Queue, metrics, logger)
	sched.Start()
	defer sched.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return receipts.Run(gctx, receiptReloadInterval)
	})
	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			return serveMetrics(gctx, cfg.MetricsAddr, logger)
		})
	}
	if cfg.Agent.Enabled {
		agent := services.NewAgent(cfg.Agent, printSvc, logger)
		g.Go(func() error {
			return agent.Run(gctx)
		})
	}

	logger.Info("receiptd running",
		zap.String("printer_topic", cfg.MQTT.PrinterTopic),
		zap.Int("width_px", cfg.Printer.WidthPx),
		zap.Bool("agent", cfg.Agent.Enabled))

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("shutting down")
	return nil
}

// newHTMLRenderer wires the Chrome path when a template and a browser are
// both available; otherwise the daemon runs text-only.
func newHTMLRenderer(widthPx int, logger *zap.Logger) *render.HTMLRenderer {
	const templatePath, templateFile = "templates", "receipt.html"
	if _, err := os.Stat(templatePath + "/" + templateFile); err != nil {
		return nil
	}
	ok, chromePath := render.CheckChrome()
	if !ok {
		logger.Warn("receipt template found but no chrome/chromium installed, html rendering disabled")
		return nil
	}
	r, err := render.NewHTMLRenderer(templatePath, templateFile, widthPx)
	if err != nil {
		logger.Warn("html renderer init failed", zap.Error(err))
		return nil
	}
	logger.Info("html rendering enabled",
		zap.String("chrome", chromePath),
		zap.String("version", render.ChromeVersion(chromePath)))
	return r
}

func serveMetrics(ctx context.Context, addr string, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observe.Handler(prometheus.DefaultGatherer))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
	}()

	logger.Info("metrics listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}

func openGuestDB() (*guest.PebbleDB, *config.Config, error) {
	logger := zap.NewNop()
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("config load: %w", err)
	}
	tz, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, nil, fmt.Errorf("timezone %q: %w", cfg.Timezone, err)
	}
	db := guest.NewPebbleDB(cfg.Guest.Dir, tz, logger)
	if err := db.Init(); err != nil {
		return nil, nil, fmt.Errorf("guest store init: %w", err)
	}
	return db, cfg, nil
}

func runTokenCreate(cmd *cobra.Command, args []string) error {
	db, cfg, err := openGuestDB()
	if err != nil {
		return err
	}
	defer db.Close()

	quota := tokenQuota
	if quota <= 0 {
		quota = cfg.Guest.DefaultQuota
	}
	token, err := db.Create(tokenName, quota)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func runTokenRevoke(cmd *cobra.Command, args []string) error {
	db, _, err := openGuestDB()
	if err != nil {
		return err
	}
	defer db.Close()

	ok, err := db.Revoke(args[0])
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("unknown token")
	}
	fmt.Println("revoked")
	return nil
}

func runTokenList(cmd *cobra.Command, args []string) error {
	db, _, err := openGuestDB()
	if err != nil {
		return err
	}
	defer db.Close()

	entries, err := db.List()
	if err != nil {
		return err
	}
	for _, e := range entries {
		state := "active"
		if !e.Info.Active {
			state = "revoked"
		}
		fmt.Printf("%s  %-8s  quota=%d/day  %s  created %s\n",
			e.Token, state, e.Info.QuotaPerDay, e.Info.Name,
			time.Unix(e.Info.Created, 0).Format("2006-01-02 15:04"))
	}
	return nil
}

func runDiscover(cmd *cobra.Command, args []string) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("config load: %w", err)
	}
	found, err := services.DiscoverPrinters(cfg.Printer.Port, logger)
	if err != nil {
		return err
	}
	for _, ip := range found {
		fmt.Println(ip)
	}
	return nil
}

// runPrint is the offline path: render locally and push over raw TCP,
// bypassing broker and queue. Useful on the printer's own LAN.
func runPrint(cmd *cobra.Command, args []string) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("config load: %w", err)
	}
	if cfg.Printer.IP == "" {
		return fmt.Errorf("printer.ip not configured")
	}
	tz, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("timezone %q: %w", cfg.Timezone, err)
	}

	engine := render.NewEngine(cfg.Printer.WidthPx, tz)
	img := engine.Render(model.RenderRequest{
		Lines:        args,
		AddTimestamp: true,
		CutPaper:     true,
	}, cfg.Receipt)

	b64, err := halftone.Encode(img, cfg.Receipt)
	if err != nil {
		return err
	}

	printer := transport.NewDirectPrinter(cfg.Printer.IP, cfg.Printer.Port, cfg.Printer.WidthPx, logger)
	if !printer.Probe() {
		return fmt.Errorf("printer %s:%d not reachable", cfg.Printer.IP, cfg.Printer.Port)
	}
	return printer.PublishTicket(model.NewTicket(b64, 1, time.Now()))
}
