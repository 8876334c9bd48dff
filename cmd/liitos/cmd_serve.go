package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/liitos/liitos/api"
	"github.com/liitos/liitos/approval"
	"github.com/liitos/liitos/config"
	"github.com/liitos/liitos/history"
	"github.com/liitos/liitos/registry"
	"github.com/liitos/liitos/scanner"
	"github.com/liitos/liitos/storage"
	"github.com/liitos/liitos/telemetry"
)

var (
	serveConfigPath string
	serveListenAddr string
	serveStorage    string
	serveDebug      bool
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the lifecycle engine HTTP server",
	Long: `Run the Liitos engine as the backend of the onboarding console.

Serves the approval workflow, scan scheduler, process-status reads,
and the audit log over HTTP, with Prometheus metrics on /metrics and
a health check on /health.`,
	Example: `  liitos serve                          # defaults (:8080, ./liitos.db)
  liitos serve --config liitos.yaml     # load configuration from file
  liitos serve --listen :9000           # custom listen address
  liitos serve --storage /var/lib/liitos.db`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to YAML configuration")
	serveCmd.Flags().StringVar(&serveListenAddr, "listen", "", "Listen address (overrides config)")
	serveCmd.Flags().StringVar(&serveStorage, "storage", "", "Storage database path (overrides config)")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveDebug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	cfg := config.Default()
	if serveConfigPath != "" {
		loaded, err := config.Load(serveConfigPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if serveListenAddr != "" {
		cfg.ListenAddr = serveListenAddr
	}
	if serveStorage != "" {
		cfg.StoragePath = serveStorage
	}

	logger := telemetry.NewLogger("liitos")

	promExporter, err := prometheus.New()
	if err != nil {
		return err
	}
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(promExporter)))

	metrics, err := telemetry.NewEngineMetrics()
	if err != nil {
		return err
	}

	store, err := storage.Open(cfg.StoragePath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	audit := history.NewLog(store, logger)
	reg := registry.NewRegistry(store, logger, metrics)
	workflow := approval.NewWorkflow(store, audit, logger, metrics, cfg.Approval.ConfirmDwell)
	scheduler := scanner.NewScheduler(store, logger, metrics, cfg.Scan, scanner.NewSimulatedDiscoverer())

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewServer(reg, workflow, scheduler, audit, store, logger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	var group run.Group
	group.Add(func() error {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("starting http server")
		return server.ListenAndServe()
	}, func(error) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	})
	group.Add(run.SignalHandler(context.Background(), os.Interrupt, syscall.SIGTERM))

	err = group.Run()
	var sig run.SignalError
	if errors.As(err, &sig) || errors.Is(err, http.ErrServerClosed) {
		logger.Info().Msg("shutting down")
		return nil
	}
	return err
}
