package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/monikerhub/resolver/internal/auth"
	"github.com/monikerhub/resolver/internal/cache"
	"github.com/monikerhub/resolver/internal/catalog"
	"github.com/monikerhub/resolver/internal/catalogio"
	"github.com/monikerhub/resolver/internal/config"
	"github.com/monikerhub/resolver/internal/governance"
	"github.com/monikerhub/resolver/internal/handlers"
	"github.com/monikerhub/resolver/internal/service"
	"github.com/monikerhub/resolver/internal/telemetry"
)

var (
	servePort    int
	serveCatalog string
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP resolution service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	cmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (overrides config)")
	cmd.Flags().StringVar(&serveCatalog, "catalog", "", "path to the catalog definition file (overrides config)")
	return cmd
}

func runServe(ctx context.Context) error {
	_ = godotenv.Load()

	cfg, err := config.Load(configFlag)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if servePort > 0 {
		cfg.Server.Port = servePort
	}
	if serveCatalog != "" {
		cfg.Catalog.DefinitionFile = serveCatalog
	}

	log.Printf("==============================================")
	log.Printf("  Moniker Resolver")
	log.Printf("  Port: %d", cfg.Server.Port)
	log.Printf("  Catalog: %s", cfg.Catalog.DefinitionFile)
	log.Printf("==============================================")

	nodes, err := catalogio.Load(cfg.Catalog.DefinitionFile)
	if err != nil {
		log.Printf("warning: failed to load catalog: %v - running with empty catalog", err)
		nodes = nil
	} else {
		log.Printf("loaded %d catalog nodes", len(nodes))
	}

	registry := catalog.NewRegistry(nodes, unixClock)
	requestRegistry := governance.NewRequestRegistry(unixClock)
	resultCache := cache.New[service.ResolveResult](cfg.Cache.MaxSize, cfg.Cache.DefaultTTL())

	metricsRegistry := prometheus.NewRegistry()
	telemetryMetrics := telemetry.NewMetrics(metricsRegistry)

	var sink telemetry.Sink = &telemetry.ConsoleSink{}
	emitter := telemetry.NewEmitter(sink, cfg.Telemetry.MaxQueueSize, cfg.Telemetry.BatchSize, cfg.Telemetry.FlushInterval(), nil)
	defer emitter.Stop(context.Background())

	metricsSyncCtx, stopMetricsSync := context.WithCancel(context.Background())
	defer stopMetricsSync()
	go syncTelemetryMetrics(metricsSyncCtx, emitter, telemetryMetrics)

	if cfg.Telemetry.Enabled {
		log.Printf("telemetry enabled: sink=%s batch_size=%d flush_interval=%s",
			cfg.Telemetry.SinkType, cfg.Telemetry.BatchSize, cfg.Telemetry.FlushInterval())
	}

	controller := governance.NewController(registry, requestRegistry, cfg.Deprecation.Enabled, nil, func() { resultCache.Purge() })

	svc := service.New(registry, resultCache, emitter, service.DeprecationConfig{
		Enabled:           cfg.Deprecation.Enabled,
		RedirectOnResolve: cfg.Deprecation.RedirectOnResolve,
	})

	gate := auth.NewGate(cfg.Auth.SubmitToken, cfg.Auth.ApproveToken, cfg.Auth.LegacyWriteToken, nil)

	srv := handlers.NewServer(svc, registry, controller, emitter, gate, metricsRegistry, cfg.Catalog.DefinitionFile, catalogio.Load)

	var watcher *catalogio.Watcher
	if cfg.Catalog.Watch {
		watcher, err = catalogio.NewWatcher(cfg.Catalog.DefinitionFile, 0, func() {
			result, err := controller.ReloadFromFile(cfg.Catalog.DefinitionFile, catalogio.Load, true, "fsnotify-watch")
			if err != nil {
				log.Printf("catalog watch: reload failed: %v", err)
				return
			}
			log.Printf("catalog watch: reload applied=%v %s", result.Applied, result.DiffSummary)
		}, nil)
		if err != nil {
			log.Printf("warning: failed to start catalog watcher: %v", err)
		} else {
			watchCtx, cancel := context.WithCancel(context.Background())
			defer cancel()
			watcher.Start(watchCtx)
			defer watcher.Stop()
			log.Printf("watching %s for catalog changes", cfg.Catalog.DefinitionFile)
		}
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("starting resolver on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stopCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-stopCtx.Done():
		log.Println("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

func unixClock() int64 { return time.Now().Unix() }

// syncTelemetryMetrics polls the emitter's counters onto the Prometheus
// gauges/counters exposed at /metrics until ctx is cancelled.
func syncTelemetryMetrics(ctx context.Context, emitter *telemetry.Emitter, m *telemetry.Metrics) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	syncer := telemetry.NewStatsSyncer()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			syncer.Sync(m, emitter.Stats())
		}
	}
}
