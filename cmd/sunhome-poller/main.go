// cmd/sunhome-poller/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tamzrod/sunhome-poller/internal/api/rest"
	"github.com/tamzrod/sunhome-poller/internal/api/websocket"
	"github.com/tamzrod/sunhome-poller/internal/config"
	"github.com/tamzrod/sunhome-poller/internal/metrics"
	"github.com/tamzrod/sunhome-poller/internal/poller"
	"github.com/tamzrod/sunhome-poller/internal/registers"
	"github.com/tamzrod/sunhome-poller/internal/status"
)

// live feed queue; a slower consumer loses events, never blocks the poller
const feedQueueLen = 64

func main() {
	if len(os.Args) > 2 {
		log.Fatal("usage: sunhome-poller [config.yaml]")
	}

	var cfgPath string
	if len(os.Args) == 2 {
		cfgPath = os.Args[1]
	}

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}
	config.Normalize(cfg)

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.Sync()

	table, err := registers.LoadTable(cfg.Registers.TablePath)
	if err != nil {
		logger.Fatal("Failed to load register table", zap.Error(err))
	}

	logger.Info("Config loaded",
		zap.String("device", cfg.Device.ID),
		zap.String("endpoint", cfg.Device.Endpoint()),
		zap.Int("registers", table.Len()))

	// --------------------
	// Build pipeline
	// --------------------

	store := status.NewStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	collector, err := metrics.New(reg, table)
	if err != nil {
		logger.Fatal("Failed to register metrics", zap.Error(err))
	}

	p, err := poller.Build(cfg, table, store, logger, poller.WithRecorder(collector))
	if err != nil {
		logger.Fatal("Failed to build poller", zap.Error(err))
	}

	hub := websocket.NewHub(logger.Named("ws"))
	go hub.Run()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go websocket.Forward(ctx, store.Subscribe(feedQueueLen), hub, table)

	var server *rest.Server
	if cfg.Server.HTTPPort != 0 {
		server = rest.NewServer(cfg, store, table, logger.Named("http"),
			rest.WithHub(hub),
			rest.WithLink(p.Link()),
			rest.WithMetrics(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start REST server", zap.Error(err))
		}
	}

	// first refresh runs immediately inside Start; a dead device only fails that poll
	if err := p.Start(ctx); err != nil {
		logger.Fatal("Failed to start poller", zap.Error(err))
	}

	logger.Info("sunhome-poller started")

	// --------------------
	// Wait for signal, then tear down in order
	// --------------------

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	logger.Info("Shutdown signal received")

	if err := p.Stop(cfg.Poll.ShutdownTimeout); err != nil {
		logger.Warn("Poller stop incomplete", zap.Error(err))
	}

	store.Close()

	if server != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("REST shutdown failed", zap.Error(err))
		}
		done()
	}

	hub.Stop()
	<-hub.Done()

	logger.Info("sunhome-poller stopped")
}

func newLogger(c config.LoggingConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(c.Level)
	if err != nil {
		return nil, err
	}
	zc.Level = level

	return zc.Build()
}
