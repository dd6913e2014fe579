package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ticksim/internal/config"
	"ticksim/internal/engine"
	"ticksim/internal/handler"
	"ticksim/internal/market"
	"ticksim/internal/notify"
	"ticksim/internal/refdata"
	"ticksim/internal/service"
	"ticksim/internal/store"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Reference data: built-ins plus the optional instruments file.
	ref := refdata.NewStore()
	if cfg.InstrumentsFile != "" {
		if err := ref.Load(cfg.InstrumentsFile); err != nil {
			logger.Fatal("failed to load instruments file",
				zap.String("path", cfg.InstrumentsFile), zap.Error(err))
		}
		logger.Info("instruments file loaded", zap.String("path", cfg.InstrumentsFile))
	}

	// Stores and engine.
	orderStore := store.NewOrderStore()
	tradeStore := store.NewTradeStore()
	eng := engine.NewMatchingEngine(logger, orderStore, tradeStore, cfg.FillCap)

	// Market feed.
	sched, err := market.NewScheduler(logger, ref, market.Options{
		Interval:  cfg.TickInterval,
		QueueSize: cfg.QueueSize,
		Policy:    market.OverflowPolicy(cfg.OverflowPolicy),
		Seed:      cfg.RNGSeed,
	})
	if err != nil {
		logger.Fatal("failed to create scheduler", zap.Error(err))
	}

	// Notifications.
	registry := notify.NewRegistry()
	dispatcher := notify.NewDispatcher(logger, registry, cfg.ListenerTimeout)

	// Services.
	marketSvc := service.NewMarketService(logger, ref, sched)
	orderSvc := service.NewOrderService(logger, eng, ref, orderStore, tradeStore, dispatcher)

	// The engine consumes the feed like any other subscriber.
	if err := sched.Subscribe(eng); err != nil {
		logger.Fatal("failed to subscribe engine", zap.Error(err))
	}
	if err := marketSvc.Bootstrap(); err != nil {
		logger.Fatal("failed to bootstrap market", zap.Error(err))
	}

	router := handler.NewRouter(orderSvc, marketSvc, registry, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Wait for SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", zap.String("signal", sig.String()))

	// Graceful shutdown: stop HTTP server, then the market clock.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	sched.Stop()
	cancel()

	logger.Info("server stopped")
}

// newLogger builds a JSON production logger at the configured level.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
