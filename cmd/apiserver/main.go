// Command apiserver serves the QuestionBank HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/turtacn/QuestionBank/internal/app"
	"github.com/turtacn/QuestionBank/internal/config"
	"github.com/turtacn/QuestionBank/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/QuestionBank/internal/interfaces/http"
	"github.com/turtacn/QuestionBank/internal/interfaces/http/handlers"
	"github.com/turtacn/QuestionBank/internal/interfaces/http/middleware"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

const (
	poolSampleInterval = 15 * time.Second
	limiterSweep       = time.Minute
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: QBANK_* environment only)")
	port := flag.Int("port", 0, "HTTP port (overrides server.port)")
	flag.Parse()

	if err := run(*configPath, *port); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, port int) error {
	cfg, err := config.LoadOrEnv(configPath)
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Server.Port = port
	}

	logger, setLevel, err := logging.NewLeveledLogger(cfg.Log)
	if err != nil {
		return err
	}
	logger = logger.Named("apiserver")
	logging.SetDefault(logger)
	logger.Info("starting apiserver",
		logging.String("version", version),
		logging.String("commit", commit),
		logging.String("addr", cfg.Server.Addr()))

	if configPath != "" {
		config.Watch(configPath, func(next *config.Config) {
			setLevel(next.Log.Level)
			logger.Info("log level updated", logging.String("level", next.Log.Level))
		}, func(err error) {
			logger.Warn("config reload rejected", logging.Err(err))
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector, metrics, err := app.NewMetrics(cfg.Metrics, logger)
	if err != nil {
		return err
	}
	core, err := app.NewCore(cfg)
	if err != nil {
		return err
	}
	infra, err := app.Open(ctx, cfg, metrics, logger)
	if err != nil {
		return err
	}
	defer infra.Close()
	go infra.ObservePool(ctx, poolSampleInterval)

	svc := app.NewServices(core, infra, logger)
	routerCfg := httpserver.RouterConfig{
		Taxonomy:       handlers.NewTaxonomyHandler(core.Registry, logger),
		Numbering:      handlers.NewNumberingHandler(core.Numbers, logger),
		Questions:      handlers.NewQuestionHandler(svc.Ingest, svc.Query, logger),
		AnswerKeys:     handlers.NewAnswerKeyHandler(svc.Answers, logger),
		Classification: handlers.NewClassificationHandler(svc.Classify, logger),
		Health:         handlers.NewHealthHandler(version, infra.HealthCheckers()...),
		Logger:         logger,
		MaxBodySize:    cfg.Server.MaxBodySize,
		CORSOrigins:    cfg.Server.CORSOrigins,
	}
	if cfg.Server.RateLimit > 0 {
		limiter := middleware.NewClientLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst, 0)
		go limiter.Run(ctx, limiterSweep)
		routerCfg.RateLimiter = limiter
	}
	if cfg.Metrics.Enabled {
		routerCfg.Metrics = metrics
		routerCfg.MetricsCollector = collector
		routerCfg.MetricsPath = cfg.Metrics.Path
	}
	srv := httpserver.NewServer(cfg.Server, httpserver.NewRouter(routerCfg), logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(nil) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", logging.Err(err))
	}
	return <-errCh
}

//Personal.AI order the ending
