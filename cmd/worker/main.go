// Command worker consumes classifier proposals from Kafka and stores the
// reconciled tags on the question parts.
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
	"github.com/turtacn/QuestionBank/internal/application/worker"
	"github.com/turtacn/QuestionBank/internal/config"
	"github.com/turtacn/QuestionBank/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/QuestionBank/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/QuestionBank/internal/interfaces/http"
	"github.com/turtacn/QuestionBank/internal/interfaces/http/handlers"
)

var version = "dev"

const (
	defaultHealthPort  = 8081
	poolSampleInterval = 15 * time.Second
	shutdownTimeout    = 10 * time.Second
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: QBANK_* environment only)")
	concurrency := flag.Int("workers", 0, "concurrent proposal items per message (overrides worker.concurrency)")
	healthPort := flag.Int("health-port", defaultHealthPort, "port for /healthz, /readyz and metrics")
	ensureTopics := flag.Bool("ensure-topics", false, "create missing Kafka topics before consuming")
	flag.Parse()

	if err := run(*configPath, *concurrency, *healthPort, *ensureTopics); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, concurrency, healthPort int, ensureTopics bool) error {
	cfg, err := config.LoadOrEnv(configPath)
	if err != nil {
		return err
	}
	if !cfg.Kafka.Enabled {
		return fmt.Errorf("kafka.enabled must be true for the worker")
	}
	if concurrency > 0 {
		cfg.Worker.Concurrency = concurrency
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	logger = logger.Named("worker")
	logging.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if ensureTopics {
		if err := createTopics(ctx, cfg, logger); err != nil {
			return err
		}
	}

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

	// Messages that exhaust their retries go to the dead-letter topic through
	// the producer opened by app.Open.
	consumer, err := kafka.NewConsumer(cfg.Kafka, []string{proposalTopic(cfg)}, infra.Producer, logger)
	if err != nil {
		return err
	}
	defer consumer.Close()

	healthCfg := cfg.Server
	healthCfg.Port = healthPort
	routerCfg := httpserver.RouterConfig{
		Health: handlers.NewHealthHandler(version, infra.HealthCheckers()...),
		Logger: logger,
	}
	if cfg.Metrics.Enabled {
		routerCfg.MetricsCollector = collector
		routerCfg.MetricsPath = cfg.Metrics.Path
	}
	healthSrv := httpserver.NewServer(healthCfg, httpserver.NewRouter(routerCfg), logger)
	go func() {
		if err := healthSrv.Start(nil); err != nil {
			logger.Error("health server failed", logging.Err(err))
		}
	}()

	w := worker.New(consumer, svc.Classify, proposalTopic(cfg), cfg.Worker, metrics, logger)
	runErr := w.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("health server shutdown failed", logging.Err(err))
	}
	processed, dropped := consumer.Counts()
	logger.Info("worker exited", logging.Int64("processed", processed), logging.Int64("dropped", dropped))
	return runErr
}

func proposalTopic(cfg *config.Config) string {
	if cfg.Kafka.ProposalTopic != "" {
		return cfg.Kafka.ProposalTopic
	}
	return kafka.TopicClassificationProposed
}

func createTopics(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	tm, err := kafka.NewTopicManager(cfg.Kafka.Brokers, logger)
	if err != nil {
		return err
	}
	defer tm.Close()

	topics := kafka.DefaultTopics(1)
	if t := proposalTopic(cfg); t != kafka.TopicClassificationProposed {
		topics = append(topics, kafka.TopicConfig{Name: t, NumPartitions: 6, ReplicationFactor: 1})
	}
	return tm.EnsureTopics(ctx, topics)
}

//Personal.AI order the ending
