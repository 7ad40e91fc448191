package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nimasrn/merchant-ledger/internal/config"
	"github.com/nimasrn/merchant-ledger/internal/notifier"
	"github.com/nimasrn/merchant-ledger/internal/queue"
	"github.com/nimasrn/merchant-ledger/internal/webhook"
	"github.com/nimasrn/merchant-ledger/pkg/logger"
	"github.com/nimasrn/merchant-ledger/pkg/prom"
	"github.com/nimasrn/merchant-ledger/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	defer logger.Sync()

	err := config.Load(config.PathFromArgs(os.Args))
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}
	cfg := config.Get()
	logger.Info("starting ledger notifier", "version", version, "commit", commit, "date", date)

	redisAdap, err := redis.NewRedisAdapter("default", cfg.RedisUniversalKeyPrefix, cfg.RedisOptions())
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	whCfg := webhook.DefaultConfig(cfg.WebhookPrimaryURL, cfg.WebhookSecondaryURL)
	whCfg.Timeout = cfg.WebhookTimeout
	client, err := webhook.NewClient(whCfg)
	if err != nil {
		logger.Error("failed to create webhook client", "error", err)
		return
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	consumerName := cfg.EventsConsumerName
	if consumerName == "" {
		consumerName = hostname
	}

	service := notifier.NewService(redisAdap, client, notifier.Config{
		Queue: queue.QueueConfig{
			Name:              cfg.EventsStream,
			ConsumerGroup:     cfg.EventsConsumerGroup,
			ConsumerName:      consumerName,
			MaxRetries:        cfg.EventsMaxRetries,
			VisibilityTimeout: cfg.EventsVisibilityTimeout,
			PollInterval:      cfg.EventsPollInterval,
			BatchSize:         cfg.EventsBatchSize,
			MaxLen:            cfg.EventsMaxLen,
			EnableDLQ:         true,
		},
		Workers:     cfg.NotifierWorkers,
		Idempotency: notifier.DefaultIdempotencyConfig(),
	})

	if err = prom.Create(hostname, cfg.AppEnv, cfg.PromNamespace); err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}
	go prom.ListenAndServer(cfg.AppDebugMetricsAddr, cfg.AppDebugMetricsURI)

	if err := service.Start(); err != nil {
		logger.Error("failed to start notifier", "error", err)
		return
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	service.Stop(10 * time.Second)
}
