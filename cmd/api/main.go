package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/nimasrn/merchant-ledger/internal/cache"
	"github.com/nimasrn/merchant-ledger/internal/config"
	"github.com/nimasrn/merchant-ledger/internal/events"
	"github.com/nimasrn/merchant-ledger/internal/handlers"
	"github.com/nimasrn/merchant-ledger/internal/queue"
	"github.com/nimasrn/merchant-ledger/internal/repository"
	"github.com/nimasrn/merchant-ledger/internal/services"
	xhttp "github.com/nimasrn/merchant-ledger/pkg/http"
	"github.com/nimasrn/merchant-ledger/pkg/logger"
	"github.com/nimasrn/merchant-ledger/pkg/pg"
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
	logger.Info("starting ledger api", "version", version, "commit", commit, "date", date)

	opts := xhttp.DefaultServerOption()
	opts.ReadBufferSize = cfg.HttpReadBufferSize
	s := xhttp.NewServer(opts)
	s.Use(xhttp.RecoverMiddleware)
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.TimeoutMiddleware(cfg.HttpRequestTimeout))

	db, err := pg.CreateReadWrite(cfg.PostgresRead(), cfg.PostgresWrite(), cfg.AppEnv == "dev")
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}
	defer db.Close()

	redisAdap, err := redis.NewRedisAdapter("default", cfg.RedisUniversalKeyPrefix, cfg.RedisOptions())
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	eventQueue, err := queue.NewQueue(context.Background(), redisAdap, queue.QueueConfig{
		Name:              cfg.EventsStream,
		ConsumerGroup:     cfg.EventsConsumerGroup,
		MaxRetries:        cfg.EventsMaxRetries,
		VisibilityTimeout: cfg.EventsVisibilityTimeout,
		PollInterval:      cfg.EventsPollInterval,
		BatchSize:         cfg.EventsBatchSize,
		MaxLen:            cfg.EventsMaxLen,
		EnableDLQ:         true,
	})
	if err != nil {
		logger.Error("failed creating event stream", "error", err)
		return
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	if err = prom.Create(hostname, cfg.AppEnv, cfg.PromNamespace); err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}
	go prom.ListenAndServer(cfg.AppDebugMetricsAddr, cfg.AppDebugMetricsURI)

	deps := services.Deps{
		Store:        repository.NewStore(db),
		Profiles:     repository.NewProfileRepository(db),
		Rates:        repository.NewRateRepository(db),
		Transactions: repository.NewTransactionRepository(db),
		Withdrawals:  repository.NewWithdrawalRepository(db),
		Adjustments:  repository.NewAdjustmentRepository(db),
		Emitter:      events.NewStreamEmitter(eventQueue, cfg.LedgerStoreTimeout),
		Timeout:      cfg.LedgerStoreTimeout,
	}
	if cfg.BalanceCacheEnabled {
		deps.Cache = cache.NewBalanceCache(redisAdap, cfg.BalanceCacheTTL)
	}

	// services
	ledger := services.NewLedger(deps)
	healthService := services.NewHealthService(map[string]services.Pinger{
		"postgres": db,
		"redis":    redisAdap,
	})

	// v1 handlers
	g := s.Router.Group("/api/v1")
	handlers.RegisterTransactionRoutes(g, handlers.NewTransactionHandler(ledger.Transactions))
	handlers.RegisterWithdrawalRoutes(g, handlers.NewWithdrawalHandler(ledger.Withdrawals))
	handlers.RegisterClientRoutes(g, handlers.NewClientHandler(ledger.Adjustments, ledger.Balances))
	handlers.RegisterHealthRoutes(g, handlers.NewHealthHandler(healthService))

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := s.ListenAndServe(cfg.HttpListenAddr); err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()

	<-c
	s.Shutdown()
}
