package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nimasrn/merchant-ledger/internal/model"
	"github.com/nimasrn/merchant-ledger/internal/queue"
	"github.com/nimasrn/merchant-ledger/internal/webhook"
	"github.com/nimasrn/merchant-ledger/pkg/logger"
	"github.com/nimasrn/merchant-ledger/pkg/redis"
	"github.com/nimasrn/merchant-ledger/pkg/worker"
	"github.com/pkg/errors"
)

// Deliverer forwards one event to the notification collaborator.
type Deliverer interface {
	Deliver(ctx context.Context, e model.Event) (string, error)
}

var _ Deliverer = (*webhook.Client)(nil)

type Config struct {
	Queue             queue.QueueConfig
	Consumers         int
	Workers           int
	ProcessingTimeout time.Duration
	ReportInterval    time.Duration
	Idempotency       IdempotencyConfig
}

func (c *Config) withDefaults() {
	if c.Consumers <= 0 {
		c.Consumers = 1
	}
	if c.Workers <= 0 {
		c.Workers = 8
	}
	if c.ProcessingTimeout <= 0 {
		c.ProcessingTimeout = 10 * time.Second
	}
	if c.ReportInterval <= 0 {
		c.ReportInterval = 30 * time.Second
	}
	if c.Idempotency.LockKeyPrefix == "" {
		c.Idempotency = DefaultIdempotencyConfig()
	}
}

// Service consumes the ledger event stream and forwards every event to the
// webhook endpoints through a worker pool.
type Service struct {
	adapter   redis.RedisAdapter
	config    Config
	deliverer Deliverer
	deduper   *Deduper
	metrics   *DeliveryMetrics
	worker    *worker.WorkerManager
	queues    []*queue.Queue

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewService(adapter redis.RedisAdapter, deliverer Deliverer, config Config) *Service {
	config.withDefaults()
	return &Service{
		adapter:   adapter,
		config:    config,
		deliverer: deliverer,
		deduper:   NewDeduper(adapter, config.Idempotency),
		metrics:   NewDeliveryMetrics(),
		worker:    worker.NewWorkerManager(config.Workers*4, config.Workers),
	}
}

func (s *Service) Start() error {
	logger.Info("[notifier] starting", "stream", s.config.Queue.Name, "consumers", s.config.Consumers, "workers", s.config.Workers)

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.worker.SetWorker(s.workerHandler)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = s.worker.Start(s.ctx)
	}()

	for i := 0; i < s.config.Consumers; i++ {
		qc := s.config.Queue
		if qc.ConsumerName == "" {
			qc.ConsumerName = "notifier"
		}
		qc.ConsumerName = fmt.Sprintf("%s-%d", qc.ConsumerName, i)

		q, err := queue.NewQueue(s.ctx, s.adapter, qc)
		if err != nil {
			return errors.Wrapf(err, "create consumer %d", i)
		}
		if err := q.Consume(s.messageHandler); err != nil {
			return errors.Wrapf(err, "start consumer %d", i)
		}
		s.queues = append(s.queues, q)
	}

	s.wg.Add(1)
	go s.reporter()
	return nil
}

func (s *Service) Stop(timeout time.Duration) {
	logger.Info("[notifier] shutting down")

	for i, q := range s.queues {
		if err := q.Stop(timeout); err != nil {
			logger.Error("[notifier] error stopping consumer", "consumer", i, "error", err)
		}
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.report()
	logger.Info("[notifier] stopped")
}

func (s *Service) Metrics() DeliveryStats {
	return s.metrics.Stats()
}

func (s *Service) reporter() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.ReportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.report()
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Service) report() {
	st := s.metrics.Stats()
	logger.Info("[notifier] stats", "delivered", st.Delivered, "skipped", st.Skipped, "rejected", st.Rejected, "failed", st.Failed, "rate_per_second", st.RatePerSecond, "avg_duration_ms", st.AvgDurationMs)

	if len(s.queues) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if qs, err := s.queues[0].GetStats(ctx); err == nil {
		logger.Info("[notifier] stream", "total", qs.TotalMessages, "pending", qs.PendingMessages)
	}
}

type job struct {
	msg    *queue.Message
	ctx    context.Context
	result chan error
}

// messageHandler hands the message to the pool and waits for its outcome so
// the queue acks only delivered events.
func (s *Service) messageHandler(ctx context.Context, msg *queue.Message) error {
	jctx, cancel := context.WithTimeout(ctx, s.config.ProcessingTimeout)
	defer cancel()

	j := &job{msg: msg, ctx: jctx, result: make(chan error, 1)}
	if err := s.worker.Enqueue(jctx, j); err != nil {
		return errors.Wrap(err, "enqueue delivery")
	}

	select {
	case err := <-j.result:
		return err
	case <-jctx.Done():
		return errors.Wrap(jctx.Err(), "waiting for delivery")
	}
}

func (s *Service) workerHandler(_ context.Context, idx int, v interface{}) {
	j, ok := v.(*job)
	if !ok {
		logger.Error("[notifier] invalid job type", "worker", idx)
		return
	}
	if j.ctx.Err() != nil {
		return
	}
	j.result <- s.Process(j.ctx, j.msg)
}

// Process delivers one stream message. A nil return acks it.
func (s *Service) Process(ctx context.Context, msg *queue.Message) error {
	var e model.Event
	if err := json.Unmarshal(msg.Data, &e); err != nil || e.ID == "" {
		// Malformed entries can never succeed.
		logger.Error("[notifier] dropping malformed event", "message_id", msg.ID, "error", err)
		s.metrics.RecordRejected()
		return nil
	}

	claim, err := s.deduper.Acquire(ctx, e.ID)
	switch {
	case errors.Is(err, ErrAlreadyDelivered):
		s.metrics.RecordSkipped()
		return nil
	case err != nil:
		s.metrics.RecordFailure()
		return err
	}

	start := time.Now()
	endpoint, err := s.deliverer.Deliver(ctx, e)
	if err != nil && !errors.Is(err, webhook.ErrRejected) {
		_ = s.deduper.Release(ctx, claim)
		s.metrics.RecordFailure()
		return errors.Wrapf(err, "deliver event %s", e.ID)
	}

	if markErr := s.deduper.MarkDelivered(ctx, claim); markErr != nil {
		logger.Warn("[notifier] mark delivered failed", "event_id", e.ID, "error", markErr)
	}
	if err != nil {
		logger.Warn("[notifier] event rejected by receiver", "event_id", e.ID, "type", e.Type, "endpoint", endpoint, "error", err)
		s.metrics.RecordRejected()
		return nil
	}

	s.metrics.RecordDelivered(string(e.Type), time.Since(start))
	logger.Info("[notifier] event delivered", "event_id", e.ID, "type", e.Type, "client_id", e.ClientID, "endpoint", endpoint, "attempt", msg.Attempts+1)
	return nil
}
