package main

import (
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nimasrn/merchant-ledger/internal/model"
	"github.com/nimasrn/merchant-ledger/internal/webhook"
	"github.com/rs/zerolog/log"
)

// ReceivedEvent is one event accepted by the sink.
type ReceivedEvent struct {
	model.Event
	Deliveries int       `json:"deliveries"`
	ReceivedAt time.Time `json:"received_at"`
}

// Sink simulates a merchant notification endpoint. It accepts ledger events,
// counts duplicate deliveries and fails a configurable share of requests so
// the notifier's retry and failover paths can be exercised.
type Sink struct {
	sinkID      string
	failureRate float64
	minDelay    time.Duration
	maxDelay    time.Duration

	mu     sync.Mutex
	rng    *rand.Rand
	events map[string]*ReceivedEvent
	order  []string
}

func NewSink(failureRate float64, minDelay, maxDelay time.Duration) *Sink {
	return &Sink{
		sinkID:      "SINK_" + uuid.New().String()[:8],
		failureRate: failureRate,
		minDelay:    minDelay,
		maxDelay:    maxDelay,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		events:      make(map[string]*ReceivedEvent),
	}
}

func (s *Sink) delay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.maxDelay <= s.minDelay {
		return s.minDelay
	}
	return s.minDelay + time.Duration(s.rng.Int63n(int64(s.maxDelay-s.minDelay)))
}

func (s *Sink) rate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failureRate
}

func (s *Sink) shouldFail() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64() < s.failureRate
}

// record stores e and returns how many times it has been delivered.
func (s *Sink) record(e model.Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.events[e.ID]; ok {
		r.Deliveries++
		return r.Deliveries
	}
	s.events[e.ID] = &ReceivedEvent{Event: e, Deliveries: 1, ReceivedAt: time.Now().UTC()}
	s.order = append(s.order, e.ID)
	return 1
}

func (s *Sink) snapshot(clientID string) []ReceivedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ReceivedEvent, 0, len(s.order))
	for _, id := range s.order {
		r := s.events[id]
		if clientID != "" && r.ClientID != clientID {
			continue
		}
		out = append(out, *r)
	}
	return out
}

type Handler struct {
	sink *Sink
}

func NewHandler(sink *Sink) *Handler {
	return &Handler{sink: sink}
}

// Receive accepts one ledger event.
func (h *Handler) Receive(c *gin.Context) {
	var e model.Event
	if err := c.ShouldBindJSON(&e); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event", "details": err.Error()})
		return
	}
	if e.ID == "" || e.ID != c.GetHeader(webhook.HeaderEventID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "event id missing or does not match header"})
		return
	}

	time.Sleep(h.sink.delay())

	if h.sink.shouldFail() {
		log.Warn().Str("event_id", e.ID).Str("type", string(e.Type)).Msg("simulated delivery failure")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable"})
		return
	}

	deliveries := h.sink.record(e)
	ev := log.Info()
	if deliveries > 1 {
		ev = log.Warn()
	}
	ev.Str("event_id", e.ID).
		Str("type", string(e.Type)).
		Str("client_id", e.ClientID).
		Int64("amount", e.Amount).
		Int("deliveries", deliveries).
		Msg("event received")

	c.JSON(http.StatusOK, gin.H{"event_id": e.ID, "sink_id": h.sink.sinkID, "deliveries": deliveries})
}

// List returns received events, optionally for one client.
func (h *Handler) List(c *gin.Context) {
	items := h.sink.snapshot(c.Query("client_id"))
	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"sink_id":      h.sink.sinkID,
		"timestamp":    time.Now(),
		"failure_rate": h.sink.rate(),
	})
}

// UpdateConfig changes the simulated failure rate at runtime.
func (h *Handler) UpdateConfig(c *gin.Context) {
	var cfg struct {
		FailureRate *float64 `json:"failure_rate"`
	}
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}
	if cfg.FailureRate != nil && *cfg.FailureRate >= 0 && *cfg.FailureRate <= 1 {
		h.sink.mu.Lock()
		h.sink.failureRate = *cfg.FailureRate
		h.sink.mu.Unlock()
		log.Info().Float64("rate", *cfg.FailureRate).Msg("updated failure rate")
	}
	c.JSON(http.StatusOK, gin.H{"failure_rate": h.sink.rate()})
}

func SetupRouter(handler *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("request processed")
	})

	v1 := router.Group("/api/v1")
	{
		v1.POST("/events", handler.Receive)
		v1.GET("/events", handler.List)
		v1.GET("/health", handler.HealthCheck)
		v1.PUT("/config", handler.UpdateConfig)
	}
	router.GET("/health", handler.HealthCheck)
	return router
}
