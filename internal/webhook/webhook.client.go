package webhook

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/nimasrn/merchant-ledger/internal/model"
	"github.com/nimasrn/merchant-ledger/pkg/logger"
	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"
)

var (
	ErrNoAvailableEndpoints = errors.New("no available webhook endpoints")
	ErrRejected             = errors.New("webhook rejected event")
)

const (
	HeaderEventID   = "X-Ledger-Event-Id"
	HeaderEventType = "X-Ledger-Event-Type"
)

type EndpointMetrics struct {
	TotalRequests    atomic.Int64
	SuccessfulReqs   atomic.Int64
	FailedReqs       atomic.Int64
	TotalLatencyMs   atomic.Int64
	ConsecutiveFails atomic.Int32
	LastErrorTime    atomic.Int64
	LastSuccessTime  atomic.Int64
}

func (m *EndpointMetrics) RecordSuccess(latencyMs int64) {
	m.TotalRequests.Add(1)
	m.SuccessfulReqs.Add(1)
	m.TotalLatencyMs.Add(latencyMs)
	m.ConsecutiveFails.Store(0)
	m.LastSuccessTime.Store(time.Now().Unix())
}

func (m *EndpointMetrics) RecordFailure() int32 {
	m.TotalRequests.Add(1)
	m.FailedReqs.Add(1)
	m.LastErrorTime.Store(time.Now().Unix())
	return m.ConsecutiveFails.Add(1)
}

func (m *EndpointMetrics) SuccessRate() float64 {
	total := m.TotalRequests.Load()
	if total == 0 {
		return 1.0
	}
	return float64(m.SuccessfulReqs.Load()) / float64(total)
}

func (m *EndpointMetrics) AvgLatencyMs() int64 {
	ok := m.SuccessfulReqs.Load()
	if ok == 0 {
		return 0
	}
	return m.TotalLatencyMs.Load() / ok
}

// Endpoint is one receiver of ledger events. Its circuit opens after
// CircuitBreakerThreshold consecutive failures and half-opens once
// CircuitBreakerTimeout has passed.
type Endpoint struct {
	name             string
	url              string
	client           *fasthttp.Client
	metrics          *EndpointMetrics
	circuitOpenUntil atomic.Int64
}

func (e *Endpoint) Name() string {
	return e.name
}

func (e *Endpoint) Available(now time.Time) bool {
	return now.UnixNano() >= e.circuitOpenUntil.Load()
}

type Config struct {
	Endpoints               []EndpointConfig
	Timeout                 time.Duration
	MaxConns                int
	CircuitBreakerThreshold int
	CircuitBreakerTimeout   time.Duration
	// Dial overrides the dialer of every endpoint client.
	Dial fasthttp.DialFunc
}

// EndpointConfig entries are tried in the order given.
type EndpointConfig struct {
	Name string
	URL  string
}

func DefaultConfig(urls ...string) *Config {
	cfg := &Config{
		Timeout:                 5 * time.Second,
		MaxConns:                256,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   30 * time.Second,
	}
	names := []string{"primary", "secondary"}
	for i, u := range urls {
		if u == "" {
			continue
		}
		name := "endpoint"
		if i < len(names) {
			name = names[i]
		}
		cfg.Endpoints = append(cfg.Endpoints, EndpointConfig{Name: name, URL: u})
	}
	return cfg
}

// Client posts events to its endpoints in configured order. The endpoint
// list is fixed at construction; per-endpoint state is atomic.
type Client struct {
	config    *Config
	endpoints []*Endpoint
}

func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if len(config.Endpoints) == 0 {
		return nil, errors.New("at least one webhook endpoint is required")
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	if config.CircuitBreakerThreshold <= 0 {
		config.CircuitBreakerThreshold = 5
	}

	c := &Client{config: config}
	for _, ec := range config.Endpoints {
		if ec.URL == "" {
			return nil, errors.Errorf("webhook endpoint %q has no url", ec.Name)
		}
		c.endpoints = append(c.endpoints, &Endpoint{
			name: ec.Name,
			url:  ec.URL,
			client: &fasthttp.Client{
				MaxConnsPerHost:     config.MaxConns,
				ReadTimeout:         config.Timeout,
				WriteTimeout:        config.Timeout,
				MaxIdleConnDuration: time.Minute,
				Dial:                config.Dial,
			},
			metrics: &EndpointMetrics{},
		})
		logger.Info("[webhook] endpoint initialized", "name", ec.Name, "url", ec.URL)
	}
	return c, nil
}

// Deliver posts the event to the first endpoint that accepts it, falling
// over to the next one on failure. A 4xx answer means the receiver refuses
// the payload; it is returned as ErrRejected without failover.
func (c *Client) Deliver(ctx context.Context, e model.Event) (string, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return "", errors.Wrap(err, "marshal event")
	}

	lastErr := ErrNoAvailableEndpoints
	now := time.Now()
	for _, ep := range c.endpoints {
		if !ep.Available(now) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}

		start := time.Now()
		err := c.post(ctx, ep, e, body)
		latency := time.Since(start).Milliseconds()

		if err == nil {
			ep.metrics.RecordSuccess(latency)
			logger.Debug("[webhook] delivered", "event_id", e.ID, "endpoint", ep.name, "latency_ms", latency)
			return ep.name, nil
		}
		if errors.Is(err, ErrRejected) {
			ep.metrics.RecordSuccess(latency)
			return ep.name, err
		}

		fails := ep.metrics.RecordFailure()
		c.checkCircuitBreaker(ep, fails)
		logger.Warn("[webhook] delivery failed", "event_id", e.ID, "endpoint", ep.name, "error", err)
		lastErr = err
	}
	return "", lastErr
}

func (c *Client) post(ctx context.Context, ep *Endpoint, e model.Event, body []byte) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(ep.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set(HeaderEventID, e.ID)
	req.Header.Set(HeaderEventType, string(e.Type))
	req.SetBody(body)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.config.Timeout)
	}
	if err := ep.client.DoDeadline(req, resp, deadline); err != nil {
		return errors.Wrapf(err, "post to %s", ep.name)
	}

	status := resp.StatusCode()
	switch {
	case status >= 200 && status < 300:
		return nil
	case status >= 400 && status < 500 && status != fasthttp.StatusTooManyRequests && status != fasthttp.StatusRequestTimeout:
		return errors.Wrapf(ErrRejected, "%s answered %d: %s", ep.name, status, resp.Body())
	default:
		return errors.Errorf("%s answered %d", ep.name, status)
	}
}

func (c *Client) checkCircuitBreaker(ep *Endpoint, fails int32) {
	if fails < int32(c.config.CircuitBreakerThreshold) {
		return
	}
	ep.circuitOpenUntil.Store(time.Now().Add(c.config.CircuitBreakerTimeout).UnixNano())
	logger.Warn("[webhook] circuit opened", "endpoint", ep.name, "consecutive_fails", fails, "timeout", c.config.CircuitBreakerTimeout)
}

type EndpointStats struct {
	Name             string  `json:"name"`
	URL              string  `json:"url"`
	Available        bool    `json:"available"`
	TotalRequests    int64   `json:"total_requests"`
	FailedReqs       int64   `json:"failed_requests"`
	SuccessRate      float64 `json:"success_rate"`
	AvgLatencyMs     int64   `json:"avg_latency_ms"`
	ConsecutiveFails int32   `json:"consecutive_fails"`
}

func (c *Client) Stats() []EndpointStats {
	now := time.Now()
	stats := make([]EndpointStats, 0, len(c.endpoints))
	for _, ep := range c.endpoints {
		stats = append(stats, EndpointStats{
			Name:             ep.name,
			URL:              ep.url,
			Available:        ep.Available(now),
			TotalRequests:    ep.metrics.TotalRequests.Load(),
			FailedReqs:       ep.metrics.FailedReqs.Load(),
			SuccessRate:      ep.metrics.SuccessRate(),
			AvgLatencyMs:     ep.metrics.AvgLatencyMs(),
			ConsecutiveFails: ep.metrics.ConsecutiveFails.Load(),
		})
	}
	return stats
}
