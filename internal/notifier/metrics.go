package notifier

import (
	"sync/atomic"
	"time"

	"github.com/nimasrn/merchant-ledger/pkg/prom"
)

// DeliveryMetrics keeps process-local counters for the periodic report and
// mirrors them to prometheus.
type DeliveryMetrics struct {
	delivered       atomic.Int64
	skipped         atomic.Int64
	rejected        atomic.Int64
	failed          atomic.Int64
	totalDurationNs atomic.Int64
	startedNs       int64
}

type DeliveryStats struct {
	Delivered     int64   `json:"delivered"`
	Skipped       int64   `json:"skipped"`
	Rejected      int64   `json:"rejected"`
	Failed        int64   `json:"failed"`
	RatePerSecond float64 `json:"rate_per_second"`
	AvgDurationMs int64   `json:"avg_duration_ms"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

func NewDeliveryMetrics() *DeliveryMetrics {
	return &DeliveryMetrics{startedNs: time.Now().UnixNano()}
}

func (m *DeliveryMetrics) RecordDelivered(eventType string, d time.Duration) {
	m.delivered.Add(1)
	m.totalDurationNs.Add(int64(d))
	prom.ObserveDelivery(eventType, d.Seconds())
	prom.RecordDelivery("delivered")
}

func (m *DeliveryMetrics) RecordSkipped() {
	m.skipped.Add(1)
	prom.RecordDelivery("skipped")
}

func (m *DeliveryMetrics) RecordRejected() {
	m.rejected.Add(1)
	prom.RecordDelivery("rejected")
}

func (m *DeliveryMetrics) RecordFailure() {
	m.failed.Add(1)
	prom.RecordDelivery("failed")
}

func (m *DeliveryMetrics) Stats() DeliveryStats {
	delivered := m.delivered.Load()
	elapsed := time.Since(time.Unix(0, m.startedNs)).Seconds()

	s := DeliveryStats{
		Delivered:     delivered,
		Skipped:       m.skipped.Load(),
		Rejected:      m.rejected.Load(),
		Failed:        m.failed.Load(),
		UptimeSeconds: elapsed,
	}
	if elapsed > 0 {
		s.RatePerSecond = float64(delivered) / elapsed
	}
	if delivered > 0 {
		s.AvgDurationMs = time.Duration(m.totalDurationNs.Load() / delivered).Milliseconds()
	}
	return s
}
