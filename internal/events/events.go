package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/merchant-ledger/internal/model"
	"github.com/nimasrn/merchant-ledger/internal/queue"
	"github.com/nimasrn/merchant-ledger/pkg/logger"
)

// Emitter publishes lifecycle events after a command has committed.
// Emission is fire-and-forget: failures are logged, never returned.
type Emitter interface {
	Emit(ctx context.Context, e model.Event)
}

type Publisher interface {
	PublishJSON(ctx context.Context, data interface{}, metadata map[string]string) (string, error)
}

// StreamEmitter appends events to a Redis stream through the queue.
type StreamEmitter struct {
	publisher Publisher
	timeout   time.Duration
}

var _ Publisher = (*queue.Queue)(nil)

func NewStreamEmitter(publisher Publisher, timeout time.Duration) *StreamEmitter {
	if timeout <= 0 {
		timeout = time.Second
	}
	return &StreamEmitter{publisher: publisher, timeout: timeout}
}

func (s *StreamEmitter) Emit(ctx context.Context, e model.Event) {
	e = Stamp(e)

	// The command already committed; a cancelled request must not drop it.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	_, err := s.publisher.PublishJSON(ctx, e, map[string]string{
		"event_id":   e.ID,
		"event_type": string(e.Type),
		"client_id":  e.ClientID,
	})
	if err != nil {
		logger.Warn("[events] emit failed", "event_id", e.ID, "type", e.Type, "entity_id", e.EntityID, "error", err)
		return
	}
	logger.Debug("[events] emitted", "event_id", e.ID, "type", e.Type, "entity_id", e.EntityID)
}

// Stamp fills in the id and timestamp when the caller left them empty.
func Stamp(e model.Event) model.Event {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	return e
}

type Nop struct{}

func (Nop) Emit(context.Context, model.Event) {}

// Recorder keeps emitted events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []model.Event
}

func (r *Recorder) Emit(_ context.Context, e model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Stamp(e))
}

func (r *Recorder) Events() []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *Recorder) Types() []model.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}
