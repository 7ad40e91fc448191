package notifier

import (
	"context"
	"strconv"
	"time"

	"github.com/nimasrn/merchant-ledger/pkg/logger"
	"github.com/nimasrn/merchant-ledger/pkg/redis"
	"github.com/pkg/errors"
)

var (
	ErrAlreadyDelivered = errors.New("event already delivered")
	ErrInFlight         = errors.New("event is being delivered by another worker")
)

type IdempotencyConfig struct {
	// LockTTL bounds how long a crashed worker can block redelivery.
	LockTTL            time.Duration
	DeliveredTTL       time.Duration
	LockKeyPrefix      string
	DeliveredKeyPrefix string
}

func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		LockTTL:            30 * time.Second,
		DeliveredTTL:       72 * time.Hour,
		LockKeyPrefix:      "notify-lock:",
		DeliveredKeyPrefix: "notified:",
	}
}

// Deduper makes delivery at-most-once per event id across consumers while
// the delivered marker lives.
type Deduper struct {
	redis  redis.RedisAdapter
	config IdempotencyConfig
}

func NewDeduper(adapter redis.RedisAdapter, config IdempotencyConfig) *Deduper {
	return &Deduper{redis: adapter, config: config}
}

// Claim is held by the worker delivering one event.
type Claim struct {
	EventID string
	held    bool
}

func (d *Deduper) Acquire(ctx context.Context, eventID string) (*Claim, error) {
	exists, err := d.redis.Exist(ctx, d.config.DeliveredKeyPrefix+eventID)
	if err != nil {
		// A duplicate webhook is preferable to a lost notification.
		logger.Warn("[notifier] delivered check failed", "event_id", eventID, "error", err)
	} else if exists > 0 {
		return nil, ErrAlreadyDelivered
	}

	token := []byte(strconv.FormatInt(time.Now().UnixNano(), 10))
	acquired, err := d.redis.SetNX(ctx, d.config.LockKeyPrefix+eventID, token, d.config.LockTTL)
	if err != nil {
		return nil, errors.Wrapf(err, "lock event %s", eventID)
	}
	if !acquired {
		return nil, ErrInFlight
	}
	return &Claim{EventID: eventID, held: true}, nil
}

func (d *Deduper) MarkDelivered(ctx context.Context, c *Claim) error {
	if err := d.redis.Set(ctx, d.config.DeliveredKeyPrefix+c.EventID, []byte("1"), d.config.DeliveredTTL); err != nil {
		return errors.Wrapf(err, "mark event %s delivered", c.EventID)
	}
	return d.Release(ctx, c)
}

func (d *Deduper) Release(ctx context.Context, c *Claim) error {
	if c == nil || !c.held {
		return nil
	}
	if err := d.redis.Del(ctx, d.config.LockKeyPrefix+c.EventID); err != nil {
		logger.Warn("[notifier] lock release failed", "event_id", c.EventID, "error", err)
		return err
	}
	c.held = false
	return nil
}

func (d *Deduper) IsDelivered(ctx context.Context, eventID string) (bool, error) {
	exists, err := d.redis.Exist(ctx, d.config.DeliveredKeyPrefix+eventID)
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}
