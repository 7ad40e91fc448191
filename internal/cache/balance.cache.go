package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/nimasrn/merchant-ledger/internal/model"
	"github.com/nimasrn/merchant-ledger/pkg/logger"
	"github.com/nimasrn/merchant-ledger/pkg/redis"
	"github.com/pkg/errors"
)

const (
	balanceKeyPrefix    = "balance:"
	generationKeyPrefix = "balance-gen:"
)

// BalanceCache keeps computed balances under a per-client generation.
// Invalidate bumps the generation, which makes every older entry
// unreachable; the entries then expire by TTL. Redis errors are logged and
// treated as misses.
type BalanceCache struct {
	adapter redis.RedisAdapter
	ttl     time.Duration
}

func NewBalanceCache(adapter redis.RedisAdapter, ttl time.Duration) *BalanceCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &BalanceCache{adapter: adapter, ttl: ttl}
}

func balanceKey(clientID string, gen int64) string {
	return fmt.Sprintf("%s%s:%d", balanceKeyPrefix, clientID, gen)
}

func generationKey(clientID string) string {
	return generationKeyPrefix + clientID
}

// Lookup returns the cached balances and the generation they were read at.
// gen is negative when the generation itself could not be read; Store
// ignores such generations.
func (c *BalanceCache) Lookup(ctx context.Context, clientID string) (model.ClientBalances, int64, bool) {
	gen, err := c.generation(ctx, clientID)
	if err != nil {
		logger.Warn("[balance-cache] generation read failed", "client_id", clientID, "error", err)
		return model.ClientBalances{}, -1, false
	}

	data, err := c.adapter.Get(ctx, balanceKey(clientID, gen))
	if err != nil {
		if !errors.Is(err, redis.NilError) {
			logger.Warn("[balance-cache] read failed", "client_id", clientID, "error", err)
		}
		return model.ClientBalances{}, gen, false
	}

	var b model.ClientBalances
	if err := json.Unmarshal(data, &b); err != nil {
		logger.Warn("[balance-cache] corrupt entry", "client_id", clientID, "error", err)
		return model.ClientBalances{}, gen, false
	}
	return b, gen, true
}

func (c *BalanceCache) Store(ctx context.Context, clientID string, gen int64, b model.ClientBalances) {
	if gen < 0 {
		return
	}
	data, err := json.Marshal(b)
	if err != nil {
		logger.Warn("[balance-cache] encode failed", "client_id", clientID, "error", err)
		return
	}
	if err := c.adapter.Set(ctx, balanceKey(clientID, gen), data, c.ttl); err != nil {
		logger.Warn("[balance-cache] write failed", "client_id", clientID, "error", err)
	}
}

// Invalidate is called after every committed write for the client.
func (c *BalanceCache) Invalidate(ctx context.Context, clientID string) {
	if _, err := c.adapter.Incr(ctx, generationKey(clientID)); err != nil {
		logger.Warn("[balance-cache] invalidate failed", "client_id", clientID, "error", err)
	}
}

func (c *BalanceCache) generation(ctx context.Context, clientID string) (int64, error) {
	data, err := c.adapter.Get(ctx, generationKey(clientID))
	if errors.Is(err, redis.NilError) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(string(data), 10, 64)
}
