package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/insurezeal/backoffice/internal/model"
)

const (
	cacheKeyPrefix = "ledger:payout:"
	cacheTTL       = 30 * time.Second
)

// Cache keeps recently fetched payout totals so that repricing bursts
// for the same agent do not hammer the ledger service.
type Cache interface {
	Get(ctx context.Context, agentCode string) (decimal.Decimal, bool)
	Set(ctx context.Context, agentCode string, total decimal.Decimal)
}

type RedisCache struct {
	rdb *redis.Client
	log *slog.Logger
}

func NewRedisCache(addr string, log *slog.Logger) *RedisCache {
	return &RedisCache{
		rdb: redis.NewClient(&redis.Options{Addr: addr}),
		log: log,
	}
}

func (c *RedisCache) Get(ctx context.Context, agentCode string,
) (decimal.Decimal, bool) {
	val, err := c.rdb.Get(ctx, cacheKeyPrefix+agentCode).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Decimal{}, false
	}
	if err != nil {
		c.log.LogAttrs(ctx, slog.LevelDebug,
			"ledger cache read failed",
			slog.Any(model.KeyLoggerError, err))
		return decimal.Decimal{}, false
	}
	total, err := decimal.NewFromString(val)
	if err != nil {
		c.log.LogAttrs(ctx, slog.LevelDebug,
			"ledger cache holds a malformed total",
			slog.String("value", val),
			slog.Any(model.KeyLoggerError, err))
		return decimal.Decimal{}, false
	}
	return total, true
}

func (c *RedisCache) Set(ctx context.Context, agentCode string,
	total decimal.Decimal,
) {
	err := c.rdb.Set(
		ctx, cacheKeyPrefix+agentCode, total.String(), cacheTTL).Err()
	if err != nil {
		c.log.LogAttrs(ctx, slog.LevelDebug,
			"ledger cache write failed",
			slog.Any(model.KeyLoggerError, err))
	}
}

func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
