package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	memorystore "github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/zacharykka/blog-assistant/internal/domain"
)

const storePrefix = "blog-assistant:limiter"

// NewStore 有 Redis 时使用 Redis 计数，多实例共享；否则退回进程内存储。
func NewStore(client *redis.Client) (limiter.Store, error) {
	if client == nil {
		return memorystore.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          storePrefix,
			CleanUpInterval: time.Minute,
		}), nil
	}
	return redisstore.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix:   storePrefix,
		MaxRetry: 3,
	})
}

// NewPerMinute 构建每分钟 n 次的限流器。
func NewPerMinute(store limiter.Store, n int) *limiter.Limiter {
	return limiter.New(store, limiter.Rate{Period: time.Minute, Limit: int64(n)})
}

// ModelGate 按模型的 rate_limit（次/分钟）限流，0 表示不限。
type ModelGate struct {
	store    limiter.Store
	mu       sync.Mutex
	limiters map[int]*limiter.Limiter
}

// NewModelGate 基于共享存储构建模型限流器。
func NewModelGate(store limiter.Store) *ModelGate {
	return &ModelGate{store: store, limiters: make(map[int]*limiter.Limiter)}
}

// Allow 消耗一次额度并报告是否放行。
func (g *ModelGate) Allow(ctx context.Context, model *domain.AIModel) (bool, error) {
	if g == nil || model == nil || model.RateLimit <= 0 {
		return true, nil
	}
	result, err := g.limiterFor(model.RateLimit).Get(ctx, "model:"+model.ID)
	if err != nil {
		return false, err
	}
	return !result.Reached, nil
}

func (g *ModelGate) limiterFor(perMinute int) *limiter.Limiter {
	g.mu.Lock()
	defer g.mu.Unlock()
	if l, ok := g.limiters[perMinute]; ok {
		return l
	}
	l := NewPerMinute(g.store, perMinute)
	g.limiters[perMinute] = l
	return l
}
