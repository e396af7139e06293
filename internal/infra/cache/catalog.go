package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/zacharykka/blog-assistant/internal/domain"
)

const activeModelsKey = "blog-assistant:ai:models:active"

// ModelCatalog 为启用模型列表提供 Redis 读穿缓存，写操作后需调用 Invalidate。
type ModelCatalog struct {
	repo   domain.AIModelRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewModelCatalog 构建模型目录；client 为 nil 时直接读仓储。
func NewModelCatalog(repo domain.AIModelRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) *ModelCatalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ModelCatalog{repo: repo, client: client, ttl: ttl, logger: logger}
}

// ListActive 返回启用的模型，modelType 为空时返回全部。
func (c *ModelCatalog) ListActive(ctx context.Context, modelType domain.ModelType) ([]*domain.AIModel, error) {
	models, err := c.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	if modelType == "" {
		return models, nil
	}
	filtered := make([]*domain.AIModel, 0, len(models))
	for _, model := range models {
		if model.ModelType == modelType {
			filtered = append(filtered, model)
		}
	}
	return filtered, nil
}

// GetActive 按 ID 查找启用的模型。
func (c *ModelCatalog) GetActive(ctx context.Context, modelID string) (*domain.AIModel, error) {
	models, err := c.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, model := range models {
		if model.ID == modelID {
			return model, nil
		}
	}
	return nil, domain.ErrNotFound
}

// Invalidate 清除缓存的模型列表。
func (c *ModelCatalog) Invalidate(ctx context.Context) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, activeModelsKey).Err(); err != nil {
		c.logger.Warn("invalidate model catalog failed", zap.Error(err))
	}
}

func (c *ModelCatalog) loadAll(ctx context.Context) ([]*domain.AIModel, error) {
	if c.client != nil {
		raw, err := c.client.Get(ctx, activeModelsKey).Bytes()
		switch {
		case err == nil:
			var cached []*domain.AIModel
			if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
				return cached, nil
			}
			c.logger.Warn("discarding malformed model catalog cache")
		case !errors.Is(err, redis.Nil):
			c.logger.Warn("read model catalog cache failed", zap.Error(err))
		}
	}

	models, err := c.repo.ListActive(ctx, "")
	if err != nil {
		return nil, err
	}

	if c.client != nil {
		if data, err := json.Marshal(models); err == nil {
			if err := c.client.Set(ctx, activeModelsKey, data, c.ttl).Err(); err != nil {
				c.logger.Warn("write model catalog cache failed", zap.Error(err))
			}
		}
	}
	return models, nil
}
