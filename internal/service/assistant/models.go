package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/zacharykka/blog-assistant/internal/domain"
)

// CatalogCache 为可失效的模型目录。
type CatalogCache interface {
	ModelCatalog
	Invalidate(ctx context.Context)
}

// ModelService 管理 AI 模型目录，读走缓存，写后失效。
type ModelService struct {
	repo    domain.AIModelRepository
	catalog CatalogCache
}

// NewModelService 创建模型目录服务。
func NewModelService(repo domain.AIModelRepository, catalog CatalogCache) *ModelService {
	return &ModelService{repo: repo, catalog: catalog}
}

// CreateModelInput 为注册模型的参数，零值字段使用默认值。
type CreateModelInput struct {
	Name         string
	Provider     domain.Provider
	ModelID      string
	ModelType    domain.ModelType
	Description  string
	MaxTokens    int
	Temperature  *float64
	TopP         *float64
	APIEndpoint  string
	RequiresAuth bool
	RateLimit    int
}

// List 返回启用的模型。
func (s *ModelService) List(ctx context.Context, modelType domain.ModelType) ([]*domain.AIModel, error) {
	if modelType != "" && !modelType.Valid() {
		return nil, fmt.Errorf("%w: unknown model type %q", ErrInvalidModel, modelType)
	}
	return s.catalog.ListActive(ctx, modelType)
}

// Get 返回单个启用模型。
func (s *ModelService) Get(ctx context.Context, modelID string) (*domain.AIModel, error) {
	model, err := s.catalog.GetActive(ctx, modelID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrModelNotFound
		}
		return nil, err
	}
	return model, nil
}

// Create 注册新模型，(provider, model_id) 唯一。
func (s *ModelService) Create(ctx context.Context, in CreateModelInput) (*domain.AIModel, error) {
	name := strings.TrimSpace(in.Name)
	modelID := strings.TrimSpace(in.ModelID)
	switch {
	case name == "" || modelID == "":
		return nil, fmt.Errorf("%w: name and model_id required", ErrInvalidModel)
	case !in.Provider.Valid():
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidModel, in.Provider)
	case !in.ModelType.Valid():
		return nil, fmt.Errorf("%w: unknown model type %q", ErrInvalidModel, in.ModelType)
	case in.MaxTokens < 0 || in.RateLimit < 0:
		return nil, fmt.Errorf("%w: max_tokens and rate_limit must not be negative", ErrInvalidModel)
	}

	model := &domain.AIModel{
		ID:           uuid.NewString(),
		Name:         name,
		Provider:     in.Provider,
		ModelID:      modelID,
		ModelType:    in.ModelType,
		Description:  strings.TrimSpace(in.Description),
		MaxTokens:    in.MaxTokens,
		Temperature:  0.7,
		TopP:         0.9,
		APIEndpoint:  strings.TrimSpace(in.APIEndpoint),
		RequiresAuth: in.RequiresAuth,
		RateLimit:    in.RateLimit,
		IsActive:     true,
	}
	if model.MaxTokens == 0 {
		model.MaxTokens = 1000
	}
	if in.Temperature != nil {
		model.Temperature = *in.Temperature
	}
	if in.TopP != nil {
		model.TopP = *in.TopP
	}

	if err := s.repo.Create(ctx, model); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, ErrModelExists
		}
		return nil, err
	}
	s.catalog.Invalidate(ctx)
	return s.repo.GetByID(ctx, model.ID)
}

// SetActive 启用或停用模型。
func (s *ModelService) SetActive(ctx context.Context, modelID string, active bool) (*domain.AIModel, error) {
	if err := s.repo.SetActive(ctx, modelID, active); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrModelNotFound
		}
		return nil, err
	}
	s.catalog.Invalidate(ctx)
	return s.repo.GetByID(ctx, modelID)
}
