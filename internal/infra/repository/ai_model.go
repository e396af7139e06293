package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/zacharykka/blog-assistant/internal/domain"
	"github.com/zacharykka/blog-assistant/internal/infra/database"
)

type aiModelRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

const aiModelColumns = `id, name, provider, model_id, model_type, description, max_tokens, temperature, top_p,
api_endpoint, requires_auth, rate_limit, is_active, last_tested_at, created_at, updated_at`

func (r *aiModelRepository) Create(ctx context.Context, model *domain.AIModel) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`INSERT INTO ai_models (id, name, provider, model_id, model_type, description, max_tokens, temperature, top_p, api_endpoint, requires_auth, rate_limit, is_active)
VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)`,
		ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(),
		ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next())

	_, err := r.db.ExecContext(ctx, query,
		model.ID, model.Name, string(model.Provider), model.ModelID, string(model.ModelType), model.Description,
		model.MaxTokens, model.Temperature, model.TopP, nullString(model.APIEndpoint),
		model.RequiresAuth, model.RateLimit, model.IsActive)
	return translateErr(err)
}

func (r *aiModelRepository) GetByID(ctx context.Context, modelID string) (*domain.AIModel, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`SELECT %s FROM ai_models WHERE id = %s`, aiModelColumns, ph.Next())
	return scanAIModel(r.db.QueryRowContext(ctx, query, modelID))
}

func (r *aiModelRepository) GetByProviderModel(ctx context.Context, provider domain.Provider, modelID string) (*domain.AIModel, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`SELECT %s FROM ai_models WHERE provider = %s AND model_id = %s`, aiModelColumns, ph.Next(), ph.Next())
	return scanAIModel(r.db.QueryRowContext(ctx, query, string(provider), modelID))
}

func (r *aiModelRepository) ListActive(ctx context.Context, modelType domain.ModelType) ([]*domain.AIModel, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`SELECT %s FROM ai_models WHERE is_active = %s`, aiModelColumns, ph.Next())
	args := []any{true}
	if modelType != "" {
		query += fmt.Sprintf(" AND model_type = %s", ph.Next())
		args = append(args, string(modelType))
	}
	query += " ORDER BY provider, name"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	models := make([]*domain.AIModel, 0)
	for rows.Next() {
		model, err := scanAIModel(rows)
		if err != nil {
			return nil, err
		}
		models = append(models, model)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return models, nil
}

func (r *aiModelRepository) SetActive(ctx context.Context, modelID string, active bool) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`UPDATE ai_models SET is_active = %s, updated_at = CURRENT_TIMESTAMP WHERE id = %s`, ph.Next(), ph.Next())

	result, err := r.db.ExecContext(ctx, query, active, modelID)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

func scanAIModel(s rowScanner) (*domain.AIModel, error) {
	var (
		model        domain.AIModel
		provider     string
		modelType    string
		endpoint     sql.NullString
		lastTestedAt sql.NullTime
		createdAt    time.Time
		updatedAt    time.Time
	)
	err := s.Scan(&model.ID, &model.Name, &provider, &model.ModelID, &modelType, &model.Description,
		&model.MaxTokens, &model.Temperature, &model.TopP, &endpoint, &model.RequiresAuth,
		&model.RateLimit, &model.IsActive, &lastTestedAt, &createdAt, &updatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	model.Provider = domain.Provider(provider)
	model.ModelType = domain.ModelType(modelType)
	model.APIEndpoint = endpoint.String
	model.LastTestedAt = timePtr(lastTestedAt)
	model.CreatedAt = createdAt
	model.UpdatedAt = updatedAt
	return &model, nil
}
