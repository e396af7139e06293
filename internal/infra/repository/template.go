package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/zacharykka/blog-assistant/internal/domain"
	"github.com/zacharykka/blog-assistant/internal/infra/database"
)

type templateRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

const templateColumns = `id, name, description, template_type, template_text, required_variables, optional_variables,
default_temperature, default_max_tokens, usage_count, avg_rating, rating_count, is_active, created_at, updated_at`

func (r *templateRepository) Create(ctx context.Context, tpl *domain.PromptTemplate) error {
	required, err := encodeStrings(tpl.RequiredVariables)
	if err != nil {
		return err
	}
	optional, err := encodeStrings(tpl.OptionalVariables)
	if err != nil {
		return err
	}

	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`INSERT INTO prompt_templates (id, name, description, template_type, template_text, required_variables, optional_variables, default_temperature, default_max_tokens, is_active)
VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s)`,
		ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(),
		ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next())

	_, err = r.db.ExecContext(ctx, query,
		tpl.ID, tpl.Name, tpl.Description, string(tpl.TemplateType), tpl.Body,
		required, optional, tpl.DefaultTemperature, tpl.DefaultMaxTokens, tpl.IsActive)
	return translateErr(err)
}

func (r *templateRepository) GetByID(ctx context.Context, templateID string) (*domain.PromptTemplate, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`SELECT %s FROM prompt_templates WHERE id = %s`, templateColumns, ph.Next())
	return scanTemplate(r.db.QueryRowContext(ctx, query, templateID))
}

func (r *templateRepository) GetByName(ctx context.Context, name string) (*domain.PromptTemplate, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`SELECT %s FROM prompt_templates WHERE name = %s`, templateColumns, ph.Next())
	return scanTemplate(r.db.QueryRowContext(ctx, query, name))
}

func (r *templateRepository) GetActiveByType(ctx context.Context, templateType domain.TemplateType) (*domain.PromptTemplate, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`SELECT %s FROM prompt_templates WHERE template_type = %s AND is_active = %s ORDER BY name LIMIT 1`,
		templateColumns, ph.Next(), ph.Next())
	return scanTemplate(r.db.QueryRowContext(ctx, query, string(templateType), true))
}

func (r *templateRepository) List(ctx context.Context, activeOnly bool) ([]*domain.PromptTemplate, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`SELECT %s FROM prompt_templates`, templateColumns)
	var args []any
	if activeOnly {
		query += fmt.Sprintf(" WHERE is_active = %s", ph.Next())
		args = append(args, true)
	}
	query += " ORDER BY template_type, name"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	templates := make([]*domain.PromptTemplate, 0)
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return templates, nil
}

func (r *templateRepository) IncrementUsage(ctx context.Context, templateID string) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`UPDATE prompt_templates SET usage_count = usage_count + 1 WHERE id = %s`, ph.Next())

	result, err := r.db.ExecContext(ctx, query, templateID)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// AddRating 以增量方式维护平均分，rating_count 记录参与平均的评分数。
func (r *templateRepository) AddRating(ctx context.Context, name string, rating int) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`UPDATE prompt_templates
SET avg_rating = (avg_rating * rating_count + %s) / (rating_count + 1),
    rating_count = rating_count + 1,
    updated_at = CURRENT_TIMESTAMP
WHERE name = %s`, ph.Next(), ph.Next())

	result, err := r.db.ExecContext(ctx, query, float64(rating), name)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

func scanTemplate(s rowScanner) (*domain.PromptTemplate, error) {
	var (
		tpl          domain.PromptTemplate
		templateType string
		required     string
		optional     string
	)
	err := s.Scan(&tpl.ID, &tpl.Name, &tpl.Description, &templateType, &tpl.Body, &required, &optional,
		&tpl.DefaultTemperature, &tpl.DefaultMaxTokens, &tpl.UsageCount, &tpl.AvgRating, &tpl.RatingCount,
		&tpl.IsActive, &tpl.CreatedAt, &tpl.UpdatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	tpl.TemplateType = domain.TemplateType(templateType)
	tpl.RequiredVariables = decodeStrings(required)
	tpl.OptionalVariables = decodeStrings(optional)
	return &tpl, nil
}
