package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/zacharykka/blog-assistant/internal/domain"
	"github.com/zacharykka/blog-assistant/internal/infra/database"
)

type feedbackRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

func (r *feedbackRepository) Create(ctx context.Context, feedback *domain.AIFeedback) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`INSERT INTO ai_feedback (id, ai_request_id, quality_rating, usefulness_rating, positive_aspects, negative_aspects, suggestions, content_used, modifications_made, created_at)
VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s)`,
		ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(),
		ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next())

	_, err := r.db.ExecContext(ctx, query,
		feedback.ID, feedback.RequestID, feedback.QualityRating, feedback.UsefulnessRating,
		feedback.PositiveAspects, feedback.NegativeAspects, feedback.Suggestions,
		feedback.ContentUsed, feedback.ModificationsMade, feedback.CreatedAt)
	return translateErr(err)
}

func (r *feedbackRepository) GetByRequest(ctx context.Context, requestID string) (*domain.AIFeedback, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`SELECT id, ai_request_id, quality_rating, usefulness_rating, positive_aspects, negative_aspects,
suggestions, content_used, modifications_made, created_at
FROM ai_feedback WHERE ai_request_id = %s`, ph.Next())

	var fb domain.AIFeedback
	err := r.db.QueryRowContext(ctx, query, requestID).Scan(&fb.ID, &fb.RequestID, &fb.QualityRating,
		&fb.UsefulnessRating, &fb.PositiveAspects, &fb.NegativeAspects, &fb.Suggestions,
		&fb.ContentUsed, &fb.ModificationsMade, &fb.CreatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	return &fb, nil
}
