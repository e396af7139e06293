package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/zacharykka/blog-assistant/internal/domain"
	"github.com/zacharykka/blog-assistant/internal/infra/database"
)

type aiRequestRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

const aiRequestColumns = `id, user_id, ai_model_id, request_type, input_text, output_text, prompt_template, parameters,
duration_ms, tokens_used, cost, status, error_message, ip_address, user_agent, created_at, completed_at`

func (r *aiRequestRepository) Create(ctx context.Context, req *domain.AIRequest) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`INSERT INTO ai_requests (id, user_id, ai_model_id, request_type, input_text, prompt_template, parameters, status, ip_address, user_agent, created_at)
VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)`,
		ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(),
		ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next())

	params := sql.NullString{}
	if len(req.Parameters) > 0 {
		params = sql.NullString{String: string(req.Parameters), Valid: true}
	}
	status := req.Status
	if status == "" {
		status = domain.StatusPending
	}

	_, err := r.db.ExecContext(ctx, query,
		req.ID, req.UserID, req.ModelID, string(req.RequestType), req.InputText,
		nullString(req.PromptTemplate), params, string(status),
		nullString(req.IPAddress), nullString(req.UserAgent), req.CreatedAt)
	return translateErr(err)
}

func (r *aiRequestRepository) GetByID(ctx context.Context, requestID string) (*domain.AIRequest, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`SELECT %s FROM ai_requests WHERE id = %s`, aiRequestColumns, ph.Next())
	return scanAIRequest(r.db.QueryRowContext(ctx, query, requestID))
}

func (r *aiRequestRepository) MarkCompleted(ctx context.Context, req *domain.AIRequest) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`UPDATE ai_requests SET status = %s, output_text = %s, tokens_used = %s, cost = %s, duration_ms = %s, completed_at = %s
WHERE id = %s AND status = %s`,
		ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next())

	result, err := r.db.ExecContext(ctx, query,
		string(domain.StatusCompleted), req.OutputText, req.TokensUsed, req.Cost, req.DurationMs,
		nullTime(req.CompletedAt), req.ID, string(domain.StatusProcessing))
	if err != nil {
		return err
	}
	return r.checkTransition(ctx, result, req.ID)
}

func (r *aiRequestRepository) MarkFailed(ctx context.Context, requestID, message string, completedAt time.Time) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`UPDATE ai_requests SET status = %s, error_message = %s, output_text = '', completed_at = %s
WHERE id = %s AND status = %s`,
		ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next())

	result, err := r.db.ExecContext(ctx, query,
		string(domain.StatusFailed), message, completedAt, requestID, string(domain.StatusProcessing))
	if err != nil {
		return err
	}
	return r.checkTransition(ctx, result, requestID)
}

// checkTransition 区分记录不存在与记录已处于终态两种情况。
func (r *aiRequestRepository) checkTransition(ctx context.Context, result sql.Result, requestID string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}
	if _, err := r.GetByID(ctx, requestID); err != nil {
		return err
	}
	return domain.ErrConflict
}

func (r *aiRequestRepository) List(ctx context.Context, opts domain.RequestListOptions) ([]*domain.AIRequest, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`SELECT %s FROM ai_requests`, aiRequestColumns)
	var args []any
	if opts.UserID != "" {
		query += fmt.Sprintf(" WHERE user_id = %s", ph.Next())
		args = append(args, opts.UserID)
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT %s OFFSET %s", ph.Next(), ph.Next())
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := make([]*domain.AIRequest, 0)
	for rows.Next() {
		req, err := scanAIRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *aiRequestRepository) Count(ctx context.Context, userID string) (int64, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := "SELECT COUNT(1) FROM ai_requests"
	var args []any
	if userID != "" {
		query += fmt.Sprintf(" WHERE user_id = %s", ph.Next())
		args = append(args, userID)
	}
	var total int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *aiRequestRepository) CountByStatus(ctx context.Context, status domain.RequestStatus) (int64, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf("SELECT COUNT(1) FROM ai_requests WHERE status = %s", ph.Next())
	var total int64
	if err := r.db.QueryRowContext(ctx, query, string(status)).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *aiRequestRepository) TopModels(ctx context.Context, limit int) ([]*domain.ModelRequestCount, error) {
	if limit <= 0 {
		limit = 5
	}
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`SELECT m.id, m.name, COUNT(r.id) AS request_count
FROM ai_requests r
JOIN ai_models m ON r.ai_model_id = m.id
GROUP BY m.id, m.name
ORDER BY request_count DESC, m.name
LIMIT %s`, ph.Next())

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make([]*domain.ModelRequestCount, 0)
	for rows.Next() {
		var item domain.ModelRequestCount
		if err := rows.Scan(&item.ModelID, &item.Name, &item.RequestCount); err != nil {
			return nil, err
		}
		counts = append(counts, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

func scanAIRequest(s rowScanner) (*domain.AIRequest, error) {
	var (
		req            domain.AIRequest
		requestType    string
		status         string
		promptTemplate sql.NullString
		params         sql.NullString
		errorMessage   sql.NullString
		ipAddress      sql.NullString
		userAgent      sql.NullString
		completedAt    sql.NullTime
	)
	err := s.Scan(&req.ID, &req.UserID, &req.ModelID, &requestType, &req.InputText, &req.OutputText,
		&promptTemplate, &params, &req.DurationMs, &req.TokensUsed, &req.Cost, &status,
		&errorMessage, &ipAddress, &userAgent, &req.CreatedAt, &completedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	req.RequestType = domain.RequestType(requestType)
	req.Status = domain.RequestStatus(status)
	req.PromptTemplate = promptTemplate.String
	if params.Valid && params.String != "" {
		req.Parameters = json.RawMessage(params.String)
	}
	req.ErrorMessage = errorMessage.String
	req.IPAddress = ipAddress.String
	req.UserAgent = userAgent.String
	req.CompletedAt = timePtr(completedAt)
	return &req, nil
}
