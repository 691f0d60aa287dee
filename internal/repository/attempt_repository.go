package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/sundayhq/sunday-scheduler/internal/models"
)

type AttemptRepository interface {
	Create(ctx context.Context, attempt *models.DispatchAttempt) (int64, error)
	ListByItemID(ctx context.Context, itemID int64) ([]*models.DispatchAttempt, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.DispatchAttempt, error)
}

type attemptRepository struct {
	db *sql.DB
}

func NewAttemptRepository(db *sql.DB) AttemptRepository {
	return &attemptRepository{db: db}
}

func (r *attemptRepository) Create(ctx context.Context, attempt *models.DispatchAttempt) (int64, error) {
	query := `
		INSERT INTO dispatch_attempts (user_id, item_id, attempt, error_message)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, attempt.UserID, attempt.ItemID, attempt.Attempt, attempt.ErrorMessage).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *attemptRepository) ListByItemID(ctx context.Context, itemID int64) ([]*models.DispatchAttempt, error) {
	query := `SELECT id, user_id, item_id, attempt, error_message, created_at FROM dispatch_attempts WHERE item_id = $1 ORDER BY created_at ASC`
	return r.list(ctx, query, itemID)
}

func (r *attemptRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.DispatchAttempt, error) {
	query := `SELECT id, user_id, item_id, attempt, error_message, created_at FROM dispatch_attempts WHERE user_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, userID)
}

func (r *attemptRepository) list(ctx context.Context, query string, arg any) ([]*models.DispatchAttempt, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var attempts []*models.DispatchAttempt
	for rows.Next() {
		var a models.DispatchAttempt
		err := rows.Scan(&a.ID, &a.UserID, &a.ItemID, &a.Attempt, &a.ErrorMessage, &a.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		attempts = append(attempts, &a)
	}
	return attempts, nil
}
