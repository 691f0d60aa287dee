package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/sundayhq/sunday-scheduler/internal/models"
)

type TargetRepository interface {
	Create(ctx context.Context, target *models.PublishTarget) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.PublishTarget, error)
	GetByUserID(ctx context.Context, userID int64) (*models.PublishTarget, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.PublishTarget, error)
	CheckByUserID(ctx context.Context, targetID, userID int64) (bool, error)
	Remove(ctx context.Context, id int64) error
}

type targetRepository struct {
	db *sql.DB
}

func NewTargetRepository(db *sql.DB) TargetRepository {
	return &targetRepository{db: db}
}

const targetColumns = `id, user_id, platform, account_name, credential_ref, credential, created_at`

func (r *targetRepository) Create(ctx context.Context, target *models.PublishTarget) (int64, error) {
	query := `
		INSERT INTO publish_targets (user_id, platform, account_name, credential_ref, credential)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		target.UserID,
		target.Platform,
		target.AccountName,
		target.CredentialRef,
		target.Credential,
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *targetRepository) GetByID(ctx context.Context, id int64) (*models.PublishTarget, error) {
	query := `SELECT ` + targetColumns + ` FROM publish_targets WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetByUserID returns the user's current publishing destination, or nil when
// none is connected.
func (r *targetRepository) GetByUserID(ctx context.Context, userID int64) (*models.PublishTarget, error) {
	query := `SELECT ` + targetColumns + ` FROM publish_targets WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, userID))
}

func (r *targetRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.PublishTarget, error) {
	query := `SELECT ` + targetColumns + ` FROM publish_targets WHERE user_id = $1`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var targets []*models.PublishTarget
	for rows.Next() {
		var t models.PublishTarget
		err := rows.Scan(&t.ID, &t.UserID, &t.Platform, &t.AccountName, &t.CredentialRef, &t.Credential, &t.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		targets = append(targets, &t)
	}
	return targets, nil
}

func (r *targetRepository) CheckByUserID(ctx context.Context, targetID, userID int64) (bool, error) {
	query := `SELECT 1 FROM publish_targets WHERE id = $1 AND user_id = $2`

	var result int
	err := r.db.QueryRowContext(ctx, query, targetID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

func (r *targetRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM publish_targets WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *targetRepository) scanOne(row *sql.Row) (*models.PublishTarget, error) {
	var t models.PublishTarget
	err := row.Scan(&t.ID, &t.UserID, &t.Platform, &t.AccountName, &t.CredentialRef, &t.Credential, &t.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &t, nil
}
