package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/sundayhq/sunday-scheduler/internal/models"
)

// ItemRepository is the only write path to publish_items. The Mark*/Return*
// mutators are guarded by a WHERE clause on the current status and report
// whether the row was actually won, so concurrent callers racing on the same
// item resolve through the database rather than through locks.
type ItemRepository interface {
	Create(ctx context.Context, item *models.PublishItem) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.PublishItem, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.PublishItem, error)
	CheckByUserID(ctx context.Context, itemID, userID int64) (bool, error)
	Remove(ctx context.Context, id int64) error

	ListDue(ctx context.Context, now time.Time, maxRetries, limit int) ([]*models.PublishItem, error)
	ListStale(ctx context.Context, cutoff time.Time, maxRetries int) ([]*models.PublishItem, error)

	MarkPublishing(ctx context.Context, id int64) (bool, error)
	MarkPublished(ctx context.Context, id int64, externalRef string) (bool, error)
	MarkFailed(ctx context.Context, id int64, errorMessage string, retryCount int) (bool, error)
	ReturnToScheduled(ctx context.Context, id int64) (bool, error)
	Reschedule(ctx context.Context, id int64, at time.Time, retryCount int) (bool, error)
	SetScheduled(ctx context.Context, id int64, at time.Time) error
	SetDraft(ctx context.Context, id int64) error
	Restore(ctx context.Context, item *models.PublishItem) error
}

type itemRepository struct {
	db *sql.DB
}

func NewItemRepository(db *sql.DB) ItemRepository {
	return &itemRepository{db: db}
}

const itemColumns = `id, user_id, caption, title, media_key, status, scheduled_at, published_at, external_ref, error_message, retry_count, created_at, updated_at`

func scanItem(row interface{ Scan(...any) error }) (*models.PublishItem, error) {
	var item models.PublishItem
	err := row.Scan(
		&item.ID,
		&item.UserID,
		&item.Caption,
		&item.Title,
		&item.MediaKey,
		&item.Status,
		&item.ScheduledAt,
		&item.PublishedAt,
		&item.ExternalRef,
		&item.ErrorMessage,
		&item.RetryCount,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *itemRepository) Create(ctx context.Context, item *models.PublishItem) (int64, error) {
	query := `
		INSERT INTO publish_items (user_id, caption, title, media_key, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, item.UserID, item.Caption, item.Title, item.MediaKey, models.StatusDraft).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *itemRepository) GetByID(ctx context.Context, id int64) (*models.PublishItem, error) {
	query := `SELECT ` + itemColumns + ` FROM publish_items WHERE id = $1`
	item, err := scanItem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return item, nil
}

func (r *itemRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.PublishItem, error) {
	query := `SELECT ` + itemColumns + ` FROM publish_items WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return collectItems(rows)
}

func (r *itemRepository) CheckByUserID(ctx context.Context, itemID, userID int64) (bool, error) {
	query := `SELECT 1 FROM publish_items WHERE id = $1 AND user_id = $2`

	var result int
	err := r.db.QueryRowContext(ctx, query, itemID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

func (r *itemRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM publish_items WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *itemRepository) ListDue(ctx context.Context, now time.Time, maxRetries, limit int) ([]*models.PublishItem, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM publish_items
		WHERE status = $1 AND scheduled_at <= $2 AND retry_count < $3
		ORDER BY scheduled_at ASC
		LIMIT $4
	`
	rows, err := r.db.QueryContext(ctx, query, models.StatusScheduled, now, maxRetries, limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return collectItems(rows)
}

func (r *itemRepository) ListStale(ctx context.Context, cutoff time.Time, maxRetries int) ([]*models.PublishItem, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM publish_items
		WHERE status = $1 AND updated_at <= $2 AND retry_count < $3
		ORDER BY updated_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, models.StatusPublishing, cutoff, maxRetries)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return collectItems(rows)
}

func (r *itemRepository) MarkPublishing(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE publish_items
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`
	return r.execGuarded(ctx, query, models.StatusPublishing, time.Now(), id, models.StatusScheduled)
}

func (r *itemRepository) MarkPublished(ctx context.Context, id int64, externalRef string) (bool, error) {
	query := `
		UPDATE publish_items
		SET status = $1, published_at = $2, external_ref = $3, updated_at = $2
		WHERE id = $4 AND status = $5
	`
	return r.execGuarded(ctx, query, models.StatusPublished, time.Now(), externalRef, id, models.StatusPublishing)
}

func (r *itemRepository) MarkFailed(ctx context.Context, id int64, errorMessage string, retryCount int) (bool, error) {
	query := `
		UPDATE publish_items
		SET status = $1, error_message = $2, retry_count = $3, updated_at = $4
		WHERE id = $5 AND status = $6
	`
	return r.execGuarded(ctx, query, models.StatusFailed, errorMessage, retryCount, time.Now(), id, models.StatusPublishing)
}

// ReturnToScheduled re-queues a publishing item without touching retry_count.
// A reclaimed attempt was never confirmed to have reached the worker, so it
// counts as recovered, not failed.
func (r *itemRepository) ReturnToScheduled(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE publish_items
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`
	return r.execGuarded(ctx, query, models.StatusScheduled, time.Now(), id, models.StatusPublishing)
}

// Reschedule re-queues a publishing item with a new due time and retry count.
// Guarded like the other transitions: a callback settling the row first wins,
// and the caller must not touch the item again.
func (r *itemRepository) Reschedule(ctx context.Context, id int64, at time.Time, retryCount int) (bool, error) {
	query := `
		UPDATE publish_items
		SET status = $1, scheduled_at = $2, retry_count = $3, updated_at = $4
		WHERE id = $5 AND status = $6
	`
	return r.execGuarded(ctx, query, models.StatusScheduled, at, retryCount, time.Now(), id, models.StatusPublishing)
}

func (r *itemRepository) SetScheduled(ctx context.Context, id int64, at time.Time) error {
	query := `
		UPDATE publish_items
		SET status = $1, scheduled_at = $2, retry_count = 0, updated_at = $3
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, models.StatusScheduled, at, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *itemRepository) SetDraft(ctx context.Context, id int64) error {
	query := `
		UPDATE publish_items
		SET status = $1, scheduled_at = NULL, retry_count = 0, updated_at = $2
		WHERE id = $3
	`
	_, err := r.db.ExecContext(ctx, query, models.StatusDraft, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// Restore writes back a previously read snapshot. Used by the gateway to
// compensate a local write after the trigger registration fails.
func (r *itemRepository) Restore(ctx context.Context, item *models.PublishItem) error {
	query := `
		UPDATE publish_items
		SET status = $1, scheduled_at = $2, error_message = $3, retry_count = $4, updated_at = $5
		WHERE id = $6
	`
	_, err := r.db.ExecContext(ctx, query, item.Status, item.ScheduledAt, item.ErrorMessage, item.RetryCount, time.Now(), item.ID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *itemRepository) execGuarded(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}

func collectItems(rows *sql.Rows) ([]*models.PublishItem, error) {
	var items []*models.PublishItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
