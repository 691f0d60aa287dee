package models

import (
	"database/sql"
	"time"
)

// Status is the closed set of publish lifecycle states. Items only move
// between states through the transitions enumerated in CanTransitionTo;
// repositories never write a status outside this set.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusScheduled  Status = "scheduled"
	StatusPublishing Status = "publishing"
	StatusPublished  Status = "published"
	StatusFailed     Status = "failed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusScheduled, StatusPublishing, StatusPublished, StatusFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is a permitted
// lifecycle transition.
//
//	draft      -> scheduled                      (gateway schedule)
//	failed     -> scheduled                      (gateway re-schedule)
//	scheduled  -> publishing, draft              (dispatch / unschedule)
//	publishing -> published, failed, scheduled   (reconcile / retry / reclaim)
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusDraft:
		return next == StatusScheduled
	case StatusScheduled:
		return next == StatusPublishing || next == StatusDraft
	case StatusPublishing:
		return next == StatusPublished || next == StatusFailed || next == StatusScheduled
	case StatusFailed:
		return next == StatusScheduled
	}
	return false
}

// PublishItem is one row of the publish_items table.
type PublishItem struct {
	ID           int64          `db:"id" json:"id"`
	UserID       int64          `db:"user_id" json:"user_id"`
	Caption      string         `db:"caption" json:"caption"`
	Title        string         `db:"title" json:"title"`
	MediaKey     sql.NullString `db:"media_key" json:"media_key"`
	Status       Status         `db:"status" json:"status"`
	ScheduledAt  sql.NullTime   `db:"scheduled_at" json:"scheduled_at"`
	PublishedAt  sql.NullTime   `db:"published_at" json:"published_at"`
	ExternalRef  sql.NullString `db:"external_ref" json:"external_ref"`
	ErrorMessage sql.NullString `db:"error_message" json:"error_message"`
	RetryCount   int            `db:"retry_count" json:"retry_count"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}
