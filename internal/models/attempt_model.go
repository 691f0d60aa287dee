package models

import "time"

// DispatchAttempt records one hand-off attempt to the publisher worker,
// successful or not. Kept for operator visibility; the retry decision itself
// lives on the item row.
type DispatchAttempt struct {
	ID           int64     `db:"id" json:"id"`
	UserID       int64     `db:"user_id" json:"user_id"`
	ItemID       int64     `db:"item_id" json:"item_id"`
	Attempt      int       `db:"attempt" json:"attempt"`
	ErrorMessage string    `db:"error_message" json:"error_message"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
