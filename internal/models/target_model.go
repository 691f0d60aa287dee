package models

import "time"

// PublishTarget is a user's publishing destination. The credential secret is
// stored AES-GCM encrypted and handed to the publisher worker by reference.
type PublishTarget struct {
	ID            int64     `db:"id" json:"id"`
	UserID        int64     `db:"user_id" json:"user_id"`
	Platform      string    `db:"platform" json:"platform"`
	AccountName   string    `db:"account_name" json:"account_name"`
	CredentialRef string    `db:"credential_ref" json:"credential_ref"`
	Credential    string    `db:"credential" json:"-"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
