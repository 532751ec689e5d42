package models

import "time"

const (
	LogStatusSuccess = "success"
	LogStatusFailure = "failure"
)

// PublishingLogEntry is an immutable audit record, one per publish
// attempt. Rows are inserted once and never updated or deleted.
type PublishingLogEntry struct {
	ID        int64             `db:"id" json:"id"`
	PostID    int64             `db:"post_id" json:"post_id"`
	Platform  string            `db:"platform" json:"platform"`
	Status    string            `db:"status" json:"status"`
	Message   string            `db:"message" json:"message"`
	Details   map[string]string `db:"details" json:"details"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
}
