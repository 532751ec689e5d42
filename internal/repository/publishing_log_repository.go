package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"

	"github.com/maheshrc27/postflow/internal/models"
)

// PublishingLogRepository is insert-only. Entries are the audit trail of
// every publish attempt and are never updated or deleted.
type PublishingLogRepository interface {
	Create(ctx context.Context, entry *models.PublishingLogEntry) (int64, error)
	ListByPostID(ctx context.Context, postID int64) ([]*models.PublishingLogEntry, error)
}

type publishingLogRepository struct {
	db *sql.DB
}

func NewPublishingLogRepository(db *sql.DB) PublishingLogRepository {
	return &publishingLogRepository{db: db}
}

func (r *publishingLogRepository) Create(ctx context.Context, entry *models.PublishingLogEntry) (int64, error) {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	query := `
		INSERT INTO publishing_logs (post_id, platform, status, message, details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id int64
	err = r.db.QueryRowContext(ctx, query, entry.PostID, entry.Platform, entry.Status, entry.Message, details).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *publishingLogRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.PublishingLogEntry, error) {
	query := `SELECT id, post_id, platform, status, message, details, created_at
		FROM publishing_logs WHERE post_id = $1 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var entries []*models.PublishingLogEntry
	for rows.Next() {
		var entry models.PublishingLogEntry
		var details []byte
		err := rows.Scan(&entry.ID, &entry.PostID, &entry.Platform, &entry.Status,
			&entry.Message, &details, &entry.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		if err := json.Unmarshal(details, &entry.Details); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}
