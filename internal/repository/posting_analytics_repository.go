package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
)

type PostingAnalyticsRepository interface {
	Create(ctx context.Context, pa *models.PostingAnalytics) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.PostingAnalytics, error)
	ListByPostID(ctx context.Context, postID int64) ([]*models.PostingAnalytics, error)
	ListStale(ctx context.Context, olderThan time.Time, limit int) ([]*models.PostingAnalytics, error)
	UpdateMetrics(ctx context.Context, id int64, m *models.PostingAnalytics, syncedAt time.Time) error
}

type postingAnalyticsRepository struct {
	db *sql.DB
}

func NewPostingAnalyticsRepository(db *sql.DB) PostingAnalyticsRepository {
	return &postingAnalyticsRepository{db: db}
}

const analyticsColumns = `id, post_id, platform, external_post_id, url, impressions, clicks,
	likes, shares, comments, engagement, last_sync_at, created_at, updated_at`

func (r *postingAnalyticsRepository) Create(ctx context.Context, pa *models.PostingAnalytics) (int64, error) {
	query := `
		INSERT INTO posting_analytics (post_id, platform, external_post_id, url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (post_id, platform) DO NOTHING
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, pa.PostID, pa.Platform, pa.ExternalPostID, pa.URL).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			// Row already exists for this (post, platform); nothing to do.
			return 0, nil
		}
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func scanAnalytics(row interface{ Scan(...interface{}) error }) (*models.PostingAnalytics, error) {
	var pa models.PostingAnalytics
	var lastSync sql.NullTime
	err := row.Scan(&pa.ID, &pa.PostID, &pa.Platform, &pa.ExternalPostID, &pa.URL,
		&pa.Impressions, &pa.Clicks, &pa.Likes, &pa.Shares, &pa.Comments,
		&pa.Engagement, &lastSync, &pa.CreatedAt, &pa.UpdatedAt)
	if err != nil {
		return nil, err
	}
	// The epoch column default (and NULL on rows predating it) marks a
	// row that has never been synced; surface it as the zero time.
	if lastSync.Valid && lastSync.Time.After(time.Unix(0, 0)) {
		pa.LastSyncAt = lastSync.Time
	}
	return &pa, nil
}

func (r *postingAnalyticsRepository) GetByID(ctx context.Context, id int64) (*models.PostingAnalytics, error) {
	query := `SELECT ` + analyticsColumns + ` FROM posting_analytics WHERE id = $1`
	pa, err := scanAnalytics(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return pa, nil
}

func (r *postingAnalyticsRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.PostingAnalytics, error) {
	query := `SELECT ` + analyticsColumns + ` FROM posting_analytics WHERE post_id = $1`
	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var result []*models.PostingAnalytics
	for rows.Next() {
		pa, err := scanAnalytics(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		result = append(result, pa)
	}
	return result, rows.Err()
}

func (r *postingAnalyticsRepository) ListStale(ctx context.Context, olderThan time.Time, limit int) ([]*models.PostingAnalytics, error) {
	query := `SELECT ` + analyticsColumns + `
		FROM posting_analytics
		WHERE last_sync_at IS NULL OR last_sync_at < $1
		ORDER BY last_sync_at NULLS FIRST
		LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, olderThan, limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var result []*models.PostingAnalytics
	for rows.Next() {
		pa, err := scanAnalytics(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		result = append(result, pa)
	}
	return result, rows.Err()
}

func (r *postingAnalyticsRepository) UpdateMetrics(ctx context.Context, id int64, m *models.PostingAnalytics, syncedAt time.Time) error {
	query := `
		UPDATE posting_analytics
		SET impressions = $1,
			clicks = $2,
			likes = $3,
			shares = $4,
			comments = $5,
			engagement = $6,
			last_sync_at = $7,
			updated_at = $7
		WHERE id = $8
	`
	_, err := r.db.ExecContext(ctx, query, m.Impressions, m.Clicks, m.Likes,
		m.Shares, m.Comments, m.Engagement, syncedAt, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
