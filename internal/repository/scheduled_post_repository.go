package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/maheshrc27/postflow/internal/models"
)

type ScheduledPostRepository interface {
	Create(ctx context.Context, tx *sql.Tx, post *models.ScheduledPost) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.ScheduledPost, error)
	GetByUserID(ctx context.Context, userID int64) ([]*models.ScheduledPost, error)
	CheckByUserID(ctx context.Context, postID, userID int64) (bool, error)
	ClaimDue(ctx context.Context, now time.Time, limit int, claimedBy string) ([]*models.ScheduledPost, error)
	SaveOutcome(ctx context.Context, post *models.ScheduledPost) error
	Cancel(ctx context.Context, postID, userID int64) (bool, error)
}

type scheduledPostRepository struct {
	db *sql.DB
}

func NewScheduledPostRepository(db *sql.DB) ScheduledPostRepository {
	return &scheduledPostRepository{db: db}
}

const postColumns = `id, user_id, title, body, excerpt, featured_image, source_article_id,
	platforms, scheduled_time, status, published_urls, error_logs, platform_state,
	retry_count, max_retries, next_attempt_at, claimed_by, created_at, updated_at`

func (r *scheduledPostRepository) Create(ctx context.Context, tx *sql.Tx, post *models.ScheduledPost) (int64, error) {
	query := `
		INSERT INTO scheduled_posts (user_id, title, body, excerpt, featured_image,
			source_article_id, platforms, scheduled_time, status, published_urls,
			error_logs, platform_state, retry_count, max_retries)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, '{}', '[]', '{}', 0, $10)
		RETURNING id
	`

	var id int64
	var err error

	args := []interface{}{
		post.UserID, post.Title, post.Body, post.Excerpt, post.FeaturedImage,
		post.SourceArticleID, pq.Array(post.Platforms), post.ScheduledTime,
		models.PostStatusPending, post.MaxRetries,
	}

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, args...).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func scanPost(row interface{ Scan(...interface{}) error }) (*models.ScheduledPost, error) {
	var post models.ScheduledPost
	var urls, logs, state []byte
	var claimedBy sql.NullString
	var sourceArticleID sql.NullInt64

	err := row.Scan(&post.ID, &post.UserID, &post.Title, &post.Body, &post.Excerpt,
		&post.FeaturedImage, &sourceArticleID, pq.Array(&post.Platforms),
		&post.ScheduledTime, &post.Status, &urls, &logs, &state,
		&post.RetryCount, &post.MaxRetries, &post.NextAttemptAt, &claimedBy,
		&post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}

	post.SourceArticleID = sourceArticleID.Int64
	post.ClaimedBy = claimedBy.String

	if err := json.Unmarshal(urls, &post.PublishedURLs); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(logs, &post.ErrorLogs); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(state, &post.PlatformState); err != nil {
		return nil, err
	}

	return &post, nil
}

func (r *scheduledPostRepository) GetByID(ctx context.Context, id int64) (*models.ScheduledPost, error) {
	query := `SELECT ` + postColumns + ` FROM scheduled_posts WHERE id = $1`
	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

func (r *scheduledPostRepository) GetByUserID(ctx context.Context, userID int64) ([]*models.ScheduledPost, error) {
	query := `SELECT ` + postColumns + ` FROM scheduled_posts WHERE user_id = $1 ORDER BY scheduled_time DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.ScheduledPost
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (r *scheduledPostRepository) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	query := "SELECT 1 FROM scheduled_posts WHERE id = $1 AND user_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, postID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

// ClaimDue transitions every due pending post to processing in one
// statement and returns the claimed rows. SKIP LOCKED keeps concurrent
// scheduler instances from claiming the same post: a row claimed here is
// no longer pending for anyone else.
func (r *scheduledPostRepository) ClaimDue(ctx context.Context, now time.Time, limit int, claimedBy string) ([]*models.ScheduledPost, error) {
	query := `
		UPDATE scheduled_posts
		SET status = $1, claimed_by = $2, updated_at = $3
		WHERE id IN (
			SELECT id FROM scheduled_posts
			WHERE status = $4
			  AND scheduled_time <= $3
			  AND (next_attempt_at IS NULL OR next_attempt_at <= $3)
			ORDER BY scheduled_time
			LIMIT $5
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + postColumns

	rows, err := r.db.QueryContext(ctx, query,
		models.PostStatusProcessing, claimedBy, now, models.PostStatusPending, limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.ScheduledPost
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// SaveOutcome persists the result of one claim cycle: outcome maps,
// retry bookkeeping and the post-level status transition.
func (r *scheduledPostRepository) SaveOutcome(ctx context.Context, post *models.ScheduledPost) error {
	urls, err := json.Marshal(post.PublishedURLs)
	if err != nil {
		return err
	}
	logs, err := json.Marshal(post.ErrorLogs)
	if err != nil {
		return err
	}
	state, err := json.Marshal(post.PlatformState)
	if err != nil {
		return err
	}

	query := `
		UPDATE scheduled_posts
		SET status = $1,
			published_urls = $2,
			error_logs = $3,
			platform_state = $4,
			retry_count = $5,
			next_attempt_at = $6,
			updated_at = $7
		WHERE id = $8
	`
	_, err = r.db.ExecContext(ctx, query, post.Status, urls, logs, state,
		post.RetryCount, post.NextAttemptAt, time.Now(), post.ID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// Cancel flips a post to cancelled only while it is still pending with
// zero recorded successes. A post mid-claim or with a published platform
// is not cancellable.
func (r *scheduledPostRepository) Cancel(ctx context.Context, postID, userID int64) (bool, error) {
	query := `
		UPDATE scheduled_posts
		SET status = $1, updated_at = $2
		WHERE id = $3
		  AND user_id = $4
		  AND status = $5
		  AND published_urls = '{}'::jsonb
	`
	result, err := r.db.ExecContext(ctx, query,
		models.PostStatusCancelled, time.Now(), postID, userID, models.PostStatusPending)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}
