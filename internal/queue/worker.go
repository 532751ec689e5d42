package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/postflow/internal/publisher"
)

func (q *Queue) HandleAnalyticsSyncTask(ctx context.Context, task *asynq.Task) error {
	var payload AnalyticsSyncPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	return q.SyncAnalytics(ctx, payload.AnalyticsID)
}

// SyncAnalytics refreshes engagement counts for one (post, platform)
// row. Failures are logged and left to asynq's retry; they never alter
// the post's status or retry bookkeeping.
func (q *Queue) SyncAnalytics(ctx context.Context, analyticsID int64) error {
	pa, err := q.ar.GetByID(ctx, analyticsID)
	if err != nil {
		return err
	}
	if pa == nil {
		slog.Info("analytics row missing, skipping", "analytics_id", analyticsID)
		return nil
	}

	post, err := q.pr.GetByID(ctx, pa.PostID)
	if err != nil {
		return err
	}
	if post == nil {
		slog.Info("post missing for analytics row, skipping", "post_id", pa.PostID)
		return nil
	}

	conn, err := q.cr.GetByUserAndPlatform(ctx, post.UserID, pa.Platform)
	if err != nil {
		return err
	}
	if conn == nil {
		slog.Info("no active connection for analytics sync", "post_id", pa.PostID, "platform", pa.Platform)
		return nil
	}

	accessToken, err := q.conns.EnsureValidToken(ctx, conn)
	if err != nil {
		slog.Info(err.Error(), "platform", pa.Platform)
		return err
	}

	pub, err := q.reg.Get(pa.Platform)
	if err != nil {
		return err
	}

	if err := q.reg.Wait(ctx, pa.Platform); err != nil {
		return err
	}

	now := time.Now()
	metrics, err := pub.FetchMetrics(ctx, conn, accessToken, pa.ExternalPostID)
	if err != nil {
		if errors.Is(err, publisher.ErrMetricsUnsupported) {
			// Stamp the sync time so the stale scan stops picking it up.
			return q.ar.UpdateMetrics(ctx, pa.ID, pa, now)
		}
		slog.Info(err.Error(), "post_id", pa.PostID, "platform", pa.Platform)
		return err
	}

	pa.Impressions = metrics.Impressions
	pa.Clicks = metrics.Clicks
	pa.Likes = metrics.Likes
	pa.Shares = metrics.Shares
	pa.Comments = metrics.Comments
	pa.Engagement = metrics.Engagement

	return q.ar.UpdateMetrics(ctx, pa.ID, pa, now)
}
