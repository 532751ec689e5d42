package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	config "github.com/maheshrc27/postflow/configs"
	"github.com/maheshrc27/postflow/internal/queue"
	"github.com/maheshrc27/postflow/internal/repository"
	"github.com/maheshrc27/postflow/internal/service"
)

const analyticsScanLimit = 200

// AnalyticsSyncJob scans for published (post, platform) pairs whose
// metrics have gone stale and enqueues a refresh task for each on the
// low-priority analytics queue.
type AnalyticsSyncJob struct {
	cfg         config.Scheduler
	ar          repository.PostingAnalyticsRepository
	settings    service.SettingsService
	asynqClient *asynq.Client
}

func NewAnalyticsSyncJob(
	cfg config.Scheduler,
	ar repository.PostingAnalyticsRepository,
	settings service.SettingsService,
	asynqClient *asynq.Client) *AnalyticsSyncJob {
	return &AnalyticsSyncJob{
		cfg:         cfg,
		ar:          ar,
		settings:    settings,
		asynqClient: asynqClient,
	}
}

func (j *AnalyticsSyncJob) EnqueueStale() {
	ctx := context.Background()

	enabled, err := j.settings.AnalyticsSyncEnabled(ctx)
	if err != nil {
		slog.Info(err.Error())
		return
	}
	if !enabled {
		return
	}

	olderThan := time.Now().Add(-j.cfg.AnalyticsRefresh)
	stale, err := j.ar.ListStale(ctx, olderThan, analyticsScanLimit)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	for _, pa := range stale {
		payload := queue.AnalyticsSyncPayload{AnalyticsID: pa.ID}
		if err := queue.EnqueueAnalyticsSync(j.asynqClient, payload); err != nil {
			slog.Info(err.Error(), "analytics_id", pa.ID)
		}
	}
}
