package queue

import (
	"github.com/maheshrc27/postflow/internal/publisher"
	"github.com/maheshrc27/postflow/internal/repository"
	"github.com/maheshrc27/postflow/internal/service"
)

// Queue handles analytics refresh tasks. Analytics runs on its own
// low-priority asynq queue so it never competes with dispatch, and its
// failures stay inside asynq's retry loop.
type Queue struct {
	ar    repository.PostingAnalyticsRepository
	pr    repository.ScheduledPostRepository
	cr    repository.SocialConnectionRepository
	conns service.ConnectionService
	reg   *publisher.Registry
}

func NewQueue(
	ar repository.PostingAnalyticsRepository,
	pr repository.ScheduledPostRepository,
	cr repository.SocialConnectionRepository,
	conns service.ConnectionService,
	reg *publisher.Registry) *Queue {
	return &Queue{
		ar:    ar,
		pr:    pr,
		cr:    cr,
		conns: conns,
		reg:   reg,
	}
}

const (
	TaskTypeAnalyticsSync = "analytics:sync"
	QueueAnalytics        = "analytics"
)

type AnalyticsSyncPayload struct {
	AnalyticsID int64 `json:"analytics_id"`
}
