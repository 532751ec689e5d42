package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/repository"
	"github.com/maheshrc27/postflow/internal/service"
)

type TokenRefreshJob struct {
	cr    repository.SocialConnectionRepository
	conns service.ConnectionService
}

func NewTokenRefreshJob(
	cr repository.SocialConnectionRepository,
	conns service.ConnectionService) *TokenRefreshJob {
	return &TokenRefreshJob{
		cr:    cr,
		conns: conns,
	}
}

// RefreshTokens proactively rotates tokens expiring within the next 30
// minutes so publish attempts rarely hit the refresh path mid-dispatch.
func (c *TokenRefreshJob) RefreshTokens() {
	ctx := context.Background()

	currentTime := time.Now()
	timeIn30Minutes := currentTime.Add(30 * time.Minute)

	connections, err := c.cr.ListExpiring(ctx, currentTime, timeIn30Minutes)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	var wg sync.WaitGroup

	concurrencyLimit := 10
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, conn := range connections {

		wg.Add(1)
		semaphore <- struct{}{}

		go func(conn *models.SocialConnection) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if err := c.conns.Refresh(ctx, conn); err != nil {
				slog.Info("Unable to refresh token", "platform", conn.Platform, "connection_id", conn.ID)
			}
		}(conn)
	}

	wg.Wait()
}
