package scheduler

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	config "github.com/maheshrc27/postflow/configs"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/publisher"
	"github.com/maheshrc27/postflow/internal/repository"
	"github.com/maheshrc27/postflow/internal/service"
	"github.com/sourcegraph/conc/pool"
)

// Scheduler owns the dispatch path: it polls for due posts, claims them
// atomically, fans publish attempts out per platform, applies the retry
// policy, writes the ledger and advances the post status. Several
// instances may run against the same database; the claim is the only
// synchronization between them.
type Scheduler struct {
	cfg        config.Scheduler
	pr         repository.ScheduledPostRepository
	cr         repository.SocialConnectionRepository
	lr         repository.PublishingLogRepository
	ar         repository.PostingAnalyticsRepository
	settings   service.SettingsService
	conns      service.ConnectionService
	registry   *publisher.Registry
	policy     *RetryPolicy
	clock      Clock
	instanceID string
}

func New(
	cfg config.Scheduler,
	pr repository.ScheduledPostRepository,
	cr repository.SocialConnectionRepository,
	lr repository.PublishingLogRepository,
	ar repository.PostingAnalyticsRepository,
	settings service.SettingsService,
	conns service.ConnectionService,
	registry *publisher.Registry) *Scheduler {
	return &Scheduler{
		cfg:        cfg,
		pr:         pr,
		cr:         cr,
		lr:         lr,
		ar:         ar,
		settings:   settings,
		conns:      conns,
		registry:   registry,
		policy:     NewRetryPolicy(cfg.BaseRetryDelay, cfg.MaxRetryInterval),
		clock:      SystemClock(),
		instanceID: uuid.NewString(),
	}
}

// Run polls until the context is cancelled. A failed claim cycle leaves
// no partial claims behind, so it is simply retried after a backoff.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	backoffCfg := backoff.NewExponentialBackOff()
	backoffCfg.MaxInterval = s.cfg.MaxRetryInterval

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		enabled, err := s.settings.SchedulingEnabled(ctx)
		if err != nil {
			slog.Info(err.Error())
			continue
		}
		if !enabled {
			continue
		}

		claimed, err := s.RunOnce(ctx)
		if err != nil {
			sleep := backoffCfg.NextBackOff()
			if sleep == backoff.Stop {
				sleep = s.cfg.MaxRetryInterval
			}
			slog.Info("claim cycle failed", "error", err.Error(), "retry_in", sleep.String())
			select {
			case <-ctx.Done():
				return
			case <-time.After(sleep):
			}
			continue
		}

		backoffCfg = backoff.NewExponentialBackOff()
		backoffCfg.MaxInterval = s.cfg.MaxRetryInterval

		if claimed > 0 {
			slog.Info("claim cycle finished", "claimed", claimed, "instance", s.instanceID)
		}
	}
}

// RunOnce executes a single claim cycle and returns how many posts were
// claimed. Claimed posts are distributed across a bounded worker pool.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	now := s.clock.Now()
	claimed, err := s.pr.ClaimDue(ctx, now, s.cfg.BatchSize, s.instanceID)
	if err != nil {
		return 0, err
	}
	if len(claimed) == 0 {
		return 0, nil
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, s.cfg.Workers)

	for _, post := range claimed {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(post *models.ScheduledPost) {
			defer wg.Done()
			defer func() { <-semaphore }()
			s.processPost(ctx, post)
		}(post)
	}

	wg.Wait()
	return len(claimed), nil
}

type attemptOutcome struct {
	platform string
	result   *publisher.Result
	perr     *publisher.PublishError
}

// processPost attempts every unresolved platform concurrently, waits
// for the join barrier, then aggregates into one post-level transition.
func (s *Scheduler) processPost(ctx context.Context, post *models.ScheduledPost) {
	pending := post.PendingPlatforms()
	if len(pending) == 0 {
		// Nothing left to attempt; settle whatever state the post is in.
		post.SyncRetryCount()
		post.Status = resolveStatus(post)
		post.NextAttemptAt = nil
		if err := s.pr.SaveOutcome(ctx, post); err != nil {
			slog.Info(err.Error(), "post_id", post.ID)
		}
		return
	}

	var mu sync.Mutex
	outcomes := make([]attemptOutcome, 0, len(pending))

	p := pool.New().WithMaxGoroutines(len(pending))
	for _, platform := range pending {
		platform := platform
		p.Go(func() {
			result, err := s.attempt(ctx, post, platform)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				outcomes = append(outcomes, attemptOutcome{platform: platform, perr: publisher.Classify(err)})
				return
			}
			outcomes = append(outcomes, attemptOutcome{platform: platform, result: result})
		})
	}
	p.Wait()

	now := s.clock.Now()
	var requeueDelay time.Duration

	for _, o := range outcomes {
		st := post.State(o.platform)
		st.Attempts++

		if o.perr == nil {
			post.RecordURL(o.platform, o.result.URL)
			s.recordSuccess(ctx, post, o.platform, st.Attempts, o.result)
			continue
		}

		post.AppendError(o.platform, o.perr.Error(), now)
		s.recordFailure(ctx, post, o.platform, st.Attempts, o.perr)

		decision := s.policy.Decide(o.perr.Kind, o.perr.RetryAfter, st.Attempts, post.MaxRetries)
		if decision.GiveUp {
			st.GaveUp = true
			continue
		}
		if decision.RetryAfter > requeueDelay {
			requeueDelay = decision.RetryAfter
		}
	}

	post.SyncRetryCount()
	post.Status = resolveStatus(post)
	if post.Status == models.PostStatusPending {
		next := now.Add(requeueDelay)
		post.NextAttemptAt = &next
	} else {
		post.NextAttemptAt = nil
	}

	if err := s.pr.SaveOutcome(ctx, post); err != nil {
		slog.Info(err.Error(), "post_id", post.ID)
	}
}

// attempt resolves the connection, ensures a valid token, honors the
// platform rate limit and performs exactly one publish call.
func (s *Scheduler) attempt(ctx context.Context, post *models.ScheduledPost, platform string) (*publisher.Result, error) {
	pub, err := s.registry.Get(platform)
	if err != nil {
		return nil, &publisher.PublishError{Kind: publisher.KindValidation, Message: err.Error()}
	}

	conn, err := s.cr.GetByUserAndPlatform(ctx, post.UserID, platform)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, &publisher.PublishError{Kind: publisher.KindAuth, Message: "no active connection for " + platform}
	}

	accessToken, err := s.conns.EnsureValidToken(ctx, conn)
	if err != nil {
		return nil, err
	}

	if err := s.registry.Wait(ctx, platform); err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.PublishTimeout)
	defer cancel()

	return pub.Publish(callCtx, post, conn, accessToken)
}

func (s *Scheduler) recordSuccess(ctx context.Context, post *models.ScheduledPost, platform string, attempt int, result *publisher.Result) {
	key, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
	}

	entry := &models.PublishingLogEntry{
		PostID:   post.ID,
		Platform: platform,
		Status:   models.LogStatusSuccess,
		Message:  "published",
		Details: map[string]string{
			"attempt":         strconv.Itoa(attempt),
			"idempotency_key": key,
			"external_id":     result.ExternalID,
			"url":             result.URL,
		},
	}
	if _, err := s.lr.Create(ctx, entry); err != nil {
		slog.Info(err.Error(), "post_id", post.ID)
	}

	analytics := &models.PostingAnalytics{
		PostID:         post.ID,
		Platform:       platform,
		ExternalPostID: result.ExternalID,
		URL:            result.URL,
	}
	if _, err := s.ar.Create(ctx, analytics); err != nil {
		slog.Info(err.Error(), "post_id", post.ID)
	}
}

func (s *Scheduler) recordFailure(ctx context.Context, post *models.ScheduledPost, platform string, attempt int, perr *publisher.PublishError) {
	key, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
	}

	entry := &models.PublishingLogEntry{
		PostID:   post.ID,
		Platform: platform,
		Status:   models.LogStatusFailure,
		Message:  perr.Message,
		Details: map[string]string{
			"attempt":         strconv.Itoa(attempt),
			"idempotency_key": key,
			"kind":            string(perr.Kind),
		},
	}
	if _, err := s.lr.Create(ctx, entry); err != nil {
		slog.Info(err.Error(), "post_id", post.ID)
	}
}
