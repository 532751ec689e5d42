package scheduler

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	config "github.com/maheshrc27/postflow/configs"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/publisher"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fakePostRepo struct {
	mu    sync.Mutex
	due   []*models.ScheduledPost
	saved []*models.ScheduledPost
}

func (f *fakePostRepo) Create(ctx context.Context, tx *sql.Tx, post *models.ScheduledPost) (int64, error) {
	return 0, nil
}

func (f *fakePostRepo) GetByID(ctx context.Context, id int64) (*models.ScheduledPost, error) {
	return nil, nil
}

func (f *fakePostRepo) GetByUserID(ctx context.Context, userID int64) ([]*models.ScheduledPost, error) {
	return nil, nil
}

func (f *fakePostRepo) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	return false, nil
}

func (f *fakePostRepo) ClaimDue(ctx context.Context, now time.Time, limit int, claimedBy string) ([]*models.ScheduledPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.due)
	if limit < n {
		n = limit
	}
	claimed := f.due[:n]
	f.due = f.due[n:]
	for _, post := range claimed {
		post.Status = models.PostStatusProcessing
		post.ClaimedBy = claimedBy
	}
	return claimed, nil
}

func (f *fakePostRepo) SaveOutcome(ctx context.Context, post *models.ScheduledPost) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, post)
	return nil
}

func (f *fakePostRepo) Cancel(ctx context.Context, postID, userID int64) (bool, error) {
	return false, nil
}

type fakeConnRepo struct {
	conns map[string]*models.SocialConnection
}

func (f *fakeConnRepo) Create(ctx context.Context, tx *sql.Tx, sc *models.SocialConnection) (int64, error) {
	return 0, nil
}

func (f *fakeConnRepo) GetByID(ctx context.Context, id int64) (*models.SocialConnection, error) {
	return nil, nil
}

func (f *fakeConnRepo) GetByUserAndPlatform(ctx context.Context, userID int64, platform string) (*models.SocialConnection, error) {
	return f.conns[platform], nil
}

func (f *fakeConnRepo) ListByUserID(ctx context.Context, userID int64) ([]*models.SocialConnection, error) {
	return nil, nil
}

func (f *fakeConnRepo) ListExpiring(ctx context.Context, initialTime, finalTime time.Time) ([]*models.SocialConnection, error) {
	return nil, nil
}

func (f *fakeConnRepo) CheckByUserID(ctx context.Context, connectionID, userID int64) (bool, error) {
	return false, nil
}

func (f *fakeConnRepo) SetToken(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt time.Time) error {
	return nil
}

func (f *fakeConnRepo) Remove(ctx context.Context, id int64) error {
	return nil
}

type fakeLogRepo struct {
	mu      sync.Mutex
	entries []*models.PublishingLogEntry
}

func (f *fakeLogRepo) Create(ctx context.Context, entry *models.PublishingLogEntry) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return int64(len(f.entries)), nil
}

func (f *fakeLogRepo) ListByPostID(ctx context.Context, postID int64) ([]*models.PublishingLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries, nil
}

type fakeAnalyticsRepo struct {
	mu   sync.Mutex
	rows []*models.PostingAnalytics
}

func (f *fakeAnalyticsRepo) Create(ctx context.Context, pa *models.PostingAnalytics) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, pa)
	return int64(len(f.rows)), nil
}

func (f *fakeAnalyticsRepo) GetByID(ctx context.Context, id int64) (*models.PostingAnalytics, error) {
	return nil, nil
}

func (f *fakeAnalyticsRepo) ListByPostID(ctx context.Context, postID int64) ([]*models.PostingAnalytics, error) {
	return nil, nil
}

func (f *fakeAnalyticsRepo) ListStale(ctx context.Context, olderThan time.Time, limit int) ([]*models.PostingAnalytics, error) {
	return nil, nil
}

func (f *fakeAnalyticsRepo) UpdateMetrics(ctx context.Context, id int64, m *models.PostingAnalytics, syncedAt time.Time) error {
	return nil
}

type fakeSettings struct{}

func (fakeSettings) SchedulingEnabled(ctx context.Context) (bool, error)    { return true, nil }
func (fakeSettings) AnalyticsSyncEnabled(ctx context.Context) (bool, error) { return true, nil }
func (fakeSettings) List(ctx context.Context) ([]*models.Setting, error)    { return nil, nil }

type fakeConnService struct{}

func (fakeConnService) List(ctx context.Context, userID int64) ([]*models.SocialConnection, error) {
	return nil, nil
}

func (fakeConnService) Delete(ctx context.Context, userID, connectionID int64) error {
	return nil
}

func (fakeConnService) EnsureValidToken(ctx context.Context, conn *models.SocialConnection) (string, error) {
	return "token-123", nil
}

func (fakeConnService) Refresh(ctx context.Context, conn *models.SocialConnection) error {
	return nil
}

type fakePublisher struct {
	platform string
	result   *publisher.Result
	err      error

	mu    sync.Mutex
	calls int
}

func (f *fakePublisher) Platform() string { return f.platform }

func (f *fakePublisher) Publish(ctx context.Context, post *models.ScheduledPost, conn *models.SocialConnection, accessToken string) (*publisher.Result, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakePublisher) FetchMetrics(ctx context.Context, conn *models.SocialConnection, accessToken, externalID string) (*publisher.Metrics, error) {
	return nil, publisher.ErrMetricsUnsupported
}

func (f *fakePublisher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestScheduler(pr *fakePostRepo, cr *fakeConnRepo, lr *fakeLogRepo, ar *fakeAnalyticsRepo, pubs ...publisher.Publisher) *Scheduler {
	return &Scheduler{
		cfg: config.Scheduler{
			PollInterval:     30 * time.Second,
			BatchSize:        10,
			Workers:          4,
			PublishTimeout:   5 * time.Second,
			BaseRetryDelay:   time.Minute,
			MaxRetryInterval: time.Hour,
		},
		pr:       pr,
		cr:       cr,
		lr:       lr,
		ar:       ar,
		settings: fakeSettings{},
		conns:    fakeConnService{},
		registry: publisher.NewRegistry(pubs...),
		// Jitter off so requeue times are exact.
		policy:     &RetryPolicy{BaseDelay: time.Minute, MaxInterval: time.Hour},
		clock:      fixedClock{testNow},
		instanceID: "test-instance",
	}
}

func duePost(platforms ...string) *models.ScheduledPost {
	return &models.ScheduledPost{
		ID:            1,
		UserID:        7,
		Title:         "Release notes",
		Body:          "We shipped a thing.",
		Platforms:     platforms,
		ScheduledTime: testNow.Add(-time.Minute),
		Status:        models.PostStatusPending,
		MaxRetries:    3,
	}
}

func allConnections() *fakeConnRepo {
	conns := make(map[string]*models.SocialConnection)
	for _, platform := range []string{
		models.PlatformWordpress, models.PlatformFacebook, models.PlatformTwitter,
		models.PlatformLinkedin, models.PlatformInstagram,
	} {
		conns[platform] = &models.SocialConnection{
			ID:       int64(len(conns) + 1),
			UserID:   7,
			Platform: platform,
			IsActive: true,
		}
	}
	return &fakeConnRepo{conns: conns}
}

func TestRunOnceAllPlatformsSucceed(t *testing.T) {
	t.Parallel()

	post := duePost(models.PlatformTwitter, models.PlatformFacebook)
	pr := &fakePostRepo{due: []*models.ScheduledPost{post}}
	lr := &fakeLogRepo{}
	ar := &fakeAnalyticsRepo{}

	s := newTestScheduler(pr, allConnections(), lr, ar,
		&fakePublisher{platform: models.PlatformTwitter, result: &publisher.Result{ExternalID: "t1", URL: "https://twitter.com/i/web/status/t1"}},
		&fakePublisher{platform: models.PlatformFacebook, result: &publisher.Result{ExternalID: "f1", URL: "https://facebook.com/f1"}},
	)

	claimed, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if claimed != 1 {
		t.Fatalf("claimed = %d, want 1", claimed)
	}

	if len(pr.saved) != 1 {
		t.Fatalf("SaveOutcome calls = %d, want 1", len(pr.saved))
	}
	got := pr.saved[0]
	if got.Status != models.PostStatusCompleted {
		t.Fatalf("status = %s, want completed", got.Status)
	}
	if len(got.PublishedURLs) != 2 {
		t.Fatalf("published URLs = %v, want both platforms", got.PublishedURLs)
	}
	if got.NextAttemptAt != nil {
		t.Fatalf("NextAttemptAt = %v, want nil for terminal post", got.NextAttemptAt)
	}
	if len(lr.entries) != 2 {
		t.Fatalf("ledger entries = %d, want 2", len(lr.entries))
	}
	for _, entry := range lr.entries {
		if entry.Status != models.LogStatusSuccess {
			t.Fatalf("ledger status = %s, want success", entry.Status)
		}
	}
	if len(ar.rows) != 2 {
		t.Fatalf("analytics rows = %d, want 2", len(ar.rows))
	}
}

func TestRunOnceRateLimitedRequeues(t *testing.T) {
	t.Parallel()

	post := duePost(models.PlatformTwitter)
	pr := &fakePostRepo{due: []*models.ScheduledPost{post}}
	lr := &fakeLogRepo{}

	s := newTestScheduler(pr, allConnections(), lr, &fakeAnalyticsRepo{},
		&fakePublisher{platform: models.PlatformTwitter, err: &publisher.PublishError{
			Kind:       publisher.KindRateLimited,
			Message:    "rate limit exceeded",
			RetryAfter: 300 * time.Second,
		}},
	)

	if _, err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	got := pr.saved[0]
	if got.Status != models.PostStatusPending {
		t.Fatalf("status = %s, want pending for requeue", got.Status)
	}
	if got.NextAttemptAt == nil {
		t.Fatal("NextAttemptAt not set on requeued post")
	}
	if want := testNow.Add(300 * time.Second); !got.NextAttemptAt.Equal(want) {
		t.Fatalf("NextAttemptAt = %v, want %v", got.NextAttemptAt, want)
	}
	if got.State(models.PlatformTwitter).Attempts != 1 {
		t.Fatalf("attempts = %d, want 1", got.State(models.PlatformTwitter).Attempts)
	}
	if got.RetryCount != 1 {
		t.Fatalf("RetryCount = %d, want 1", got.RetryCount)
	}
	if len(lr.entries) != 1 || lr.entries[0].Status != models.LogStatusFailure {
		t.Fatalf("ledger = %+v, want one failure entry", lr.entries)
	}
}

func TestProcessPostExhaustsRetryBudget(t *testing.T) {
	t.Parallel()

	post := duePost(models.PlatformTwitter)
	pr := &fakePostRepo{}
	lr := &fakeLogRepo{}

	s := newTestScheduler(pr, allConnections(), lr, &fakeAnalyticsRepo{},
		&fakePublisher{platform: models.PlatformTwitter, err: &publisher.PublishError{
			Kind:    publisher.KindServer,
			Message: "upstream 502",
		}},
	)

	for cycle := 0; cycle < 3; cycle++ {
		s.processPost(context.Background(), post)
	}

	if post.Status != models.PostStatusFailed {
		t.Fatalf("status = %s, want failed after budget exhausted", post.Status)
	}
	st := post.State(models.PlatformTwitter)
	if st.Attempts != 3 || !st.GaveUp {
		t.Fatalf("platform state = %+v, want 3 attempts and gave up", st)
	}
	if post.RetryCount != 3 {
		t.Fatalf("RetryCount = %d, want 3", post.RetryCount)
	}
	if post.NextAttemptAt != nil {
		t.Fatal("terminal post still scheduled for another attempt")
	}
	if len(post.ErrorLogs) != 3 {
		t.Fatalf("error logs = %d, want one per failed attempt", len(post.ErrorLogs))
	}
}

func TestProcessPostAuthErrorFailsImmediately(t *testing.T) {
	t.Parallel()

	post := duePost(models.PlatformLinkedin)
	pr := &fakePostRepo{}

	s := newTestScheduler(pr, allConnections(), &fakeLogRepo{}, &fakeAnalyticsRepo{},
		&fakePublisher{platform: models.PlatformLinkedin, err: &publisher.PublishError{
			Kind:    publisher.KindAuth,
			Message: "token revoked",
		}},
	)

	s.processPost(context.Background(), post)

	if post.Status != models.PostStatusFailed {
		t.Fatalf("status = %s, want failed on first auth error", post.Status)
	}
	st := post.State(models.PlatformLinkedin)
	if st.Attempts != 1 || !st.GaveUp {
		t.Fatalf("platform state = %+v, want single attempt and gave up", st)
	}
}

func TestProcessPostPartialFailure(t *testing.T) {
	t.Parallel()

	post := duePost(models.PlatformTwitter, models.PlatformFacebook)
	pr := &fakePostRepo{}
	lr := &fakeLogRepo{}
	ar := &fakeAnalyticsRepo{}

	s := newTestScheduler(pr, allConnections(), lr, ar,
		&fakePublisher{platform: models.PlatformTwitter, result: &publisher.Result{ExternalID: "t1", URL: "https://twitter.com/i/web/status/t1"}},
		&fakePublisher{platform: models.PlatformFacebook, err: &publisher.PublishError{
			Kind:    publisher.KindAuth,
			Message: "page access revoked",
		}},
	)

	s.processPost(context.Background(), post)

	if post.Status != models.PostStatusFailed {
		t.Fatalf("status = %s, want failed when one platform gave up", post.Status)
	}
	if !post.Published(models.PlatformTwitter) {
		t.Fatal("successful platform URL lost on partial failure")
	}
	if post.Published(models.PlatformFacebook) {
		t.Fatal("failed platform has a published URL")
	}
	if len(ar.rows) != 1 || ar.rows[0].Platform != models.PlatformTwitter {
		t.Fatalf("analytics rows = %+v, want one twitter row", ar.rows)
	}
}

func TestProcessPostSkipsPublishedPlatforms(t *testing.T) {
	t.Parallel()

	post := duePost(models.PlatformTwitter, models.PlatformFacebook)
	post.RecordURL(models.PlatformTwitter, "https://twitter.com/i/web/status/t1")
	post.State(models.PlatformTwitter).Attempts = 1

	twitter := &fakePublisher{platform: models.PlatformTwitter, result: &publisher.Result{ExternalID: "t2", URL: "dup"}}
	facebook := &fakePublisher{platform: models.PlatformFacebook, result: &publisher.Result{ExternalID: "f1", URL: "https://facebook.com/f1"}}

	s := newTestScheduler(&fakePostRepo{}, allConnections(), &fakeLogRepo{}, &fakeAnalyticsRepo{}, twitter, facebook)

	s.processPost(context.Background(), post)

	if twitter.callCount() != 0 {
		t.Fatalf("published platform re-attempted %d times", twitter.callCount())
	}
	if facebook.callCount() != 1 {
		t.Fatalf("facebook attempts = %d, want 1", facebook.callCount())
	}
	if post.Status != models.PostStatusCompleted {
		t.Fatalf("status = %s, want completed", post.Status)
	}
	if post.PublishedURLs[models.PlatformTwitter] != "https://twitter.com/i/web/status/t1" {
		t.Fatal("existing URL overwritten")
	}
}

func TestProcessPostNoConnection(t *testing.T) {
	t.Parallel()

	post := duePost(models.PlatformInstagram)
	pr := &fakePostRepo{}
	lr := &fakeLogRepo{}

	s := newTestScheduler(pr, &fakeConnRepo{conns: map[string]*models.SocialConnection{}}, lr, &fakeAnalyticsRepo{},
		&fakePublisher{platform: models.PlatformInstagram, result: &publisher.Result{ExternalID: "i1"}},
	)

	s.processPost(context.Background(), post)

	if post.Status != models.PostStatusFailed {
		t.Fatalf("status = %s, want failed without a connection", post.Status)
	}
	if len(lr.entries) != 1 {
		t.Fatalf("ledger entries = %d, want 1", len(lr.entries))
	}
	if lr.entries[0].Details["kind"] != string(publisher.KindAuth) {
		t.Fatalf("failure kind = %s, want auth_error", lr.entries[0].Details["kind"])
	}
}

func TestConcurrentInstancesClaimEachPostOnce(t *testing.T) {
	t.Parallel()

	const postCount = 6

	due := make([]*models.ScheduledPost, 0, postCount)
	for i := 1; i <= postCount; i++ {
		post := duePost(models.PlatformTwitter)
		post.ID = int64(i)
		due = append(due, post)
	}
	pr := &fakePostRepo{due: due}

	newInstance := func(id string) *Scheduler {
		s := newTestScheduler(pr, allConnections(), &fakeLogRepo{}, &fakeAnalyticsRepo{},
			&fakePublisher{platform: models.PlatformTwitter, result: &publisher.Result{ExternalID: "t1", URL: "https://twitter.com/i/web/status/t1"}},
		)
		s.cfg.BatchSize = 2
		s.instanceID = id
		return s
	}

	instances := []*Scheduler{newInstance("instance-a"), newInstance("instance-b")}

	var wg sync.WaitGroup
	for _, inst := range instances {
		inst := inst
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				claimed, err := inst.RunOnce(context.Background())
				if err != nil {
					t.Errorf("RunOnce: %v", err)
					return
				}
				if claimed == 0 {
					return
				}
			}
		}()
	}
	wg.Wait()

	pr.mu.Lock()
	defer pr.mu.Unlock()

	if len(pr.saved) != postCount {
		t.Fatalf("SaveOutcome calls = %d, want exactly one per post", len(pr.saved))
	}

	seen := make(map[int64]int)
	for _, post := range pr.saved {
		seen[post.ID]++
		if post.ClaimedBy != "instance-a" && post.ClaimedBy != "instance-b" {
			t.Fatalf("post %d claimed by %q, want one of the two instances", post.ID, post.ClaimedBy)
		}
		if post.Status != models.PostStatusCompleted {
			t.Fatalf("post %d status = %s, want completed", post.ID, post.Status)
		}
	}
	for id, count := range seen {
		if count != 1 {
			t.Fatalf("post %d settled %d times, want once", id, count)
		}
	}
}

func TestRunOnceNothingDue(t *testing.T) {
	t.Parallel()

	pr := &fakePostRepo{}
	s := newTestScheduler(pr, allConnections(), &fakeLogRepo{}, &fakeAnalyticsRepo{})

	claimed, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if claimed != 0 {
		t.Fatalf("claimed = %d, want 0", claimed)
	}
	if len(pr.saved) != 0 {
		t.Fatal("SaveOutcome called with nothing claimed")
	}
}
