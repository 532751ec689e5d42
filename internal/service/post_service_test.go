package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/transfer"
)

type stubPostRepo struct {
	created   *models.ScheduledPost
	cancelled bool
	owned     bool
}

func (s *stubPostRepo) Create(ctx context.Context, tx *sql.Tx, post *models.ScheduledPost) (int64, error) {
	s.created = post
	return 42, nil
}

func (s *stubPostRepo) GetByID(ctx context.Context, id int64) (*models.ScheduledPost, error) {
	return &models.ScheduledPost{ID: id}, nil
}

func (s *stubPostRepo) GetByUserID(ctx context.Context, userID int64) ([]*models.ScheduledPost, error) {
	return nil, nil
}

func (s *stubPostRepo) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	return s.owned, nil
}

func (s *stubPostRepo) ClaimDue(ctx context.Context, now time.Time, limit int, claimedBy string) ([]*models.ScheduledPost, error) {
	return nil, nil
}

func (s *stubPostRepo) SaveOutcome(ctx context.Context, post *models.ScheduledPost) error {
	return nil
}

func (s *stubPostRepo) Cancel(ctx context.Context, postID, userID int64) (bool, error) {
	return s.cancelled, nil
}

type stubConnRepo struct {
	platforms map[string]bool
}

func (s *stubConnRepo) Create(ctx context.Context, tx *sql.Tx, sc *models.SocialConnection) (int64, error) {
	return 0, nil
}

func (s *stubConnRepo) GetByID(ctx context.Context, id int64) (*models.SocialConnection, error) {
	return nil, nil
}

func (s *stubConnRepo) GetByUserAndPlatform(ctx context.Context, userID int64, platform string) (*models.SocialConnection, error) {
	if !s.platforms[platform] {
		return nil, nil
	}
	return &models.SocialConnection{Platform: platform, IsActive: true}, nil
}

func (s *stubConnRepo) ListByUserID(ctx context.Context, userID int64) ([]*models.SocialConnection, error) {
	return nil, nil
}

func (s *stubConnRepo) ListExpiring(ctx context.Context, initialTime, finalTime time.Time) ([]*models.SocialConnection, error) {
	return nil, nil
}

func (s *stubConnRepo) CheckByUserID(ctx context.Context, connectionID, userID int64) (bool, error) {
	return false, nil
}

func (s *stubConnRepo) SetToken(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt time.Time) error {
	return nil
}

func (s *stubConnRepo) Remove(ctx context.Context, id int64) error {
	return nil
}

type stubLogRepo struct{}

func (stubLogRepo) Create(ctx context.Context, entry *models.PublishingLogEntry) (int64, error) {
	return 0, nil
}

func (stubLogRepo) ListByPostID(ctx context.Context, postID int64) ([]*models.PublishingLogEntry, error) {
	return nil, nil
}

func allPlatformConns() *stubConnRepo {
	return &stubConnRepo{platforms: map[string]bool{
		models.PlatformWordpress: true,
		models.PlatformFacebook:  true,
		models.PlatformTwitter:   true,
		models.PlatformLinkedin:  true,
		models.PlatformInstagram: true,
	}}
}

func validCreation() *transfer.PostCreation {
	return &transfer.PostCreation{
		Title:         "Release notes",
		Body:          "We shipped a thing.",
		Platforms:     []string{models.PlatformTwitter, models.PlatformFacebook},
		ScheduledTime: "2025-06-01T15:04",
	}
}

func TestCreatePostValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*transfer.PostCreation)
	}{
		{"empty content", func(pc *transfer.PostCreation) { pc.Title = ""; pc.Body = "" }},
		{"no platforms", func(pc *transfer.PostCreation) { pc.Platforms = nil }},
		{"unknown platform", func(pc *transfer.PostCreation) { pc.Platforms = []string{"myspace"} }},
		{"bad time format", func(pc *transfer.PostCreation) { pc.ScheduledTime = "tomorrow" }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			pc := validCreation()
			tt.mutate(pc)

			svc := NewPostService(nil, &stubPostRepo{}, allPlatformConns(), stubLogRepo{})
			if _, err := svc.CreatePost(context.Background(), 7, pc); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCreatePostRequiresConnections(t *testing.T) {
	t.Parallel()

	conns := &stubConnRepo{platforms: map[string]bool{models.PlatformTwitter: true}}
	svc := NewPostService(nil, &stubPostRepo{}, conns, stubLogRepo{})

	_, err := svc.CreatePost(context.Background(), 7, validCreation())
	if err == nil {
		t.Fatal("expected error for platform without a connection")
	}
}

func TestCreatePostDedupesPlatforms(t *testing.T) {
	t.Parallel()

	repo := &stubPostRepo{}
	svc := NewPostService(nil, repo, allPlatformConns(), stubLogRepo{})

	pc := validCreation()
	pc.Platforms = []string{models.PlatformTwitter, models.PlatformTwitter, models.PlatformFacebook}

	id, err := svc.CreatePost(context.Background(), 7, pc)
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if id != 42 {
		t.Fatalf("id = %d, want 42", id)
	}
	if len(repo.created.Platforms) != 2 {
		t.Fatalf("platforms = %v, want deduped pair", repo.created.Platforms)
	}
	if repo.created.Status != models.PostStatusPending {
		t.Fatalf("status = %s, want pending", repo.created.Status)
	}
	if repo.created.MaxRetries != defaultMaxRetries {
		t.Fatalf("max retries = %d, want default %d", repo.created.MaxRetries, defaultMaxRetries)
	}
}

func TestCancelReportsConflict(t *testing.T) {
	t.Parallel()

	svc := NewPostService(nil, &stubPostRepo{cancelled: false}, allPlatformConns(), stubLogRepo{})
	if err := svc.Cancel(context.Background(), 7, 42); err == nil {
		t.Fatal("expected error when the conditional cancel matched no row")
	}

	svc = NewPostService(nil, &stubPostRepo{cancelled: true}, allPlatformConns(), stubLogRepo{})
	if err := svc.Cancel(context.Background(), 7, 42); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
}

func TestHistoryChecksOwnership(t *testing.T) {
	t.Parallel()

	svc := NewPostService(nil, &stubPostRepo{owned: false}, allPlatformConns(), stubLogRepo{})
	if _, err := svc.History(context.Background(), 7, 42); err == nil {
		t.Fatal("expected error for post owned by someone else")
	}
}
