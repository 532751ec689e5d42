package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/repository"
	"github.com/maheshrc27/postflow/internal/transfer"
)

const defaultMaxRetries = 3

type PostService interface {
	CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation) (int64, error)
	List(ctx context.Context, userID int64) ([]*models.ScheduledPost, error)
	PostInfo(ctx context.Context, postID, userID int64) (*models.ScheduledPost, error)
	Cancel(ctx context.Context, userID, postID int64) error
	History(ctx context.Context, userID, postID int64) ([]*models.PublishingLogEntry, error)
}

type postService struct {
	db *sql.DB
	pr repository.ScheduledPostRepository
	cr repository.SocialConnectionRepository
	lr repository.PublishingLogRepository
}

func NewPostService(
	db *sql.DB,
	pr repository.ScheduledPostRepository,
	cr repository.SocialConnectionRepository,
	lr repository.PublishingLogRepository) PostService {
	return &postService{
		db: db,
		pr: pr,
		cr: cr,
		lr: lr,
	}
}

// CreatePost persists a new scheduled post in pending. Content arrives
// already finalized from the generation webhook; this only validates
// shape and targets. An empty platform set is rejected here, never at
// claim time.
func (s *postService) CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation) (int64, error) {
	if pc == nil {
		err := errors.New("post creation data is nil")
		slog.Error(err.Error())
		return 0, err
	}
	if pc.Title == "" && pc.Body == "" {
		err := errors.New("post content cannot be empty")
		slog.Info(err.Error())
		return 0, err
	}
	if len(pc.Platforms) == 0 {
		err := errors.New("no target platforms selected")
		slog.Info(err.Error())
		return 0, err
	}

	platforms := make([]string, 0, len(pc.Platforms))
	seen := make(map[string]struct{})
	for _, platform := range pc.Platforms {
		if !models.KnownPlatform(platform) {
			err := fmt.Errorf("unknown platform %q", platform)
			slog.Info(err.Error())
			return 0, err
		}
		if _, ok := seen[platform]; ok {
			continue
		}
		seen[platform] = struct{}{}
		platforms = append(platforms, platform)
	}

	scheduledTime, err := time.Parse("2006-01-02T15:04", pc.ScheduledTime)
	if err != nil {
		err = fmt.Errorf("invalid scheduled time format: %w", err)
		slog.Error(err.Error())
		return 0, err
	}

	for _, platform := range platforms {
		conn, err := s.cr.GetByUserAndPlatform(ctx, userID, platform)
		if err != nil {
			return 0, fmt.Errorf("error checking connection for %s: %w", platform, err)
		}
		if conn == nil {
			return 0, fmt.Errorf("no active %s connection", platform)
		}
	}

	maxRetries := pc.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	post := models.ScheduledPost{
		UserID:          userID,
		Title:           pc.Title,
		Body:            pc.Body,
		Excerpt:         pc.Excerpt,
		FeaturedImage:   pc.FeaturedImage,
		SourceArticleID: pc.SourceArticleID,
		Platforms:       platforms,
		ScheduledTime:   scheduledTime,
		Status:          models.PostStatusPending,
		MaxRetries:      maxRetries,
	}

	postID, err := s.pr.Create(ctx, nil, &post)
	if err != nil {
		return 0, fmt.Errorf("error creating post: %w", err)
	}

	return postID, nil
}

func (s *postService) PostInfo(ctx context.Context, postID, userID int64) (*models.ScheduledPost, error) {
	var err error

	if userID == 0 {
		err = errors.New("User is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	if postID == 0 {
		err = errors.New("post id is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	isValid, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}

	if !isValid {
		err = errors.New("Post doesn't exist")
		slog.Info(err.Error())
		return nil, err
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("Error getting post info")
	}

	return post, nil
}

func (s *postService) List(ctx context.Context, userID int64) ([]*models.ScheduledPost, error) {
	posts, err := s.pr.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Error getting posts")
	}
	return posts, nil
}

// Cancel honors user cancellation only while the post is still pending
// with zero platform successes; the conditional update enforces it.
func (s *postService) Cancel(ctx context.Context, userID, postID int64) error {
	var err error

	if userID == 0 {
		err = errors.New("User is not valid")
		slog.Info(err.Error())
		return err
	}

	if postID == 0 {
		err = errors.New("post_id is not valid")
		slog.Info(err.Error())
		return err
	}

	cancelled, err := s.pr.Cancel(ctx, postID, userID)
	if err != nil {
		return fmt.Errorf("Error cancelling post")
	}

	if !cancelled {
		err = errors.New("post cannot be cancelled")
		slog.Info(err.Error())
		return err
	}

	return nil
}

func (s *postService) History(ctx context.Context, userID, postID int64) ([]*models.PublishingLogEntry, error) {
	isValid, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}

	if !isValid {
		err = errors.New("Post doesn't exist")
		slog.Info(err.Error())
		return nil, err
	}

	entries, err := s.lr.ListByPostID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("Error getting publishing history")
	}

	return entries, nil
}
