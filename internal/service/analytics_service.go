package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/repository"
)

type AnalyticsService interface {
	ListByPost(ctx context.Context, userID, postID int64) ([]*models.PostingAnalytics, error)
}

type analyticsService struct {
	pr repository.ScheduledPostRepository
	ar repository.PostingAnalyticsRepository
}

func NewAnalyticsService(pr repository.ScheduledPostRepository, ar repository.PostingAnalyticsRepository) AnalyticsService {
	return &analyticsService{pr: pr, ar: ar}
}

func (s *analyticsService) ListByPost(ctx context.Context, userID, postID int64) ([]*models.PostingAnalytics, error) {
	isValid, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}

	if !isValid {
		err = errors.New("Post doesn't exist")
		slog.Info(err.Error())
		return nil, err
	}

	analytics, err := s.ar.ListByPostID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("Error getting analytics")
	}

	return analytics, nil
}
