package service

import (
	"context"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/repository"
)

// SettingsService reads feature toggles. Missing keys default to
// enabled so a fresh environment schedules out of the box.
type SettingsService interface {
	SchedulingEnabled(ctx context.Context) (bool, error)
	AnalyticsSyncEnabled(ctx context.Context) (bool, error)
	List(ctx context.Context) ([]*models.Setting, error)
}

type settingsService struct {
	sr repository.SettingsRepository
}

func NewSettingsService(sr repository.SettingsRepository) SettingsService {
	return &settingsService{sr: sr}
}

func (s *settingsService) flag(ctx context.Context, key string) (bool, error) {
	value, found, err := s.sr.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !found {
		return true, nil
	}
	return value != "false" && value != "0", nil
}

func (s *settingsService) SchedulingEnabled(ctx context.Context) (bool, error) {
	return s.flag(ctx, models.SettingSchedulingEnabled)
}

func (s *settingsService) AnalyticsSyncEnabled(ctx context.Context) (bool, error) {
	return s.flag(ctx, models.SettingAnalyticsSyncEnabled)
}

func (s *settingsService) List(ctx context.Context) ([]*models.Setting, error) {
	return s.sr.List(ctx)
}
