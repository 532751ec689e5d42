package service

import (
	"context"
	"testing"

	"github.com/maheshrc27/postflow/internal/models"
)

type stubSettingsRepo struct {
	values map[string]string
}

func (s *stubSettingsRepo) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *stubSettingsRepo) List(ctx context.Context) ([]*models.Setting, error) {
	return nil, nil
}

func TestSchedulingEnabledDefaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		values map[string]string
		want   bool
	}{
		{"missing key defaults on", map[string]string{}, true},
		{"explicitly disabled", map[string]string{models.SettingSchedulingEnabled: "false"}, false},
		{"disabled with zero", map[string]string{models.SettingSchedulingEnabled: "0"}, false},
		{"enabled", map[string]string{models.SettingSchedulingEnabled: "true"}, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := NewSettingsService(&stubSettingsRepo{values: tt.values})
			got, err := svc.SchedulingEnabled(context.Background())
			if err != nil {
				t.Fatalf("SchedulingEnabled: %v", err)
			}
			if got != tt.want {
				t.Fatalf("SchedulingEnabled = %v, want %v", got, tt.want)
			}
		})
	}
}
