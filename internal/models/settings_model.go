package models

import "time"

// Setting is a feature toggle row. The schema is owned by the admin
// surface; the pipeline only reads it.
type Setting struct {
	ID        int64     `db:"id" json:"id"`
	Key       string    `db:"key" json:"key"`
	Value     string    `db:"value" json:"value"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

const (
	SettingSchedulingEnabled    = "scheduling_enabled"
	SettingAnalyticsSyncEnabled = "analytics_sync_enabled"
)
