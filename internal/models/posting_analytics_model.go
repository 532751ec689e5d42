package models

import "time"

// PostingAnalytics holds engagement counts for one (post, platform)
// pair. Created on the first successful publish of that platform and
// mutated only by the analytics sync worker.
type PostingAnalytics struct {
	ID             int64     `db:"id" json:"id"`
	PostID         int64     `db:"post_id" json:"post_id"`
	Platform       string    `db:"platform" json:"platform"`
	ExternalPostID string    `db:"external_post_id" json:"external_post_id"`
	URL            string    `db:"url" json:"url"`
	Impressions    int64     `db:"impressions" json:"impressions"`
	Clicks         int64     `db:"clicks" json:"clicks"`
	Likes          int64     `db:"likes" json:"likes"`
	Shares         int64     `db:"shares" json:"shares"`
	Comments       int64     `db:"comments" json:"comments"`
	Engagement     int64     `db:"engagement" json:"engagement"`
	LastSyncAt     time.Time `db:"last_sync_at" json:"last_sync_at"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
