package models

import "time"

// Platform identifiers a post can target.
const (
	PlatformWordpress = "wordpress"
	PlatformFacebook  = "facebook"
	PlatformTwitter   = "twitter"
	PlatformLinkedin  = "linkedin"
	PlatformInstagram = "instagram"
)

const (
	PostStatusPending    = "pending"
	PostStatusProcessing = "processing"
	PostStatusCompleted  = "completed"
	PostStatusFailed     = "failed"
	PostStatusCancelled  = "cancelled"
)

func KnownPlatform(p string) bool {
	switch p {
	case PlatformWordpress, PlatformFacebook, PlatformTwitter, PlatformLinkedin, PlatformInstagram:
		return true
	}
	return false
}

// ErrorLog is one append-only failure record on a post.
type ErrorLog struct {
	Platform  string    `json:"platform"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// PlatformState carries the per-platform retry bookkeeping. A platform
// that gave up never becomes eligible again.
type PlatformState struct {
	Attempts int  `json:"attempts"`
	GaveUp   bool `json:"gave_up"`
}

type ScheduledPost struct {
	ID              int64                     `db:"id" json:"id"`
	UserID          int64                     `db:"user_id" json:"user_id"`
	Title           string                    `db:"title" json:"title"`
	Body            string                    `db:"body" json:"body"`
	Excerpt         string                    `db:"excerpt" json:"excerpt"`
	FeaturedImage   string                    `db:"featured_image" json:"featured_image"`
	SourceArticleID int64                     `db:"source_article_id" json:"source_article_id"`
	Platforms       []string                  `db:"platforms" json:"platforms"`
	ScheduledTime   time.Time                 `db:"scheduled_time" json:"scheduled_time"`
	Status          string                    `db:"status" json:"status"`
	PublishedURLs   map[string]string         `db:"published_urls" json:"published_urls"`
	ErrorLogs       []ErrorLog                `db:"error_logs" json:"error_logs"`
	PlatformState   map[string]*PlatformState `db:"platform_state" json:"platform_state"`
	RetryCount      int                       `db:"retry_count" json:"retry_count"`
	MaxRetries      int                       `db:"max_retries" json:"max_retries"`
	NextAttemptAt   *time.Time                `db:"next_attempt_at" json:"next_attempt_at,omitempty"`
	ClaimedBy       string                    `db:"claimed_by" json:"-"`
	CreatedAt       time.Time                 `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time                 `db:"updated_at" json:"updated_at"`
}

// State returns the retry bookkeeping for a platform, creating it on
// first use.
func (p *ScheduledPost) State(platform string) *PlatformState {
	if p.PlatformState == nil {
		p.PlatformState = make(map[string]*PlatformState)
	}
	st, ok := p.PlatformState[platform]
	if !ok {
		st = &PlatformState{}
		p.PlatformState[platform] = st
	}
	return st
}

// Published reports whether the platform already has a recorded URL.
// Once true, no further publish attempt may be made for it.
func (p *ScheduledPost) Published(platform string) bool {
	_, ok := p.PublishedURLs[platform]
	return ok
}

// PendingPlatforms returns targets that neither succeeded nor gave up.
func (p *ScheduledPost) PendingPlatforms() []string {
	var pending []string
	for _, platform := range p.Platforms {
		if p.Published(platform) {
			continue
		}
		if st, ok := p.PlatformState[platform]; ok && st.GaveUp {
			continue
		}
		pending = append(pending, platform)
	}
	return pending
}

func (p *ScheduledPost) AllPublished() bool {
	for _, platform := range p.Platforms {
		if !p.Published(platform) {
			return false
		}
	}
	return len(p.Platforms) > 0
}

func (p *ScheduledPost) RecordURL(platform, url string) {
	if p.PublishedURLs == nil {
		p.PublishedURLs = make(map[string]string)
	}
	p.PublishedURLs[platform] = url
}

func (p *ScheduledPost) AppendError(platform, message string, at time.Time) {
	p.ErrorLogs = append(p.ErrorLogs, ErrorLog{
		Platform:  platform,
		Message:   message,
		Timestamp: at,
	})
}

// SyncRetryCount lifts the highest per-platform attempt count into the
// post-level counter, keeping retry_count <= max_retries.
func (p *ScheduledPost) SyncRetryCount() {
	max := 0
	for _, st := range p.PlatformState {
		if st.Attempts > max {
			max = st.Attempts
		}
	}
	if max > p.MaxRetries {
		max = p.MaxRetries
	}
	p.RetryCount = max
}

func (p *ScheduledPost) Terminal() bool {
	switch p.Status {
	case PostStatusCompleted, PostStatusFailed, PostStatusCancelled:
		return true
	}
	return false
}
