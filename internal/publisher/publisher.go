package publisher

import (
	"context"
	"fmt"

	"github.com/maheshrc27/postflow/internal/models"
	"golang.org/x/time/rate"
)

// Result is a successful publish outcome.
type Result struct {
	ExternalID string
	URL        string
}

// Metrics is one engagement snapshot fetched from a platform.
type Metrics struct {
	Impressions int64
	Clicks      int64
	Likes       int64
	Shares      int64
	Comments    int64
	Engagement  int64
}

// ErrMetricsUnsupported is returned by adapters whose platform exposes
// no engagement API.
var ErrMetricsUnsupported = fmt.Errorf("metrics not supported")

// Publisher is the per-platform capability. Publish performs exactly one
// publish attempt against the external API and mutates no local state;
// the caller persists outcomes. Content shaping (length limits, image
// rules, required fields) lives inside the adapter.
type Publisher interface {
	Platform() string
	Publish(ctx context.Context, post *models.ScheduledPost, conn *models.SocialConnection, accessToken string) (*Result, error)
	FetchMetrics(ctx context.Context, conn *models.SocialConnection, accessToken, externalID string) (*Metrics, error)
}

// MediaStore gives adapters access to featured-image bytes and public
// URLs without tying them to the storage backend.
type MediaStore interface {
	GetObject(ctx context.Context, key string) ([]byte, string, error)
	PublicURL(key string) string
}

// Per-platform request budgets, tuned to published API limits.
var platformRates = map[string]rate.Limit{
	models.PlatformWordpress: rate.Limit(5),
	models.PlatformFacebook:  rate.Limit(2),
	models.PlatformTwitter:   rate.Limit(1),
	models.PlatformLinkedin:  rate.Limit(1),
	models.PlatformInstagram: rate.Limit(1),
}

// Registry resolves a platform identifier to its adapter and throttles
// outbound calls per platform.
type Registry struct {
	publishers map[string]Publisher
	limiters   map[string]*rate.Limiter
}

func NewRegistry(publishers ...Publisher) *Registry {
	r := &Registry{
		publishers: make(map[string]Publisher),
		limiters:   make(map[string]*rate.Limiter),
	}
	for _, p := range publishers {
		r.publishers[p.Platform()] = p
		limit, ok := platformRates[p.Platform()]
		if !ok {
			limit = rate.Limit(1)
		}
		r.limiters[p.Platform()] = rate.NewLimiter(limit, 1)
	}
	return r
}

func (r *Registry) Get(platform string) (Publisher, error) {
	p, ok := r.publishers[platform]
	if !ok {
		return nil, fmt.Errorf("no publisher registered for platform %q", platform)
	}
	return p, nil
}

// Wait blocks until the platform's rate limiter grants a slot.
func (r *Registry) Wait(ctx context.Context, platform string) error {
	limiter, ok := r.limiters[platform]
	if !ok {
		return nil
	}
	return limiter.Wait(ctx)
}
