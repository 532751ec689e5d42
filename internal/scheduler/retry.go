package scheduler

import (
	"math/rand"
	"time"

	"github.com/maheshrc27/postflow/internal/publisher"
)

// Decision is the retry policy verdict for one failed attempt.
type Decision struct {
	GiveUp     bool
	RetryAfter time.Duration
}

// RetryPolicy computes per-platform retry decisions: exponential delay
// doubling per attempt, capped at MaxInterval, with proportional jitter
// so concurrent instances don't re-claim in lockstep. The policy is a
// pure function of (kind, attempts) so any scheduler instance replays
// the same schedule from the persisted attempt count.
type RetryPolicy struct {
	BaseDelay      time.Duration
	MaxInterval    time.Duration
	JitterFraction float64
}

func NewRetryPolicy(baseDelay, maxInterval time.Duration) *RetryPolicy {
	return &RetryPolicy{
		BaseDelay:      baseDelay,
		MaxInterval:    maxInterval,
		JitterFraction: 0.1,
	}
}

// Decide is called after an attempt has failed; attempts includes that
// failure. Non-retryable kinds and exhausted budgets give up. A
// platform-supplied retry-after is honored when it exceeds the computed
// delay.
func (p *RetryPolicy) Decide(kind publisher.Kind, retryAfter time.Duration, attempts, maxRetries int) Decision {
	if !kind.Retryable() || attempts >= maxRetries {
		return Decision{GiveUp: true}
	}

	delay := p.delay(attempts - 1)
	if retryAfter > delay {
		delay = retryAfter
	}
	return Decision{RetryAfter: delay}
}

func (p *RetryPolicy) delay(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}

	delay := p.MaxInterval
	if retryCount < 32 {
		delay = p.BaseDelay << uint(retryCount)
	}
	if delay <= 0 || delay > p.MaxInterval {
		delay = p.MaxInterval
	}

	if p.JitterFraction > 0 {
		jitter := time.Duration((rand.Float64()*2 - 1) * p.JitterFraction * float64(delay))
		delay += jitter
	}
	return delay
}
