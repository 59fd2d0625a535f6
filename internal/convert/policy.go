package convert

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/dataset-generator/internal/common"
)

// RetryPolicy controls backoff and budgets for one fragment.
type RetryPolicy struct {
	MaxRetries        int           // generic failures allowed per fragment
	RateLimitBackoff  time.Duration // wait after a 429
	RetryBackoff      time.Duration // wait after any other failure
	RequestDelay      time.Duration // wait between successful fragments
	MaxRateLimitWaits int           // 0 = unbounded
}

// DefaultRetryPolicy returns 3 attempts, 5s after 429, 3s after errors, 1s between fragments.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:       3,
		RateLimitBackoff: 5 * time.Second,
		RetryBackoff:     3 * time.Second,
		RequestDelay:     time.Second,
	}
}

// PolicyFromConfig maps the LLM config section onto a RetryPolicy.
func PolicyFromConfig(c common.LLMConfig) RetryPolicy {
	p := RetryPolicy{
		MaxRetries:        c.MaxRetries,
		RateLimitBackoff:  c.RateLimitBackoff,
		RetryBackoff:      c.RetryBackoff,
		RequestDelay:      c.RequestDelay,
		MaxRateLimitWaits: c.MaxRateLimitWaits,
	}
	if p.MaxRetries <= 0 {
		p.MaxRetries = 3
	}
	return p
}

// Sleeper waits for d or until ctx ends.
type Sleeper func(ctx context.Context, d time.Duration) error

type Option func(*Client)

// WithPolicy overrides the default retry policy.
func WithPolicy(p RetryPolicy) Option {
	return func(c *Client) {
		if p.MaxRetries <= 0 {
			p.MaxRetries = 1
		}
		c.policy = p
	}
}

// WithSleeper swaps the wait function, used by tests to skip real backoff.
func WithSleeper(s Sleeper) Option {
	return func(c *Client) {
		if s != nil {
			c.sleep = s
		}
	}
}

// WithRequestsPerMinute gates every send through a token bucket. rpm <= 0 disables it.
func WithRequestsPerMinute(rpm float64) Option {
	return func(c *Client) {
		if rpm <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rpm/60), 1)
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}
