// Package convert drives fragments through the remote model with key
// rotation, backoff and a bounded retry budget.
package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/dataset-generator/internal/chunk"
	"github.com/joseph-ayodele/dataset-generator/internal/common"
	"github.com/joseph-ayodele/dataset-generator/internal/format"
	"github.com/joseph-ayodele/dataset-generator/internal/keypool"
	"github.com/joseph-ayodele/dataset-generator/internal/llm"
)

// Result is the terminal outcome for one fragment.
type Result struct {
	Index int
	Text  string
	Err   error
}

// OK reports whether the fragment converted.
func (r Result) OK() bool { return r.Err == nil }

// Client converts fragments one at a time.
type Client struct {
	completer llm.Completer
	keys      keypool.CredentialSelector
	policy    RetryPolicy
	sleep     Sleeper
	limiter   *rate.Limiter
	logger    *slog.Logger
}

func NewClient(completer llm.Completer, keys keypool.CredentialSelector, opts ...Option) *Client {
	c := &Client{
		completer: completer,
		keys:      keys,
		policy:    DefaultRetryPolicy(),
		sleep:     common.Sleep,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ConvertAll converts fragments strictly in order. The first terminal failure
// aborts the remaining fragments and is returned. With no fragments the
// result is empty and no call is made.
func (c *Client) ConvertAll(ctx context.Context, p format.Policy, frags []chunk.Fragment) ([]string, error) {
	out := make([]string, 0, len(frags))
	file := common.FileNameFromContext(ctx)
	for i, f := range frags {
		res := c.Convert(ctx, p, f)
		if !res.OK() {
			return nil, res.Err
		}
		out = append(out, res.Text)
		c.logger.Info("convert.fragment.ok", "file", file, "fragment", f.Index+1, "total", len(frags))
		if i < len(frags)-1 {
			if err := c.sleep(ctx, c.policy.RequestDelay); err != nil {
				return nil, common.ConversionFailure("conversion cancelled", err)
			}
		}
	}
	return out, nil
}

// Convert runs one fragment to a terminal state.
func (c *Client) Convert(ctx context.Context, p format.Policy, f chunk.Fragment) Result {
	file := common.FileNameFromContext(ctx)
	machine := newFragmentFSM(c.logger, file, f.Index)
	msgs := llm.BuildMessages(p, f.Text)
	var (
		budget  attemptState
		lastErr error
		text    string
		cred    keypool.Credential
	)

	fire := func(event string) {
		if err := machine.Event(ctx, event); err != nil {
			// only reachable through a programming error in the transition table
			c.logger.Error("convert.fsm.invalid_event", "event", event, "state", machine.Current(), "error", err)
			lastErr = errors.Join(lastErr, err)
			machine.SetState(StateFailed)
		}
	}

	for {
		switch machine.Current() {
		case StateSending:
			var err error
			cred, err = c.keys.Current()
			if err != nil {
				lastErr = err
				fire(EventFail)
				continue
			}
			if c.limiter != nil {
				if err := c.limiter.Wait(ctx); err != nil {
					lastErr = err
					fire(EventFail)
					continue
				}
			}

			reqCtx := common.WithRequestID(ctx, uuid.New().String())
			c.logger.Info("convert.fragment.send",
				"file", file,
				"fragment", f.Index+1,
				"attempt", budget.failures+1,
				"max_attempts", c.policy.MaxRetries,
				"key", cred.String(),
			)
			text, err = c.completer.Complete(reqCtx, llm.CompletionRequest{APIKey: cred.Secret, Messages: msgs})
			switch {
			case err == nil:
				if l, ok := c.keys.(keypool.Limiter); ok {
					l.MarkHealthy(cred)
				}
				fire(EventSucceed)
			case ctx.Err() != nil:
				lastErr = ctx.Err()
				fire(EventFail)
			case llm.IsRateLimited(err):
				lastErr = err
				fire(budget.nextAfterRateLimit(c.policy.MaxRateLimitWaits))
			default:
				lastErr = fmt.Errorf("chunk %d: %w", f.Index+1, err)
				c.logger.Warn("convert.fragment.error",
					"file", file,
					"fragment", f.Index+1,
					"attempt", budget.failures+1,
					"max_attempts", c.policy.MaxRetries,
					"key", cred.String(),
					"error", err,
				)
				fire(budget.nextAfterFailure(c.policy.MaxRetries))
			}

		case StateRateLimited:
			if l, ok := c.keys.(keypool.Limiter); ok {
				l.MarkLimited(cred)
			}
			c.rotate(file)
			c.logger.Warn("convert.rate_limited",
				"file", file,
				"fragment", f.Index+1,
				"key", cred.String(),
				"waits", budget.rateLimits,
				"backoff", c.policy.RateLimitBackoff,
			)
			if err := c.sleep(ctx, c.policy.RateLimitBackoff); err != nil {
				lastErr = err
				fire(EventFail)
				continue
			}
			fire(EventResend)

		case StateRetrying:
			c.rotate(file)
			if err := c.sleep(ctx, c.policy.RetryBackoff); err != nil {
				lastErr = err
				fire(EventFail)
				continue
			}
			fire(EventResend)

		case StateSucceeded:
			return Result{Index: f.Index, Text: text}

		case StateFailed:
			err := c.terminalError(ctx, budget, lastErr)
			c.logger.Error("convert.fragment.failed",
				"file", file,
				"fragment", f.Index+1,
				"failures", budget.failures,
				"rate_limits", budget.rateLimits,
				"error", err,
			)
			return Result{Index: f.Index, Err: err}
		}
	}
}

func (c *Client) rotate(file string) {
	if err := c.keys.Rotate(); err != nil {
		c.logger.Error("convert.rotate_failed", "file", file, "error", err)
		return
	}
	if next, err := c.keys.Current(); err == nil {
		c.logger.Info("convert.key_switched", "file", file, "key", next.String())
	}
}

func (c *Client) terminalError(ctx context.Context, budget attemptState, lastErr error) error {
	switch {
	case errors.Is(lastErr, common.ErrEmptyPool):
		return lastErr
	case ctx.Err() != nil:
		return common.ConversionFailure("conversion cancelled", ctx.Err())
	case errors.Is(lastErr, context.Canceled):
		return common.ConversionFailure("conversion cancelled", lastErr)
	case llm.IsRateLimited(lastErr):
		return common.ConversionFailure(
			fmt.Sprintf("rate limited %d times", budget.rateLimits),
			fmt.Errorf("%w: %w", common.ErrRateLimited, lastErr),
		)
	default:
		return common.ConversionFailure(
			fmt.Sprintf("Failed to convert after %d attempts. Last error: %v", c.policy.MaxRetries, lastErr),
			lastErr,
		)
	}
}
