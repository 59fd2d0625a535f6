package convert

import (
	"context"
	"log/slog"

	"github.com/looplab/fsm"
)

// Fragment conversion states.
const (
	StateSending     = "sending"
	StateRateLimited = "rate_limited"
	StateRetrying    = "retrying"
	StateSucceeded   = "succeeded"
	StateFailed      = "failed"
)

// Fragment conversion events.
const (
	EventSucceed   = "succeed"
	EventRateLimit = "rate_limit"
	EventRetry     = "retry"
	EventResend    = "resend"
	EventFail      = "fail"
)

// fragmentEvents is the full transition table. Any transition not listed is
// rejected by the machine.
func fragmentEvents() fsm.Events {
	return fsm.Events{
		{Name: EventSucceed, Src: []string{StateSending}, Dst: StateSucceeded},
		{Name: EventRateLimit, Src: []string{StateSending}, Dst: StateRateLimited},
		{Name: EventRetry, Src: []string{StateSending}, Dst: StateRetrying},
		{Name: EventResend, Src: []string{StateRateLimited, StateRetrying}, Dst: StateSending},
		{Name: EventFail, Src: []string{StateSending, StateRateLimited, StateRetrying}, Dst: StateFailed},
	}
}

func newFragmentFSM(logger *slog.Logger, file string, index int) *fsm.FSM {
	return fsm.NewFSM(
		StateSending,
		fragmentEvents(),
		fsm.Callbacks{
			"after_event": func(_ context.Context, e *fsm.Event) {
				logger.Debug("convert.fsm.transition",
					"file", file,
					"fragment", index,
					"event", e.Event,
					"src", e.Src,
					"dst", e.Dst,
				)
			},
		},
	)
}

// attemptState is the budget bookkeeping that guards the transitions out of Sending.
type attemptState struct {
	failures   int
	rateLimits int
}

// nextAfterFailure picks Retry while generic budget remains, Fail otherwise.
func (a *attemptState) nextAfterFailure(maxRetries int) string {
	a.failures++
	if a.failures >= maxRetries {
		return EventFail
	}
	return EventRetry
}

// nextAfterRateLimit picks RateLimit unless a cap is set and exceeded.
// maxWaits <= 0 means unbounded.
func (a *attemptState) nextAfterRateLimit(maxWaits int) string {
	a.rateLimits++
	if maxWaits > 0 && a.rateLimits > maxWaits {
		return EventFail
	}
	return EventRateLimit
}
