package convert

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/dataset-generator/constants"
	"github.com/joseph-ayodele/dataset-generator/internal/chunk"
	"github.com/joseph-ayodele/dataset-generator/internal/common"
	"github.com/joseph-ayodele/dataset-generator/internal/format"
	"github.com/joseph-ayodele/dataset-generator/internal/keypool"
	"github.com/joseph-ayodele/dataset-generator/internal/llm"
	"github.com/joseph-ayodele/dataset-generator/internal/llm/openai"
)

type step struct {
	text string
	err  error
}

// scripted replays steps in order and records the key used for each call.
type scripted struct {
	mu    sync.Mutex
	steps []step
	keys  []string
	users []string
}

func (s *scripted) Complete(_ context.Context, req llm.CompletionRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, req.APIKey)
	s.users = append(s.users, req.Messages[len(req.Messages)-1].Content)
	if len(s.steps) == 0 {
		return "", errors.New("no more steps")
	}
	st := s.steps[0]
	s.steps = s.steps[1:]
	return st.text, st.err
}

func (s *scripted) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}

type sleepLog struct {
	mu     sync.Mutex
	waits  []time.Duration
	cancel bool
}

func (l *sleepLog) sleep(ctx context.Context, d time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.waits = append(l.waits, d)
	if l.cancel {
		return context.Canceled
	}
	return ctx.Err()
}

func status(code int) error { return &llm.StatusError{StatusCode: code, Message: "x"} }

func frag(i int, s string) chunk.Fragment { return chunk.Fragment{Index: i, Text: s} }

func TestClient_Convert(t *testing.T) {
	p := format.Lookup(constants.FormatQA)
	ctx := context.Background()

	t.Run("Should succeed after rate limits without consuming retry budget", func(t *testing.T) {
		comp := &scripted{steps: []step{
			{err: status(429)}, {err: status(429)}, {err: status(429)}, {text: "ok"},
		}}
		sl := &sleepLog{}
		c := NewClient(comp, keypool.New([]string{"k1", "k2"}), WithSleeper(sl.sleep))

		res := c.Convert(ctx, p, frag(0, "a"))
		require.NoError(t, res.Err)
		assert.Equal(t, "ok", res.Text)
		assert.Equal(t, 4, comp.calls())
		assert.Equal(t, []string{"k1", "k2", "k1", "k2"}, comp.keys)
		assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second, 5 * time.Second}, sl.waits)
	})

	t.Run("Should fail after the budget with no extra call", func(t *testing.T) {
		comp := &scripted{steps: []step{
			{err: status(500)}, {err: status(500)}, {err: status(500)}, {text: "never"},
		}}
		sl := &sleepLog{}
		c := NewClient(comp, keypool.New([]string{"k1", "k2"}), WithSleeper(sl.sleep))

		res := c.Convert(ctx, p, frag(0, "a"))
		require.Error(t, res.Err)
		assert.False(t, res.OK())
		assert.True(t, errors.Is(res.Err, common.ErrConversion))
		assert.Equal(t, 3, comp.calls())
		assert.Equal(t, []time.Duration{3 * time.Second, 3 * time.Second}, sl.waits)

		var appErr *common.AppError
		require.ErrorAs(t, res.Err, &appErr)
		assert.Equal(t, common.CodeConversionFailure, appErr.Code)
		assert.Contains(t, appErr.Message, "Failed to convert after 3 attempts. Last error: chunk 1: API request failed with status 500")
	})

	t.Run("Should mix rate limits and failures", func(t *testing.T) {
		comp := &scripted{steps: []step{
			{err: status(500)}, {err: status(429)}, {err: llm.ErrEmptyResponse}, {err: status(429)}, {text: "done"},
		}}
		sl := &sleepLog{}
		c := NewClient(comp, keypool.New([]string{"k1", "k2", "k3"}), WithSleeper(sl.sleep))

		res := c.Convert(ctx, p, frag(0, "a"))
		require.NoError(t, res.Err)
		assert.Equal(t, 5, comp.calls())
		assert.Equal(t, []time.Duration{3 * time.Second, 5 * time.Second, 3 * time.Second, 5 * time.Second}, sl.waits)
	})

	t.Run("Should bound rate limit waits when configured", func(t *testing.T) {
		comp := &scripted{steps: []step{{err: status(429)}, {err: status(429)}, {err: status(429)}}}
		pol := DefaultRetryPolicy()
		pol.MaxRateLimitWaits = 2
		c := NewClient(comp, keypool.New([]string{"k"}), WithSleeper((&sleepLog{}).sleep), WithPolicy(pol))

		res := c.Convert(ctx, p, frag(0, "a"))
		require.Error(t, res.Err)
		assert.ErrorIs(t, res.Err, common.ErrRateLimited)
		assert.ErrorIs(t, res.Err, common.ErrConversion)
		assert.Equal(t, 3, comp.calls())
	})

	t.Run("Should fail fast on an empty pool", func(t *testing.T) {
		comp := &scripted{}
		c := NewClient(comp, keypool.New(nil), WithSleeper((&sleepLog{}).sleep))
		res := c.Convert(ctx, p, frag(0, "a"))
		assert.ErrorIs(t, res.Err, common.ErrEmptyPool)
		assert.Zero(t, comp.calls())
	})

	t.Run("Should stop when the backoff is cancelled", func(t *testing.T) {
		comp := &scripted{steps: []step{{err: status(500)}, {text: "never"}}}
		sl := &sleepLog{cancel: true}
		c := NewClient(comp, keypool.New([]string{"k"}), WithSleeper(sl.sleep))
		res := c.Convert(ctx, p, frag(0, "a"))
		assert.ErrorIs(t, res.Err, context.Canceled)
		assert.Equal(t, 1, comp.calls())
	})

	t.Run("Should report key health to a cooldown selector", func(t *testing.T) {
		comp := &scripted{steps: []step{{err: status(429)}, {text: "ok"}}}
		sel := keypool.NewCooldown([]string{"k1", "k2", "k3"}, time.Hour)
		c := NewClient(comp, sel, WithSleeper((&sleepLog{}).sleep))
		res := c.Convert(ctx, p, frag(0, "a"))
		require.NoError(t, res.Err)
		assert.Equal(t, []string{"k1", "k2"}, comp.keys)
	})
}

func TestClient_ConvertAll(t *testing.T) {
	p := format.Lookup(constants.FormatJSONL)
	ctx := context.Background()

	t.Run("Should convert fragments in order with a delay between them", func(t *testing.T) {
		comp := &scripted{steps: []step{{text: "one"}, {text: "two"}, {text: "three"}}}
		sl := &sleepLog{}
		c := NewClient(comp, keypool.New([]string{"k"}), WithSleeper(sl.sleep))

		out, err := c.ConvertAll(ctx, p, []chunk.Fragment{frag(0, "a"), frag(1, "b"), frag(2, "c")})
		require.NoError(t, err)
		assert.Equal(t, []string{"one", "two", "three"}, out)
		assert.Equal(t, []time.Duration{time.Second, time.Second}, sl.waits)
		assert.Equal(t, "Convert this content into JSONL. Content: a", comp.users[0])
		assert.Equal(t, "Convert this content into JSONL. Content: c", comp.users[2])
	})

	t.Run("Should make no call for zero fragments", func(t *testing.T) {
		comp := &scripted{}
		c := NewClient(comp, keypool.New([]string{"k"}), WithSleeper((&sleepLog{}).sleep))
		out, err := c.ConvertAll(ctx, p, nil)
		require.NoError(t, err)
		assert.Empty(t, out)
		assert.Zero(t, comp.calls())
	})

	t.Run("Should abort the file on the first terminal failure", func(t *testing.T) {
		comp := &scripted{steps: []step{
			{text: "one"}, {err: status(500)}, {err: status(500)}, {err: status(500)}, {text: "three"},
		}}
		c := NewClient(comp, keypool.New([]string{"k"}), WithSleeper((&sleepLog{}).sleep))
		out, err := c.ConvertAll(ctx, p, []chunk.Fragment{frag(0, "a"), frag(1, "b"), frag(2, "c")})
		assert.ErrorIs(t, err, common.ErrConversion)
		assert.Nil(t, out)
		assert.Equal(t, 4, comp.calls())
	})
}

func TestClient_AgainstHTTPEndpoint(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n <= 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"rate limit"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"question\":\"q\",\"answer\":\"a\"}"}}]}`))
	}))
	defer srv.Close()

	comp := openai.NewClient(openai.Config{BaseURL: srv.URL}, nil)
	c := NewClient(comp, keypool.New([]string{"k"}), WithSleeper((&sleepLog{}).sleep))
	res := c.Convert(context.Background(), format.Lookup(constants.FormatQA), frag(0, "Q: q A: a"))
	require.NoError(t, res.Err)
	assert.JSONEq(t, `{"question":"q","answer":"a"}`, res.Text)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 4, calls)
}

func TestWithRequestsPerMinute(t *testing.T) {
	c := NewClient(&scripted{}, keypool.New([]string{"k"}), WithRequestsPerMinute(120))
	require.NotNil(t, c.limiter)
	assert.InDelta(t, 2.0, float64(c.limiter.Limit()), 1e-9)

	c = NewClient(&scripted{}, keypool.New([]string{"k"}), WithRequestsPerMinute(0))
	assert.Nil(t, c.limiter)
}

func TestAttemptState(t *testing.T) {
	var a attemptState
	assert.Equal(t, EventRetry, a.nextAfterFailure(3))
	assert.Equal(t, EventRetry, a.nextAfterFailure(3))
	assert.Equal(t, EventFail, a.nextAfterFailure(3))

	var b attemptState
	for i := 0; i < 10; i++ {
		assert.Equal(t, EventRateLimit, b.nextAfterRateLimit(0))
	}
	var c attemptState
	assert.Equal(t, EventRateLimit, c.nextAfterRateLimit(1))
	assert.Equal(t, EventFail, c.nextAfterRateLimit(1))
}
