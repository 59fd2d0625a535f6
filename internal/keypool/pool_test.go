package keypool

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/dataset-generator/internal/common"
)

func TestPool(t *testing.T) {
	t.Run("Should return the first key initially", func(t *testing.T) {
		p := New([]string{"a", "b", "c"})
		c, err := p.Current()
		require.NoError(t, err)
		assert.Equal(t, "a", c.Secret)
		assert.Equal(t, 1, c.Ordinal)
		assert.Equal(t, "key #1", c.String())
	})

	t.Run("Should return to the start after Len rotations", func(t *testing.T) {
		p := New([]string{"a", "b", "c"})
		start := p.Cursor()
		for i := 0; i < p.Len(); i++ {
			require.NoError(t, p.Rotate())
		}
		assert.Equal(t, start, p.Cursor())
	})

	t.Run("Should visit keys in order", func(t *testing.T) {
		p := New([]string{"a", "b"})
		var seen []string
		for i := 0; i < 4; i++ {
			c, err := p.Current()
			require.NoError(t, err)
			seen = append(seen, c.Secret)
			require.NoError(t, p.Rotate())
		}
		assert.Equal(t, []string{"a", "b", "a", "b"}, seen)
	})

	t.Run("Should fail with EmptyPool when no keys", func(t *testing.T) {
		p := New(nil)
		_, err := p.Current()
		assert.True(t, errors.Is(err, common.ErrEmptyPool))
		assert.True(t, errors.Is(p.Rotate(), common.ErrEmptyPool))
		assert.Equal(t, 0, p.Len())
	})

	t.Run("Should not be affected by caller mutating the input slice", func(t *testing.T) {
		keys := []string{"a", "b"}
		p := New(keys)
		keys[0] = "z"
		c, err := p.Current()
		require.NoError(t, err)
		assert.Equal(t, "a", c.Secret)
	})

	t.Run("Should keep the cursor in range under concurrent rotation", func(t *testing.T) {
		p := New([]string{"a", "b", "c"})
		var wg sync.WaitGroup
		for i := 0; i < 30; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = p.Rotate()
			}()
		}
		wg.Wait()
		assert.Equal(t, 0, p.Cursor())
	})
}

func TestCooldownSelector(t *testing.T) {
	t.Run("Should skip a parked key on rotate", func(t *testing.T) {
		now := time.Unix(1000, 0)
		s := NewCooldown([]string{"a", "b", "c"}, time.Minute)
		s.now = func() time.Time { return now }

		s.MarkLimited(Credential{Ordinal: 2})
		require.NoError(t, s.Rotate())
		c, err := s.Current()
		require.NoError(t, err)
		assert.Equal(t, "c", c.Secret)
	})

	t.Run("Should fall back to round-robin when every key is parked", func(t *testing.T) {
		now := time.Unix(1000, 0)
		s := NewCooldown([]string{"a", "b"}, time.Minute)
		s.now = func() time.Time { return now }
		s.MarkLimited(Credential{Ordinal: 1})
		s.MarkLimited(Credential{Ordinal: 2})

		require.NoError(t, s.Rotate())
		c, _ := s.Current()
		assert.Equal(t, "b", c.Secret)
	})

	t.Run("Should double the window on repeated limits", func(t *testing.T) {
		now := time.Unix(1000, 0)
		s := NewCooldown([]string{"a", "b"}, time.Second)
		s.now = func() time.Time { return now }
		k := Credential{Ordinal: 1}
		s.MarkLimited(k)
		assert.Equal(t, now.Add(time.Second), s.until[0])
		s.MarkLimited(k)
		assert.Equal(t, now.Add(2*time.Second), s.until[0])
		for i := 0; i < 10; i++ {
			s.MarkLimited(k)
		}
		assert.Equal(t, now.Add(16*time.Second), s.until[0])

		s.MarkHealthy(k)
		assert.Zero(t, s.strike[0])
		assert.True(t, s.until[0].IsZero())
	})

	t.Run("Should release a key once its window passes", func(t *testing.T) {
		now := time.Unix(1000, 0)
		s := NewCooldown([]string{"a", "b", "c"}, time.Second)
		s.now = func() time.Time { return now }
		s.MarkLimited(Credential{Ordinal: 2})
		now = now.Add(2 * time.Second)
		require.NoError(t, s.Rotate())
		c, _ := s.Current()
		assert.Equal(t, "b", c.Secret)
	})

	t.Run("Should fail with EmptyPool when no keys", func(t *testing.T) {
		s := NewCooldown(nil, time.Second)
		_, err := s.Current()
		assert.ErrorIs(t, err, common.ErrEmptyPool)
		assert.ErrorIs(t, s.Rotate(), common.ErrEmptyPool)
	})
}

func TestSelect(t *testing.T) {
	_, ok := Select([]string{"a"}, 0).(*Pool)
	assert.True(t, ok)
	_, ok = Select([]string{"a"}, time.Second).(*CooldownSelector)
	assert.True(t, ok)
}
