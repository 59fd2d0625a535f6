package keypool

import (
	"sync"
	"time"

	"github.com/joseph-ayodele/dataset-generator/internal/common"
)

// Limiter is implemented by selectors that track per-key health.
type Limiter interface {
	MarkLimited(c Credential)
	MarkHealthy(c Credential)
}

const maxCooldownDoublings = 5

// CooldownSelector is a health-aware selector. A key reported through
// MarkLimited is parked for a window that doubles on every repeated report,
// up to 16 times the base. Rotate skips parked keys while any key is free and
// falls back to plain round-robin when all of them are parked.
type CooldownSelector struct {
	mu     sync.Mutex
	keys   []string
	cursor int
	base   time.Duration
	until  []time.Time
	strike []int
	now    func() time.Time
}

// NewCooldown builds a selector with the given base cooldown window.
func NewCooldown(keys []string, base time.Duration) *CooldownSelector {
	cp := make([]string, len(keys))
	copy(cp, keys)
	return &CooldownSelector{
		keys:   cp,
		base:   base,
		until:  make([]time.Time, len(cp)),
		strike: make([]int, len(cp)),
		now:    time.Now,
	}
}

func (s *CooldownSelector) Current() (Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.keys) == 0 {
		return Credential{}, common.EmptyPoolError()
	}
	return Credential{Ordinal: s.cursor + 1, Secret: s.keys[s.cursor]}, nil
}

func (s *CooldownSelector) Rotate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.keys)
	if n == 0 {
		return common.EmptyPoolError()
	}
	now := s.now()
	for step := 1; step <= n; step++ {
		i := (s.cursor + step) % n
		if !now.Before(s.until[i]) {
			s.cursor = i
			return nil
		}
	}
	s.cursor = (s.cursor + 1) % n
	return nil
}

func (s *CooldownSelector) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}

// MarkLimited parks the credential. Unknown ordinals are ignored.
func (s *CooldownSelector) MarkLimited(c Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := c.Ordinal - 1
	if i < 0 || i >= len(s.keys) {
		return
	}
	if s.strike[i] < maxCooldownDoublings {
		s.strike[i]++
	}
	window := s.base << (s.strike[i] - 1)
	s.until[i] = s.now().Add(window)
}

// MarkHealthy clears the strike count after a successful call.
func (s *CooldownSelector) MarkHealthy(c Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := c.Ordinal - 1
	if i < 0 || i >= len(s.keys) {
		return
	}
	s.strike[i] = 0
	s.until[i] = time.Time{}
}

// Select returns a plain Pool when cooldown is disabled.
func Select(keys []string, cooldown time.Duration) CredentialSelector {
	if cooldown <= 0 {
		return New(keys)
	}
	return NewCooldown(keys, cooldown)
}
