// Package keypool holds the ordered set of bearer credentials used against the
// completion endpoint and the policy for rotating through them.
package keypool

import (
	"fmt"
	"sync"

	"github.com/joseph-ayodele/dataset-generator/internal/common"
)

// Credential is one bearer token plus its 1-based position in the pool.
// Ordinal is safe to log, Secret is not.
type Credential struct {
	Ordinal int
	Secret  string
}

// String never prints the secret.
func (c Credential) String() string {
	return fmt.Sprintf("key #%d", c.Ordinal)
}

// CredentialSelector picks the credential for the next request.
type CredentialSelector interface {
	Current() (Credential, error)
	Rotate() error
	Len() int
}

// Pool is a round-robin CredentialSelector. It is safe for concurrent use.
type Pool struct {
	mu     sync.Mutex
	keys   []string
	cursor int
}

// New copies keys into a pool positioned on the first key. Blank keys are kept
// as given; filtering happens in the configuration layer.
func New(keys []string) *Pool {
	cp := make([]string, len(keys))
	copy(cp, keys)
	return &Pool{keys: cp}
}

// Current returns the credential under the cursor.
func (p *Pool) Current() (Credential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.keys) == 0 {
		return Credential{}, common.EmptyPoolError()
	}
	return Credential{Ordinal: p.cursor + 1, Secret: p.keys[p.cursor]}, nil
}

// Rotate advances the cursor by one, wrapping to the first key.
func (p *Pool) Rotate() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.keys) == 0 {
		return common.EmptyPoolError()
	}
	p.cursor = (p.cursor + 1) % len(p.keys)
	return nil
}

// Len reports the number of configured keys.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys)
}

// Cursor reports the zero-based index of the current key.
func (p *Pool) Cursor() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}
