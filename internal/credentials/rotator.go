package credentials

import (
	"errors"
	"sync"
	"time"
)

const maxErrorCount = 3

// Credential is a bearer token with usage bookkeeping.
type Credential struct {
	Token      string
	LastUsedAt time.Time
	ErrorCount int
}

// ErrNoCredentials indicates an empty credential pool.
var ErrNoCredentials = errors.New("no inference credentials configured")

// Rotator owns a pool of API credentials and hands them out round-robin,
// preferring tokens that have cooled down and have few recorded failures.
type Rotator struct {
	mu       sync.Mutex
	pool     []Credential
	cursor   int
	cooldown time.Duration
	now      func() time.Time
}

// NewRotator builds a rotator over the given tokens.
func NewRotator(tokens []string, cooldown time.Duration) (*Rotator, error) {
	if len(tokens) == 0 {
		return nil, ErrNoCredentials
	}
	pool := make([]Credential, 0, len(tokens))
	for _, tok := range tokens {
		pool = append(pool, Credential{Token: tok})
	}
	return &Rotator{
		pool:     pool,
		cooldown: cooldown,
		now:      time.Now,
	}, nil
}

// Acquire returns the next usable credential. It scans from the position
// after the last-returned index for a credential that has cooled down and
// has fewer than three recorded failures. When none qualifies it falls back
// to the next credential with headroom, and as a last resort plain
// round-robin: availability wins over strict cooldown enforcement.
func (r *Rotator) Acquire() Credential {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	n := len(r.pool)

	for i := 0; i < n; i++ {
		idx := (r.cursor + 1 + i) % n
		c := &r.pool[idx]
		if now.Sub(c.LastUsedAt) > r.cooldown && c.ErrorCount < maxErrorCount {
			r.cursor = idx
			c.LastUsedAt = now
			return *c
		}
	}

	// Every credential is inside its cooldown window. Still avoid tokens
	// that have saturated their failure budget while a healthier one exists.
	for i := 0; i < n; i++ {
		idx := (r.cursor + 1 + i) % n
		c := &r.pool[idx]
		if c.ErrorCount < maxErrorCount {
			r.cursor = idx
			c.LastUsedAt = now
			return *c
		}
	}

	r.cursor = (r.cursor + 1) % n
	c := &r.pool[r.cursor]
	c.LastUsedAt = now
	return *c
}

// ReportFailure increments the error count for the given token. An empty
// token attributes the failure to the most recently returned credential.
// Counts never reset; a credential that fails three times stays excluded
// for the process lifetime.
func (r *Rotator) ReportFailure(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if token == "" {
		r.pool[r.cursor].ErrorCount++
		return
	}
	for i := range r.pool {
		if r.pool[i].Token == token {
			r.pool[i].ErrorCount++
			return
		}
	}
}

// Size returns the number of credentials in the pool.
func (r *Rotator) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pool)
}
