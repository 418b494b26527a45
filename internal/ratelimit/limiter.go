// Package ratelimit throttles manual balance queries per chat identity with a
// sliding window over recorded query times.
package ratelimit

import (
	"sync"
	"time"

	"dorm-electricity/internal/model"
)

// Limiter allows up to threshold queries per identity within a trailing
// window. Expired entries are pruned lazily on each check; there is no
// background sweep.
type Limiter struct {
	mu        sync.Mutex
	threshold int
	window    time.Duration
	hits      map[string][]time.Time

	now func() time.Time // replaced in tests
}

func New(threshold int, window time.Duration) *Limiter {
	return &Limiter{
		threshold: threshold,
		window:    window,
		hits:      make(map[string][]time.Time),
		now:       time.Now,
	}
}

// Allow reports whether the identity may query now. When allowed, the current
// time is recorded against the identity; when denied, nothing is recorded.
// The check and the record happen under one lock so two racing checks for the
// same identity cannot both slip under the threshold.
func (l *Limiter) Allow(id model.Identity) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	key := id.Key()

	recent := l.hits[key][:0:len(l.hits[key])]
	for _, ts := range l.hits[key] {
		if now.Sub(ts) < l.window {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= l.threshold {
		l.hits[key] = recent
		return false
	}

	l.hits[key] = append(recent, now)
	return true
}
