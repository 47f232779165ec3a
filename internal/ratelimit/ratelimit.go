// Package ratelimit implements fixed window request limits per client.
package ratelimit

import (
	"sync"
	"time"

	"github.com/chrisw65/market-profile/internal/components/chrono"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Preset is a named limit of Limit requests per Window.
type Preset struct {
	Name   string
	Limit  int
	Window time.Duration
}

var (
	Authenticated = Preset{Name: "authenticated", Limit: 100, Window: time.Minute}
	Anonymous     = Preset{Name: "anonymous", Limit: 10, Window: time.Minute}
	// Expensive covers scraping and AI generation.
	Expensive = Preset{Name: "expensive", Limit: 5, Window: time.Minute}
	Auth      = Preset{Name: "auth", Limit: 5, Window: 15 * time.Minute}
)

type Result struct {
	Limited   bool
	Remaining int
	ResetAt   time.Time
}

type window struct {
	count   int
	resetAt time.Time
}

// Limiter is safe for concurrent use. Windows of identifiers that stop
// sending requests are evicted.
type Limiter struct {
	mutex   sync.Mutex
	windows *expirable.LRU[string, *window]
	time    chrono.TimeAPI
}

func NewLimiter(clock chrono.TimeAPI) *Limiter {
	return &Limiter{
		windows: expirable.NewLRU[string, *window](10000, nil, Auth.Window),
		time:    clock,
	}
}

// Check counts a request from identifier against preset. The first request
// opens a window, requests past the limit within it are limited and do not
// count.
func (l *Limiter) Check(identifier string, preset Preset) Result {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	now := l.time.Now()
	key := preset.Name + ":" + identifier

	w, ok := l.windows.Get(key)
	if !ok || now.After(w.resetAt) {
		w = &window{count: 1, resetAt: now.Add(preset.Window)}
		l.windows.Add(key, w)
		return Result{
			Remaining: max(0, preset.Limit-w.count),
			ResetAt:   w.resetAt,
		}
	}

	if w.count >= preset.Limit {
		return Result{Limited: true, Remaining: 0, ResetAt: w.resetAt}
	}
	w.count++
	return Result{
		Remaining: max(0, preset.Limit-w.count),
		ResetAt:   w.resetAt,
	}
}

// Reset forgets every window.
func (l *Limiter) Reset() {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.windows.Purge()
}
