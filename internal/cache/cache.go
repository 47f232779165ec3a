// Package cache memoizes expensive scrape results in memory for a bounded
// time.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chrisw65/market-profile/internal/components/chrono"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

const (
	TTLProfile   = 30 * time.Minute
	TTLClassroom = time.Hour
	TTLPosts     = 15 * time.Minute
	TTLCampaign  = time.Hour
)

const (
	defaultSize = 2048
	// maxTTL bounds how long the LRU keeps an entry around, entries with a
	// shorter ttl are expired by their own deadline.
	maxTTL = time.Hour
)

// Key joins parts with ":".
func Key(parts ...any) string {
	strs := make([]string, len(parts))
	for i, p := range parts {
		strs[i] = fmt.Sprint(p)
	}
	return strings.Join(strs, ":")
}

type entry struct {
	value     any
	expiresAt time.Time
}

// Results is safe for concurrent use. Concurrent fetches of the same key
// share a single call to fetch.
type Results struct {
	lru   *expirable.LRU[string, entry]
	time  chrono.TimeAPI
	group singleflight.Group
}

func NewResults(clock chrono.TimeAPI) *Results {
	return &Results{
		lru:  expirable.NewLRU[string, entry](defaultSize, nil, maxTTL),
		time: clock,
	}
}

// Get returns the cached value under key if it is present, unexpired and of
// type T.
func Get[T any](r *Results, key string) (T, bool) {
	var zero T
	cached, ok := r.lru.Get(key)
	if !ok {
		return zero, false
	}
	if !r.time.Now().Before(cached.expiresAt) {
		r.lru.Remove(key)
		return zero, false
	}
	value, ok := cached.value.(T)
	if !ok {
		return zero, false
	}
	return value, true
}

func Set[T any](r *Results, key string, value T, ttl time.Duration) {
	r.lru.Add(key, entry{
		value:     value,
		expiresAt: r.time.Now().Add(ttl),
	})
}

func (r *Results) Delete(key string) {
	r.lru.Remove(key)
}

func (r *Results) Purge() {
	r.lru.Purge()
}

func (r *Results) Len() int {
	return r.lru.Len()
}

// GetOrFetch returns the cached value under key, or calls fetch and caches
// what it returns for ttl. Errors are returned as is and never cached.
//
// The shared fetch runs on a context detached from any single caller's
// cancellation, each caller stops waiting when its own ctx is done.
func GetOrFetch[T any](
	ctx context.Context,
	r *Results,
	key string,
	ttl time.Duration,
	fetch func(ctx context.Context) (T, error),
) (T, error) {
	var zero T
	value, ok := Get[T](r, key)
	if ok {
		return value, nil
	}

	detached := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key, func() (any, error) {
		value, ok := Get[T](r, key)
		if ok {
			return value, nil
		}
		value, err := fetch(detached)
		if err != nil {
			return value, err
		}
		Set(r, key, value, ttl)
		return value, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}
