package drawing

import (
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/benmeehan/pixie-bridge/internal/constants"
)

// Limit is a fixed-window ceiling for one action kind.
type Limit struct {
	Max    int           `yaml:"max"`
	Window time.Duration `yaml:"window"`
}

// DefaultLimits are the per-kind ceilings. Pixel edits get the most throughput, clears the least.
func DefaultLimits() map[string]Limit {
	return map[string]Limit{
		constants.RateDrawPixel:   {Max: 60, Window: time.Second},
		constants.RateDrawStroke:  {Max: 30, Window: time.Second},
		constants.RateClearCanvas: {Max: 5, Window: time.Minute},
	}
}

type window struct {
	count   int
	resetAt time.Time
}

// RateLimiter counts actions per (user, kind) in fixed windows.
// A window starts at the first action and resets wholesale on the first action after it expires.
type RateLimiter struct {
	limits  map[string]Limit
	windows cmap.ConcurrentMap[string, window]
	now     func() time.Time
}

// NewRateLimiter creates a RateLimiter. Kinds missing from limits are never limited.
func NewRateLimiter(limits map[string]Limit) *RateLimiter {
	return &RateLimiter{
		limits:  limits,
		windows: cmap.New[window](),
		now:     time.Now,
	}
}

func windowKey(userID, kind string) string {
	return userID + "|" + kind
}

// Allow consumes one unit of the user's bucket for kind and reports whether it was available.
// A rejected call leaves the counter untouched.
func (r *RateLimiter) Allow(userID, kind string) bool {
	limit, ok := r.limits[kind]
	if !ok || limit.Max <= 0 {
		return true
	}

	now := r.now()
	allowed := false
	r.windows.Upsert(windowKey(userID, kind), window{}, func(exist bool, cur, _ window) window {
		if !exist || now.After(cur.resetAt) {
			allowed = true
			return window{count: 1, resetAt: now.Add(limit.Window)}
		}
		if cur.count >= limit.Max {
			return cur
		}
		allowed = true
		cur.count++
		return cur
	})
	return allowed
}

// Sweep drops expired windows and returns how many were removed.
func (r *RateLimiter) Sweep() int {
	now := r.now()
	removed := 0
	for _, key := range r.windows.Keys() {
		if r.windows.RemoveCb(key, func(_ string, w window, exists bool) bool {
			return exists && now.After(w.resetAt)
		}) {
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked windows.
func (r *RateLimiter) Len() int {
	return r.windows.Count()
}
