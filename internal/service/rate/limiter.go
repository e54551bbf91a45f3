package rate

import (
	"context"
	"time"
)

const (
	defaultLimit  = 10
	defaultWindow = time.Minute
)

type WindowStore interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// Limiter allows at most limit hits per key within a fixed window
type Limiter struct {
	store  WindowStore
	limit  int
	window time.Duration
}

func NewLimiter(store WindowStore, limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = defaultLimit
	}
	if window <= 0 {
		window = defaultWindow
	}

	return &Limiter{
		store:  store,
		limit:  limit,
		window: window,
	}
}

// Allow registers a hit for the key. When the key is over the limit it
// returns allowed=false and the seconds to wait before the window resets.
func (l *Limiter) Allow(ctx context.Context, key string) (retryAfter int64, allowed bool, err error) {
	count, ttl, err := l.store.IncrementWindow(ctx, "rate:"+key, l.window)
	if err != nil {
		return 0, false, err
	}

	if count > int64(l.limit) {
		return ceilSeconds(ttl), false, nil
	}

	return 0, true, nil
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	sec := int64(d / time.Second)
	if d%time.Second != 0 {
		sec++
	}
	if sec <= 0 {
		sec = 1
	}
	return sec
}
