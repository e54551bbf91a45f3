package rate

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisrepo "storefront/internal/repository/redis"
)

func Test_Limiter(t *testing.T) {
	t.Parallel()

	newLimiter := func(t *testing.T, limit int, window time.Duration) (*Limiter, *miniredis.Miniredis) {
		mr := miniredis.RunT(t)

		client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })

		return NewLimiter(redisrepo.NewRateStore(client), limit, window), mr
	}

	t.Run("allows under the limit", func(t *testing.T) {
		limiter, _ := newLimiter(t, 3, time.Minute)

		for i := range 3 {
			retryAfter, allowed, err := limiter.Allow(t.Context(), "auth:192.0.2.10")

			require.NoError(t, err)
			assert.True(t, allowed, "hit %d should pass", i+1)
			assert.Zero(t, retryAfter)
		}
	})

	t.Run("blocks over the limit", func(t *testing.T) {
		limiter, _ := newLimiter(t, 2, time.Minute)

		for range 2 {
			_, allowed, err := limiter.Allow(t.Context(), "auth:192.0.2.10")
			require.NoError(t, err)
			require.True(t, allowed)
		}

		retryAfter, allowed, err := limiter.Allow(t.Context(), "auth:192.0.2.10")

		require.NoError(t, err)
		assert.False(t, allowed, "third hit should be blocked")
		assert.Positive(t, retryAfter, "blocked hit should say how long to wait")
	})

	t.Run("keys are independent", func(t *testing.T) {
		limiter, _ := newLimiter(t, 1, time.Minute)

		_, allowed, err := limiter.Allow(t.Context(), "auth:192.0.2.10")
		require.NoError(t, err)
		require.True(t, allowed)

		_, allowed, err = limiter.Allow(t.Context(), "auth:192.0.2.20")
		require.NoError(t, err)
		assert.True(t, allowed, "another address has its own window")
	})

	t.Run("window resets", func(t *testing.T) {
		limiter, mr := newLimiter(t, 1, 10*time.Second)

		_, allowed, err := limiter.Allow(t.Context(), "auth:192.0.2.10")
		require.NoError(t, err)
		require.True(t, allowed)

		_, allowed, err = limiter.Allow(t.Context(), "auth:192.0.2.10")
		require.NoError(t, err)
		require.False(t, allowed)

		mr.FastForward(11 * time.Second)

		_, allowed, err = limiter.Allow(t.Context(), "auth:192.0.2.10")
		require.NoError(t, err)
		assert.True(t, allowed, "window has passed")
	})
}
