package ratelimiter

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBucketAllow(t *testing.T) {
	t.Run("takes a token", func(t *testing.T) {
		b := &bucket{tokens: 10, capacity: 10, rate: 1, lastRefill: time.Now()}
		assert.True(t, b.allow())
		assert.InDelta(t, 9.0, b.tokens, 0.01)
	})

	t.Run("denies when empty", func(t *testing.T) {
		b := &bucket{tokens: 0, capacity: 10, rate: 1, lastRefill: time.Now()}
		assert.False(t, b.allow())
	})

	t.Run("refills over time", func(t *testing.T) {
		b := &bucket{tokens: 0, capacity: 10, rate: 1, lastRefill: time.Now().Add(-2 * time.Second)}
		assert.True(t, b.allow())
	})

	t.Run("never exceeds capacity", func(t *testing.T) {
		b := &bucket{tokens: 9, capacity: 10, rate: 1, lastRefill: time.Now().Add(-time.Hour)}
		b.allow()
		assert.InDelta(t, 9.0, b.tokens, 0.01)
	})
}

func TestLimiter(t *testing.T) {
	l := New(0, 2, time.Hour)
	defer l.Stop()

	assert.True(t, l.Allow("1.2.3.4"))
	assert.True(t, l.Allow("1.2.3.4"))
	assert.False(t, l.Allow("1.2.3.4"))
	assert.True(t, l.Allow("5.6.7.8"), "keys are independent")
}

func TestLimiterConcurrent(t *testing.T) {
	l := New(0, 10, time.Hour)
	defer l.Stop()

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("key") {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(10), allowed.Load())
}

func TestLimiterExpiration(t *testing.T) {
	l := New(0, 1, 20*time.Millisecond)
	defer l.Stop()

	assert.True(t, l.Allow("key"))
	assert.False(t, l.Allow("key"))

	assert.Eventually(t, func() bool {
		l.mu.RLock()
		defer l.mu.RUnlock()
		return len(l.buckets) == 0
	}, time.Second, 10*time.Millisecond)
	assert.True(t, l.Allow("key"))
}
