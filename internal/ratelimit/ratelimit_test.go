package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTryAdmit_SlidingWindow(t *testing.T) {
	l := New(5, time.Minute)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Six calls inside one second: first five admitted, sixth rejected
	for i := 0; i < 5; i++ {
		assert.True(t, l.TryAdmit("10.0.0.1", base.Add(time.Duration(i)*100*time.Millisecond)))
	}
	assert.False(t, l.TryAdmit("10.0.0.1", base.Add(time.Second)))

	// Independent key is unaffected
	assert.True(t, l.TryAdmit("10.0.0.2", base.Add(time.Second)))

	// Once the first admitted event leaves the window, a slot frees up
	assert.True(t, l.TryAdmit("10.0.0.1", base.Add(61*time.Second)))
}

func TestTryAdmit_EvictsOnlyExpired(t *testing.T) {
	l := New(2, time.Minute)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, l.TryAdmit("k", base))
	assert.True(t, l.TryAdmit("k", base.Add(30*time.Second)))
	assert.False(t, l.TryAdmit("k", base.Add(45*time.Second)))

	// 61s in: the first event expired, the 30s one has not
	assert.True(t, l.TryAdmit("k", base.Add(61*time.Second)))
	assert.False(t, l.TryAdmit("k", base.Add(62*time.Second)))
}

func TestRetryAfter_PointsAtEarliestSlot(t *testing.T) {
	l := New(2, time.Minute)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Duration(0), l.RetryAfter("k", base))

	l.TryAdmit("k", base)
	l.TryAdmit("k", base.Add(10*time.Second))
	assert.False(t, l.TryAdmit("k", base.Add(20*time.Second)))

	// Earliest event admitted at base expires at base+60s
	assert.Equal(t, 40*time.Second, l.RetryAfter("k", base.Add(20*time.Second)))

	// After expiry the hint collapses to zero
	assert.Equal(t, time.Duration(0), l.RetryAfter("k", base.Add(61*time.Second)))
}

func TestTryAdmit_ConcurrentCallsDoNotOverAdmit(t *testing.T) {
	l := New(5, time.Minute)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.TryAdmit("contended", now) {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, admitted)
}
