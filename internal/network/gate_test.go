package network

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLimits returns generous limits that individual tests tighten.
func testLimits() Limits {
	return Limits{
		Workers:           4,
		MessagesPerMinute: 6000,
		ChatsPerMinute:    6000,
		RequestsPerSecond: 1000,
		Burst:             10,
		CooldownAfter:     3,
		Cooldown:          time.Minute,
	}
}

func TestNewGate(t *testing.T) {
	t.Parallel()
	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		g, err := NewGate(DefLimits)
		require.NoError(t, err)
		assert.NotNil(t, g)
	})
	t.Run("invalid", func(t *testing.T) {
		t.Parallel()
		l := DefLimits
		l.Burst = 0
		_, err := NewGate(l)
		assert.Error(t, err)
	})
}

func TestGate_Limiter(t *testing.T) {
	t.Parallel()
	g, err := NewGate(testLimits())
	require.NoError(t, err)
	assert.Same(t, g.cats[CatMessages], g.Limiter(CatMessages))
	assert.Same(t, g.cats[CatChats], g.Limiter(CatChats))
	assert.Same(t, g.cats[CatGeneric], g.Limiter(Category(42)), "unknown categories use the generic quota")
}

func TestGate_sharesPerSecondCap(t *testing.T) {
	t.Parallel()
	g, err := NewGate(testLimits())
	require.NoError(t, err)
	m := g.Limiter(CatMessages).(*catLimiter)
	c := g.Limiter(CatChats).(*catLimiter)
	assert.Same(t, m.perSec, c.perSec)
	assert.NotSame(t, m.perMin, c.perMin)
}

func TestGate_blockingDelaysInOrder(t *testing.T) {
	t.Parallel()
	l := testLimits()
	l.RequestsPerSecond = 20 // a token every 50ms
	l.Burst = 1
	g, err := NewGate(l)
	require.NoError(t, err)
	lim := g.Limiter(CatMessages)

	const n = 4
	var (
		mu    sync.Mutex
		order []int
		wg    sync.WaitGroup
	)
	start := time.Now()
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Stagger arrivals well under the token spacing, so that
			// arrival order is unambiguous.
			time.Sleep(time.Duration(i) * 15 * time.Millisecond)
			if !assert.NoError(t, lim.Wait(context.Background())) {
				return
			}
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, []int{0, 1, 2, 3}, order, "delayed requests must be issued in submission order")
	assert.GreaterOrEqual(t, time.Since(start), 3*50*time.Millisecond-5*time.Millisecond,
		"excess requests must be delayed, not dropped")
}

func TestGate_failFast(t *testing.T) {
	t.Parallel()
	l := testLimits()
	l.FailFast = true
	l.RequestsPerSecond = 1
	l.Burst = 1
	g, err := NewGate(l)
	require.NoError(t, err)
	lim := g.Limiter(CatGeneric)

	require.NoError(t, lim.Wait(context.Background()), "burst allowance admits the first call")
	start := time.Now()
	err = lim.Wait(context.Background())
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Less(t, time.Since(start), 100*time.Millisecond, "fail-fast must not block")
}

func TestGate_cooldownBlocks(t *testing.T) {
	t.Parallel()
	l := testLimits()
	l.CooldownAfter = 2
	l.Cooldown = 60 * time.Millisecond
	g, err := NewGate(l)
	require.NoError(t, err)
	cl := g.Limiter(CatChats).(*catLimiter)

	cl.throttled()
	assert.True(t, cl.coolUntil.IsZero(), "one throttle is not enough")
	cl.throttled()

	start := time.Now()
	require.NoError(t, cl.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond,
		"acquire must block for the cooldown period")
}

func TestGate_cooldownFailFast(t *testing.T) {
	t.Parallel()
	l := testLimits()
	l.FailFast = true
	l.CooldownAfter = 2
	l.Cooldown = time.Minute
	g, err := NewGate(l)
	require.NoError(t, err)
	cl := g.Limiter(CatChats).(*catLimiter)

	cl.throttled()
	cl.throttled()
	assert.ErrorIs(t, cl.Wait(context.Background()), ErrRateLimited)
}

func TestGate_cooldownIsPerCategory(t *testing.T) {
	t.Parallel()
	l := testLimits()
	l.CooldownAfter = 1
	l.Cooldown = time.Minute
	l.FailFast = true
	g, err := NewGate(l)
	require.NoError(t, err)

	g.Limiter(CatMessages).(*catLimiter).throttled()
	assert.ErrorIs(t, g.Limiter(CatMessages).Wait(context.Background()), ErrRateLimited)
	assert.NoError(t, g.Limiter(CatChats).Wait(context.Background()),
		"other categories are not affected by the cooldown")
}

func TestCatLimiter_successBreaksTheStreak(t *testing.T) {
	t.Parallel()
	l := testLimits()
	l.CooldownAfter = 2
	g, err := NewGate(l)
	require.NoError(t, err)
	cl := g.Limiter(CatMessages).(*catLimiter)

	cl.throttled()
	cl.succeeded()
	cl.throttled()
	assert.True(t, cl.coolUntil.IsZero(), "non-consecutive throttles must not trigger the cooldown")
}

func TestGate_waitHonoursContext(t *testing.T) {
	t.Parallel()
	l := testLimits()
	l.RequestsPerSecond = 1
	l.Burst = 1
	g, err := NewGate(l)
	require.NoError(t, err)
	lim := g.Limiter(CatGeneric)

	require.NoError(t, lim.Wait(context.Background()))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, lim.Wait(ctx), context.DeadlineExceeded)
}
