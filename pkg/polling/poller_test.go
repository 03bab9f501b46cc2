package polling

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollerDue(t *testing.T) {
	p := NewPoller(NewModelMetricsSource(newFakeCluster(), time.Second), 3, 0, nil)
	assert.True(t, p.Due(0))
	assert.False(t, p.Due(1))
	assert.True(t, p.Due(6))

	sla := NewPoller(NewSLASource(newFakeCluster()), 0, 0, nil)
	assert.False(t, sla.Due(0))
	assert.Empty(t, sla.Families())
}

func TestPollerHealth(t *testing.T) {
	fc := newFakeCluster()
	p := NewPoller(NewModelMetricsSource(fc, time.Second), 1, time.Second, nil)
	ctx := context.Background()
	assert.Equal(t, StatusUnknown, p.Status())

	r := p.Fetch(ctx, 1, time.Now())
	require.NoError(t, r.Err)
	assert.Equal(t, StatusHealthy, p.Status())
	assert.Equal(t, []string{FamilyResponseTime, FamilyCreated, FamilyCompleted, FamilyOnGPU}, r.Families)

	fc.setFail(3)
	for i, want := range []Status{StatusUnhealthy, StatusUnhealthy, StatusDown} {
		r := p.Fetch(ctx, 2, time.Now())
		assert.ErrorIs(t, r.Err, errFake)
		assert.Nil(t, r.Values)
		assert.Equal(t, want, p.Status(), "after failure %d", i+1)
	}

	stats := p.Stats()
	assert.Equal(t, int64(4), stats.FetchCount)
	assert.Equal(t, int64(3), stats.ErrorCount)
	assert.Equal(t, 3, stats.ConsecutiveErrors)
	assert.Contains(t, stats.LastError, "connection refused")

	require.NoError(t, p.Fetch(ctx, 3, time.Now()).Err)
	assert.Equal(t, StatusHealthy, p.Status())
	assert.Empty(t, p.Stats().LastError)
}

func TestPollerTimeout(t *testing.T) {
	fc := newFakeCluster()
	fc.block = make(chan struct{})
	defer close(fc.block)

	p := NewPoller(NewModelMetricsSource(fc, time.Second), 1, 20*time.Millisecond, nil)
	r := p.Fetch(context.Background(), 1, time.Now())
	assert.ErrorIs(t, r.Err, context.DeadlineExceeded)
	assert.Equal(t, StatusUnhealthy, p.Status())
}

func TestPollerSkipsWhileBusy(t *testing.T) {
	fc := newFakeCluster()
	fc.block = make(chan struct{})

	p := NewPoller(NewModelMetricsSource(fc, time.Second), 1, time.Second, nil)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.Fetch(context.Background(), 1, time.Now())
	}()

	require.Eventually(t, func() bool {
		fc.mu.Lock()
		defer fc.mu.Unlock()
		return len(fc.fromTs) == 1
	}, time.Second, time.Millisecond)

	r := p.Fetch(context.Background(), 2, time.Now())
	assert.ErrorIs(t, r.Err, ErrBusy)
	assert.Equal(t, int64(1), p.Stats().SkipCount)

	close(fc.block)
	wg.Wait()
	assert.Equal(t, StatusHealthy, p.Status())
}
