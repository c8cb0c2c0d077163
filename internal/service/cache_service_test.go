package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheServiceRoundTripAndInvalidate(t *testing.T) {
	repo := newMemoryCacheRepo()
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, 0, nil, true)
	ctx := context.Background()

	var out map[string]int
	hit, err := svc.Get(ctx, RequirementSessionKey("s-1"), &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(ctx, RequirementSessionKey("s-1"), map[string]int{"net_need": 3}, 0))
	require.NoError(t, svc.Set(ctx, RequirementSessionKey("s-2"), map[string]int{"net_need": 1}, 0))

	hit, err = svc.Get(ctx, RequirementSessionKey("s-1"), &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 3, out["net_need"])

	require.NoError(t, svc.InvalidateSession(ctx, "s-1"))
	assert.NotContains(t, repo.items, "req:session:s-1")
	assert.Contains(t, repo.items, "req:session:s-2")

	require.NoError(t, svc.InvalidateRequirements(ctx))
	assert.Empty(t, repo.items)

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.CacheHits)
	assert.Equal(t, uint64(1), snapshot.CacheMisses)
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, nil, 0, nil, false)

	require.NoError(t, svc.Set(context.Background(), "k", 1, 0))
	assert.Empty(t, repo.items)

	var nilSvc *CacheService
	hit, err := nilSvc.Get(context.Background(), "k", new(int))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, nilSvc.InvalidateSession(context.Background(), "s-1"))
}
