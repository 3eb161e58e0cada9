//go:build integration
// +build integration

package cache_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/coursehub/enrollment-service/internal/cache"
	"github.com/coursehub/enrollment-service/internal/domain"
	"github.com/stretchr/testify/require"
)

func testAddr(t *testing.T) string {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("skipping integration test: TEST_REDIS_ADDR not set")
	}
	return addr
}

func TestCache_CourseOpen_GetSetMiss(t *testing.T) {
	c := cache.New(testAddr(t), "", 0)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Ping(ctx))

	_, err := c.GetCourseOpen(ctx, 9001)
	require.True(t, errors.Is(err, domain.ErrCacheMiss))

	require.NoError(t, c.SetCourseOpen(ctx, 9001, 7))
	got, err := c.GetCourseOpen(ctx, 9001)
	require.NoError(t, err)
	require.Equal(t, 7, got)

	require.NoError(t, c.InvalidateCourseOpen(ctx, 9001))
	_, err = c.GetCourseOpen(ctx, 9001)
	require.True(t, errors.Is(err, domain.ErrCacheMiss))
}

func TestCache_AllowRequest_FixedWindow(t *testing.T) {
	c := cache.New(testAddr(t), "", 0)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	limit := 3
	window := 2 * time.Second
	key := "test-client"

	for i := 0; i < limit; i++ {
		ok, err := c.AllowRequest(ctx, key, limit, window)
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, err := c.AllowRequest(ctx, key, limit, window)
	require.NoError(t, err)
	require.False(t, ok)

	time.Sleep(window + 200*time.Millisecond)
	ok, err = c.AllowRequest(ctx, key, limit, window)
	require.NoError(t, err)
	require.True(t, ok)
}
