package redisstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/portfolio/internal/model"
)

func newTestCounter(t *testing.T) (*ViewCounter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	v := New(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { v.Close() })
	return v, mr
}

func TestIncrementAndGet(t *testing.T) {
	v, mr := newTestCounter(t)
	ctx := context.Background()

	n, err := v.Get(ctx, model.EntityProject, "weather-dashboard")
	require.NoError(t, err)
	assert.Zero(t, n)

	for want := int64(1); want <= 3; want++ {
		n, err := v.Increment(ctx, model.EntityProject, "weather-dashboard")
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	n, err = v.Get(ctx, model.EntityProject, "weather-dashboard")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	got, err := mr.Get("portfolio:views:project:weather-dashboard")
	require.NoError(t, err)
	assert.Equal(t, "3", got)
}

func TestCountersAreSeparatedByEntityType(t *testing.T) {
	v, _ := newTestCounter(t)
	ctx := context.Background()

	_, err := v.Increment(ctx, model.EntityBlog, "same-slug")
	require.NoError(t, err)

	n, err := v.Get(ctx, model.EntityProject, "same-slug")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDial(t *testing.T) {
	mr := miniredis.RunT(t)

	v, err := Dial(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	defer v.Close()

	n, err := v.Increment(context.Background(), model.EntityBlog, "typescript-best-practices")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestDial_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := Dial(context.Background(), addr)
	assert.Error(t, err)
}

func TestErrorSurfacesWhenServerDown(t *testing.T) {
	v, mr := newTestCounter(t)
	mr.Close()

	_, err := v.Increment(context.Background(), model.EntityProject, "ai-chatbot")
	assert.Error(t, err)
}
