package feature

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	calls  int
	values map[string]float64
	err    error
}

func (s *countingSource) Name() string { return "counting" }

func (s *countingSource) Fetch(_ context.Context, _ map[string]any, names []string) (map[string]float64, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := map[string]float64{}
	for _, n := range names {
		if v, ok := s.values[n]; ok {
			out[n] = v
		}
	}
	return out, nil
}

func TestCachedSource(t *testing.T) {
	src := &countingSource{values: map[string]float64{"V1": 1, "V2": 2}}
	c := NewCachedSource(src, time.Minute, 0)
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	got, err := c.Fetch(ctx, map[string]any{"tx": "a", "shop": 1}, []string{"V1", "V2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"V1": 1, "V2": 2}, got)

	got["V1"] = 99
	got, err = c.Fetch(ctx, map[string]any{"shop": 1, "tx": "a"}, []string{"V2", "V1"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, got["V1"], "cached value must not be shared with callers")
	assert.Equal(t, 1, src.calls)

	now = now.Add(2 * time.Minute)
	_, err = c.Fetch(ctx, map[string]any{"tx": "a", "shop": 1}, []string{"V1", "V2"})
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestCachedSource_EvictsLeastRecentlyUsed(t *testing.T) {
	src := &countingSource{values: map[string]float64{"V1": 1}}
	c := NewCachedSource(src, time.Hour, 2)
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }
	ctx := context.Background()
	names := []string{"V1"}

	for _, tx := range []string{"a", "b"} {
		_, err := c.Fetch(ctx, map[string]any{"tx": tx}, names)
		require.NoError(t, err)
		now = now.Add(time.Second)
	}
	_, _ = c.Fetch(ctx, map[string]any{"tx": "a"}, names)
	now = now.Add(time.Second)
	_, _ = c.Fetch(ctx, map[string]any{"tx": "c"}, names)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, 3, src.calls)

	_, _ = c.Fetch(ctx, map[string]any{"tx": "a"}, names)
	assert.Equal(t, 3, src.calls, "a was recently used and must survive")
	_, _ = c.Fetch(ctx, map[string]any{"tx": "b"}, names)
	assert.Equal(t, 4, src.calls, "b was evicted")
}

func TestCachedSource_ErrorsAreNotCached(t *testing.T) {
	src := &countingSource{err: errors.New("down")}
	c := NewCachedSource(src, time.Hour, 0)

	_, err := c.Fetch(context.Background(), map[string]any{"tx": "a"}, []string{"V1"})
	assert.Error(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestFallbackSource(t *testing.T) {
	defaults := &StaticSource{Values: map[string]float64{"V1": 0, "V2": 0, "V3": 0}}
	ctx := context.Background()

	down := &FallbackSource{Primary: &countingSource{err: errors.New("timeout")}, Fallback: defaults}
	got, err := down.Fetch(ctx, nil, []string{"V1", "V9"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"V1": 0}, got)

	partial := &FallbackSource{Primary: &countingSource{values: map[string]float64{"V1": 5}}, Fallback: defaults}
	got, err = partial.Fetch(ctx, nil, []string{"V1", "V2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"V1": 5, "V2": 0}, got)
	assert.Equal(t, "counting", partial.Name())
}
