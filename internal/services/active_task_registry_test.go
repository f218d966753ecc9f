package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"witweb-studio/internal/models"
)

func TestRegistry_AddIsIdempotent(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.registry.Add(ctx, "abc123", "a cat"))
	e.clock.Advance(time.Minute)
	require.NoError(t, e.registry.Add(ctx, "abc123", "a different prompt"))

	entries, err := e.registry.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "abc123", entries[0].ID)
	assert.Equal(t, "a cat", entries[0].Prompt)
}

func TestRegistry_ListNewestFirstAndRemove(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.registry.Add(ctx, "first", "1"))
	e.clock.Advance(time.Second)
	require.NoError(t, e.registry.Add(ctx, "second", "2"))
	e.clock.Advance(time.Second)
	require.NoError(t, e.registry.Add(ctx, "third", "3"))

	entries, err := e.registry.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"third", "second", "first"}, []string{entries[0].ID, entries[1].ID, entries[2].ID})

	require.NoError(t, e.registry.Remove(ctx, "second"))
	require.NoError(t, e.registry.Remove(ctx, "missing"))
	entries, err = e.registry.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRegistry_MarkStates(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.registry.Add(ctx, "a", ""))
	require.NoError(t, e.registry.Add(ctx, "b", ""))
	require.NoError(t, e.registry.Add(ctx, "c", ""))
	require.NoError(t, e.registry.MarkFailed(ctx, "a", "content policy"))
	require.NoError(t, e.registry.MarkStalled(ctx, "b", "too old"))

	tracking, err := e.registry.Tracking(ctx)
	require.NoError(t, err)
	require.Len(t, tracking, 1)
	assert.Equal(t, "c", tracking[0].ID)

	a, err := e.registry.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, models.ActiveTaskFailed, a.State)
	assert.Equal(t, "content policy", a.Detail)

	b, err := e.registry.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, models.ActiveTaskStalled, b.State)
}
