package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"witweb-studio/internal/models"
)

func TestDispatcher_Enqueue(t *testing.T) {
	e := newTestEngine(t)
	rdb := setupTestRedis(t)
	d := NewDispatcher(rdb, e.poller, e.finalizer, e.registry)
	ctx := context.Background()

	require.NoError(t, d.Enqueue(ctx, "abc123", "a cat"))
	items, err := rdb.LRange(ctx, FinalizeQueueKey, 0, -1).Result()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.JSONEq(t, `{"id":"abc123","prompt":"a cat"}`, items[0])
}

func TestDispatcher_RunFinalizesQueuedJobs(t *testing.T) {
	e := newTestEngine(t)
	rdb := setupTestRedis(t)
	d := NewDispatcher(rdb, e.poller, e.finalizer, e.registry)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	id, err := e.tasks.CreateTask(ctx, "local", models.TaskTypeGenerate, TaskParams{Prompt: "a cat"})
	require.NoError(t, err)
	e.fp.setSucceeded(id)

	e.fp.setNextID("f1")
	failedID, err := e.tasks.CreateTask(ctx, "local", models.TaskTypeGenerate, TaskParams{Prompt: "a dog"})
	require.NoError(t, err)
	e.fp.setFailed(failedID, "content policy")

	require.NoError(t, rdb.RPush(ctx, FinalizeQueueKey, "not json").Err())
	require.NoError(t, d.Enqueue(ctx, id, "a cat"))
	require.NoError(t, d.Enqueue(ctx, failedID, "a dog"))

	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		history, err := e.history.History(context.Background())
		if err != nil || len(history) != 1 {
			return false
		}
		entry, err := e.registry.Get(context.Background(), failedID)
		return err == nil && entry.State == models.ActiveTaskFailed
	}, 5*time.Second, 20*time.Millisecond)

	history, err := e.history.History(context.Background())
	require.NoError(t, err)
	assert.Equal(t, id, history[0].TaskID)
	assert.Equal(t, "a cat", history[0].Prompt)

	entry, err := e.registry.Get(context.Background(), failedID)
	require.NoError(t, err)
	assert.Equal(t, "content policy", entry.Detail)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher did not stop")
	}

	n, err := rdb.LLen(context.Background(), FinalizeQueueKey).Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}
