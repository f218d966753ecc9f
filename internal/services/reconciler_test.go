package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"witweb-studio/internal/models"
)

func newTestReconciler(e *testEngine, maxBackoff time.Duration) *Reconciler {
	r := NewReconciler(e.registry, e.poller, e.finalizer, ReconcilerConfig{
		Interval:   3 * time.Second,
		MaxBackoff: maxBackoff,
		MaxAge:     6 * time.Hour,
	})
	r.now = e.clock.Now
	return r
}

func (r *Reconciler) nextPoll(id string) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return time.Time{}, false
	}
	return t.NextPoll, true
}

func TestReconciler_FinalizesSucceededTasks(t *testing.T) {
	e := newTestEngine(t)
	r := newTestReconciler(e, 2*time.Minute)
	ctx := context.Background()

	id, err := e.tasks.CreateTask(ctx, "local", models.TaskTypeGenerate, TaskParams{Prompt: "a cat"})
	require.NoError(t, err)

	e.fp.setRunning(id, 40)
	require.NoError(t, r.RunOnce(ctx))
	assert.Equal(t, []string{id}, r.Tracked())
	_, downloads := e.fp.counts()
	assert.Zero(t, downloads)

	task, err := e.tasks.Get(ctx, "", id)
	require.NoError(t, err)
	assert.Equal(t, 40, task.Progress)

	e.fp.setSucceeded(id)
	e.clock.Advance(3 * time.Second)
	require.NoError(t, r.RunOnce(ctx))
	assert.Empty(t, r.Tracked())

	history, err := e.history.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "a cat", history[0].Prompt)

	entries, err := e.registry.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReconciler_MarksFailedTasks(t *testing.T) {
	e := newTestEngine(t)
	r := newTestReconciler(e, 2*time.Minute)
	ctx := context.Background()

	id, err := e.tasks.CreateTask(ctx, "local", models.TaskTypeGenerate, TaskParams{Prompt: "a cat"})
	require.NoError(t, err)
	e.fp.setFailed(id, "content policy")

	require.NoError(t, r.RunOnce(ctx))
	assert.Empty(t, r.Tracked())

	entry, err := e.registry.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.ActiveTaskFailed, entry.State)
	assert.Equal(t, "content policy", entry.Detail)

	calls, _ := e.fp.counts()
	require.NoError(t, r.RunOnce(ctx))
	after, _ := e.fp.counts()
	assert.Equal(t, calls, after)
}

func TestReconciler_BacksOffOnErrors(t *testing.T) {
	e := newTestEngine(t)
	r := newTestReconciler(e, 10*time.Second)
	ctx := context.Background()

	id, err := e.tasks.CreateTask(ctx, "local", models.TaskTypeGenerate, TaskParams{Prompt: "a cat"})
	require.NoError(t, err)
	e.fp.setResultStatus(http.StatusBadGateway)

	expectWait := func(want time.Duration) {
		t.Helper()
		next, ok := r.nextPoll(id)
		require.True(t, ok)
		assert.WithinDuration(t, e.clock.Now().Add(want), next, time.Millisecond)
	}
	calls := func() int {
		n, _ := e.fp.counts()
		return n
	}

	require.NoError(t, r.RunOnce(ctx))
	assert.Equal(t, 1, calls())
	expectWait(3 * time.Second)

	// not due yet
	require.NoError(t, r.RunOnce(ctx))
	assert.Equal(t, 1, calls())

	e.clock.Advance(3 * time.Second)
	require.NoError(t, r.RunOnce(ctx))
	assert.Equal(t, 2, calls())
	expectWait(6 * time.Second)

	e.clock.Advance(6 * time.Second)
	require.NoError(t, r.RunOnce(ctx))
	expectWait(10 * time.Second)

	e.clock.Advance(10 * time.Second)
	require.NoError(t, r.RunOnce(ctx))
	assert.Equal(t, 4, calls())
	expectWait(10 * time.Second)

	// recovery resets the backoff
	e.fp.setResultStatus(http.StatusOK)
	e.fp.setRunning(id, 60)
	e.clock.Advance(10 * time.Second)
	require.NoError(t, r.RunOnce(ctx))
	assert.Equal(t, 5, calls())
	expectWait(0)
}

func TestReconciler_MarksStalledTasks(t *testing.T) {
	e := newTestEngine(t)
	r := newTestReconciler(e, 2*time.Minute)
	ctx := context.Background()

	id, err := e.tasks.CreateTask(ctx, "local", models.TaskTypeGenerate, TaskParams{Prompt: "a cat"})
	require.NoError(t, err)
	e.fp.setRunning(id, 1)

	require.NoError(t, r.RunOnce(ctx))
	assert.Equal(t, []string{id}, r.Tracked())

	e.clock.Advance(6*time.Hour + time.Minute)
	calls, _ := e.fp.counts()
	require.NoError(t, r.RunOnce(ctx))
	after, _ := e.fp.counts()
	assert.Equal(t, calls, after)
	assert.Empty(t, r.Tracked())

	entry, err := e.registry.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.ActiveTaskStalled, entry.State)
	assert.NotEmpty(t, entry.Detail)
}

func TestReconciler_StartStopsOnCancel(t *testing.T) {
	e := newTestEngine(t)
	r := NewReconciler(e.registry, e.poller, e.finalizer, ReconcilerConfig{Interval: 5 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())

	id, err := e.tasks.CreateTask(ctx, "local", models.TaskTypeGenerate, TaskParams{Prompt: "a cat"})
	require.NoError(t, err)
	e.fp.setSucceeded(id)

	done := make(chan struct{})
	go func() {
		r.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		history, err := e.history.History(context.Background())
		return err == nil && len(history) == 1
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("reconciler did not stop")
	}
}

func TestReconciler_RetiresCharacterTasks(t *testing.T) {
	e := newTestEngine(t)
	r := newTestReconciler(e, 2*time.Minute)
	ctx := context.Background()

	id, err := e.tasks.CreateTask(ctx, "alice", models.TaskTypeCreateCharacter, TaskParams{PID: "p-1", Timestamps: "0,3"})
	require.NoError(t, err)
	e.fp.set(id, `{"id":"abc123","status":"succeeded","progress":100,"results":[{"character_id":"ch-9"}]}`)

	require.NoError(t, r.RunOnce(ctx))
	assert.Empty(t, r.Tracked())

	entries, err := e.registry.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	var timers int64
	require.NoError(t, e.db.Model(&models.TaskTimer{}).Where("task_id = ?", id).Count(&timers).Error)
	assert.Zero(t, timers)

	var characters []models.Character
	require.NoError(t, e.db.Find(&characters).Error)
	require.Len(t, characters, 1)
	assert.Equal(t, "ch-9", characters[0].CharacterID)

	// the next sync finds nothing left to track
	calls, _ := e.fp.counts()
	e.clock.Advance(3 * time.Second)
	require.NoError(t, r.RunOnce(ctx))
	after, _ := e.fp.counts()
	assert.Equal(t, calls, after)
	assert.Empty(t, r.Tracked())
}
