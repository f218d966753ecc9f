package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"witweb-studio/internal/models"
	"witweb-studio/internal/provider"
)

func TestGetResult_ReadOnly(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	id, err := e.tasks.CreateTask(ctx, "alice", models.TaskTypeGenerate, TaskParams{Prompt: "a cat"})
	require.NoError(t, err)
	e.fp.setSucceeded(id)

	snap, err := e.poller.GetResult(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusSucceeded, snap.Status)

	task, err := e.tasks.Get(ctx, "", id)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusRunning, task.Status)
	assert.Empty(t, task.Results)
}

func TestPollResult(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	e.fp.setSucceeded("ok")
	snap, err := e.poller.PollResult(ctx, "ok")
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusSucceeded, snap.Status)
	assert.Len(t, snap.Results, 1)

	e.fp.setFailed("bad", "content policy")
	_, err = e.poller.PollResult(ctx, "bad")
	var failed *TaskFailedError
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, "content policy", failed.Reason)

	e.fp.set("worse", `{"status":"failed","failure_reason":"policy","error":"upstream crashed"}`)
	_, err = e.poller.PollResult(ctx, "worse")
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, "upstream crashed", failed.Reason)
}

func TestPollResult_KeepsWaitingWhileRunning(t *testing.T) {
	e := newTestEngine(t)
	e.fp.setRunning("slow", 10)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := e.poller.PollResult(ctx, "slow")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	calls, _ := e.fp.counts()
	assert.Greater(t, calls, 1)
}

func TestPollResult_ProviderErrorEndsLoop(t *testing.T) {
	e := newTestEngine(t)
	e.fp.setResultStatus(http.StatusInternalServerError)

	_, err := e.poller.PollResult(context.Background(), "abc123")
	var exhausted *provider.ExhaustedError
	assert.True(t, errors.As(err, &exhausted))
}

func TestPollAndUpdate_MonotonicTerminality(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	id, err := e.tasks.CreateTask(ctx, "alice", models.TaskTypeGenerate, TaskParams{Prompt: "a cat"})
	require.NoError(t, err)

	e.fp.setRunning(id, 40)
	task, _, err := e.poller.PollAndUpdate(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusRunning, task.Status)
	assert.Equal(t, 40, task.Progress)

	e.fp.setSucceeded(id)
	task, _, err = e.poller.PollAndUpdate(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusSucceeded, task.Status)
	assert.Equal(t, 100, task.Progress)
	require.Len(t, task.Results, 1)
	assert.Equal(t, e.fp.videoURL(), task.Results[0].URL)
	assert.True(t, task.Results[0].RemoveWatermark)
	assert.Contains(t, string(task.ResultJSON), `"succeeded"`)

	// a stale or flapping provider answer never reverts a terminal row
	e.fp.setRunning(id, 10)
	task, snap, err := e.poller.PollAndUpdate(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusRunning, snap.Status)
	assert.Equal(t, models.TaskStatusSucceeded, task.Status)
	assert.Equal(t, 100, task.Progress)

	e.fp.setSucceeded(id)
	task, _, err = e.poller.PollAndUpdate(ctx, id)
	require.NoError(t, err)
	assert.Len(t, task.Results, 1)

	e.fp.setNextID("f1")
	failedID, err := e.tasks.CreateTask(ctx, "alice", models.TaskTypeGenerate, TaskParams{Prompt: "a dog"})
	require.NoError(t, err)
	e.fp.setFailed(failedID, "content policy")
	task, _, err = e.poller.PollAndUpdate(ctx, failedID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusFailed, task.Status)
	assert.Equal(t, "content policy", task.FailureReason)

	e.fp.setRunning(failedID, 50)
	task, _, err = e.poller.PollAndUpdate(ctx, failedID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusFailed, task.Status)
}

func TestPollAndUpdate_TerminalWriteBetweenReadAndUpdate(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	id, err := e.tasks.CreateTask(ctx, "alice", models.TaskTypeGenerate, TaskParams{Prompt: "a cat"})
	require.NoError(t, err)
	e.fp.setRunning(id, 50)

	// another writer finishes the task after the row was read as running
	fired := false
	require.NoError(t, e.db.Callback().Update().Before("gorm:update").Register("test:finish_first", func(d *gorm.DB) {
		if fired || d.Statement.Table != "video_tasks" {
			return
		}
		fired = true
		d.Session(&gorm.Session{NewDB: true}).Exec("UPDATE video_tasks SET status = ?, progress = ? WHERE id = ?", models.TaskStatusSucceeded, 100, id)
	}))
	t.Cleanup(func() { _ = e.db.Callback().Update().Remove("test:finish_first") })

	task, snap, err := e.poller.PollAndUpdate(ctx, id)
	require.NoError(t, err)
	require.True(t, fired)
	assert.Equal(t, models.TaskStatusRunning, snap.Status)
	require.NotNil(t, task)
	assert.Equal(t, models.TaskStatusSucceeded, task.Status)
	assert.Equal(t, 100, task.Progress)
}

func TestPollAndUpdate_ProviderErrorLeavesRow(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	id, err := e.tasks.CreateTask(ctx, "alice", models.TaskTypeGenerate, TaskParams{Prompt: "a cat"})
	require.NoError(t, err)
	e.fp.setResultStatus(http.StatusBadGateway)

	_, _, err = e.poller.PollAndUpdate(ctx, id)
	require.Error(t, err)

	task, err := e.tasks.Get(ctx, "alice", id)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusRunning, task.Status)
	assert.Empty(t, task.Error)
}

func TestPollAndUpdate_RecordsCharacter(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	e.fp.setNextID("c1")
	id, err := e.tasks.CreateTask(ctx, "alice", models.TaskTypeUploadCharacter, TaskParams{URL: "https://v/c.mp4", Timestamps: "0,3"})
	require.NoError(t, err)
	e.fp.set(id, `{"id":"c1","status":"succeeded","progress":100,"results":[{"url":"https://v/c.mp4","character_id":"char-42"}]}`)

	for i := 0; i < 2; i++ {
		_, _, err = e.poller.PollAndUpdate(ctx, id)
		require.NoError(t, err)
	}

	characters, err := e.tasks.Characters(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, characters, 1)
	assert.Equal(t, "char-42", characters[0].CharacterID)
	assert.Equal(t, id, characters[0].SourceTaskID)
}

func TestPollAndUpdate_UnknownTask(t *testing.T) {
	e := newTestEngine(t)
	e.fp.setRunning("elsewhere", 5)

	task, snap, err := e.poller.PollAndUpdate(context.Background(), "elsewhere")
	require.NoError(t, err)
	assert.Nil(t, task)
	assert.Equal(t, 5, snap.Progress)
}
