package services

import (
	"errors"
	"fmt"
)

var (
	ErrMissingTaskID      = errors.New("provider response did not include a task id")
	ErrEmptyResult        = errors.New("task succeeded without a usable result")
	ErrFinalizeInProgress = errors.New("finalize already in progress for this task")
	ErrInvalidHostMode    = errors.New("host mode must be one of auto, domestic, overseas")
	ErrMissingToken       = errors.New("account token is required")
	ErrInvalidVideoName   = errors.New("invalid video name")
	ErrVideoNotFound      = errors.New("video not found")
	ErrTaskNotFound       = errors.New("task not found")
)

// TaskFailedError carries the provider's failure reason verbatim
type TaskFailedError struct {
	TaskID string
	Reason string
}

func (e *TaskFailedError) Error() string {
	return fmt.Sprintf("task %s failed: %s", e.TaskID, e.Reason)
}
