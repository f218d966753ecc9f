package models

import (
	"time"

	"gorm.io/gorm"
)

// ActiveTaskState describes how the server is tracking an in-flight task
type ActiveTaskState string

const (
	ActiveTaskTracking ActiveTaskState = "tracking"
	ActiveTaskFailed   ActiveTaskState = "failed"
	ActiveTaskStalled  ActiveTaskState = "stalled"
)

// ActiveTask is the bookkeeping row a reconnecting client uses to rebuild its
// "in progress" view. Removing it never touches the remote job.
type ActiveTask struct {
	ID        string          `gorm:"primaryKey;size:128" json:"id"`
	Prompt    string          `gorm:"type:text" json:"prompt"`
	StartedAt time.Time       `gorm:"index" json:"-"`
	StartTime int64           `gorm:"-" json:"start_time"`
	State     ActiveTaskState `gorm:"size:16;default:'tracking'" json:"state"`
	Detail    string          `gorm:"type:text" json:"detail,omitempty"`
}

// TableName overrides the table name
func (ActiveTask) TableName() string {
	return "active_tasks"
}

// TaskTimer records when a task was submitted so finalize can compute the
// elapsed generation time.
type TaskTimer struct {
	TaskID    string    `gorm:"primaryKey;size:128"`
	StartedAt time.Time `gorm:"not null"`
}

// TableName overrides the table name
func (TaskTimer) TableName() string {
	return "task_timers"
}

// AfterFind fills the unix start time exposed to clients
func (a *ActiveTask) AfterFind(tx *gorm.DB) error {
	a.StartTime = a.StartedAt.Unix()
	return nil
}
