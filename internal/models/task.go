package models

import (
	"time"

	"gorm.io/datatypes"
)

// TaskType defines the kind of remote job
type TaskType string

const (
	TaskTypeGenerate        TaskType = "generate"
	TaskTypeUploadCharacter TaskType = "upload_character"
	TaskTypeCreateCharacter TaskType = "create_character"
)

// IsCharacter reports whether the task produces a character instead of a video
func (t TaskType) IsCharacter() bool {
	return t == TaskTypeUploadCharacter || t == TaskTypeCreateCharacter
}

// TaskStatus defines the status of a remote job as reported by the provider
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusSucceeded TaskStatus = "succeeded"
	TaskStatusFailed    TaskStatus = "failed"
)

// IsTerminal reports whether the status can no longer change
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusSucceeded || s == TaskStatusFailed
}

// Task is the durable audit record of a remote job. The primary key is the
// provider-issued id.
type Task struct {
	ID            string         `gorm:"primaryKey;size:128" json:"id"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	Owner         string         `gorm:"index;size:128" json:"username"`
	Type          TaskType       `gorm:"index;size:32" json:"task_type"`
	Status        TaskStatus     `gorm:"index;size:32" json:"status"`
	Progress      int            `json:"progress"`
	Prompt        string         `gorm:"type:text" json:"prompt,omitempty"`
	Model         string         `json:"model,omitempty"`
	URL           string         `gorm:"type:text" json:"url,omitempty"`
	AspectRatio   string         `json:"aspect_ratio,omitempty"`
	Duration      int            `json:"duration,omitempty"`
	RemixTargetID string         `json:"remix_target_id,omitempty"`
	Size          string         `json:"size,omitempty"`
	PID           string         `json:"pid,omitempty"`
	Timestamps    string         `json:"timestamps,omitempty"`
	ResultJSON    datatypes.JSON `json:"result_json,omitempty" swaggertype:"object"`
	FailureReason string         `gorm:"type:text" json:"failure_reason,omitempty"`
	Error         string         `gorm:"type:text" json:"error,omitempty"`
	Results       []TaskResult   `gorm:"foreignKey:TaskID;references:ID" json:"results"`
}

// TableName overrides the table name
func (Task) TableName() string {
	return "video_tasks"
}

// TaskResult is one asset reported by the provider for a succeeded task
type TaskResult struct {
	ID              uint      `gorm:"primarykey" json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	TaskID          string    `gorm:"size:128;not null;uniqueIndex:idx_task_result_url" json:"task_id"`
	URL             string    `gorm:"size:1024;not null;uniqueIndex:idx_task_result_url" json:"url"`
	RemoveWatermark bool      `json:"remove_watermark"`
	PID             string    `json:"pid,omitempty"`
	CharacterID     string    `json:"character_id,omitempty"`
}

// TableName overrides the table name
func (TaskResult) TableName() string {
	return "video_results"
}
