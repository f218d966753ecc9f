package models

import "time"

// HistoryState tracks the claim protocol used by finalize
type HistoryState string

const (
	HistoryClaimed      HistoryState = "claimed"
	HistoryMaterialized HistoryState = "materialized"
)

// HistoryRecord is the permanent record of a materialized artifact. The
// unique index on TaskID guarantees at most one record per task.
type HistoryRecord struct {
	ID              uint         `gorm:"primarykey" json:"-"`
	TaskID          string       `gorm:"size:128;not null;uniqueIndex" json:"id"`
	File            string       `gorm:"size:1024" json:"file"`
	URL             string       `gorm:"type:text" json:"url"`
	RemoteURL       string       `gorm:"type:text" json:"remote_url,omitempty"`
	PID             string       `json:"pid,omitempty"`
	CharacterID     string       `json:"character_id,omitempty"`
	DurationSeconds *int64       `json:"duration_seconds"`
	Prompt          string       `gorm:"type:text" json:"prompt"`
	State           HistoryState `gorm:"size:16;index" json:"-"`
	CreatedAt       time.Time    `json:"-"`
	Time            int64        `gorm:"column:generated_at" json:"time"`
}

// TableName overrides the table name
func (HistoryRecord) TableName() string {
	return "history_records"
}
