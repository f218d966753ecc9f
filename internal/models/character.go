package models

import "time"

// Character is a provider-side character created from an upload or an
// existing video. It is reference data only.
type Character struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Owner        string    `gorm:"index;size:128" json:"username"`
	CharacterID  string    `gorm:"size:128;not null" json:"character_id"`
	Name         string    `json:"name,omitempty"`
	SourceTaskID string    `gorm:"size:128;uniqueIndex" json:"source_task_id"`
}

// TableName overrides the table name
func (Character) TableName() string {
	return "characters"
}
