package video

import "witweb-studio/internal/models"

const (
	defaultAspectRatio = "9:16"
	defaultSize        = "small"
	defaultTimestamps  = "0,3"
)

type GenerateVideoRequest struct {
	Prompt        string `json:"prompt" binding:"required"`
	Model         string `json:"model"`
	URL           string `json:"url"`
	AspectRatio   string `json:"aspectRatio"`
	Duration      int    `json:"duration" binding:"omitempty,min=1"`
	RemixTargetID string `json:"remixTargetId"`
	Size          string `json:"size"`
}

type UploadCharacterRequest struct {
	URL        string `json:"url" binding:"required,url"`
	Timestamps string `json:"timestamps"`
}

type CreateCharacterRequest struct {
	PID        string `json:"pid" binding:"required"`
	Timestamps string `json:"timestamps"`
}

type SubmitResponse struct {
	OK     bool   `json:"ok"`
	TaskID string `json:"task_id"`
}

type TaskListResponse struct {
	Tasks []models.Task `json:"tasks"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

type CharacterListResponse struct {
	Characters []models.Character `json:"characters"`
}
