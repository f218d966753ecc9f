package studio

import "witweb-studio/internal/services"

type GenerateRequest struct {
	Prompt        string `json:"prompt" binding:"required"`
	Duration      int    `json:"duration"`
	URL           string `json:"url"`
	AspectRatio   string `json:"aspectRatio"`
	Size          string `json:"size"`
	RemixTargetID string `json:"remixTargetId"`
	ShutProgress  *bool  `json:"shutProgress"`
}

func (r GenerateRequest) params() services.TaskParams {
	return services.TaskParams{
		Prompt:        r.Prompt,
		Duration:      r.Duration,
		URL:           r.URL,
		AspectRatio:   r.AspectRatio,
		Size:          r.Size,
		RemixTargetID: r.RemixTargetID,
		ShutProgress:  r.ShutProgress,
	}
}

type FinalizeRequest struct {
	ID     string `json:"id" binding:"required"`
	Prompt string `json:"prompt"`
}

type ResultRequest struct {
	ID string `json:"id" binding:"required"`
}

type UploadCharacterRequest struct {
	URL          string `json:"url"`
	Timestamps   string `json:"timestamps" binding:"required"`
	WebHook      string `json:"webHook"`
	ShutProgress *bool  `json:"shutProgress"`
}

type CreateCharacterRequest struct {
	PID          string `json:"pid" binding:"required"`
	Timestamps   string `json:"timestamps" binding:"required"`
	WebHook      string `json:"webHook"`
	ShutProgress *bool  `json:"shutProgress"`
}

type ActiveTaskRemoveRequest struct {
	ID string `json:"id" binding:"required"`
}

type VideoDeleteRequest struct {
	Name string `json:"name" binding:"required"`
}

type APIKeyRequest struct {
	APIKey string `json:"api_key"`
}

type TokenRequest struct {
	Token string `json:"token"`
}

type QueryDefaultsRequest struct {
	Data map[string]interface{} `json:"data" binding:"required"`
}

type HostModeRequest struct {
	HostMode string `json:"host_mode" binding:"required"`
}

type CreditsRequest struct {
	Token string `json:"token" binding:"required"`
}

type APIKeyCreditsRequest struct {
	APIKey string `json:"apiKey" binding:"required"`
}

type ModelStatusRequest struct {
	Model string `json:"model" binding:"required"`
}

// IDResponse carries a provider task id
type IDResponse struct {
	ID string `json:"id"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}
