package provider

import "witweb-studio/internal/models"

const (
	DefaultDomesticHost = "https://grsai.dakka.com.cn"
	DefaultOverseasHost = "https://grsaiapi.com"
)

// Provider endpoints
const (
	CreateVideoPath     = "/v1/video/sora-video"
	UploadCharacterPath = "/v1/video/sora-upload-character"
	CreateCharacterPath = "/v1/video/sora-create-character"
	ResultPath          = "/v1/draw/result"
	CreateAPIKeyPath    = "/client/openapi/createAPIKey"
	APIKeyCreditsPath   = "/client/openapi/getAPIKeyCredits"
	CreditsPath         = "/client/openapi/getCredits"
	ModelStatusPath     = "/client/common/getModelStatus"
)

// Hosts are the base urls of the provider deployments
type Hosts struct {
	Domestic string
	Overseas string
}

// Order returns the hosts to try for a host mode. Auto mode always tries the
// domestic deployment first; unknown modes behave like auto.
func (h Hosts) Order(mode models.HostMode) []string {
	switch mode {
	case models.HostModeDomestic:
		return []string{h.Domestic}
	case models.HostModeOverseas:
		return []string{h.Overseas}
	default:
		return []string{h.Domestic, h.Overseas}
	}
}
