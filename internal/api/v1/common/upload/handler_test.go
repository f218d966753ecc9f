package upload

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"witweb-studio/internal/services"
	"witweb-studio/internal/utils"
)

func TestGetOSSToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	const secret = "test_secret"

	tests := []struct {
		name       string
		issue      func(services.OSSConfig) (*services.STSCredentials, error)
		wantStatus int
	}{
		{
			name: "issued",
			issue: func(cfg services.OSSConfig) (*services.STSCredentials, error) {
				return &services.STSCredentials{AccessKeyId: "STS.x", Bucket: cfg.BucketName}, nil
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "sts failure",
			issue: func(services.OSSConfig) (*services.STSCredentials, error) {
				return nil, errors.New("assume role denied")
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	token, err := utils.GenerateToken(secret, "alice", time.Hour)
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(services.OSSConfig{BucketName: "studio-assets"})
			h.issue = tt.issue
			r := gin.New()
			RegisterRoutes(r, h, secret)

			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, "/api/video/upload/token", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				var resp struct {
					Data services.STSCredentials `json:"data"`
				}
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, "studio-assets", resp.Data.Bucket)
			}
		})
	}

	t.Run("unauthenticated", func(t *testing.T) {
		r := gin.New()
		RegisterRoutes(r, NewHandler(services.OSSConfig{}), secret)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/api/video/upload/token", nil)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
