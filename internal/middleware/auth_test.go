package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"

	"witweb-studio/internal/utils"
)

const testSecret = "test_secret"

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/protected", AuthMiddleware(testSecret), func(c *gin.Context) {
		c.String(http.StatusOK, Owner(c))
	})

	signed := func(claims jwt.MapClaims, secret string) string {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		s, _ := token.SignedString([]byte(secret))
		return s
	}

	valid, err := utils.GenerateToken(testSecret, "alice", time.Hour)
	assert.NoError(t, err)
	expired, err := utils.GenerateToken(testSecret, "alice", -time.Hour)
	assert.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{name: "No Token", header: "", wantStatus: http.StatusUnauthorized},
		{name: "Not Bearer", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "Valid Token", header: "Bearer " + valid, wantStatus: http.StatusOK, wantBody: "alice"},
		{name: "Expired Token", header: "Bearer " + expired, wantStatus: http.StatusUnauthorized},
		{name: "Wrong Secret", header: "Bearer " + signed(jwt.MapClaims{"username": "alice", "exp": time.Now().Add(time.Hour).Unix()}, "other"), wantStatus: http.StatusUnauthorized},
		{name: "Missing Username", header: "Bearer " + signed(jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}, testSecret), wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, w.Body.String())
			}
		})
	}
}
