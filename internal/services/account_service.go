package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"witweb-studio/internal/provider"
	"witweb-studio/pkg/logger"
)

const (
	creditsCachePrefix = "studio:credits:"
	creditsCacheTTL    = 30 * time.Second
)

// CreateAPIKeyRequest mirrors the provider's key creation payload
type CreateAPIKeyRequest struct {
	Token      string `json:"token" binding:"required"`
	Type       int    `json:"type"`
	Name       string `json:"name"`
	Credits    int    `json:"credits"`
	ExpireTime int64  `json:"expireTime"`
}

// AccountService wraps the provider's account endpoints
type AccountService struct {
	client *provider.Client
	config *ConfigStore
	rdb    *redis.Client
	log    *zap.Logger
}

// NewAccountService returns the service. rdb may be nil, which disables the
// credits cache.
func NewAccountService(client *provider.Client, config *ConfigStore, rdb *redis.Client) *AccountService {
	return &AccountService{
		client: client,
		config: config,
		rdb:    rdb,
		log:    logger.Named("account"),
	}
}

func creditsKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return creditsCachePrefix + hex.EncodeToString(sum[:8])
}

// Credits returns the account balance for token, cached briefly in Redis
func (s *AccountService) Credits(ctx context.Context, token string) (json.RawMessage, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingToken
	}

	key := creditsKey(token)
	if s.rdb != nil {
		cached, err := s.rdb.Get(ctx, key).Bytes()
		if err == nil {
			return json.RawMessage(cached), nil
		}
		if !errors.Is(err, redis.Nil) {
			s.log.Warn("credits cache read", zap.Error(err))
		}
	}

	env, err := s.client.PostJSON(ctx, provider.CreditsPath, map[string]string{"token": token})
	if err != nil {
		return nil, fmt.Errorf("get credits: %w", err)
	}
	data := env.Data()

	if s.rdb != nil {
		if err := s.rdb.Set(ctx, key, []byte(data), creditsCacheTTL).Err(); err != nil {
			s.log.Warn("credits cache write", zap.Error(err))
		}
	}
	return data, nil
}

// SavedCredits returns credits for the stored token. Failures are reported in
// the body rather than as an error.
func (s *AccountService) SavedCredits(ctx context.Context) json.RawMessage {
	token, err := s.config.Token(ctx)
	if err == nil {
		var data json.RawMessage
		data, err = s.Credits(ctx, token)
		if err == nil {
			return data
		}
	}
	if errors.Is(err, ErrMissingToken) {
		err = errors.New("missing token")
	}
	body, _ := json.Marshal(map[string]interface{}{"credits": nil, "error": err.Error()})
	return body
}

func (s *AccountService) APIKeyCredits(ctx context.Context, apiKey string) (json.RawMessage, error) {
	env, err := s.client.PostJSON(ctx, provider.APIKeyCreditsPath, map[string]string{"apiKey": apiKey})
	if err != nil {
		return nil, fmt.Errorf("get api key credits: %w", err)
	}
	return env.Data(), nil
}

func (s *AccountService) CreateAPIKey(ctx context.Context, req CreateAPIKeyRequest) (json.RawMessage, error) {
	env, err := s.client.PostJSON(ctx, provider.CreateAPIKeyPath, req)
	if err != nil {
		return nil, fmt.Errorf("create api key: %w", err)
	}
	return env.Data(), nil
}

func (s *AccountService) ModelStatus(ctx context.Context, model string) (json.RawMessage, error) {
	env, err := s.client.GetJSON(ctx, provider.ModelStatusPath, url.Values{"model": {model}})
	if err != nil {
		return nil, fmt.Errorf("get model status: %w", err)
	}
	return env.Data(), nil
}
