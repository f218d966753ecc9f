package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"witweb-studio/internal/models"
	"witweb-studio/internal/provider"
)

// ConfigView is the client-visible configuration
type ConfigView struct {
	APIKey        string                 `json:"api_key"`
	HostMode      models.HostMode        `json:"host_mode"`
	QueryDefaults map[string]interface{} `json:"query_defaults"`
}

// ConfigStore owns the single provider configuration row. Every read goes to
// the database so a change is visible to the next outbound call.
type ConfigStore struct {
	db   *gorm.DB
	seed models.ProviderConfig
}

func NewConfigStore(db *gorm.DB, apiKey string, hostMode models.HostMode) *ConfigStore {
	if !hostMode.Valid() {
		hostMode = models.HostModeAuto
	}
	return &ConfigStore{
		db: db,
		seed: models.ProviderConfig{
			ID:            models.ProviderConfigID,
			APIKey:        apiKey,
			HostMode:      hostMode,
			QueryDefaults: models.JSON{},
		},
	}
}

func (s *ConfigStore) load(ctx context.Context) (*models.ProviderConfig, error) {
	db := s.db.WithContext(ctx)

	var cfg models.ProviderConfig
	err := db.First(&cfg, models.ProviderConfigID).Error
	if err == nil {
		return &cfg, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load provider config: %w", err)
	}

	seed := s.seed
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return nil, fmt.Errorf("seed provider config: %w", err)
	}
	if err := db.First(&cfg, models.ProviderConfigID).Error; err != nil {
		return nil, fmt.Errorf("load provider config: %w", err)
	}
	return &cfg, nil
}

func (s *ConfigStore) update(ctx context.Context, values map[string]interface{}) error {
	if _, err := s.load(ctx); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Model(&models.ProviderConfig{ID: models.ProviderConfigID}).Updates(values).Error
	if err != nil {
		return fmt.Errorf("update provider config: %w", err)
	}
	return nil
}

// Snapshot returns the immutable settings an outbound call runs with
func (s *ConfigStore) Snapshot(ctx context.Context) (provider.Settings, error) {
	cfg, err := s.load(ctx)
	if err != nil {
		return provider.Settings{}, err
	}
	return provider.Settings{APIKey: cfg.APIKey, HostMode: cfg.HostMode}, nil
}

// Settings implements provider.SettingsSource
func (s *ConfigStore) Settings(ctx context.Context) (provider.Settings, error) {
	return s.Snapshot(ctx)
}

func (s *ConfigStore) Get(ctx context.Context) (*ConfigView, error) {
	cfg, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	defaults := map[string]interface{}(cfg.QueryDefaults)
	if defaults == nil {
		defaults = map[string]interface{}{}
	}
	return &ConfigView{APIKey: cfg.APIKey, HostMode: cfg.HostMode, QueryDefaults: defaults}, nil
}

func (s *ConfigStore) SetAPIKey(ctx context.Context, key string) error {
	return s.update(ctx, map[string]interface{}{"api_key": strings.TrimSpace(key)})
}

func (s *ConfigStore) SetToken(ctx context.Context, token string) error {
	return s.update(ctx, map[string]interface{}{"token": strings.TrimSpace(token)})
}

// Token returns the saved account token, empty when none is set
func (s *ConfigStore) Token(ctx context.Context) (string, error) {
	cfg, err := s.load(ctx)
	if err != nil {
		return "", err
	}
	return cfg.Token, nil
}

func (s *ConfigStore) SetHostMode(ctx context.Context, mode string) error {
	m := models.HostMode(strings.ToLower(strings.TrimSpace(mode)))
	if !m.Valid() {
		return ErrInvalidHostMode
	}
	return s.update(ctx, map[string]interface{}{"host_mode": m})
}

// SetQueryDefaults merges values into the stored defaults. Keys present in
// values replace stored keys; other stored keys are kept.
func (s *ConfigStore) SetQueryDefaults(ctx context.Context, values map[string]interface{}) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		store := &ConfigStore{db: tx, seed: s.seed}
		cfg, err := store.load(ctx)
		if err != nil {
			return err
		}
		merged := cfg.QueryDefaults.Merge(values)
		return tx.Model(&models.ProviderConfig{ID: models.ProviderConfigID}).Update("query_defaults", merged).Error
	})
}
