package services

import (
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"witweb-studio/config"
	"witweb-studio/internal/models"
	"witweb-studio/internal/provider"
	"witweb-studio/internal/utils"
)

const downloadTimeout = 10 * time.Minute

// Engine bundles the services a running studio needs
type Engine struct {
	Config     *ConfigStore
	Client     *provider.Client
	Registry   *ActiveTaskRegistry
	Tasks      *TaskService
	Poller     *Poller
	Store      *ArtifactStore
	Finalizer  *Finalizer
	History    *HistoryService
	Account    *AccountService
	Dispatcher *Dispatcher
	Reconciler *Reconciler
}

// NewEngine wires every service against the given stores
func NewEngine(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *Engine {
	hostMode := models.HostMode(cfg.ProviderHostMode)
	if !hostMode.Valid() {
		hostMode = models.HostModeAuto
	}
	configStore := NewConfigStore(db, cfg.ProviderAPIKey, hostMode)

	client := provider.NewClient(provider.Options{
		Hosts: provider.Hosts{
			Domestic: cfg.ProviderDomesticHost,
			Overseas: cfg.ProviderOverseasHost,
		},
		Settings:        configStore,
		HTTPClient:      utils.NewHTTPClient(cfg.ProviderTimeout),
		AttemptsPerHost: cfg.ProviderAttemptsPerHost,
		RetryDelay:      cfg.ProviderRetryDelay,
	})

	// asset bodies are streamed to disk, so they skip the logging transport
	store := NewArtifactStore(cfg.DownloadDir, &http.Client{Timeout: downloadTimeout})

	var mirror Mirror
	if cfg.OSSEnabled {
		mirror = NewOSSUploader(OSSConfig{
			Endpoint:        cfg.OSSEndpoint,
			Region:          cfg.OSSRegion,
			BucketName:      cfg.OSSBucketName,
			AccessKeyID:     cfg.OSSAccessKeyID,
			AccessKeySecret: cfg.OSSAccessKeySecret,
			RoleArn:         cfg.OSSRoleArn,
		})
	}

	registry := NewActiveTaskRegistry(db)
	poller := NewPoller(db, client, cfg.PollInterval)
	finalizer := NewFinalizer(db, poller, store, mirror)

	return &Engine{
		Config:     configStore,
		Client:     client,
		Registry:   registry,
		Tasks:      NewTaskService(db, client, registry),
		Poller:     poller,
		Store:      store,
		Finalizer:  finalizer,
		History:    NewHistoryService(db, store),
		Account:    NewAccountService(client, configStore, rdb),
		Dispatcher: NewDispatcher(rdb, poller, finalizer, registry),
		Reconciler: NewReconciler(registry, poller, finalizer, ReconcilerConfig{
			Interval:   cfg.ReconcileInterval,
			MaxBackoff: cfg.ReconcileMaxBackoff,
			MaxAge:     cfg.ReconcileMaxAge,
		}),
	}
}
