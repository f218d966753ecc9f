package cli

import (
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"witweb-studio/config"
	"witweb-studio/internal/database"
	"witweb-studio/pkg/logger"
)

// app holds the process-wide resources a command runs against
type app struct {
	cfg *config.Config
	db  *gorm.DB
	rdb *redis.Client
}

// setup loads configuration, starts logging and opens the database. Redis is
// only connected when withRedis is set.
func setup(withRedis bool) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := logger.InitLogger(&logger.Config{
		Level:      cfg.LogLevel,
		Filename:   cfg.LogFilename,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAge,
		Compress:   cfg.LogCompress,
		Console:    true,
	}); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	a := &app{cfg: cfg, db: db}
	if withRedis {
		if err := database.ConnectRedis(cfg); err != nil {
			a.close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.rdb = database.RedisClient
	}
	return a, nil
}

func (a *app) close() {
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			logger.Log.Warn("close redis", zap.Error(err))
		}
	}
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
	logger.Sync()
}
