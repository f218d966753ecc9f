package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	ServerPort  int
	CORSOrigins []string

	DBDriver   string
	DBPath     string
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string

	RedisAddr     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	JWTSecret     string

	// Log configuration
	LogLevel      string
	LogFilename   string
	LogMaxSize    int
	LogMaxBackups int
	LogMaxAge     int
	LogCompress   bool

	// Provider configuration
	ProviderDomesticHost    string
	ProviderOverseasHost    string
	ProviderAPIKey          string
	ProviderHostMode        string
	ProviderTimeout         time.Duration
	ProviderAttemptsPerHost int
	ProviderRetryDelay      time.Duration

	// Engine configuration
	DownloadDir         string
	PollInterval        time.Duration
	ReconcileEnabled    bool
	ReconcileInterval   time.Duration
	ReconcileMaxBackoff time.Duration
	ReconcileMaxAge     time.Duration

	// OSS mirror configuration
	OSSEnabled         bool
	OSSEndpoint        string
	OSSRegion          string
	OSSBucketName      string
	OSSAccessKeyID     string
	OSSAccessKeySecret string
	OSSRoleArn         string

	// Telemetry
	OTLPEndpoint   string
	ServiceVersion string
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

func (c *Config) RedisFullAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisAddr, c.RedisPort)
}

// Viper is the shared instance cobra flags bind into
var Viper = newViper()

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	v.SetDefault("PORT", 8000)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")

	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DB_PATH", "data/studio.db")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")

	v.SetDefault("LOG_LEVEL", "INFO")
	v.SetDefault("LOG_FILENAME", "logs/app.log")
	v.SetDefault("LOG_MAX_SIZE", 100)
	v.SetDefault("LOG_MAX_BACKUPS", 3)
	v.SetDefault("LOG_MAX_AGE", 28)
	v.SetDefault("LOG_COMPRESS", true)

	v.SetDefault("PROVIDER_DOMESTIC_HOST", "https://grsai.dakka.com.cn")
	v.SetDefault("PROVIDER_OVERSEAS_HOST", "https://grsaiapi.com")
	v.SetDefault("PROVIDER_HOST_MODE", "auto")
	v.SetDefault("PROVIDER_TIMEOUT", 30*time.Second)
	v.SetDefault("PROVIDER_ATTEMPTS_PER_HOST", 3)
	v.SetDefault("PROVIDER_RETRY_DELAY", 2*time.Second)

	v.SetDefault("DOWNLOAD_DIR", "downloads")
	v.SetDefault("POLL_INTERVAL", 10*time.Second)
	v.SetDefault("RECONCILE_ENABLED", true)
	v.SetDefault("RECONCILE_INTERVAL", 3*time.Second)
	v.SetDefault("RECONCILE_MAX_BACKOFF", 2*time.Minute)
	v.SetDefault("RECONCILE_MAX_AGE", 6*time.Hour)

	v.SetDefault("OSS_ENABLED", false)
	v.SetDefault("SERVICE_VERSION", "dev")
	return v
}

// LoadConfig reads .env (if present), the optional config file set on Viper
// and the process environment.
func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		// Ignore error if .env file is not found
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	v := Viper
	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	return &Config{
		ServerPort:  v.GetInt("PORT"),
		CORSOrigins: splitList(v.GetString("CORS_ORIGINS")),

		DBDriver:   strings.ToLower(v.GetString("DB_DRIVER")),
		DBPath:     v.GetString("DB_PATH"),
		DBHost:     v.GetString("DB_HOST"),
		DBUser:     v.GetString("DB_USER"),
		DBPassword: v.GetString("DB_PASSWORD"),
		DBName:     v.GetString("DB_NAME"),
		DBPort:     v.GetString("DB_PORT"),

		RedisAddr:     v.GetString("REDIS_HOST"),
		RedisPort:     v.GetString("REDIS_PORT"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),
		JWTSecret:     v.GetString("JWT_SECRET"),

		LogLevel:      v.GetString("LOG_LEVEL"),
		LogFilename:   v.GetString("LOG_FILENAME"),
		LogMaxSize:    v.GetInt("LOG_MAX_SIZE"),
		LogMaxBackups: v.GetInt("LOG_MAX_BACKUPS"),
		LogMaxAge:     v.GetInt("LOG_MAX_AGE"),
		LogCompress:   v.GetBool("LOG_COMPRESS"),

		ProviderDomesticHost:    strings.TrimRight(v.GetString("PROVIDER_DOMESTIC_HOST"), "/"),
		ProviderOverseasHost:    strings.TrimRight(v.GetString("PROVIDER_OVERSEAS_HOST"), "/"),
		ProviderAPIKey:          v.GetString("PROVIDER_API_KEY"),
		ProviderHostMode:        strings.ToLower(v.GetString("PROVIDER_HOST_MODE")),
		ProviderTimeout:         v.GetDuration("PROVIDER_TIMEOUT"),
		ProviderAttemptsPerHost: v.GetInt("PROVIDER_ATTEMPTS_PER_HOST"),
		ProviderRetryDelay:      v.GetDuration("PROVIDER_RETRY_DELAY"),

		DownloadDir:         v.GetString("DOWNLOAD_DIR"),
		PollInterval:        v.GetDuration("POLL_INTERVAL"),
		ReconcileEnabled:    v.GetBool("RECONCILE_ENABLED"),
		ReconcileInterval:   v.GetDuration("RECONCILE_INTERVAL"),
		ReconcileMaxBackoff: v.GetDuration("RECONCILE_MAX_BACKOFF"),
		ReconcileMaxAge:     v.GetDuration("RECONCILE_MAX_AGE"),

		OSSEnabled:         v.GetBool("OSS_ENABLED"),
		OSSEndpoint:        v.GetString("OSS_ENDPOINT"),
		OSSRegion:          v.GetString("OSS_REGION"),
		OSSBucketName:      v.GetString("OSS_BUCKET_NAME"),
		OSSAccessKeyID:     v.GetString("OSS_ACCESS_KEY_ID"),
		OSSAccessKeySecret: v.GetString("OSS_ACCESS_KEY_SECRET"),
		OSSRoleArn:         v.GetString("OSS_ROLE_ARN"),

		OTLPEndpoint:   v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ServiceVersion: v.GetString("SERVICE_VERSION"),
	}, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
