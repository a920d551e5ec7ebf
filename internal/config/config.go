package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Redis     RedisConfig
	Archive   ArchiveConfig
	Admin     AdminConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Recorder  RecorderConfig
}

type AppConfig struct {
	Env       string
	Port      string
	BaseURL   string
	StaticDir string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	PoolSize int
}

// ArchiveConfig configures the optional PostgreSQL click-event archive.
type ArchiveConfig struct {
	Enabled  bool
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

type AdminConfig struct {
	Token string
}

type AuthConfig struct {
	BasicUser     string
	BasicPassword string
}

type RateLimitConfig struct {
	Requests int
	Duration time.Duration
}

type RecorderConfig struct {
	QueueSize    int
	WriteTimeout time.Duration
}

func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	// Read config file (optional, env vars take precedence)
	_ = viper.ReadInConfig()

	cfg := &Config{
		App: AppConfig{
			Env:       viper.GetString("APP_ENV"),
			Port:      viper.GetString("APP_PORT"),
			BaseURL:   viper.GetString("APP_BASE_URL"),
			StaticDir: viper.GetString("APP_STATIC_DIR"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
			PoolSize: viper.GetInt("REDIS_POOL_SIZE"),
		},
		Archive: ArchiveConfig{
			Enabled:  viper.GetBool("ARCHIVE_ENABLED"),
			Host:     viper.GetString("ARCHIVE_PG_HOST"),
			Port:     viper.GetString("ARCHIVE_PG_PORT"),
			User:     viper.GetString("ARCHIVE_PG_USER"),
			Password: viper.GetString("ARCHIVE_PG_PASSWORD"),
			DBName:   viper.GetString("ARCHIVE_PG_DB"),
			SSLMode:  viper.GetString("ARCHIVE_PG_SSLMODE"),
			MaxConns: viper.GetInt("ARCHIVE_PG_MAX_CONNS"),
			MinConns: viper.GetInt("ARCHIVE_PG_MIN_CONNS"),
		},
		Admin: AdminConfig{
			Token: viper.GetString("ADMIN_TOKEN"),
		},
		Auth: AuthConfig{
			BasicUser:     viper.GetString("AUTH_BASIC_USER"),
			BasicPassword: viper.GetString("AUTH_BASIC_PASSWORD"),
		},
		RateLimit: RateLimitConfig{
			Requests: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Duration: viper.GetDuration("RATE_LIMIT_DURATION"),
		},
		Recorder: RecorderConfig{
			QueueSize:    viper.GetInt("RECORDER_QUEUE_SIZE"),
			WriteTimeout: viper.GetDuration("RECORDER_WRITE_TIMEOUT"),
		},
	}

	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("APP_ENV", "production")
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("APP_BASE_URL", "http://localhost")
	viper.SetDefault("APP_STATIC_DIR", "./web")

	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_POOL_SIZE", 10)

	viper.SetDefault("ARCHIVE_ENABLED", false)
	viper.SetDefault("ARCHIVE_PG_HOST", "localhost")
	viper.SetDefault("ARCHIVE_PG_PORT", "5432")
	viper.SetDefault("ARCHIVE_PG_USER", "shortlink")
	viper.SetDefault("ARCHIVE_PG_PASSWORD", "shortlink")
	viper.SetDefault("ARCHIVE_PG_DB", "shortlink")
	viper.SetDefault("ARCHIVE_PG_SSLMODE", "disable")
	viper.SetDefault("ARCHIVE_PG_MAX_CONNS", 10)
	viper.SetDefault("ARCHIVE_PG_MIN_CONNS", 2)

	viper.SetDefault("ADMIN_TOKEN", "")

	viper.SetDefault("RATE_LIMIT_REQUESTS", 100)
	viper.SetDefault("RATE_LIMIT_DURATION", "1m")

	viper.SetDefault("RECORDER_QUEUE_SIZE", 10240)
	viper.SetDefault("RECORDER_WRITE_TIMEOUT", "2s")
}

func (c *ArchiveConfig) DSN() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + c.Port + "/" + c.DBName + "?sslmode=" + c.SSLMode
}

func (c *RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}
