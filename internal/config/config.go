package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config aggregates application settings that may be sourced from files or environment variables.
type Config struct {
	API        APIConfig        `mapstructure:"api"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Worker     WorkerConfig     `mapstructure:"worker"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	AI         AIConfig         `mapstructure:"ai"`
	Clamd      ClamdConfig      `mapstructure:"clamd"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Port int `mapstructure:"port"`
	// AllowedOrigins is a comma separated list of origins permitted to open
	// WebSocket connections. Empty means same-host only.
	AllowedOrigins string `mapstructure:"allowed_origins"`
}

// Origins splits AllowedOrigins into a slice, dropping empty entries.
func (a APIConfig) Origins() []string {
	var origins []string
	for _, origin := range strings.Split(a.AllowedOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// DatabaseConfig contains connection options for PostgreSQL.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig 包含 Redis 连接配置。
type RedisConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// StorageConfig contains the on-disk document store layout and upload limits.
type StorageConfig struct {
	// UploadRoot is the primary directory for uploaded documents. Relative
	// storage paths recorded in the database resolve against it.
	UploadRoot string `mapstructure:"upload_root"`
	// FallbackDir is consulted when a stored path cannot be found under
	// UploadRoot (documents carried over from an older layout).
	FallbackDir      string `mapstructure:"fallback_dir"`
	MaxUploadBytes   int64  `mapstructure:"max_upload_bytes"`
	MaxActiveResumes int    `mapstructure:"max_active_resumes"`
}

// WorkerConfig contains queue worker scheduling settings.
type WorkerConfig struct {
	Interval  time.Duration `mapstructure:"interval"`
	BatchSize int           `mapstructure:"batch_size"`
}

// ExtractionConfig contains PDF extraction tuning options.
type ExtractionConfig struct {
	RenderScale       float64 `mapstructure:"render_scale"`
	ScreenshotQuality int     `mapstructure:"screenshot_quality"`
}

// AIConfig contains settings for the resume analysis model.
// An empty APIKey disables enrichment entirely.
type AIConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	Model      string        `mapstructure:"model"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MinTextLen int           `mapstructure:"min_text_len"`
}

// ClamdConfig 包含病毒扫描服务地址，留空则跳过扫描。
type ClamdConfig struct {
	Addr string `mapstructure:"addr"`
}

// DSN builds a lib/pq compatible connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode,
	)
}

// Addr returns the host:port pair for the Redis client.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Load reads configuration solely from environment variables (with optional defaults).
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad wraps Load and panics on failure.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.allowed_origins", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "resumebox")
	v.SetDefault("database.user", "resumebox")
	v.SetDefault("database.password", "resumebox")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("storage.upload_root", "./uploads")
	v.SetDefault("storage.fallback_dir", "./storage/resumes")
	v.SetDefault("storage.max_upload_bytes", 10*1024*1024)
	v.SetDefault("storage.max_active_resumes", 3)
	v.SetDefault("worker.interval", 30*time.Second)
	v.SetDefault("worker.batch_size", 5)
	v.SetDefault("extraction.render_scale", 1.5)
	v.SetDefault("extraction.screenshot_quality", 80)
	v.SetDefault("ai.model", "gemini-1.5-flash")
	v.SetDefault("ai.timeout", 30*time.Second)
	v.SetDefault("ai.min_text_len", 100)
	v.SetDefault("clamd.addr", "")
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"api.port":                      "API_PORT",
		"api.allowed_origins":           "API_ALLOWED_ORIGINS",
		"database.host":                 "DATABASE_HOST",
		"database.port":                 "DATABASE_PORT",
		"database.name":                 "POSTGRES_DB",
		"database.user":                 "POSTGRES_USER",
		"database.password":             "POSTGRES_PASSWORD",
		"database.sslmode":              "DATABASE_SSLMODE",
		"redis.host":                    "REDIS_HOST",
		"redis.port":                    "REDIS_PORT",
		"storage.upload_root":           "STORAGE_UPLOAD_ROOT",
		"storage.fallback_dir":          "STORAGE_FALLBACK_DIR",
		"storage.max_upload_bytes":      "STORAGE_MAX_UPLOAD_BYTES",
		"storage.max_active_resumes":    "STORAGE_MAX_ACTIVE_RESUMES",
		"worker.interval":               "WORKER_INTERVAL",
		"worker.batch_size":             "WORKER_BATCH_SIZE",
		"extraction.render_scale":       "EXTRACTION_RENDER_SCALE",
		"extraction.screenshot_quality": "EXTRACTION_SCREENSHOT_QUALITY",
		"ai.api_key":                    "AI_API_KEY",
		"ai.model":                      "AI_MODEL",
		"ai.timeout":                    "AI_TIMEOUT",
		"ai.min_text_len":               "AI_MIN_TEXT_LEN",
		"clamd.addr":                    "CLAMD_ADDR",
	}

	for key, env := range mappings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}

	return nil
}

func validate(cfg Config) error {
	if cfg.API.Port <= 0 {
		return errors.New("api port must be positive")
	}
	if cfg.Database.Host == "" {
		return errors.New("database host is required")
	}
	if cfg.Database.Port <= 0 {
		return errors.New("database port must be positive")
	}
	if cfg.Database.Name == "" {
		return errors.New("database name is required")
	}
	if cfg.Database.User == "" {
		return errors.New("database user is required")
	}
	if cfg.Database.Password == "" {
		return errors.New("database password is required")
	}
	if cfg.Database.SSLMode == "" {
		return errors.New("database sslmode is required")
	}
	if cfg.Redis.Host == "" {
		return errors.New("redis host is required")
	}
	if cfg.Redis.Port <= 0 {
		return errors.New("redis port must be positive")
	}
	if cfg.Storage.UploadRoot == "" {
		return errors.New("storage upload root is required")
	}
	if cfg.Storage.MaxUploadBytes <= 0 {
		return errors.New("storage max upload bytes must be positive")
	}
	if cfg.Storage.MaxActiveResumes <= 0 {
		return errors.New("storage max active resumes must be positive")
	}
	if cfg.Worker.Interval <= 0 {
		return errors.New("worker interval must be positive")
	}
	if cfg.Worker.BatchSize <= 0 {
		return errors.New("worker batch size must be positive")
	}
	if cfg.AI.Timeout < 5*time.Second || cfg.AI.Timeout > 60*time.Second {
		return errors.New("ai timeout must be between 5s and 60s")
	}
	if cfg.AI.MinTextLen < 0 {
		return errors.New("ai min text len must not be negative")
	}
	return nil
}
