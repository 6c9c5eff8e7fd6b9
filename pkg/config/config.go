package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	CORS      CORSConfig
	Log       LogConfig
	Civic     CivicConfig
	Cache     CacheConfig
	Dashboard DashboardConfig
	RateLimit RateLimitConfig
	Exports   ExportsConfig
	Sync      SyncConfig
	CLI       CLIConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
	Timeout  time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CivicConfig points at the civic-issues backend the gateway fronts.
type CivicConfig struct {
	BaseURL   string
	Timeout   time.Duration
	JWTSecret string
}

// CacheConfig governs Redis caching of issue views and caller profiles.
type CacheConfig struct {
	Enabled    bool
	IssuesTTL  time.Duration
	ProfileTTL time.Duration
}

// DashboardConfig governs dashboard cache tuning.
type DashboardConfig struct {
	CacheTTL time.Duration
}

// RateLimitConfig caps issue submissions per citizen per day.
type RateLimitConfig struct {
	IssuesPerDay int
	KeyPrefix    string
}

// ExportsConfig controls rendered issue-list exports.
type ExportsConfig struct {
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	CleanupInterval time.Duration
}

// SyncConfig controls background snapshot refreshes.
type SyncConfig struct {
	Enabled      bool
	Workers      int
	Retries      int
	Cron         string
	ServiceToken string
}

// CLIConfig holds settings used only by the terminal client.
type CLIConfig struct {
	StatePath string
	Language  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isNotExist(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
		PoolSize: v.GetInt("REDIS_POOL_SIZE"),
		Timeout:  parseDuration(v.GetString("REDIS_TIMEOUT"), 2*time.Second),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Civic = CivicConfig{
		BaseURL:   strings.TrimRight(v.GetString("CIVIC_API_BASE_URL"), "/"),
		Timeout:   parseDuration(v.GetString("CIVIC_API_TIMEOUT"), 15*time.Second),
		JWTSecret: v.GetString("CIVIC_JWT_SECRET"),
	}

	cfg.Cache = CacheConfig{
		Enabled:    v.GetBool("CACHE_ENABLED"),
		IssuesTTL:  parseDuration(v.GetString("CACHE_ISSUES_TTL"), time.Minute),
		ProfileTTL: parseDuration(v.GetString("CACHE_PROFILE_TTL"), 5*time.Minute),
	}

	cfg.Dashboard = DashboardConfig{
		CacheTTL: parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), 5*time.Minute),
	}

	cfg.RateLimit = RateLimitConfig{
		IssuesPerDay: v.GetInt("ISSUE_DAILY_LIMIT"),
		KeyPrefix:    v.GetString("ISSUE_LIMIT_KEY_PREFIX"),
	}

	cfg.Exports = ExportsConfig{
		StorageDir:      v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), time.Hour),
		CleanupInterval: parseDuration(v.GetString("EXPORTS_CLEANUP_INTERVAL"), 30*time.Minute),
	}

	cfg.Sync = SyncConfig{
		Enabled:      v.GetBool("SYNC_ENABLED"),
		Workers:      v.GetInt("SYNC_WORKERS"),
		Retries:      v.GetInt("SYNC_RETRIES"),
		Cron:         v.GetString("SYNC_CRON"),
		ServiceToken: v.GetString("SYNC_SERVICE_TOKEN"),
	}

	cfg.CLI = CLIConfig{
		StatePath: v.GetString("HARYANA_STATE_PATH"),
		Language:  v.GetString("HARYANA_LANGUAGE"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "smart_haryana_gateway")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_POOL_SIZE", 20)
	v.SetDefault("REDIS_TIMEOUT", "2s")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CIVIC_API_BASE_URL", "http://localhost:8000")
	v.SetDefault("CIVIC_API_TIMEOUT", "15s")
	v.SetDefault("CIVIC_JWT_SECRET", "")

	v.SetDefault("CACHE_ENABLED", true)
	v.SetDefault("CACHE_ISSUES_TTL", "1m")
	v.SetDefault("CACHE_PROFILE_TTL", "5m")
	v.SetDefault("DASHBOARD_CACHE_TTL", "5m")

	v.SetDefault("ISSUE_DAILY_LIMIT", 10)
	v.SetDefault("ISSUE_LIMIT_KEY_PREFIX", "ratelimit:issues")

	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "1h")
	v.SetDefault("EXPORTS_CLEANUP_INTERVAL", "30m")

	v.SetDefault("SYNC_ENABLED", true)
	v.SetDefault("SYNC_WORKERS", 2)
	v.SetDefault("SYNC_RETRIES", 3)
	v.SetDefault("SYNC_CRON", "*/15 * * * *")
	v.SetDefault("SYNC_SERVICE_TOKEN", "")

	v.SetDefault("HARYANA_STATE_PATH", defaultStatePath())
	v.SetDefault("HARYANA_LANGUAGE", "en")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
