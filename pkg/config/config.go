package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Store drivers understood by the record store.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Store       StoreConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	CORS        CORSConfig
	Log         LogConfig
	Auth        AuthConfig
	Classifier  ClassifierConfig
	Thumbnails  ThumbnailConfig
	Leaderboard LeaderboardConfig
	Export      ExportConfig
}

// StoreConfig selects the blob store backing the record collections.
type StoreConfig struct {
	Driver       string
	RedisPrefix  string
	RedisRetries int
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
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// AuthConfig controls session behaviour and the override allowlist.
type AuthConfig struct {
	SingleSession bool
	BcryptCost    int
	// OverrideIdentities holds "name:bcrypt-hash" pairs for system super-admins.
	OverrideIdentities []OverrideIdentity
}

// OverrideIdentity is a configured super-admin login.
type OverrideIdentity struct {
	Name         string
	PasswordHash string
}

// ClassifierConfig configures the generative-AI client.
type ClassifierConfig struct {
	Enabled           bool
	APIKey            string
	TextModel         string
	VisionModel       string
	ImageModel        string
	Endpoint          string
	Timeout           time.Duration
	MaxImageDimension int
}

// ThumbnailConfig controls where generated thumbnails live and how long links stay valid.
type ThumbnailConfig struct {
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
}

// LeaderboardConfig governs leaderboard caching.
type LeaderboardConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// ExportConfig configures activity exports.
type ExportConfig struct {
	FontPath string
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
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Store = StoreConfig{
		Driver:       strings.ToLower(v.GetString("STORE_DRIVER")),
		RedisPrefix:  v.GetString("STORE_REDIS_PREFIX"),
		RedisRetries: v.GetInt("STORE_REDIS_RETRIES"),
	}

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
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Auth = AuthConfig{
		SingleSession:      v.GetBool("AUTH_SINGLE_SESSION"),
		BcryptCost:         v.GetInt("AUTH_BCRYPT_COST"),
		OverrideIdentities: parseOverrideIdentities(v.GetString("AUTH_OVERRIDE_IDENTITIES")),
	}

	cfg.Classifier = ClassifierConfig{
		Enabled:           v.GetBool("ENABLE_CLASSIFIER"),
		APIKey:            v.GetString("CLASSIFIER_API_KEY"),
		TextModel:         v.GetString("CLASSIFIER_TEXT_MODEL"),
		VisionModel:       v.GetString("CLASSIFIER_VISION_MODEL"),
		ImageModel:        v.GetString("CLASSIFIER_IMAGE_MODEL"),
		Endpoint:          v.GetString("CLASSIFIER_ENDPOINT"),
		Timeout:           parseDuration(v.GetString("CLASSIFIER_TIMEOUT"), 20*time.Second),
		MaxImageDimension: v.GetInt("CLASSIFIER_MAX_IMAGE_DIMENSION"),
	}

	cfg.Thumbnails = ThumbnailConfig{
		StorageDir:      v.GetString("THUMBNAILS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("THUMBNAILS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("THUMBNAILS_SIGNED_URL_TTL"), 7*24*time.Hour),
	}

	cfg.Leaderboard = LeaderboardConfig{
		CacheEnabled: v.GetBool("ENABLE_LEADERBOARD_CACHE"),
		CacheTTL:     parseDuration(v.GetString("LEADERBOARD_CACHE_TTL"), time.Minute),
	}

	cfg.Export = ExportConfig{
		FontPath: v.GetString("EXPORT_FONT_PATH"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("STORE_DRIVER", StoreMemory)
	v.SetDefault("STORE_REDIS_PREFIX", "classroom")
	v.SetDefault("STORE_REDIS_RETRIES", 5)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "classroom_quest")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "classroom-quest-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("AUTH_SINGLE_SESSION", true)
	v.SetDefault("AUTH_BCRYPT_COST", 10)
	v.SetDefault("AUTH_OVERRIDE_IDENTITIES", "")

	v.SetDefault("ENABLE_CLASSIFIER", false)
	v.SetDefault("CLASSIFIER_API_KEY", "")
	v.SetDefault("CLASSIFIER_TEXT_MODEL", "gemini-2.5-flash")
	v.SetDefault("CLASSIFIER_VISION_MODEL", "gemini-2.5-flash")
	v.SetDefault("CLASSIFIER_IMAGE_MODEL", "gemini-2.5-flash-image")
	v.SetDefault("CLASSIFIER_ENDPOINT", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("CLASSIFIER_TIMEOUT", "20s")
	v.SetDefault("CLASSIFIER_MAX_IMAGE_DIMENSION", 1024)

	v.SetDefault("THUMBNAILS_STORAGE_DIR", "./thumbnails")
	v.SetDefault("THUMBNAILS_SIGNED_URL_SECRET", "dev_thumbnails_secret")
	v.SetDefault("THUMBNAILS_SIGNED_URL_TTL", "168h")

	v.SetDefault("ENABLE_LEADERBOARD_CACHE", false)
	v.SetDefault("LEADERBOARD_CACHE_TTL", "1m")

	v.SetDefault("EXPORT_FONT_PATH", "")
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

// parseOverrideIdentities reads "name:hash,name:hash". Bcrypt hashes never contain ':' or ','.
func parseOverrideIdentities(raw string) []OverrideIdentity {
	entries := splitAndTrim(raw)
	if len(entries) == 0 {
		return nil
	}

	result := make([]OverrideIdentity, 0, len(entries))
	for _, entry := range entries {
		name, hash, ok := strings.Cut(entry, ":")
		name = strings.TrimSpace(name)
		hash = strings.TrimSpace(hash)
		if !ok || name == "" || hash == "" {
			continue
		}
		result = append(result, OverrideIdentity{Name: name, PasswordHash: hash})
	}

	return result
}
