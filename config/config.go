package config

import (
	"log"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via config.json or the environment.
type AppConfig struct {
	AppPort       string `mapstructure:"app_port"`
	JWTSecret     string `mapstructure:"jwt_secret"`
	TokenTTLHours int    `mapstructure:"token_ttl_hours"`
	// Database
	DBDriver    string `mapstructure:"db_driver"`
	DatabaseURI string `mapstructure:"database_uri"`
	DBHost      string `mapstructure:"db_host"`
	DBPort      string `mapstructure:"db_port"`
	DBUser      string `mapstructure:"db_user"`
	DBPassword  string `mapstructure:"db_password"`
	DBName      string `mapstructure:"db_name"`
	// OAuth providers
	GitHubClientID     string `mapstructure:"github_client_id"`
	GitHubClientSecret string `mapstructure:"github_client_secret"`
	GoogleClientID     string `mapstructure:"google_client_id"`
	GoogleClientSecret string `mapstructure:"google_client_secret"`
	OAuthRedirectBase  string `mapstructure:"oauth_redirect_base_url"`
	// HTTP
	RateLimitPerMinute int      `mapstructure:"rate_limit_per_minute"`
	AllowedOrigins     []string `mapstructure:"cors_allowed_origins"`
	GinMode            string   `mapstructure:"gin_mode"`
	GinPath            string   `mapstructure:"gin_path"`
	// Redis for caching and oauth state
	RedisEnabled    bool   `mapstructure:"redis_enabled"`
	RedisHost       string `mapstructure:"redis_host"`
	RedisPort       int    `mapstructure:"redis_port"`
	RedisDB         int    `mapstructure:"redis_db"`
	RedisPassword   string `mapstructure:"redis_password"`
	CacheTTLSeconds int    `mapstructure:"cache_ttl_seconds"`
	// Logging configuration
	LogLevel      string `mapstructure:"log_level"`
	LogPath       string `mapstructure:"log_path"`
	LogMaxSizeMB  int    `mapstructure:"log_max_size_mb"`
	LogMaxBackups int    `mapstructure:"log_max_backups"`
	LogMaxAgeDays int    `mapstructure:"log_max_age_days"`
	LogCompress   bool   `mapstructure:"log_compress"`
	// Moderation
	CommentsAutoApprove bool     `mapstructure:"comments_auto_approve"`
	AdminUsernames      []string `mapstructure:"admin_usernames"`
}

var (
	cfg    AppConfig
	loaded bool
	mu     sync.RWMutex
)

// Load loads the application configuration. It should be called once during boot.
//
// Precedence: defaults -> config/config.json -> environment variables.
func Load() AppConfig {
	mu.Lock()
	defer mu.Unlock()
	if loaded {
		return cfg
	}

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Fatalf("failed to read config file: %v", err)
		}
	}

	c, err := decode(v)
	if err != nil {
		log.Fatalf("failed to decode config: %v", err)
	}
	if c.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	cfg = c
	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	mu.RLock()
	if loaded {
		defer mu.RUnlock()
		return cfg
	}
	mu.RUnlock()
	return Load()
}

// Set replaces the active configuration. Used by tests and CLI commands that build config by hand.
func Set(c AppConfig) {
	mu.Lock()
	defer mu.Unlock()
	cfg = c
	loaded = true
}

// Defaults returns a configuration populated only with default values and environment overrides.
func Defaults() AppConfig {
	c, err := decode(newViper())
	if err != nil {
		log.Fatalf("failed to decode config: %v", err)
	}
	return c
}

func newViper() *viper.Viper {
	v := viper.New()
	applyDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (AppConfig, error) {
	var c AppConfig
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	c.AllowedOrigins = splitAndTrim(c.AllowedOrigins)
	c.AdminUsernames = splitAndTrim(c.AdminUsernames)
	return c, nil
}

// applyDefaults registers every key so AutomaticEnv can override it during Unmarshal.
func applyDefaults(v *viper.Viper) {
	v.SetDefault("app_port", "8080")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("token_ttl_hours", 72)
	v.SetDefault("db_driver", "mysql")
	v.SetDefault("database_uri", "")
	v.SetDefault("db_host", "127.0.0.1")
	v.SetDefault("db_port", "3306")
	v.SetDefault("db_user", "root")
	v.SetDefault("db_password", "")
	v.SetDefault("db_name", "blog")
	v.SetDefault("github_client_id", "")
	v.SetDefault("github_client_secret", "")
	v.SetDefault("google_client_id", "")
	v.SetDefault("google_client_secret", "")
	v.SetDefault("oauth_redirect_base_url", "http://localhost:8080")
	v.SetDefault("rate_limit_per_minute", 60)
	v.SetDefault("cors_allowed_origins", []string{"*"})
	v.SetDefault("gin_mode", "release")
	v.SetDefault("gin_path", "logs/go_gin.log")
	v.SetDefault("redis_enabled", false)
	v.SetDefault("redis_host", "127.0.0.1")
	v.SetDefault("redis_port", 6379)
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_password", "")
	v.SetDefault("cache_ttl_seconds", 3600)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_path", "")
	v.SetDefault("log_max_size_mb", 100)
	v.SetDefault("log_max_backups", 3)
	v.SetDefault("log_max_age_days", 7)
	v.SetDefault("log_compress", false)
	v.SetDefault("comments_auto_approve", true)
	v.SetDefault("admin_usernames", []string{})
}

// splitAndTrim flattens comma separated entries (env values arrive as a single string).
func splitAndTrim(raw []string) []string {
	items := []string{}
	for _, entry := range raw {
		for _, item := range strings.Split(entry, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				items = append(items, trimmed)
			}
		}
	}
	return items
}
