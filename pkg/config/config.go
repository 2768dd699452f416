package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	ListenAddr string `mapstructure:"listen_addr"`
	Transport  string `mapstructure:"transport"` // "stdio", "sse", "http"

	// Plex connection. A direct URL and token is preferred; a plex.tv
	// username/password plus server name works as a fallback.
	PlexURL        string `mapstructure:"plex_url"`
	PlexToken      string `mapstructure:"plex_token"`
	PlexUsername   string `mapstructure:"plex_username"`
	PlexPassword   string `mapstructure:"plex_password"`
	PlexServerName string `mapstructure:"plex_server_name"`

	// Authentication
	AuthMode string       `mapstructure:"auth_mode"` // "none", "api_key", "oauth", "both"
	APIKeys  []string     `mapstructure:"api_keys"`
	OAuth    *OAuthConfig `mapstructure:"oauth"`

	// Cache settings
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	CacheMaxSize int           `mapstructure:"cache_max_size"`

	// Rate limiting
	RateLimitPerSecond int `mapstructure:"rate_limit_per_second"`
	RateLimitBurst     int `mapstructure:"rate_limit_burst"`

	// Timeouts
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	PlexTimeout    time.Duration `mapstructure:"plex_timeout"`

	// Logging
	LogLevel string `mapstructure:"log_level"`
	LogJSON  bool   `mapstructure:"log_json"`

	// Live Collections
	EnableLiveCollections      bool   `mapstructure:"enable_live_collections"`
	LiveCollectionUpdateCron   string `mapstructure:"live_collection_update_cron"`   // Cron expression, default "0 * * * *" (hourly)
	LiveCollectionSyncStrategy string `mapstructure:"live_collection_sync_strategy"` // "add-only" or "full-sync"
	LiveCollectionMaxResults   int    `mapstructure:"live_collection_max_results"`   // Max search results per update
	LiveCollectionStorePath    string `mapstructure:"live_collection_store_path"`
}

// OAuthConfig holds the settings for validating bearer tokens issued
// by an external authorization server.
type OAuthConfig struct {
	Issuer      string        `mapstructure:"issuer"`
	Audience    string        `mapstructure:"audience"`
	JWKSURL     string        `mapstructure:"jwks_url"` // derived from issuer when empty
	JWKSTTL     time.Duration `mapstructure:"jwks_ttl"`
	ResourceURL string        `mapstructure:"resource_url"` // public URL advertised in discovery metadata
}

// Load loads configuration from file and environment
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read config file
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			// Config file is optional
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	// Read environment variables
	v.SetEnvPrefix("MCP")
	v.AutomaticEnv()

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDerivedDefaults(&cfg, v)

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("transport", "stdio")

	// Auth defaults
	v.SetDefault("auth_mode", "none")
	v.SetDefault("api_keys", []string{})

	// Cache defaults
	v.SetDefault("cache_ttl", 5*time.Minute)
	v.SetDefault("cache_max_size", 1000)

	// Rate limiting defaults
	v.SetDefault("rate_limit_per_second", 100)
	v.SetDefault("rate_limit_burst", 200)

	// Timeout defaults
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("plex_timeout", 30*time.Second)

	// Logging defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)

	// Live Collections defaults
	v.SetDefault("enable_live_collections", false)
	v.SetDefault("live_collection_update_cron", "0 * * * *") // Every hour
	v.SetDefault("live_collection_sync_strategy", "add-only")
	v.SetDefault("live_collection_max_results", 500)
	v.SetDefault("live_collection_store_path", "live_collections.json")
}

func applyDerivedDefaults(cfg *Config, v *viper.Viper) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = v.GetString("listen_addr")
		if cfg.ListenAddr == "" {
			cfg.ListenAddr = ":8080"
		}
	}

	if cfg.Transport == "" {
		cfg.Transport = v.GetString("transport")
		if cfg.Transport == "" {
			cfg.Transport = "stdio"
		}
	}

	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = v.GetDuration("cache_ttl")
		if cfg.CacheTTL <= 0 {
			cfg.CacheTTL = 5 * time.Minute
		}
	}

	if cfg.CacheMaxSize <= 0 {
		cfg.CacheMaxSize = v.GetInt("cache_max_size")
		if cfg.CacheMaxSize <= 0 {
			cfg.CacheMaxSize = 1000
		}
	}

	if cfg.RateLimitPerSecond <= 0 {
		cfg.RateLimitPerSecond = v.GetInt("rate_limit_per_second")
		if cfg.RateLimitPerSecond <= 0 {
			cfg.RateLimitPerSecond = 100
		}
	}

	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = v.GetInt("rate_limit_burst")
		if cfg.RateLimitBurst <= 0 {
			cfg.RateLimitBurst = 200
		}
	}

	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = v.GetDuration("request_timeout")
		if cfg.RequestTimeout <= 0 {
			cfg.RequestTimeout = 30 * time.Second
		}
	}

	if cfg.PlexTimeout <= 0 {
		cfg.PlexTimeout = v.GetDuration("plex_timeout")
		if cfg.PlexTimeout <= 0 {
			cfg.PlexTimeout = 30 * time.Second
		}
	}

	// Ensure auth mode is set even if empty string was provided
	if cfg.AuthMode == "" {
		cfg.AuthMode = v.GetString("auth_mode")
		if cfg.AuthMode == "" {
			cfg.AuthMode = "none"
		}
	}

	if cfg.OAuth != nil && cfg.OAuth.JWKSTTL <= 0 {
		cfg.OAuth.JWKSTTL = time.Hour
	}

	// Live Collections defaults
	if cfg.LiveCollectionUpdateCron == "" {
		cfg.LiveCollectionUpdateCron = v.GetString("live_collection_update_cron")
		if cfg.LiveCollectionUpdateCron == "" {
			cfg.LiveCollectionUpdateCron = "0 * * * *"
		}
	}

	if cfg.LiveCollectionSyncStrategy == "" {
		cfg.LiveCollectionSyncStrategy = v.GetString("live_collection_sync_strategy")
		if cfg.LiveCollectionSyncStrategy == "" {
			cfg.LiveCollectionSyncStrategy = "add-only"
		}
	}

	if cfg.LiveCollectionMaxResults <= 0 {
		cfg.LiveCollectionMaxResults = v.GetInt("live_collection_max_results")
		if cfg.LiveCollectionMaxResults <= 0 {
			cfg.LiveCollectionMaxResults = 500
		}
	}

	if cfg.LiveCollectionStorePath == "" {
		cfg.LiveCollectionStorePath = v.GetString("live_collection_store_path")
		if cfg.LiveCollectionStorePath == "" {
			cfg.LiveCollectionStorePath = "live_collections.json"
		}
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	directAccess := c.PlexURL != "" && c.PlexToken != ""
	accountAccess := c.PlexUsername != "" && c.PlexPassword != "" && c.PlexServerName != ""
	if !directAccess && !accountAccess {
		return fmt.Errorf("either plex_url and plex_token, or plex_username, plex_password and plex_server_name are required")
	}

	validTransports := map[string]bool{
		"stdio": true,
		"sse":   true,
		"http":  true,
	}
	if !validTransports[c.Transport] {
		return fmt.Errorf("invalid transport: %s", c.Transport)
	}

	// Validate auth mode
	validAuthModes := map[string]bool{
		"none":    true,
		"api_key": true,
		"oauth":   true,
		"both":    true,
	}
	if !validAuthModes[c.AuthMode] {
		return fmt.Errorf("invalid auth_mode: %s", c.AuthMode)
	}

	// If auth mode requires API keys, ensure they exist
	if (c.AuthMode == "api_key" || c.AuthMode == "both") && len(c.APIKeys) == 0 {
		return fmt.Errorf("api_keys required when auth_mode is %s", c.AuthMode)
	}

	// If auth mode requires OAuth, ensure config exists
	if c.AuthMode == "oauth" || c.AuthMode == "both" {
		if c.OAuth == nil {
			return fmt.Errorf("oauth configuration required when auth_mode is %s", c.AuthMode)
		}
		if c.OAuth.Issuer == "" {
			return fmt.Errorf("oauth.issuer is required when auth_mode is %s", c.AuthMode)
		}
	}

	// Validate live collection sync strategy
	validSyncStrategies := map[string]bool{
		"add-only":  true,
		"full-sync": true,
	}
	if c.EnableLiveCollections && !validSyncStrategies[c.LiveCollectionSyncStrategy] {
		return fmt.Errorf("invalid live_collection_sync_strategy: %s (must be 'add-only' or 'full-sync')", c.LiveCollectionSyncStrategy)
	}

	return nil
}
