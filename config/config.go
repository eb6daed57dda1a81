package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Operator  OperatorConfig  `mapstructure:"operator"`
	Matching  MatchingConfig  `mapstructure:"matching"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Cache     CacheConfig     `mapstructure:"cache"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port          string        `mapstructure:"port"`
	Environment   string        `mapstructure:"environment"`
	LogLevel      string        `mapstructure:"log_level"`
	TurnTimeout   time.Duration `mapstructure:"turn_timeout"`
	WebhookSecret string        `mapstructure:"webhook_secret"`
	AdminToken    string        `mapstructure:"admin_token"`
}

// OperatorConfig identifies the single human allowed to answer escalations
type OperatorConfig struct {
	ID string `mapstructure:"id"`
}

// SynonymRule is an extra normalizer rule from the config file
type SynonymRule struct {
	Pattern   string `mapstructure:"pattern"`
	Canonical string `mapstructure:"canonical"`
	Regex     bool   `mapstructure:"regex"`
}

// MatchingConfig holds matching algorithm configuration
type MatchingConfig struct {
	FuzzyThreshold     float64           `mapstructure:"fuzzy_threshold"`
	MinTokenLength     int               `mapstructure:"min_token_length"`
	EnableDebugLogging bool              `mapstructure:"enable_debug_logging"`
	CriticalTerms      map[string]string `mapstructure:"critical_terms"`
	Synonyms           []SynonymRule     `mapstructure:"synonyms"`
}

// CatalogConfig selects and tunes the catalog source
type CatalogConfig struct {
	Source          string        `mapstructure:"source"` // "postgres" or "csv"
	DatabaseURL     string        `mapstructure:"database_url"`
	LabCSV          string        `mapstructure:"lab_csv"`
	CompetitorCSV   string        `mapstructure:"competitor_csv"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	LoadTimeout     time.Duration `mapstructure:"load_timeout"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type          string        `mapstructure:"type"` // "memory" or "redis"
	RedisURL      string        `mapstructure:"redis_url"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
	EscalationTTL time.Duration `mapstructure:"escalation_ttl"`
}

// LLMConfig holds answer-generation provider configuration
type LLMConfig struct {
	Provider          string        `mapstructure:"provider"` // "openai", "gemini" or "none"
	APIKey            string        `mapstructure:"api_key"`
	Model             string        `mapstructure:"model"`
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
}

// TelegramConfig holds Bot API configuration
type TelegramConfig struct {
	Token   string        `mapstructure:"token"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerSender int `mapstructure:"per_sender"` // inbound messages per minute
}

// Load reads the configuration and validates it for the server.
func Load() (*Config, error) {
	config, err := Read()
	if err != nil {
		return nil, err
	}

	if err := validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Read loads configuration from the .env file, environment variables and
// config files without validating it.
func Read() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/labassist/")

	// LABASSIST_CACHE_REDIS_URL -> cache.redis_url
	v.SetEnvPrefix("LABASSIST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values. Every key gets a default
// so AutomaticEnv can resolve it during Unmarshal.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.log_level", "")
	v.SetDefault("server.turn_timeout", "8s")
	v.SetDefault("server.webhook_secret", "")
	v.SetDefault("server.admin_token", "")

	v.SetDefault("operator.id", "")

	// Matching defaults
	v.SetDefault("matching.fuzzy_threshold", 0.8)
	v.SetDefault("matching.min_token_length", 3)
	v.SetDefault("matching.enable_debug_logging", false)

	// Catalog defaults
	v.SetDefault("catalog.source", "postgres")
	v.SetDefault("catalog.database_url", "")
	v.SetDefault("catalog.lab_csv", "")
	v.SetDefault("catalog.competitor_csv", "")
	v.SetDefault("catalog.refresh_interval", "10m")
	v.SetDefault("catalog.load_timeout", "15s")

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.session_ttl", "30m")
	v.SetDefault("cache.escalation_ttl", "24h")

	// LLM defaults
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.timeout", "6s")
	v.SetDefault("llm.requests_per_second", 3)
	v.SetDefault("llm.burst", 5)

	// Telegram defaults
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.base_url", "https://api.telegram.org")
	v.SetDefault("telegram.timeout", "5s")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_sender", 20)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Operator.ID == "" {
		return fmt.Errorf("operator id is required (set LABASSIST_OPERATOR_ID)")
	}

	if config.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required (set LABASSIST_TELEGRAM_TOKEN)")
	}

	if t := config.Matching.FuzzyThreshold; t <= 0 || t > 1 {
		return fmt.Errorf("matching fuzzy threshold must be in (0, 1], got: %v", t)
	}

	if err := config.ValidateCatalog(); err != nil {
		return err
	}

	if config.Cache.Type != "memory" && config.Cache.Type != "redis" {
		return fmt.Errorf("cache type must be 'memory' or 'redis', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required when cache type is 'redis'")
	}

	switch config.LLM.Provider {
	case "none":
	case "openai", "gemini":
		if config.LLM.APIKey == "" {
			return fmt.Errorf("LLM API key is required for provider %q (set LABASSIST_LLM_API_KEY)", config.LLM.Provider)
		}
	default:
		return fmt.Errorf("llm provider must be 'openai', 'gemini' or 'none', got: %s", config.LLM.Provider)
	}

	return nil
}

// ValidateCatalog checks only the catalog source settings. Tools that read
// the catalog without serving traffic need nothing else.
func (c *Config) ValidateCatalog() error {
	switch c.Catalog.Source {
	case "postgres":
		if c.Catalog.DatabaseURL == "" {
			return fmt.Errorf("database URL is required when catalog source is 'postgres'")
		}
	case "csv":
		if c.Catalog.LabCSV == "" {
			return fmt.Errorf("lab CSV path is required when catalog source is 'csv'")
		}
	default:
		return fmt.Errorf("catalog source must be 'postgres' or 'csv', got: %s", c.Catalog.Source)
	}
	return nil
}

// loadEnvFile copies the variables from ./.env into the environment.
// Variables that are already set win. A missing file is not an error.
func loadEnvFile() error {
	if _, err := os.Stat(".env"); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	env := viper.New()
	env.SetConfigFile(".env")
	env.SetConfigType("env")
	if err := env.ReadInConfig(); err != nil {
		return err
	}

	// viper lowercases keys; environment variable names are upper case here
	for _, key := range env.AllKeys() {
		name := strings.ToUpper(key)
		if _, exists := os.LookupEnv(name); exists {
			continue
		}
		if err := os.Setenv(name, env.GetString(key)); err != nil {
			return err
		}
	}
	return nil
}
