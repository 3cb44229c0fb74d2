// Package config provides configuration loading for the companion server.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Session   SessionConfig   `mapstructure:"session"`
	Auth      AuthConfig      `mapstructure:"auth"`
	AI        AIConfig        `mapstructure:"ai"`
	Speech    SpeechConfig    `mapstructure:"speech"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"` // dev, staging, prod
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres, memory
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// URL returns the PostgreSQL URL form used by the migrator.
func (c DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SessionConfig holds cookie session configuration.
type SessionConfig struct {
	Secret string        `mapstructure:"secret"`
	Name   string        `mapstructure:"name"`
	MaxAge time.Duration `mapstructure:"max_age"`
}

// AuthConfig holds identity provider configuration.
type AuthConfig struct {
	// ProjectID is the identity project; ID tokens must carry it as audience.
	ProjectID string `mapstructure:"project_id"`
	// CertsURL serves the PEM certificates that sign ID tokens.
	CertsURL string `mapstructure:"certs_url"`
	// IssuerPrefix is joined with ProjectID to form the expected issuer.
	IssuerPrefix string `mapstructure:"issuer_prefix"`
	// AuthorizedEmails restricts login when non-empty (comma separated).
	AuthorizedEmails string `mapstructure:"authorized_emails"`
}

// AllowedEmails parses AuthorizedEmails into a lower-cased list.
func (c AuthConfig) AllowedEmails() []string {
	if strings.TrimSpace(c.AuthorizedEmails) == "" {
		return nil
	}
	var out []string
	for _, e := range strings.Split(c.AuthorizedEmails, ",") {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			out = append(out, e)
		}
	}
	return out
}

// AIConfig holds generative text provider configuration.
type AIConfig struct {
	Provider string `mapstructure:"provider"` // gemini, openai
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
	BaseURL  string `mapstructure:"base_url"` // empty uses the provider default
}

// SpeechConfig holds text-to-speech configuration.
type SpeechConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	Endpoint     string  `mapstructure:"endpoint"`
	LanguageCode string  `mapstructure:"language_code"`
	SpeakingRate float64 `mapstructure:"speaking_rate"`
}

// WorkerConfig sizes the background write pool.
type WorkerConfig struct {
	PoolSize  int `mapstructure:"pool_size"`
	QueueSize int `mapstructure:"queue_size"`
}

// RateLimitConfig holds API rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	BurstSize         int `mapstructure:"burst_size"`
}

// Load reads configuration from files and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/cbt-companion")

	v.SetEnvPrefix("COMPANION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Secrets without defaults are invisible to AutomaticEnv during Unmarshal.
	v.BindEnv("session.secret", "COMPANION_SESSION_SECRET")
	v.BindEnv("auth.project_id", "COMPANION_AUTH_PROJECT_ID")
	v.BindEnv("auth.authorized_emails", "COMPANION_AUTH_AUTHORIZED_EMAILS", "AUTHORIZED_EMAILS")
	v.BindEnv("ai.api_key", "COMPANION_AI_API_KEY", "GEMINI_API_KEY")
	v.BindEnv("ai.base_url", "COMPANION_AI_BASE_URL")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// devSessionSecret is only used outside prod when no secret is configured.
const devSessionSecret = "a-very-long-and-random-secret-key-for-dev"

// Validate checks settings that have no safe default.
func (c *Config) Validate() error {
	if c.Session.Secret == "" {
		if c.Server.Environment == "prod" {
			return fmt.Errorf("session.secret is required in prod")
		}
		c.Session.Secret = devSessionSecret
	}
	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}
	switch c.AI.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("unknown ai.provider %q", c.AI.Provider)
	}
	if c.Worker.PoolSize < 1 {
		return fmt.Errorf("worker.pool_size must be at least 1")
	}
	return nil
}

// setDefaults configures default values for all settings.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 10000)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.environment", "dev")

	// Database defaults
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "companion")
	v.SetDefault("database.password", "companion")
	v.SetDefault("database.database", "companion")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "5m")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Session defaults
	v.SetDefault("session.name", "companion_session")
	v.SetDefault("session.max_age", "168h")

	// Identity defaults
	v.SetDefault("auth.certs_url", "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com")
	v.SetDefault("auth.issuer_prefix", "https://securetoken.google.com/")

	// AI defaults
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.model", "gemini-1.5-flash-latest")

	// Speech defaults
	v.SetDefault("speech.enabled", false)
	v.SetDefault("speech.endpoint", "https://texttospeech.googleapis.com")
	v.SetDefault("speech.language_code", "en-GB")
	v.SetDefault("speech.speaking_rate", 0.9)

	// Worker defaults
	v.SetDefault("worker.pool_size", 4)
	v.SetDefault("worker.queue_size", 256)

	// Rate limit defaults
	v.SetDefault("ratelimit.requests_per_minute", 30)
	v.SetDefault("ratelimit.burst_size", 10)
}
