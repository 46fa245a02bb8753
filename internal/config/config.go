// Package config loads server configuration from an optional config.yaml,
// PORTFOLIO_* environment variables and built-in defaults, in that order of
// precedence (environment wins).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Placeholder values shipped in example env files. They count as unset.
const (
	placeholderBackendURL = "YOUR_BACKEND_URL"
	placeholderBackendKey = "YOUR_BACKEND_API_KEY"
)

const minSecretLength = 16

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	App     AppConfig     `mapstructure:"app"`
	Storage StorageConfig `mapstructure:"storage"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Backend BackendConfig `mapstructure:"backend"`
	Views   ViewsConfig   `mapstructure:"views"`
	Mock    MockConfig    `mapstructure:"mock"`
	CORS    CORSConfig    `mapstructure:"cors"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type AppConfig struct {
	Env string `mapstructure:"env"` // development, production
}

// StorageConfig locates the durable client storage file.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

type AuthConfig struct {
	JWTSecret         string        `mapstructure:"jwt_secret"`
	SessionTTL        time.Duration `mapstructure:"session_ttl"`
	BcryptCost        int           `mapstructure:"bcrypt_cost"`
	OAuthGitHubID     string        `mapstructure:"oauth_github_id"`
	OAuthGitHubSecret string        `mapstructure:"oauth_github_secret"`
	OAuthGoogleID     string        `mapstructure:"oauth_google_id"`
	OAuthGoogleSecret string        `mapstructure:"oauth_google_secret"`
	OAuthCallbackURL  string        `mapstructure:"oauth_callback_url"`
}

// BackendConfig holds the two optional connection parameters of the remote
// backend. With either one missing the app runs in mock mode.
type BackendConfig struct {
	URL     string        `mapstructure:"url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ViewsConfig struct {
	RedisURL string `mapstructure:"redis_url"`
}

// MockConfig sets the artificial latency of mock-mode operations.
type MockConfig struct {
	Latency       time.Duration `mapstructure:"latency"`
	ShortLatency  time.Duration `mapstructure:"short_latency"`
	CheckLatency  time.Duration `mapstructure:"check_latency"`
	UploadLatency time.Duration `mapstructure:"upload_latency"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads config.yaml from the given directories (default "." and
// "./config"), then applies environment overrides such as
// PORTFOLIO_SERVER_PORT or PORTFOLIO_BACKEND_URL.
func Load(paths ...string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "./config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("PORTFOLIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// AutomaticEnv only sees keys viper already knows about; keys without
	// a default need an explicit binding.
	for _, key := range []string{
		"auth.jwt_secret",
		"auth.oauth_github_id",
		"auth.oauth_github_secret",
		"auth.oauth_google_id",
		"auth.oauth_google_secret",
		"backend.url",
		"backend.api_key",
		"views.redis_url",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("config: binding %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshalling: %w", err)
	}
	cfg.App.Env = strings.ToLower(strings.TrimSpace(cfg.App.Env))

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")

	v.SetDefault("app.env", "development")
	v.SetDefault("storage.path", "data/client.db")

	v.SetDefault("auth.session_ttl", "24h")
	v.SetDefault("auth.bcrypt_cost", 12)
	v.SetDefault("auth.oauth_callback_url", "http://localhost:8080/api/auth/oauth")

	v.SetDefault("backend.timeout", "10s")

	v.SetDefault("mock.latency", "500ms")
	v.SetDefault("mock.short_latency", "200ms")
	v.SetDefault("mock.check_latency", "300ms")
	v.SetDefault("mock.upload_latency", "1s")

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production" || c.App.Env == "prod"
}

// BackendConfigured reports whether both backend parameters are present and
// are not the example placeholders.
func (c *Config) BackendConfigured() bool {
	url := strings.TrimSpace(c.Backend.URL)
	key := strings.TrimSpace(c.Backend.APIKey)
	if url == "" || key == "" {
		return false
	}
	return url != placeholderBackendURL && key != placeholderBackendKey
}

// OAuthConfigured reports whether at least one OAuth provider has both a
// client id and a secret.
func (c *Config) OAuthConfigured() bool {
	a := c.Auth
	return (a.OAuthGitHubID != "" && a.OAuthGitHubSecret != "") ||
		(a.OAuthGoogleID != "" && a.OAuthGoogleSecret != "")
}

// Validate rejects configurations the server cannot run with. Development
// tolerates a missing JWT secret (main generates a throwaway one); production
// does not.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	if c.Auth.SessionTTL <= 0 {
		return errors.New("config: auth.session_ttl must be positive")
	}
	if c.IsProduction() {
		if len(c.Auth.JWTSecret) < minSecretLength {
			return fmt.Errorf("config: auth.jwt_secret must be at least %d characters in production", minSecretLength)
		}
	} else if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < minSecretLength {
		return fmt.Errorf("config: auth.jwt_secret must be at least %d characters", minSecretLength)
	}
	for _, d := range []time.Duration{c.Mock.Latency, c.Mock.ShortLatency, c.Mock.CheckLatency, c.Mock.UploadLatency} {
		if d < 0 {
			return errors.New("config: mock latencies cannot be negative")
		}
	}
	return nil
}
