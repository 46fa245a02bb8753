package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "data/client.db", cfg.Storage.Path)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, 10*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Mock.Latency)
	assert.Equal(t, 200*time.Millisecond, cfg.Mock.ShortLatency)
	assert.Equal(t, 300*time.Millisecond, cfg.Mock.CheckLatency)
	assert.Equal(t, time.Second, cfg.Mock.UploadLatency)
	assert.False(t, cfg.BackendConfigured())
	assert.False(t, cfg.OAuthConfigured())
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  port: 9000
backend:
  url: https://file.example.com
  api_key: file-key
mock:
  latency: 0s
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	t.Setenv("PORTFOLIO_BACKEND_URL", "https://env.example.com")
	t.Setenv("PORTFOLIO_AUTH_JWT_SECRET", "an-env-secret-long-enough")
	t.Setenv("PORTFOLIO_APP_ENV", "  Production ")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "https://env.example.com", cfg.Backend.URL, "environment beats the file")
	assert.Equal(t, "file-key", cfg.Backend.APIKey)
	assert.Equal(t, "an-env-secret-long-enough", cfg.Auth.JWTSecret)
	assert.Equal(t, time.Duration(0), cfg.Mock.Latency)
	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.BackendConfigured())
}

func TestLoad_BadFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [oops"), 0o600))

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestBackendConfigured(t *testing.T) {
	tests := []struct {
		name string
		url  string
		key  string
		want bool
	}{
		{"both set", "https://x.example.com", "key", true},
		{"missing url", "", "key", false},
		{"missing key", "https://x.example.com", "", false},
		{"whitespace only", "  ", "key", false},
		{"placeholder url", "YOUR_BACKEND_URL", "key", false},
		{"placeholder key", "https://x.example.com", "YOUR_BACKEND_API_KEY", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Backend: BackendConfig{URL: tt.url, APIKey: tt.key}}
			assert.Equal(t, tt.want, cfg.BackendConfigured())
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{Port: 8080},
			App:    AppConfig{Env: "development"},
			Auth:   AuthConfig{SessionTTL: time.Hour},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"development without secret", func(c *Config) {}, false},
		{"development short secret", func(c *Config) { c.Auth.JWTSecret = "short" }, true},
		{"production without secret", func(c *Config) { c.App.Env = "production" }, true},
		{"production with secret", func(c *Config) {
			c.App.Env = "production"
			c.Auth.JWTSecret = "0123456789abcdef0123"
		}, false},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, true},
		{"zero ttl", func(c *Config) { c.Auth.SessionTTL = 0 }, true},
		{"negative latency", func(c *Config) { c.Mock.Latency = -time.Second }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
