package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/preprints/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PREPRINTS_STATE_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, catalog.DefaultBaseURL, cfg.APIURL)
	assert.Equal(t, 4, cfg.RetryAttempts)
	assert.Equal(t, 1500*time.Millisecond, cfg.RetryDelay)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "@rvu.edu.in", cfg.AllowedDomain)
	assert.Equal(t, "google", cfg.AuthProvider)
	assert.False(t, cfg.AuthEnabled())
	assert.Equal(t, "http://127.0.0.1:54321/auth/callback", cfg.RedirectURL())
}

func TestLoad_Overrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PREPRINTS_STATE_DIR", dir)
	t.Setenv("PREPRINTS_API_URL", "http://localhost:8000/api")
	t.Setenv("PREPRINTS_AUTH_URL", "https://auth.example.com/")
	t.Setenv("PREPRINTS_RETRY_ATTEMPTS", "2")
	t.Setenv("PREPRINTS_RETRY_DELAY", "10ms")
	t.Setenv("PREPRINTS_ALLOWED_DOMAIN", "@Example.EDU")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "https://auth.example.com", cfg.AuthURL)
	assert.Equal(t, "https://auth.example.com/auth/v1/.well-known/jwks.json", cfg.JWKSURL())
	assert.Equal(t, "@example.edu", cfg.AllowedDomain)
	assert.Equal(t, 2, cfg.RetryPolicy().Attempts)
	assert.Equal(t, 10*time.Millisecond, cfg.RetryPolicy().Delay)
	assert.Equal(t, filepath.Join(dir, "preprints.db"), cfg.DatabasePath())
}

func TestLoad_BadNumbers(t *testing.T) {
	t.Setenv("PREPRINTS_RETRY_ATTEMPTS", "four")
	_, err := Load()
	assert.ErrorContains(t, err, "PREPRINTS_RETRY_ATTEMPTS")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			APIURL:          "https://api.example.com",
			HTTPTimeout:     time.Second,
			RetryAttempts:   4,
			RetryDelay:      time.Second,
			AllowedDomain:   "@rvu.edu.in",
			CallbackAddr:    "127.0.0.1:1",
			StateDir:        "/tmp/x",
			LogLevel:        "info",
			SuggestProvider: "gemini",
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"api url scheme", func(c *Config) { c.APIURL = "ftp://x" }, "APIURL"},
		{"auth url", func(c *Config) { c.AuthURL = "not a url" }, "AuthURL"},
		{"retry attempts", func(c *Config) { c.RetryAttempts = -1 }, "RetryAttempts"},
		{"domain without @", func(c *Config) { c.AllowedDomain = "rvu.edu.in" }, "AllowedDomain"},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "LogLevel"},
		{"suggest provider", func(c *Config) { c.SuggestProvider = "ollama" }, "SuggestProvider"},
		{"timeout", func(c *Config) { c.HTTPTimeout = time.Millisecond }, "HTTPTimeout"},
	}

	require.NoError(t, valid().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}
