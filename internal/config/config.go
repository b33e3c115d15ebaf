// Package config reads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/lehigh-university-libraries/preprints/internal/catalog"
	"github.com/lehigh-university-libraries/preprints/internal/retry"
)

type Config struct {
	APIURL      string
	HTTPTimeout time.Duration
	// Read retries for cold backends
	RetryAttempts int
	RetryDelay    time.Duration

	// Identity provider
	AuthURL       string
	AuthAnonKey   string
	AuthProvider  string
	AllowedDomain string
	CallbackAddr  string

	StateDir string
	LogLevel string

	// Metadata suggestion
	SuggestProvider string
	GeminiAPIKey    string
	GeminiModel     string
	OpenAIAPIKey    string
	OpenAIModel     string
}

func Load() (*Config, error) {
	attempts, err := strconv.Atoi(getEnv("PREPRINTS_RETRY_ATTEMPTS", strconv.Itoa(retry.DefaultPolicy.Attempts)))
	if err != nil {
		return nil, fmt.Errorf("PREPRINTS_RETRY_ATTEMPTS: %w", err)
	}
	delay, err := time.ParseDuration(getEnv("PREPRINTS_RETRY_DELAY", retry.DefaultPolicy.Delay.String()))
	if err != nil {
		return nil, fmt.Errorf("PREPRINTS_RETRY_DELAY: %w", err)
	}
	timeout, err := time.ParseDuration(getEnv("PREPRINTS_HTTP_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("PREPRINTS_HTTP_TIMEOUT: %w", err)
	}

	stateDir := os.Getenv("PREPRINTS_STATE_DIR")
	if stateDir == "" {
		stateDir = defaultStateDir()
	}

	return &Config{
		APIURL:          getEnv("PREPRINTS_API_URL", catalog.DefaultBaseURL),
		HTTPTimeout:     timeout,
		RetryAttempts:   attempts,
		RetryDelay:      delay,
		AuthURL:         strings.TrimSuffix(getEnv("PREPRINTS_AUTH_URL", ""), "/"),
		AuthAnonKey:     getEnv("PREPRINTS_AUTH_ANON_KEY", ""),
		AuthProvider:    getEnv("PREPRINTS_AUTH_PROVIDER", "google"),
		AllowedDomain:   strings.ToLower(getEnv("PREPRINTS_ALLOWED_DOMAIN", "@rvu.edu.in")),
		CallbackAddr:    getEnv("PREPRINTS_CALLBACK_ADDR", "127.0.0.1:54321"),
		StateDir:        stateDir,
		LogLevel:        strings.ToLower(getEnv("PREPRINTS_LOG_LEVEL", "info")),
		SuggestProvider: strings.ToLower(getEnv("SUGGEST_PROVIDER", "gemini")),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4o-mini"),
	}, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.APIURL, validation.Required, validation.By(httpURL)),
		validation.Field(&c.AuthURL, validation.By(httpURL)),
		validation.Field(&c.RetryAttempts, validation.Min(1)),
		validation.Field(&c.RetryDelay, validation.Min(time.Duration(0))),
		validation.Field(&c.HTTPTimeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.AllowedDomain, validation.Required, validation.Match(domainSuffix)),
		validation.Field(&c.CallbackAddr, validation.Required),
		validation.Field(&c.StateDir, validation.Required),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.SuggestProvider, validation.In("gemini", "openai")),
	)
}

// AuthEnabled reports whether an identity provider is configured.
func (c *Config) AuthEnabled() bool {
	return c.AuthURL != ""
}

// JWKSURL is where the identity provider publishes its signing keys.
func (c *Config) JWKSURL() string {
	return c.AuthURL + "/auth/v1/.well-known/jwks.json"
}

// RedirectURL is the loopback address the browser returns to after sign-in.
func (c *Config) RedirectURL() string {
	return "http://" + c.CallbackAddr + "/auth/callback"
}

func (c *Config) RetryPolicy() retry.Policy {
	return retry.Policy{Attempts: c.RetryAttempts, Delay: c.RetryDelay}
}

// DatabasePath is the sqlite file holding the persisted slots.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.StateDir, "preprints.db")
}

// LogPath is where the interactive browser writes its log.
func (c *Config) LogPath() string {
	return filepath.Join(c.StateDir, "preprints.log")
}

func defaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "preprints")
	}
	return ".preprints"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

var domainSuffix = regexp.MustCompile(`^@[a-z0-9.-]+\.[a-z]{2,}$`)

func httpURL(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("must be an http or https URL")
	}
	return nil
}
