/*
Package configs is responsible for loading and parsing the application's configuration settings.

Every process reads its settings from operating system environment variables. Development
gets working defaults for secrets; any other environment must set them explicitly.
*/
package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	// EnvDevelopment is the default value of ENVIRONMENT.
	EnvDevelopment = "development"

	// DevInternalAPIKey is the placeholder internal key accepted only in development.
	DevInternalAPIKey = "chatify-internal-key"

	devAuthSecret = "chatify_dev_insecure_secret_change_me"
)

// AppConfig contains all configuration parameters required for the relay to run.
// All configuration values are loaded from environment variables.
type AppConfig struct {
	// General Server Settings
	Environment string
	Port        int

	// Security Settings
	AllowedOrigins []string
	AuthSecret     string
	InternalAPIKey string

	// Rate Limits
	GeneralRatePerMinute int
	NotifyRatePerSecond  int
}

// IsDevelopment reports whether the relay runs with development defaults.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

// LoadConfig reads and parses the relay configuration from environment variables.
// It provides default values for each configuration item and performs necessary type conversions and validation.
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}

	// --- General Server Settings ---
	cfg.Environment = environment()

	port, err := intEnv("SOCKET_PORT", 4000)
	if err != nil {
		return nil, err
	}
	if port < 1024 || port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", port, 1024, 65535)
	}
	cfg.Port = port

	// --- Security Settings ---
	cfg.AllowedOrigins = listEnv("CLIENT_URL")
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"http://localhost:3000"}
	}

	cfg.AuthSecret, err = secretEnv("AUTH_SECRET", cfg.Environment, devAuthSecret)
	if err != nil {
		return nil, err
	}

	cfg.InternalAPIKey, err = secretEnv("INTERNAL_API_KEY", cfg.Environment, DevInternalAPIKey)
	if err != nil {
		return nil, err
	}

	// --- Rate Limits ---
	cfg.GeneralRatePerMinute, err = positiveIntEnv("GENERAL_RATE_PER_MINUTE", 100)
	if err != nil {
		return nil, err
	}

	cfg.NotifyRatePerSecond, err = positiveIntEnv("NOTIFY_RATE_PER_SECOND", 50)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// NotifierConfig configures the backend side of the notify channel.
type NotifierConfig struct {
	// RelayURL is the relay base URL as seen from the backend. Empty disables notifications.
	RelayURL       string
	InternalAPIKey string
}

// LoadNotifierConfig reads SOCKET_SERVER_URL and INTERNAL_API_KEY. A missing relay URL is
// not an error: the backend keeps working and only skips real-time pushes.
func LoadNotifierConfig() (*NotifierConfig, error) {
	key, err := secretEnv("INTERNAL_API_KEY", environment(), DevInternalAPIKey)
	if err != nil {
		return nil, err
	}

	return &NotifierConfig{
		RelayURL:       strings.TrimRight(strings.TrimSpace(os.Getenv("SOCKET_SERVER_URL")), "/"),
		InternalAPIKey: key,
	}, nil
}

// ClientConfig configures the terminal client.
type ClientConfig struct {
	Environment string

	// BackendURL serves the REST API and owns the session cookie.
	BackendURL string

	// SocketURL is the relay base URL; the WebSocket lives at <SocketURL>/socket.
	SocketURL string

	// SessionCookie is a raw "name=value" session cookie, as copied from a browser.
	SessionCookie string

	// PrefsPath is the JSON file holding client preferences.
	PrefsPath string
}

// LoadClientConfig reads the CHATIFY_* variables.
func LoadClientConfig() (*ClientConfig, error) {
	cfg := &ClientConfig{
		Environment:   environment(),
		BackendURL:    stringEnv("CHATIFY_BACKEND_URL", "http://localhost:3000"),
		SocketURL:     stringEnv("CHATIFY_SOCKET_URL", "http://localhost:4000"),
		SessionCookie: strings.TrimSpace(os.Getenv("CHATIFY_SESSION_COOKIE")),
		PrefsPath:     os.Getenv("CHATIFY_PREFS_PATH"),
	}

	if cfg.SessionCookie != "" && !strings.Contains(cfg.SessionCookie, "=") {
		return nil, fmt.Errorf("CHATIFY_SESSION_COOKIE must have the form name=value")
	}

	if cfg.PrefsPath == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve config dir for preferences: %w", err)
		}
		cfg.PrefsPath = dir + string(os.PathSeparator) + "chatify" + string(os.PathSeparator) + "preferences.json"
	}

	return cfg, nil
}

func environment() string {
	return stringEnv("ENVIRONMENT", EnvDevelopment)
}

func stringEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return strings.TrimRight(v, "/")
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return n, nil
}

func positiveIntEnv(key string, fallback int) (int, error) {
	n, err := intEnv(key, fallback)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %d", key, n)
	}
	return n, nil
}

// listEnv splits a comma-separated variable, dropping blanks and trailing slashes.
func listEnv(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		trimmed := strings.TrimRight(strings.TrimSpace(item), "/")
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// secretEnv returns the variable, the development fallback, or an error outside development.
func secretEnv(key, env, devFallback string) (string, error) {
	v := os.Getenv(key)
	if v != "" {
		return v, nil
	}
	if env == EnvDevelopment {
		return devFallback, nil
	}
	return "", fmt.Errorf("%s environment variable is required in %s environment for security", key, env)
}
