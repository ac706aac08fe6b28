package configs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearRelayEnv(t *testing.T) {
	for _, key := range []string{
		"ENVIRONMENT", "SOCKET_PORT", "CLIENT_URL", "AUTH_SECRET", "INTERNAL_API_KEY",
		"GENERAL_RATE_PER_MINUTE", "NOTIFY_RATE_PER_SECOND", "SOCKET_SERVER_URL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_DevelopmentDefaults(t *testing.T) {
	clearRelayEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 4000, cfg.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	assert.NotEmpty(t, cfg.AuthSecret)
	assert.Equal(t, DevInternalAPIKey, cfg.InternalAPIKey)
	assert.Equal(t, 100, cfg.GeneralRatePerMinute)
	assert.Equal(t, 50, cfg.NotifyRatePerSecond)
}

func TestLoadConfig_ProductionRequiresSecrets(t *testing.T) {
	clearRelayEnv(t)
	t.Setenv("ENVIRONMENT", "production")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_SECRET")

	t.Setenv("AUTH_SECRET", "s3cret")
	_, err = LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INTERNAL_API_KEY")

	t.Setenv("INTERNAL_API_KEY", "k3y")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, "s3cret", cfg.AuthSecret)
	assert.Equal(t, "k3y", cfg.InternalAPIKey)
}

func TestLoadConfig_Overrides(t *testing.T) {
	clearRelayEnv(t)
	t.Setenv("SOCKET_PORT", "5050")
	t.Setenv("CLIENT_URL", "https://chat.example.com/, https://app.example.com ,")
	t.Setenv("GENERAL_RATE_PER_MINUTE", "10")
	t.Setenv("NOTIFY_RATE_PER_SECOND", "5")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 5050, cfg.Port)
	assert.Equal(t, []string{"https://chat.example.com", "https://app.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, 10, cfg.GeneralRatePerMinute)
	assert.Equal(t, 5, cfg.NotifyRatePerSecond)
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"non-numeric port": {"SOCKET_PORT", "abc"},
		"privileged port":  {"SOCKET_PORT", "80"},
		"zero rate":        {"NOTIFY_RATE_PER_SECOND", "0"},
		"negative rate":    {"GENERAL_RATE_PER_MINUTE", "-1"},
	}

	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			clearRelayEnv(t)
			t.Setenv(kv[0], kv[1])

			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestLoadNotifierConfig(t *testing.T) {
	clearRelayEnv(t)

	cfg, err := LoadNotifierConfig()
	require.NoError(t, err)
	assert.Empty(t, cfg.RelayURL)
	assert.Equal(t, DevInternalAPIKey, cfg.InternalAPIKey)

	t.Setenv("SOCKET_SERVER_URL", "http://relay:4000/")
	cfg, err = LoadNotifierConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://relay:4000", cfg.RelayURL)

	t.Setenv("ENVIRONMENT", "production")
	_, err = LoadNotifierConfig()
	assert.Error(t, err)
}

func TestLoadClientConfig(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("CHATIFY_BACKEND_URL", "")
	t.Setenv("CHATIFY_SOCKET_URL", "http://relay.local:4000/")
	t.Setenv("CHATIFY_SESSION_COOKIE", "authjs.session-token=abc")
	t.Setenv("CHATIFY_PREFS_PATH", "/tmp/prefs.json")

	cfg, err := LoadClientConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000", cfg.BackendURL)
	assert.Equal(t, "http://relay.local:4000", cfg.SocketURL)
	assert.Equal(t, "authjs.session-token=abc", cfg.SessionCookie)
	assert.Equal(t, "/tmp/prefs.json", cfg.PrefsPath)

	t.Setenv("CHATIFY_SESSION_COOKIE", "just-a-token")
	_, err = LoadClientConfig()
	assert.Error(t, err)
}
