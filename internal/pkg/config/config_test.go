package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/V4T54L/reqnotify/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, ":9091", cfg.AdminAddr)
	assert.Equal(t, 10*time.Second, cfg.NotifierTimeout)
	assert.Equal(t, 0, cfg.NotifierMaxInFlight)
	assert.Equal(t, "webhook_outcomes", cfg.OutcomeStream)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoad_Notifier(t *testing.T) {
	t.Setenv("NOTIFIER_URL", "https://hooks.example.com/notify")
	t.Setenv("NOTIFIER_BODY", "ping")
	t.Setenv("NOTIFIER_HEADERS", "X-Token: abc,X-Source:gateway")
	t.Setenv("NOTIFIER_MAX_IN_FLIGHT", "64")
	t.Setenv("ADMIN_API_KEYS", "k1,k2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.NotifierMaxInFlight)
	assert.Equal(t, []string{"k1", "k2"}, cfg.AdminAPIKeys)

	nc, err := cfg.Notifier()
	require.NoError(t, err)
	assert.Equal(t, "https://hooks.example.com/notify", nc.URL)
	require.NotNil(t, nc.Body)
	assert.Equal(t, "ping", *nc.Body)
	assert.Equal(t, map[string]string{"X-Token": "abc", "X-Source": "gateway"}, nc.Headers)
}

func TestLoad_MalformedHeaderNameIsNotRepaired(t *testing.T) {
	t.Setenv("NOTIFIER_URL", "https://hooks.example.com/notify")
	t.Setenv("NOTIFIER_HEADERS", "X-Source:gateway, X-Token:abc")

	cfg, err := Load()
	require.NoError(t, err)
	nc, err := cfg.Notifier()
	require.NoError(t, err)
	assert.Contains(t, nc.Headers, " X-Token")

	_, err = domain.PrepareNotifier(nc)
	var cfgErr *domain.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.ErrorIs(t, err, domain.ErrInvalidHeader)
	assert.Equal(t, " X-Token", cfgErr.Header)
}

func TestLoad_NoBodyMeansNil(t *testing.T) {
	t.Setenv("NOTIFIER_URL", "http://localhost:9000")

	cfg, err := Load()
	require.NoError(t, err)
	nc, err := cfg.Notifier()
	require.NoError(t, err)
	assert.Nil(t, nc.Body)
	assert.Empty(t, nc.Headers)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "Negative max in flight", key: "NOTIFIER_MAX_IN_FLIGHT", value: "-1"},
		{name: "Zero timeout", key: "NOTIFIER_TIMEOUT", value: "0s"},
		{name: "Unparseable timeout", key: "NOTIFIER_TIMEOUT", value: "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadNotifierFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("YAML", func(t *testing.T) {
		path := filepath.Join(dir, "notifier.yaml")
		require.NoError(t, os.WriteFile(path, []byte("url: https://hooks.example.com\nbody: ping\nheaders:\n  X-Token: abc\n"), 0o600))

		nc, err := LoadNotifierFile(path)
		require.NoError(t, err)
		assert.Equal(t, "https://hooks.example.com", nc.URL)
		require.NotNil(t, nc.Body)
		assert.Equal(t, "ping", *nc.Body)
		assert.Equal(t, "abc", nc.Headers["X-Token"])
	})

	t.Run("JSON", func(t *testing.T) {
		path := filepath.Join(dir, "notifier.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"url":"http://localhost:9000","headers":{"X-Token":"abc"}}`), 0o600))

		nc, err := LoadNotifierFile(path)
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:9000", nc.URL)
		assert.Nil(t, nc.Body)
	})

	t.Run("File takes precedence over env", func(t *testing.T) {
		path := filepath.Join(dir, "override.yaml")
		require.NoError(t, os.WriteFile(path, []byte("url: https://from-file.example.com\n"), 0o600))
		cfg := &Config{NotifierURL: "https://from-env.example.com", NotifierConfigFile: path}

		nc, err := cfg.Notifier()
		require.NoError(t, err)
		assert.Equal(t, "https://from-file.example.com", nc.URL)
	})

	t.Run("Missing file", func(t *testing.T) {
		_, err := LoadNotifierFile(filepath.Join(dir, "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("Malformed YAML", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("url: [unterminated\n"), 0o600))
		_, err := LoadNotifierFile(path)
		assert.Error(t, err)
	})
}
