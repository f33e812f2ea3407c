package configuration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestLoadEnv_LoadsExistingFilesOnly(t *testing.T) {
	tmp := t.TempDir()
	requireWriteFile(t, filepath.Join(tmp, ".env.local"), "ORGANI_FLOW_TEST_ENV_LOAD=ok\n")
	t.Setenv("ORGANI_FLOW_TEST_ENV_LOAD", "")
	_ = os.Unsetenv("ORGANI_FLOW_TEST_ENV_LOAD")

	n, err := LoadEnv([]string{filepath.Join(tmp, ".env"), filepath.Join(tmp, ".env.local")})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, "ok", os.Getenv("ORGANI_FLOW_TEST_ENV_LOAD"))
}

func TestNew_Defaults(t *testing.T) {
	c, err := New(nil)
	require.NoError(t, err)
	t.Cleanup(c.Unload)

	require.Equal(t, 3200, c.ServerPort)
	require.Equal(t, "localhost:3200", c.SocketAddress)
	require.Equal(t, []string{"*"}, c.CorsAllowedOrigins)
	require.Equal(t, "X-Request-ID", c.RequestIDHeader)
	require.Equal(t, logrus.InfoLevel, c.LogrusLogLevel())
	require.NotNil(t, c.Logger())
}

func TestNew_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("GO_APP_ENV", Production)
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("SEED_PATH", "testdata/tree.yaml")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")

	c, err := New(nil)
	require.NoError(t, err)
	t.Cleanup(c.Unload)

	require.Equal(t, ":8080", c.SocketAddress)
	require.Equal(t, "https", c.Scheme())
	require.Equal(t, logrus.DebugLevel, c.LogrusLogLevel())
	require.Equal(t, "testdata/tree.yaml", c.SeedPath)
	require.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, c.CorsAllowedOrigins)
}

func TestNew_RejectsInvalidSettings(t *testing.T) {
	cases := map[string]map[string]string{
		"log level":      {"LOG_LEVEL": "loud"},
		"port":           {"PORT": "70000"},
		"storage":        {"RATE_LIMIT_STORAGE": "disk"},
		"redis url":      {"RATE_LIMIT_STORAGE": "redis"},
		"negative rps":   {"RATE_LIMIT_GLOBAL_RPS": "-1"},
		"malformed port": {"PORT": "abc"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range vars {
				t.Setenv(k, v)
			}
			_, err := New(nil)
			require.Error(t, err)
		})
	}
}

func TestNew_WritesLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	t.Setenv("LOG_PATH", path)

	c, err := New(nil)
	require.NoError(t, err)
	c.Logger().Info("hello")
	c.Unload()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(raw), "hello")
}

func requireWriteFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
