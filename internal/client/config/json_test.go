package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"backend_url":               "https://www.example",
		"storage_backend":           "s3",
		"s3":                        map[string]any{"endpoint": "http://minio:9000", "public_base_url": "https://cdn.example"},
		"callback_listen_addr":      "",
		"foreground_check_interval": "10s",
	})

	t.Run("loads from flags", func(t *testing.T) {
		cfg := defaults()
		parseJson(cfg, []string{"-config", pathFlag})

		assert.Equal(t, "https://www.example", cfg.BackendURL)
		assert.Equal(t, StorageBackendS3, cfg.StorageBackend)
		assert.Equal(t, "http://minio:9000", cfg.S3.Endpoint)
		assert.Equal(t, "https://cdn.example", cfg.S3.PublicBaseURL)
		assert.Equal(t, "profile-pictures", cfg.S3.Bucket)
		assert.Equal(t, "", cfg.CallbackListenAddr)
		assert.Equal(t, 10*time.Second, cfg.ForegroundCheckInterval)
		assert.Equal(t, "dogstack.db", cfg.DatabasePath)
	})

	t.Run("integer nanoseconds", func(t *testing.T) {
		p := writeTempJSON(t, dir, "ns.json", map[string]any{"foreground_check_interval": 2_000_000_000})
		cfg := defaults()
		parseJson(cfg, []string{"-c=" + p})
		assert.Equal(t, 2*time.Second, cfg.ForegroundCheckInterval)
		assert.Equal(t, "127.0.0.1:54330", cfg.CallbackListenAddr)
	})

	t.Run("no flags → no changes", func(t *testing.T) {
		cfg := &Config{BackendURL: "https://defaults", ForegroundCheckInterval: 42 * time.Second}
		parseJson(cfg, []string{"-b", "ignored"})

		assert.Equal(t, "https://defaults", cfg.BackendURL)
		assert.Equal(t, 42*time.Second, cfg.ForegroundCheckInterval)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))
		require.Panics(t, func() { parseJson(defaults(), []string{"-config", bad}) })
	})

	t.Run("invalid duration → panics", func(t *testing.T) {
		p := writeTempJSON(t, dir, "dur.json", map[string]any{"foreground_check_interval": "soon"})
		require.Panics(t, func() { parseJson(defaults(), []string{"-c", p}) })
	})

	t.Run("missing file → panics", func(t *testing.T) {
		require.Panics(t, func() { parseJson(defaults(), []string{"-c", filepath.Join(dir, "nope.json")}) })
	})
}
