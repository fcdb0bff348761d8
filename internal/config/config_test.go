package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noEnvFile points Load at a path that does not exist, so a stray .env in
// the package directory cannot leak into the test.
func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "projects.db", cfg.DBPath)
	assert.Equal(t, "media", cfg.MediaDir)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 300, cfg.Thumbnail.Width)
	assert.Equal(t, 200, cfg.Thumbnail.Height)
	assert.Equal(t, 2, cfg.Ingest.Workers)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("PROMAN_DB_PATH", "/tmp/x.db")
	t.Setenv("PROMAN_MEDIA_DIR", "/tmp/media")
	t.Setenv("PROMAN_LOG_LEVEL", "debug")
	t.Setenv("PROMAN_LOG_FORMAT", "json")
	t.Setenv("PROMAN_THUMBNAIL_WIDTH", "160")
	t.Setenv("PROMAN_INGEST_WORKERS", "4")

	cfg, err := Load(noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/x.db", cfg.DBPath)
	assert.Equal(t, "/tmp/media", cfg.MediaDir)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 160, cfg.Thumbnail.Width)
	assert.Equal(t, 200, cfg.Thumbnail.Height, "unset keys keep their default")
	assert.Equal(t, 4, cfg.Ingest.Workers)
}

func TestLoad_DotEnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("PROMAN_MEDIA_DIR=from-dotenv\nPROMAN_DB_PATH=from-dotenv.db\n"), 0o644))

	// The real environment wins over the file.
	t.Setenv("PROMAN_DB_PATH", "from-env.db")
	// godotenv sets variables directly; register cleanup so they do not leak.
	t.Setenv("PROMAN_MEDIA_DIR", "")
	require.NoError(t, os.Unsetenv("PROMAN_MEDIA_DIR"))

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, "from-env.db", cfg.DBPath)
	assert.Equal(t, "from-dotenv", cfg.MediaDir)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"zero workers", "PROMAN_INGEST_WORKERS", "0"},
		{"negative thumbnail", "PROMAN_THUMBNAIL_HEIGHT", "-1"},
		{"unknown log format", "PROMAN_LOG_FORMAT", "xml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load(noEnvFile(t))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid configuration")
		})
	}
}
