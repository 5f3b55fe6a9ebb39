package cli

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/log"
)

func TestSetupLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := SetupLogger("debug", "json")
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
	assert.Equal(t, log.ComponentApp, logger.Component())

	logger = SetupLogger("warn", "text")
	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
}

func TestLoadEnvFileAndConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("FINTRACK_CLI_TEST=from-file\n"), 0o644))
	t.Setenv("FINTRACK_CLI_TEST", "")
	require.NoError(t, os.Unsetenv("FINTRACK_CLI_TEST"))

	LoadEnvFile(path)
	assert.Equal(t, "from-file", os.Getenv("FINTRACK_CLI_TEST"))

	t.Setenv("DATA_BACKEND", "sheets")
	_, err := LoadAndValidateConfig()
	assert.ErrorContains(t, err, "invalid data backend")
}
