package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/astragrid/internal/config"
	"github.com/turtacn/astragrid/pkg/logger"
)

func TestLoader_Defaults(t *testing.T) {
	cfg, err := config.NewLoader(logger.NewNoopLogger(), t.TempDir()).Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 3, cfg.Pipeline.RetryBudget)
	assert.Equal(t, 30*time.Second, cfg.Pipeline.StageTimeout)
	assert.True(t, cfg.Pipeline.DeterministicTTF)
	assert.False(t, cfg.Pipeline.AcceptAfterRescanBudget)
	assert.Equal(t, "simulated", cfg.Vision.Mode)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoader_FileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
server:
  port: 9100
pipeline:
  workers: 8
  stage_timeout: 5s
database:
  driver: sqlite
  path: /tmp/grid.db
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))
	t.Setenv("ASTRAGRID_PIPELINE_RETRY_BUDGET", "5")

	cfg, err := config.NewLoader(logger.NewNoopLogger(), dir).Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 8, cfg.Pipeline.Workers)
	assert.Equal(t, 5*time.Second, cfg.Pipeline.StageTimeout)
	assert.Equal(t, 5, cfg.Pipeline.RetryBudget)
	assert.Equal(t, "/tmp/grid.db", cfg.Database.GetDSN())
}

func TestLoader_RejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("vision:\n  mode: http\n"), 0o600))

	_, err := config.NewLoader(logger.NewNoopLogger(), dir).Load()
	assert.ErrorContains(t, err, "vision.endpoint")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log:\n  level: loud\n"), 0o600))
	_, err = config.NewLoader(logger.NewNoopLogger(), dir).Load()
	assert.Error(t, err)
}
