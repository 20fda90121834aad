package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"SOURCE_DIR", "OUTPUT_DIR", "DATA_DIR", "DB_FILE_NAME", "FFMPEG_PATH",
	"OUTPUT_FORMAT", "SPLIT_WORKERS", "TRAD_TO_SIMP", "OVERWRITE",
	"STABILITY_CHECK_INTERVAL", "STABILITY_QUIET_DURATION", "STABILITY_MAX_WAIT",
}

// clearEnv 清空配置相关的环境变量，测试结束后由 t.Setenv 恢复
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("SOURCE_DIR", "/in")
	t.Setenv("OUTPUT_DIR", "/out")
	t.Setenv("DATA_DIR", "/data")
	t.Setenv("OUTPUT_FORMAT", ".wav")
	t.Setenv("SPLIT_WORKERS", "3")
	t.Setenv("TRAD_TO_SIMP", "true")
	t.Setenv("STABILITY_QUIET_DURATION", "10s")
	t.Setenv("STABILITY_MAX_WAIT", "not-a-duration")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "/in", cfg.SourceDir)
	assert.Equal(t, "/out", cfg.OutputDir)
	assert.Equal(t, filepath.Join("/data", dbFileName), cfg.DBPath)
	assert.Equal(t, "wav", cfg.OutputFormat)
	assert.Equal(t, 3, cfg.SplitWorkers)
	assert.True(t, cfg.TradToSimp)
	assert.False(t, cfg.Overwrite)
	assert.Equal(t, ffmpeg, cfg.FFmpegPath)
	assert.Equal(t, 10*time.Second, cfg.StabilityQuietDuration)
	assert.Equal(t, stabilityMaxWait, cfg.StabilityMaxWait)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigEnvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, "cuesplit.env")
	require.NoError(t, os.WriteFile(envFile, []byte("SOURCE_DIR=/from-file\nSPLIT_WORKERS=2\n"), 0o644))
	// 已存在的环境变量优先于文件
	t.Setenv("SPLIT_WORKERS", "5")

	cfg, err := LoadConfig(envFile)
	require.NoError(t, err)
	assert.Equal(t, "/from-file", cfg.SourceDir)
	assert.Equal(t, 5, cfg.SplitWorkers)
	assert.Equal(t, outputDir, cfg.OutputDir)

	_, err = LoadConfig(filepath.Join(dir, "missing.env"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		SourceDir:              "/music",
		OutputDir:              "/music/",
		SplitWorkers:           0,
		StabilityCheckInterval: time.Second,
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must differ")
	assert.Contains(t, err.Error(), "split workers")
	assert.Contains(t, err.Error(), "output format")
}

func TestEnsureDirs(t *testing.T) {
	root := t.TempDir()
	cfg := &Config{
		OutputDir:  filepath.Join(root, "out"),
		DataDir:    filepath.Join(root, "data"),
		DBFileName: "x.db",
	}
	require.NoError(t, cfg.EnsureDirs())
	assert.DirExists(t, cfg.OutputDir)
	assert.DirExists(t, cfg.DataDir)
	assert.Equal(t, filepath.Join(root, "data", "x.db"), cfg.DBPath)
	assert.Equal(t, filepath.Join(root, "data", "cuesplit.lock"), cfg.LockPath())
}
