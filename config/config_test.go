package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var cfg Config
	require.NoError(t, Load("TOYSQL_TEST_NONE_", "", nil, &cfg))

	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, "INFO", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.True(t, cfg.Storage.SyncWrites)
	assert.Empty(t, cfg.Metrics.Addr)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("TOYSQL_DATA_DIR", "/tmp/toysql")
	t.Setenv("TOYSQL_LOG__LEVEL", "DEBUG")
	t.Setenv("TOYSQL_STORAGE__SYNC_WRITES", "false")
	t.Setenv("TOYSQL_METRICS__ADDR", ":9100")

	var cfg Config
	require.NoError(t, Load(EnvPrefix, "", nil, &cfg))

	assert.Equal(t, "/tmp/toysql", cfg.DataDir)
	assert.Equal(t, "DEBUG", cfg.Log.Level)
	assert.False(t, cfg.Storage.SyncWrites)
	assert.Equal(t, ":9100", cfg.Metrics.Addr)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "toysql.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: /var/lib/toysql\nlog:\n  format: json\n"), 0o644))

	var cfg Config
	require.NoError(t, Load("TOYSQL_TEST_NONE_", path, nil, &cfg))

	assert.Equal(t, "/var/lib/toysql", cfg.DataDir)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "INFO", cfg.Log.Level)
}

func TestLoadMissingFile(t *testing.T) {
	var cfg Config
	require.NoError(t, Load("TOYSQL_TEST_NONE_", filepath.Join(t.TempDir(), "missing.yaml"), nil, &cfg))
	assert.Equal(t, "./data", cfg.DataDir)
}

func TestLoadFlagPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "toysql.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: /from/file\nlog:\n  level: WARN\n  format: json\n"), 0o644))
	t.Setenv("TOYSQL_DATA_DIR", "/from/env")
	t.Setenv("TOYSQL_LOG__LEVEL", "ERROR")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("data-dir", "", "")
	flags.String("log-level", "", "")
	flags.String("log-format", "", "")
	flags.Bool("sync", true, "")
	require.NoError(t, flags.Parse([]string{"--data-dir", "/from/flag", "--sync=false"}))

	var cfg Config
	require.NoError(t, Load(EnvPrefix, path, flags, &cfg))

	assert.Equal(t, "/from/flag", cfg.DataDir)
	assert.Equal(t, "ERROR", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.Storage.SyncWrites)
	assert.Empty(t, cfg.Metrics.Addr)
}
