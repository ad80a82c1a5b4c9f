package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test in an empty directory with every CROSSBIND_*
// variable unset. Values loaded from .env are removed on cleanup.
func isolate(t *testing.T) string {
	t.Helper()
	for _, k := range []string{
		EnvCatalog, EnvLogLevel, EnvLogFormat,
		EnvParentArgument, EnvReturnHeuristic, EnvParentAccessorPrefix,
	} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "crossbind.db", cfg.Catalog)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Nil(t, cfg.Heuristics.ParentArgument)

	h := cfg.OwnershipHeuristics()
	assert.Equal(t, "parent", h.ParentArgument)
	assert.True(t, h.ReturnValue)
}

func TestLoad_File(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	writeFile(t, path, `
catalog: build/catalog.db
log:
  level: debug
  format: json
heuristics:
  parent_argument: ""
  return_value: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "build/catalog.db", cfg.Catalog)
	assert.Equal(t, "json", cfg.Log.Format)

	level, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	h := cfg.OwnershipHeuristics()
	assert.Equal(t, "", h.ParentArgument)
	assert.False(t, h.ReturnValue)
	assert.Equal(t, "parent", h.ParentAccessorPrefix)
}

func TestLoad_DefaultFileInWorkingDirectory(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, DefaultFile), "catalog: from-default.db\n")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-default.db", cfg.Catalog)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	dir := isolate(t)

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "bad.yaml")
	writeFile(t, path, "log: [unclosed\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "crossbind.yaml")
	writeFile(t, path, `
catalog: file.db
heuristics:
  parent_argument: owner
`)
	t.Setenv(EnvCatalog, "env.db")
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvParentArgument, "")
	t.Setenv(EnvReturnHeuristic, "false")
	t.Setenv(EnvParentAccessorPrefix, "owner")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env.db", cfg.Catalog)

	level, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	h := cfg.OwnershipHeuristics()
	assert.Equal(t, "", h.ParentArgument, "a set but empty variable disables the rule")
	assert.False(t, h.ReturnValue)
	assert.Equal(t, "owner", h.ParentAccessorPrefix)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, ".env"), "CROSSBIND_CATALOG=dotenv.db\nCROSSBIND_LOG_FORMAT=json\n")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "dotenv.db", cfg.Catalog)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, ".env"), "CROSSBIND_CATALOG=dotenv.db\n")
	t.Setenv(EnvCatalog, "process.db")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "process.db", cfg.Catalog)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "log level",
			env:     map[string]string{EnvLogLevel: "chatty"},
			wantErr: "invalid log level",
		},
		{
			name:    "log format",
			env:     map[string]string{EnvLogFormat: "xml"},
			wantErr: "invalid log format",
		},
		{
			name:    "return heuristic",
			env:     map[string]string{EnvReturnHeuristic: "sometimes"},
			wantErr: EnvReturnHeuristic,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
