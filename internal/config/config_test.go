package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/clashui/internal/adapter/output"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "http://127.0.0.1:9090", cfg.Controller.URL)
	assert.Empty(t, cfg.Controller.Secret)
	assert.Equal(t, "https://www.google.com", cfg.Delay.URL)
	assert.Equal(t, 60000, cfg.Delay.Timeout.Milliseconds())
	assert.Equal(t, "plain", cfg.Output.Format)
	assert.True(t, cfg.Output.Color)
	assert.Equal(t, "> ", cfg.REPL.Prompt)
	assert.Empty(t, cfg.REPL.HistoryFile)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_DefaultsWhenNoFile(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.toml")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_ParsesTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
[controller]
url = "http://10.0.0.1:9090"
secret = "s3cret"

[delay]
url = "http://www.gstatic.com/generate_204"
timeout = "5s"

[output]
format = "yaml"
color = false

[repl]
prompt = "clash> "
history_file = "/tmp/clash-history"
`
	err := os.WriteFile(path, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "http://10.0.0.1:9090", cfg.Controller.URL)
	assert.Equal(t, "s3cret", cfg.Controller.Secret)
	assert.Equal(t, "http://www.gstatic.com/generate_204", cfg.Delay.URL)
	assert.Equal(t, 5000, cfg.Delay.Timeout.Milliseconds())
	assert.Equal(t, output.FormatYAML, cfg.FormatType())
	assert.False(t, cfg.Output.Color)
	assert.Equal(t, "clash> ", cfg.REPL.Prompt)
	assert.Equal(t, "/tmp/clash-history", cfg.HistoryFile())
}

func TestLoadConfig_PartialConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
[controller]
secret = "abc"
`
	err := os.WriteFile(path, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	// Changed field
	assert.Equal(t, "abc", cfg.Controller.Secret)

	// Unchanged fields should have defaults
	assert.Equal(t, DefaultControllerURL, cfg.Controller.URL)
	assert.Equal(t, DefaultDelayTimeout, cfg.Delay.Timeout)
	assert.True(t, cfg.Output.Color)
}

func TestLoadConfig_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `this is not valid toml [`
	err := os.WriteFile(path, []byte(content), 0644)
	require.NoError(t, err)

	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown format", "[output]\nformat = \"xml\"\n"},
		{"bad timeout", "[delay]\ntimeout = \"soon\"\n"},
		{"zero timeout", "[delay]\ntimeout = \"0s\"\n"},
		{"relative controller", "[controller]\nurl = \"localhost:9090\"\n"},
		{"empty delay url", "[delay]\nurl = \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestDuration_UnmarshalText(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
	}{
		{"1500", 1500 * time.Millisecond},
		{"30s", 30 * time.Second},
		{"1m30s", 90 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var d Duration
			require.NoError(t, d.UnmarshalText([]byte(tt.input)))
			assert.Equal(t, tt.expected, time.Duration(d))
		})
	}

	var d Duration
	assert.Error(t, d.UnmarshalText([]byte("later")))
}

func TestConfig_Save(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subdir", "config.toml")

	cfg := DefaultConfig()
	cfg.Controller.Secret = "token"
	cfg.Delay.Timeout = Duration(2 * time.Second)
	cfg.Output.Format = "json"

	err := cfg.Save(path)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestConfig_FormatTypeFallsBackToPlain(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output.Format = "nonsense"
	assert.Equal(t, output.FormatPlain, cfg.FormatType())
}

func TestConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	assert.Equal(t, "/custom/config/clashui/config.toml", ConfigPath())
}

func TestConfigPathDefault(t *testing.T) {
	path := ConfigPath()
	assert.Contains(t, path, "clashui/config.toml")
}

func TestDataPath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/custom/data")
	assert.Equal(t, "/custom/data/clashui", DataPath())
}

func TestHistoryPath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/custom/data")
	assert.Equal(t, "/custom/data/clashui/history", HistoryPath())
	assert.Equal(t, "/custom/data/clashui/history", DefaultConfig().HistoryFile())
}

func TestEnsureDataDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)

	err := EnsureDataDir()
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(dir, "clashui"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
