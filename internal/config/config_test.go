package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"
)

// resetViper clears global viper state and registers the defaults the way
// initConfig in cmd/root.go does.
func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	SetDefaults()
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func loadConfigFile(t *testing.T, path string) {
	t.Helper()
	viper.SetConfigFile(path)
	if err := viper.MergeInConfig(); err != nil {
		t.Fatalf("failed to merge config file: %v", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	resetViper(t)

	cfg, err := BuildConfigFromViper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"Listen", cfg.Listen, "127.0.0.1:8080"},
		{"APIListen", cfg.APIListen, ""},
		{"LogLevel", cfg.LogLevel, "info"},
		{"HomeURL", cfg.HomeURL, ""},
		{"RulesFile", cfg.RulesFile, ""},
		{"WatchRules", cfg.WatchRules, false},
		{"DefaultStatus", cfg.DefaultStatus, 301},
		{"Regex.Timeout", cfg.Regex.Timeout, 100 * time.Millisecond},
		{"Regex.CacheSize", cfg.Regex.CacheSize, 512},
		{"Settings.RedirectLogs", cfg.Settings.RedirectLogs, 0},
		{"Settings.NotFoundLogs", cfg.Settings.NotFoundLogs, 0},
		{"ResourcePaths", cfg.ResourcePaths, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
	assert.Equal(t, DefaultProtectedPaths, cfg.ProtectedPaths)
}

func TestConfigFromFile(t *testing.T) {
	resetViper(t)

	yaml := `
listen: 0.0.0.0:8081
api-listen: 127.0.0.1:9091
log-level: debug
home-url: https://example.com/blog/
rules-file: /etc/redirtxt/redirects.txt
watch-rules: true
default-status: 302
additional-status-codes:
  451: Unavailable For Legal Reasons
protected-paths:
  - /admin/
allowed-redirect-hosts:
  - Partner.Example.org
upstream: http://127.0.0.1:3000
regex:
  timeout: 250ms
  cache-size: 64
settings:
  redirect-logs: 30
  404-logs: -1
events-file: /var/lib/redirtxt/events.json
resources:
  12: /hello-world
  15: /about
resource-paths: false
`
	path := writeConfigFile(t, yaml)
	loadConfigFile(t, path)

	cfg, err := BuildConfigFromViper()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8081", cfg.Listen)
	assert.Equal(t, "127.0.0.1:9091", cfg.APIListen)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "https://example.com/blog", cfg.HomeURL)
	assert.Equal(t, "/etc/redirtxt/redirects.txt", cfg.RulesFile)
	assert.True(t, cfg.WatchRules)
	assert.Equal(t, 302, cfg.DefaultStatus)
	assert.Equal(t, map[int]string{451: "Unavailable For Legal Reasons"}, cfg.AdditionalStatusCodes)
	assert.Equal(t, []string{"/admin/"}, cfg.ProtectedPaths)
	assert.Equal(t, []string{"partner.example.org"}, cfg.AllowedRedirectHosts)
	assert.Equal(t, "http://127.0.0.1:3000", cfg.Upstream)
	assert.Equal(t, 250*time.Millisecond, cfg.Regex.Timeout)
	assert.Equal(t, 64, cfg.Regex.CacheSize)
	assert.Equal(t, Settings{RedirectLogs: 30, NotFoundLogs: -1}, cfg.Settings)
	assert.Equal(t, "/var/lib/redirtxt/events.json", cfg.EventsFile)
	assert.Equal(t, map[int]string{12: "/hello-world", 15: "/about"}, cfg.Resources)
	assert.False(t, cfg.ResourcePaths)

	codes := cfg.StatusCodes()
	assert.True(t, codes.Valid(451))
	assert.Equal(t, "Unavailable For Legal Reasons", codes.Label(451))
}

func TestInlineRules(t *testing.T) {
	resetViper(t)

	yaml := `
rules: |
  old: new
  302:
  ^/shop/(.*): /store/$1
`
	loadConfigFile(t, writeConfigFile(t, yaml))

	cfg, err := BuildConfigFromViper()
	require.NoError(t, err)
	assert.Equal(t, "old: new\n302:\n^/shop/(.*): /store/$1\n", cfg.Rules)
}

func TestCaseNormalization(t *testing.T) {
	resetViper(t)

	yaml := `
log-level: "  WARN "
protected-paths:
  - /WP-Admin/
`
	loadConfigFile(t, writeConfigFile(t, yaml))

	cfg, err := BuildConfigFromViper()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, []string{"/wp-admin/"}, cfg.ProtectedPaths)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"invalid log level", "log-level: verbose"},
		{"invalid listen", "listen: not-an-address"},
		{"invalid home url", "home-url: not a url"},
		{"status out of range", "default-status: 99"},
		{"unrecognized default status", "default-status: 200"},
		{"additional code out of range", "additional-status-codes:\n  600: Too Much"},
		{"additional code without label", "additional-status-codes:\n  451: \"\""},
		{"relative protected path", "protected-paths:\n  - wp-admin"},
		{"retention below -1", "settings:\n  redirect-logs: -2"},
		{"negative cache size", "regex:\n  cache-size: -1"},
		{"invalid redirect host", "allowed-redirect-hosts:\n  - \"bad host\""},
		{"invalid resource id", "resources:\n  0: /x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetViper(t)
			loadConfigFile(t, writeConfigFile(t, tt.yaml))

			_, err := BuildConfigFromViper()
			assert.Error(t, err)
		})
	}
}

func TestAdditionalDefaultStatus(t *testing.T) {
	resetViper(t)

	yaml := `
default-status: 300
additional-status-codes:
  300: Multiple Choices
`
	loadConfigFile(t, writeConfigFile(t, yaml))

	cfg, err := BuildConfigFromViper()
	require.NoError(t, err)
	assert.Equal(t, 300, cfg.DefaultStatus)
}

func TestViperSetOverridesConfigFile(t *testing.T) {
	resetViper(t)

	yaml := `
listen: 127.0.0.1:9000
log-level: warn
`
	loadConfigFile(t, writeConfigFile(t, yaml))

	// flags are bound through viper and take precedence over the file
	viper.Set("listen", "127.0.0.1:7070")

	cfg, err := BuildConfigFromViper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Listen != "127.0.0.1:7070" {
		t.Errorf("Listen = %s, want 127.0.0.1:7070 (CLI override)", cfg.Listen)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %s, want warn (from file)", cfg.LogLevel)
	}
}

func TestEnvVarOverridesDefault(t *testing.T) {
	resetViper(t)

	viper.SetEnvPrefix("REDIRTXT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	t.Setenv("REDIRTXT_DEFAULT_STATUS", "307")
	t.Setenv("REDIRTXT_SETTINGS_404_LOGS", "5")

	cfg, err := BuildConfigFromViper()
	require.NoError(t, err)
	assert.Equal(t, 307, cfg.DefaultStatus)
	assert.Equal(t, 5, cfg.Settings.NotFoundLogs)
}

func TestGenerateTemplateConfig(t *testing.T) {
	cfg, err := GenerateTemplateConfig(false)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.Listen)
	assert.Contains(t, cfg.Rules, "302:")

	// the template round-trips through the loader
	data, err := yaml.Marshal(&cfg)
	require.NoError(t, err)

	resetViper(t)
	loadConfigFile(t, writeConfigFile(t, string(data)))
	loaded, err := BuildConfigFromViper()
	require.NoError(t, err)
	assert.Equal(t, cfg.Rules, loaded.Rules)
	assert.Equal(t, cfg.Regex, loaded.Regex)
	assert.Equal(t, cfg.Settings, loaded.Settings)
}

func TestLogValue(t *testing.T) {
	cfg := &Config{Listen: "127.0.0.1:8080", LogLevel: "info", DefaultStatus: 301}
	v := cfg.LogValue()
	if v.Kind() != slog.KindGroup {
		t.Fatalf("LogValue kind = %v, want Group", v.Kind())
	}
	attrs := v.Group()
	found := false
	for _, a := range attrs {
		if a.Key == "default_status" && a.Value.Int64() == 301 {
			found = true
		}
	}
	assert.True(t, found)
}
