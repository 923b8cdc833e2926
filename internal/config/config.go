package config

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/redirtxt/redirtxt/internal/rule"
)

var DefaultProtectedPaths = []string{
	"/wp-login.php",
	"/wp-admin/",
	"/wp-json/",
}

type Config struct {
	Listen    string `yaml:"listen" json:"listen" validate:"required,hostname_port"`
	APIListen string `yaml:"api-listen" json:"api_listen,omitempty" validate:"omitempty,hostname_port"`
	LogLevel  string `yaml:"log-level" json:"log_level" validate:"oneof=debug info warn error"`
	LogFile   string `yaml:"log-file" json:"log_file,omitempty"`

	// HomeURL is the public URL of the site, possibly with a sub-path.
	HomeURL string `yaml:"home-url" json:"home_url,omitempty" validate:"omitempty,url"`

	Rules      string `yaml:"rules" json:"rules,omitempty"`
	RulesFile  string `yaml:"rules-file" json:"rules_file,omitempty"`
	WatchRules bool   `yaml:"watch-rules" json:"watch_rules"`

	DefaultStatus         int            `yaml:"default-status" json:"default_status" validate:"gte=100,lte=599"`
	AdditionalStatusCodes map[int]string `yaml:"additional-status-codes" json:"additional_status_codes,omitempty" validate:"dive,keys,gte=100,lte=599,endkeys,required"`
	ProtectedPaths        []string       `yaml:"protected-paths" json:"protected_paths" validate:"dive,startswith=/"`
	AllowedRedirectHosts  []string       `yaml:"allowed-redirect-hosts" json:"allowed_redirect_hosts,omitempty" validate:"dive,hostname_rfc1123"`

	// Upstream receives every request that is not redirected. Without it the
	// server answers such requests with 404.
	Upstream string `yaml:"upstream" json:"upstream,omitempty" validate:"omitempty,url"`

	Regex    RegexConfig `yaml:"regex" json:"regex"`
	Settings Settings    `yaml:"settings" json:"settings"`

	EventsFile string `yaml:"events-file" json:"events_file,omitempty"`

	// Resources maps content ids to permalinks for id rules.
	Resources map[int]string `yaml:"resources" json:"resources,omitempty" validate:"dive,keys,gt=0,endkeys,required"`
	// ResourcePaths enables id rules for requests whose path is the
	// permalink of one of the resources.
	ResourcePaths bool `yaml:"resource-paths" json:"resource_paths"`
}

type RegexConfig struct {
	Timeout   time.Duration `yaml:"timeout" json:"timeout" validate:"gte=0"`
	CacheSize int           `yaml:"cache-size" json:"cache_size" validate:"gte=0"`
}

// Settings holds event log retention: 0 disables the log, -1 keeps entries
// forever, N keeps entries for N days.
type Settings struct {
	RedirectLogs int `yaml:"redirect-logs" json:"redirect_logs" validate:"gte=-1"`
	NotFoundLogs int `yaml:"404-logs" json:"404_logs" validate:"gte=-1"`
}

// SetDefaults registers default values on the global viper instance.
func SetDefaults() {
	viper.SetDefault("listen", "127.0.0.1:8080")
	viper.SetDefault("log-level", "info")
	viper.SetDefault("default-status", http.StatusMovedPermanently)
	viper.SetDefault("protected-paths", DefaultProtectedPaths)
	viper.SetDefault("regex.timeout", "100ms")
	viper.SetDefault("regex.cache-size", 512)
	viper.SetDefault("settings.redirect-logs", 0)
	viper.SetDefault("settings.404-logs", 0)
	viper.SetDefault("resource-paths", true)
}

// BuildConfigFromViper decodes and validates the global viper state.
func BuildConfigFromViper() (*Config, error) {
	var cfg Config
	err := viper.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	})
	if err != nil {
		return nil, fmt.Errorf("viper.Unmarshal: %w", err)
	}

	cfg.normalize()

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if !cfg.StatusCodes().Valid(cfg.DefaultStatus) {
		return nil, fmt.Errorf("invalid config: default-status %d is not a recognized status code", cfg.DefaultStatus)
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.HomeURL = strings.TrimRight(strings.TrimSpace(c.HomeURL), "/")
	for i, p := range c.ProtectedPaths {
		c.ProtectedPaths[i] = strings.ToLower(strings.TrimSpace(p))
	}
	for i, h := range c.AllowedRedirectHosts {
		c.AllowedRedirectHosts[i] = strings.ToLower(strings.TrimSpace(h))
	}
}

// StatusCodes returns the recognized status codes including the additional
// ones from the config.
func (c *Config) StatusCodes() *rule.StatusCodes {
	return rule.NewStatusCodes(c.AdditionalStatusCodes)
}

func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("listen", c.Listen),
		slog.String("api_listen", c.APIListen),
		slog.String("log_level", c.LogLevel),
		slog.String("home_url", c.HomeURL),
		slog.String("rules_file", c.RulesFile),
		slog.Bool("watch_rules", c.WatchRules),
		slog.Int("default_status", c.DefaultStatus),
		slog.Any("protected_paths", c.ProtectedPaths),
		slog.String("upstream", c.Upstream),
		slog.Int("redirect_logs", c.Settings.RedirectLogs),
		slog.Int("404_logs", c.Settings.NotFoundLogs),
	)
}
