package config

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"go.yaml.in/yaml/v3"
)

const templateRules = `# 301 redirects:
/old-page/: /new-page/
old-blog: https://blog.example.com/

# 302 redirects:
302:
^/shop/(.*): /store/$1

# 410 gone:
410:
/discontinued: -
`

func GenerateTemplateConfig(writeToFile bool) (Config, error) {
	cfg := Config{
		Listen:    "127.0.0.1:8080",
		APIListen: "127.0.0.1:9090",
		LogLevel:  "info",
		HomeURL:   "https://example.com",

		Rules:      templateRules,
		WatchRules: false,

		DefaultStatus:  http.StatusMovedPermanently,
		ProtectedPaths: DefaultProtectedPaths,

		Regex: RegexConfig{
			Timeout:   100 * time.Millisecond,
			CacheSize: 512,
		},
		Settings: Settings{
			RedirectLogs: 7,
			NotFoundLogs: 0,
		},
	}

	if writeToFile {
		data, err := yaml.Marshal(&cfg)
		if err != nil {
			return Config{}, fmt.Errorf("failed to marshal template config to YAML: %w", err)
		}
		if err := os.WriteFile("config.yaml", data, 0644); err != nil {
			return Config{}, fmt.Errorf("failed to write template config to file: %w", err)
		}
	}
	return cfg, nil
}
