package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (CATALOG_ prefix) or YAML config files.
type Config struct {
	APIURL        string        `default:"http://localhost:3000/api" usage:"Product catalog API base URL" env:"API_URL"`
	Timeout       time.Duration `default:"10s" usage:"Per-request timeout for CRUD calls"`
	HealthTimeout time.Duration `default:"5s" usage:"Per-request timeout for health and db-check probes" env:"HEALTH_TIMEOUT"`
	MaxRetries    int           `default:"2" usage:"Extra attempts for idempotent reads after a transient failure" env:"MAX_RETRIES"`
	CacheTTL      time.Duration `default:"5m" usage:"Freshness window for cached product listings" env:"CACHE_TTL"`
	Verbose       bool          `default:"false" usage:"Log every outbound request"`
	Monitor       MonitorConfig
}

// MonitorConfig controls the background connectivity monitor used by the
// watch command.
type MonitorConfig struct {
	Interval time.Duration `default:"30s" usage:"Connectivity probe interval"`
}

// LoadConfig loads configuration from environment variables and YAML config
// files. Command-line flag parsing is left to the subcommands.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "CATALOG",
		SkipFlags: true,
		Files:     []string{"config.yaml", "/etc/catalog/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()
	return &cfg, nil
}

// applyPlatformDefaults maps plainly named environment variables (the names
// the API project itself documents) onto the CATALOG_-prefixed
// configuration.
func (c *Config) applyPlatformDefaults() {
	if v := os.Getenv("API_URL"); v != "" && c.APIURL == "http://localhost:3000/api" {
		c.APIURL = v
	}
}
