// Package config loads sitepatch settings from the environment and an
// optional sitepatch.yaml.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/joestump/sitepatch/internal/site"
)

type Config struct {
	Root string
	Jobs int
	DB   struct {
		Driver string
		DSN    string
	}
	History struct {
		Enabled bool
	}
	Metrics struct {
		Textfile string
	}
	Log struct {
		Debug bool
	}
	CatalogDir string
	Include    []string
	Exclude    []string
}

// Load reads config from environment (SITEPATCH_ prefix) and optional
// sitepatch.yaml in the working directory.
func Load() (*Config, error) {
	return LoadFrom(".")
}

// LoadFrom is Load with sitepatch.yaml looked up in dir.
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SITEPATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigName("sitepatch")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read sitepatch.yaml: %w", err)
		}
	}

	v.SetDefault("root", ".")
	v.SetDefault("jobs", 1)
	v.SetDefault("db.driver", "sqlite3")
	v.SetDefault("db.dsn", "sitepatch.db")
	v.SetDefault("history.enabled", true)
	v.SetDefault("include", site.DefaultInclude)
	v.SetDefault("exclude", site.DefaultExclude)

	cfg := &Config{}
	cfg.Root = v.GetString("root")
	cfg.Jobs = v.GetInt("jobs")
	cfg.DB.Driver = v.GetString("db.driver")
	cfg.DB.DSN = v.GetString("db.dsn")
	cfg.History.Enabled = v.GetBool("history.enabled")
	cfg.Metrics.Textfile = v.GetString("metrics.textfile")
	cfg.Log.Debug = v.GetBool("log.debug")
	cfg.CatalogDir = v.GetString("catalog_dir")
	cfg.Include = v.GetStringSlice("include")
	cfg.Exclude = v.GetStringSlice("exclude")

	if cfg.Root == "" {
		return nil, fmt.Errorf("SITEPATCH_ROOT must not be empty")
	}
	if cfg.Jobs < 1 {
		return nil, fmt.Errorf("SITEPATCH_JOBS must be at least 1, got %d", cfg.Jobs)
	}
	if len(cfg.Include) == 0 {
		return nil, fmt.Errorf("SITEPATCH_INCLUDE must list at least one pattern")
	}
	if cfg.History.Enabled {
		switch cfg.DB.Driver {
		case "sqlite3", "mysql", "postgres":
		default:
			return nil, fmt.Errorf("SITEPATCH_DB_DRIVER must be sqlite3, mysql, or postgres, got %q", cfg.DB.Driver)
		}
		if cfg.DB.DSN == "" {
			return nil, fmt.Errorf("SITEPATCH_DB_DSN is required when history is enabled")
		}
	}

	return cfg, nil
}

// HistoryDSN returns the database DSN, resolving a relative SQLite file
// against the site root.
func (c *Config) HistoryDSN() string {
	if c.DB.Driver != "sqlite3" || filepath.IsAbs(c.DB.DSN) || strings.HasPrefix(c.DB.DSN, "file:") {
		return c.DB.DSN
	}
	return filepath.Join(c.Root, c.DB.DSN)
}
