// Package engineconfig loads engine settings from a YAML file with
// environment overrides, providing one authoritative Config for wiring the
// format store, rule catalog, reload manager and supporting stores.
package engineconfig

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the engine-wide configuration.
type Config struct {
	FormatDirs []string      `yaml:"format_dirs"`
	CatalogDir string        `yaml:"catalog_dir"`
	Reload     ReloadConfig  `yaml:"reload"`
	Backup     BackupConfig  `yaml:"backup"`
	Reports    ReportsConfig `yaml:"reports"`
	Metrics    MetricsConfig `yaml:"metrics"`
	LogLevel   string        `yaml:"log_level"`
}

// ReloadConfig governs the hot-reload manager.
type ReloadConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Debounce   time.Duration `yaml:"debounce"`
	MaxBackups int           `yaml:"max_backups"`
}

// UnmarshalYAML accepts Go duration strings for the debounce interval and
// leaves fields the document omits at their current values.
func (r *ReloadConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Enabled    *bool  `yaml:"enabled"`
		Debounce   string `yaml:"debounce"`
		MaxBackups *int   `yaml:"max_backups"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.Enabled != nil {
		r.Enabled = *raw.Enabled
	}
	if raw.Debounce != "" {
		d, err := time.ParseDuration(raw.Debounce)
		if err != nil {
			return fmt.Errorf("config: bad reload debounce %q: %w", raw.Debounce, err)
		}
		r.Debounce = d
	}
	if raw.MaxBackups != nil {
		r.MaxBackups = *raw.MaxBackups
	}
	return nil
}

// BackupConfig selects where configuration backups are archived.
type BackupConfig struct {
	Driver string `yaml:"driver"`
	Root   string `yaml:"root"`
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
}

// ReportsConfig selects where compliance reports are recorded.
type ReportsConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}

// MetricsConfig names the Prometheus namespace.
type MetricsConfig struct {
	Namespace string `yaml:"namespace"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		FormatDirs: []string{"configs/formats"},
		CatalogDir: "configs/catalog",
		Reload: ReloadConfig{
			Enabled:    true,
			Debounce:   500 * time.Millisecond,
			MaxBackups: 10,
		},
		Backup:   BackupConfig{Driver: "fs", Root: "backups"},
		Reports:  ReportsConfig{Driver: "memory"},
		Metrics:  MetricsConfig{Namespace: "photocore"},
		LogLevel: "info",
	}
}

// Load reads the YAML file at path, layers environment overrides on top and
// validates the result. A missing file is not an error; defaults plus
// environment apply.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the engine cannot run with.
func (c Config) Validate() error {
	if len(c.FormatDirs) == 0 {
		return fmt.Errorf("config: at least one format directory is required")
	}
	if c.Reload.Debounce <= 0 {
		return fmt.Errorf("config: reload debounce must be positive, got %s", c.Reload.Debounce)
	}
	switch c.Backup.Driver {
	case "fs", "memory", "s3":
	default:
		return fmt.Errorf("config: unknown backup driver %q", c.Backup.Driver)
	}
	switch c.Reports.Driver {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unknown reports driver %q", c.Reports.Driver)
	}
	if c.Backup.Driver == "s3" && c.Backup.Bucket == "" {
		return fmt.Errorf("config: s3 backup driver requires a bucket")
	}
	if c.Reports.Driver == "sqlite" && c.Reports.Path == "" {
		return fmt.Errorf("config: sqlite reports driver requires a path")
	}
	if c.Reports.Driver == "postgres" && c.Reports.DSN == "" {
		return fmt.Errorf("config: postgres reports driver requires a dsn")
	}
	return nil
}

// Environment variables override file values so deployments can retarget a
// packaged config without editing it.
func applyEnv(cfg *Config) {
	if v := os.Getenv("PHOTOCORE_FORMAT_DIRS"); v != "" {
		cfg.FormatDirs = splitList(v)
	}
	if v := os.Getenv("PHOTOCORE_CATALOG_DIR"); v != "" {
		cfg.CatalogDir = v
	}
	if v := os.Getenv("PHOTOCORE_RELOAD_DEBOUNCE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Reload.Debounce = d
		}
	}
	if v := os.Getenv("PHOTOCORE_RELOAD_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Reload.Enabled = b
		}
	}
	if v := os.Getenv("PHOTOCORE_BACKUP_DRIVER"); v != "" {
		cfg.Backup.Driver = v
	}
	if v := os.Getenv("PHOTOCORE_BACKUP_BUCKET"); v != "" {
		cfg.Backup.Bucket = v
	}
	if v := os.Getenv("PHOTOCORE_REPORTS_DRIVER"); v != "" {
		cfg.Reports.Driver = v
	}
	if v := os.Getenv("PHOTOCORE_REPORTS_DSN"); v != "" {
		cfg.Reports.DSN = v
	}
	if v := os.Getenv("PHOTOCORE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
