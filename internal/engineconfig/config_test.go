package engineconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Reload.Debounce != 500*time.Millisecond {
		t.Fatalf("debounce = %s, want default 500ms", cfg.Reload.Debounce)
	}
	if cfg.Backup.Driver != "fs" || cfg.Reports.Driver != "memory" {
		t.Fatalf("drivers = %s/%s, want fs/memory", cfg.Backup.Driver, cfg.Reports.Driver)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photocore.yaml")
	body := `
format_dirs:
  - /etc/photocore/formats
catalog_dir: /etc/photocore/catalog
reload:
  enabled: true
  debounce: 250ms
backup:
  driver: memory
reports:
  driver: sqlite
  path: /var/lib/photocore/reports.db
metrics:
  namespace: veridoc
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.FormatDirs) != 1 || cfg.FormatDirs[0] != "/etc/photocore/formats" {
		t.Fatalf("format dirs = %v", cfg.FormatDirs)
	}
	if cfg.Reload.Debounce != 250*time.Millisecond {
		t.Fatalf("debounce = %s, want 250ms", cfg.Reload.Debounce)
	}
	if cfg.Reports.Driver != "sqlite" || cfg.Reports.Path == "" {
		t.Fatalf("reports = %+v", cfg.Reports)
	}
	if cfg.Metrics.Namespace != "veridoc" {
		t.Fatalf("namespace = %q", cfg.Metrics.Namespace)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("log level = %q, want default retained", cfg.LogLevel)
	}
}

func TestLoadEnvironmentWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photocore.yaml")
	if err := os.WriteFile(path, []byte("reports:\n  driver: memory\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("PHOTOCORE_REPORTS_DRIVER", "postgres")
	t.Setenv("PHOTOCORE_REPORTS_DSN", "postgres://localhost/photocore")
	t.Setenv("PHOTOCORE_RELOAD_DEBOUNCE", "2s")
	t.Setenv("PHOTOCORE_FORMAT_DIRS", "/a, /b ,")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Reports.Driver != "postgres" {
		t.Fatalf("driver = %q, want postgres", cfg.Reports.Driver)
	}
	if cfg.Reload.Debounce != 2*time.Second {
		t.Fatalf("debounce = %s, want 2s", cfg.Reload.Debounce)
	}
	if len(cfg.FormatDirs) != 2 || cfg.FormatDirs[1] != "/b" {
		t.Fatalf("format dirs = %v", cfg.FormatDirs)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no format dirs", func(c *Config) { c.FormatDirs = nil }},
		{"zero debounce", func(c *Config) { c.Reload.Debounce = 0 }},
		{"unknown backup driver", func(c *Config) { c.Backup.Driver = "tape" }},
		{"unknown reports driver", func(c *Config) { c.Reports.Driver = "csv" }},
		{"s3 without bucket", func(c *Config) { c.Backup.Driver = "s3"; c.Backup.Bucket = "" }},
		{"sqlite without path", func(c *Config) { c.Reports.Driver = "sqlite"; c.Reports.Path = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
