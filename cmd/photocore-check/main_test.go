package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func setup(t *testing.T) (configPath string) {
	t.Helper()
	root := t.TempDir()
	formatsDir := filepath.Join(root, "formats")
	catalogDir := filepath.Join(root, "catalog")
	writeFile(t, filepath.Join(formatsDir, "square.json"), `{
		"format_id": "icao-square",
		"dimensions": {"width": 600, "height": 600, "tolerance": 0.02},
		"detection_criteria": {"target_aspect_ratio": 1.0, "tolerance": 0.05}
	}`)
	writeFile(t, filepath.Join(catalogDir, "icao_rules.json"), `{
		"version": "1.0",
		"rules": {"photo_quality": {"sharpness": {"rule_id": "PQ-1", "min_value": 50.0}}}
	}`)
	configPath = filepath.Join(root, "photocore.yaml")
	writeFile(t, configPath, "format_dirs:\n  - "+formatsDir+"\ncatalog_dir: "+catalogDir+"\n")
	return configPath
}

func TestRunIntegrityAndFormats(t *testing.T) {
	cfg := setup(t)
	if code := run([]string{"-config", cfg, "integrity"}); code != 0 {
		t.Fatalf("integrity exit = %d, want 0", code)
	}
	if code := run([]string{"-config", cfg, "formats"}); code != 0 {
		t.Fatalf("formats exit = %d, want 0", code)
	}
}

func TestRunDetect(t *testing.T) {
	cfg := setup(t)
	metaPath := filepath.Join(t.TempDir(), "meta.json")
	writeFile(t, metaPath, `{"width_px": 600, "height_px": 600, "filename": "photo.jpg"}`)
	if code := run([]string{"-config", cfg, "detect", metaPath}); code != 0 {
		t.Fatalf("detect exit = %d, want 0", code)
	}
}

func TestRunValidate(t *testing.T) {
	cfg := setup(t)
	bundlePath := filepath.Join(t.TempDir(), "bundle.json")
	writeFile(t, bundlePath, `{
		"image": {"width_px": 600, "height_px": 600},
		"face": {"detected": true, "height_ratio": 0.65, "eye_height_ratio": 0.55, "center_x": 0.5, "center_y": 0.5},
		"background": {"dominant_rgb": [255, 255, 255], "uniformity": 0.95},
		"quality": {"brightness": 130, "sharpness": 90}
	}`)
	if code := run([]string{"-config", cfg, "validate", "icao-square", bundlePath}); code != 0 {
		t.Fatalf("validate exit = %d, want 0", code)
	}
	if code := run([]string{"-config", cfg, "validate", "missing", bundlePath}); code != 1 {
		t.Fatalf("unknown format exit = %d, want 1", code)
	}
}

func TestRunValidateRecordsReport(t *testing.T) {
	cfg := setup(t)
	dbPath := filepath.Join(t.TempDir(), "reports.db")
	body, err := os.ReadFile(cfg)
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, cfg, string(body)+"reports:\n  driver: sqlite\n  path: "+dbPath+"\n")

	bundlePath := filepath.Join(t.TempDir(), "bundle.json")
	writeFile(t, bundlePath, `{
		"image": {"width_px": 600, "height_px": 600},
		"face": {"detected": true, "height_ratio": 0.65, "eye_height_ratio": 0.55, "center_x": 0.5, "center_y": 0.5},
		"background": {"dominant_rgb": [255, 255, 255], "uniformity": 0.95},
		"quality": {"brightness": 130, "sharpness": 90}
	}`)
	if code := run([]string{"-config", cfg, "validate", "icao-square", bundlePath}); code != 0 {
		t.Fatalf("validate exit = %d, want 0", code)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("report database was not created: %v", err)
	}
}

func TestRunUsageErrors(t *testing.T) {
	if code := run(nil); code != 2 {
		t.Fatalf("no args exit = %d, want 2", code)
	}
	if code := run([]string{"frobnicate"}); code != 2 {
		t.Fatalf("unknown command exit = %d, want 2", code)
	}
}
