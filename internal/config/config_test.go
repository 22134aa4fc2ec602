package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATA_ROOT", "")
	t.Setenv("SIMILARITY_BUILD_CAP", "")
	t.Setenv("LISTEN_ADDR", "")
	t.Setenv("DATETIME_RULES_PATH", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Data.Root != "./data" {
		t.Errorf("expected default data root './data', got '%s'", cfg.Data.Root)
	}
	if cfg.Similarity.BuildCap != 2500 {
		t.Errorf("expected default build cap 2500, got %d", cfg.Similarity.BuildCap)
	}
	if cfg.Web.ListenAddr != ":8080" {
		t.Errorf("expected default listen addr ':8080', got '%s'", cfg.Web.ListenAddr)
	}
	if len(cfg.DatetimeRules) != 4 {
		t.Fatalf("expected 4 embedded datetime rules, got %d", len(cfg.DatetimeRules))
	}
	if cfg.DatetimeRules[0].ExifTag != "EXIF:DateTimeOriginal" {
		t.Errorf("unexpected first rule tag '%s'", cfg.DatetimeRules[0].ExifTag)
	}
	if cfg.DatetimeRules[1].ReportTZ != "gps_timezonefinder" {
		t.Errorf("unexpected second rule report tz '%s'", cfg.DatetimeRules[1].ReportTZ)
	}
}

func TestLoadDatetimeRulesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `rules:
  - id: 1
    name: mtime only
    rule_type: filesystem
    file_property: mtime
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DATETIME_RULES_PATH", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(cfg.DatetimeRules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(cfg.DatetimeRules))
	}
	if cfg.DatetimeRules[0].FileProperty != "mtime" {
		t.Errorf("unexpected rule: %+v", cfg.DatetimeRules[0])
	}
}

func TestLoadDatetimeRulesBadFile(t *testing.T) {
	t.Setenv("DATETIME_RULES_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Error("expected error for missing rules file")
	}
}

func TestEnvHelpers(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int
	}{
		{"unset", "", 42},
		{"valid", "7", 7},
		{"invalid", "abc", 42},
		{"negative", "-3", 42},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("TEST_ENV_INT", tc.value)
			if got := envInt("TEST_ENV_INT", 42); got != tc.want {
				t.Errorf("envInt(%q) = %d, want %d", tc.value, got, tc.want)
			}
		})
	}

	t.Setenv("TEST_ENV_FLOAT", "0.25")
	if got := envFloat("TEST_ENV_FLOAT", 1); got != 0.25 {
		t.Errorf("envFloat = %v, want 0.25", got)
	}
}
