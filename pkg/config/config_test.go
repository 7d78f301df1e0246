package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type sample struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

func (s *sample) Validate() error {
	if s.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func write(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ExpandsEnvAndKeepsDefaults(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "licaudit")
	cfg := &sample{Port: 8080}
	if err := Load(write(t, "name: ${SAMPLE_NAME}\n"), cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "licaudit" || cfg.Port != 8080 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_Validates(t *testing.T) {
	cfg := &sample{}
	if err := Load(write(t, "port: 0\n"), cfg); err == nil {
		t.Error("expected validation error")
	}
}

func TestLoad_BadYAML(t *testing.T) {
	if err := Load(write(t, "port: [\n"), &sample{}); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadOptional(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.yaml")

	cfg := &sample{Port: 9000}
	if err := LoadOptional(missing, cfg); err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if cfg.Port != 9000 {
		t.Errorf("port = %d", cfg.Port)
	}

	if err := LoadOptional(missing, &sample{}); err == nil {
		t.Error("invalid defaults should still fail validation")
	}
	if err := Load(missing, &sample{Port: 1}); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load on missing file = %v", err)
	}
}
