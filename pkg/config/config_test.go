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
	if s.Port == 0 {
		return errors.New("port is required")
	}
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("CARNET_TEST_NAME", "from-env")
	path := writeFile(t, "name: ${CARNET_TEST_NAME}\nport: 9000\n")

	var s sample
	if err := Load(path, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "from-env" || s.Port != 9000 {
		t.Errorf("got %+v", s)
	}
}

func TestLoadValidates(t *testing.T) {
	path := writeFile(t, "name: x\n")
	var s sample
	if err := Load(path, &s); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadOptionalMissingKeepsDefaults(t *testing.T) {
	s := sample{Name: "default", Port: 8080}
	if err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), &s); err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if s.Name != "default" || s.Port != 8080 {
		t.Errorf("got %+v", s)
	}
}

func TestLoadOptionalOverlaysFile(t *testing.T) {
	s := sample{Name: "default", Port: 8080}
	path := writeFile(t, "port: 9001\n")
	if err := LoadOptional(path, &s); err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if s.Name != "default" || s.Port != 9001 {
		t.Errorf("got %+v", s)
	}
}
