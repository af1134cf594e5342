package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type sample struct {
	Name  string `yaml:"name"`
	Port  int    `yaml:"port"`
	Token string `yaml:"token"`
}

func (s *sample) Validate() error {
	if s.Port <= 0 {
		return errors.New("port must be positive")
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

func TestLoad_ExpandsEnvAndKeepsDefaults(t *testing.T) {
	t.Setenv("MIDING_TEST_TOKEN", "s3cret")
	path := writeFile(t, "port: 9090\ntoken: ${MIDING_TEST_TOKEN}\n")

	got := sample{Name: "default", Port: 1}
	if err := Load(path, &got); err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := sample{Name: "default", Port: 9090, Token: "s3cret"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_ValidationError(t *testing.T) {
	path := writeFile(t, "port: 0\n")
	var got sample
	if err := Load(path, &got); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	var got sample
	if err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &got); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadOptional(t *testing.T) {
	got := sample{Port: 8080}
	loaded, err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), &got)
	if err != nil || loaded {
		t.Fatalf("missing file: loaded=%v err=%v", loaded, err)
	}
	if got.Port != 8080 {
		t.Errorf("defaults changed: %+v", got)
	}

	bad := sample{}
	if _, err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), &bad); err == nil {
		t.Error("defaults should still be validated")
	}

	path := writeFile(t, "port: 7000\n")
	loaded, err = LoadOptional(path, &got)
	if err != nil || !loaded || got.Port != 7000 {
		t.Errorf("existing file: loaded=%v err=%v cfg=%+v", loaded, err, got)
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("MIDING_SET", "value")
	t.Setenv("MIDING_EMPTY", "")

	tests := []struct {
		in, want string
	}{
		{"${MIDING_SET}", "value"},
		{"$MIDING_SET", "value"},
		{"${MIDING_UNSET_VAR}", ""},
		{"${MIDING_UNSET_VAR:-./notes}", "./notes"},
		{"${MIDING_EMPTY:-fallback}", "fallback"},
		{"${MIDING_SET:-fallback}", "value"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := ExpandEnv(tt.in); got != tt.want {
			t.Errorf("ExpandEnv(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
