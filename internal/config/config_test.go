package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadParsesKnownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	body := "optLevel: \"1\"\nemitIR: true\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OptLevel != "1" {
		t.Errorf("OptLevel = %q, want %q", cfg.OptLevel, "1")
	}
	if !cfg.EmitIR {
		t.Errorf("EmitIR = false, want true")
	}
}

func TestDiscoverReturnsZeroValueWhenAbsent(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "prog.usc")

	cfg, err := Discover(source)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if cfg.OptLevel != "" || cfg.EmitAST || cfg.EmitIR {
		t.Fatalf("Discover with no config file = %+v, want a zero Config", cfg)
	}
}

func TestDiscoverFindsConfigNextToSource(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "prog.usc")
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("optLevel: \"2\"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Discover(source)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if cfg.OptLevel != "2" {
		t.Errorf("OptLevel = %q, want %q", cfg.OptLevel, "2")
	}
}
