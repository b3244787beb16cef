// Package config loads the optional per-project `.usccrc.yaml` file
// (spec.md §4.10, ADDED): defaults for the optimization level and which
// artifacts to emit, so a project doesn't have to repeat the same flags
// on every invocation. Grounded on the yaml.v3 struct-tag idiom found in
// raymyers-ralph-cc-go's test fixtures, the only gopkg.in/yaml.v3 usage
// in the retrieved corpus.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the config file's fixed name, auto-discovered next to the
// source file being compiled unless --config overrides it.
const FileName = ".usccrc.yaml"

// Config is the schema of .usccrc.yaml.
type Config struct {
	// OptLevel is the default -O level ("0", "1", ...) applied when the
	// CLI's -O flag is not given explicitly.
	OptLevel string `yaml:"optLevel,omitempty"`

	// EmitAST mirrors -emit-ast's default.
	EmitAST bool `yaml:"emitAST,omitempty"`

	// EmitIR mirrors -emit-ir's default.
	EmitIR bool `yaml:"emitIR,omitempty"`

	// EmitBC, if non-empty, is the default -emit-bc output path.
	EmitBC string `yaml:"emitBC,omitempty"`

	// EmitAsm, if non-empty, is the default -emit-asm output path.
	EmitAsm string `yaml:"emitAsm,omitempty"`
}

// Load reads and parses path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &c, nil
}

// Discover looks for FileName next to sourcePath and loads it if present.
// It returns a zero Config, not an error, when no config file exists --
// the config layer is purely additive convenience, never a requirement
// (spec.md §4.10).
func Discover(sourcePath string) (*Config, error) {
	candidate := filepath.Join(filepath.Dir(sourcePath), FileName)
	if _, err := os.Stat(candidate); err != nil {
		return &Config{}, nil
	}
	return Load(candidate)
}
