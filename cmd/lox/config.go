package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/mgomes/loxscript/lox"
)

const configFileName = "lox.toml"

// fileConfig mirrors lox.toml. Every section is optional.
type fileConfig struct {
	Interpreter interpreterConfig `toml:"interpreter"`
	Log         logConfig         `toml:"log"`
	REPL        replConfig        `toml:"repl"`

	// Dir is the directory containing the lox.toml file (set at load time).
	Dir string `toml:"-"`
}

type interpreterConfig struct {
	MaxCallDepth int `toml:"max_call_depth"`
}

type logConfig struct {
	Verbosity int    `toml:"verbosity"`
	Path      string `toml:"path"`
}

type replConfig struct {
	Prompt       string `toml:"prompt"`
	HistoryLimit int    `toml:"history_limit"`
}

func defaultConfig() *fileConfig {
	return &fileConfig{
		REPL: replConfig{
			Prompt:       "lox> ",
			HistoryLimit: 200,
		},
	}
}

// loadConfig parses the config file at path, filling unset values with
// defaults.
func loadConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	cfg := defaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	cfg.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}

	if cfg.Interpreter.MaxCallDepth < 0 {
		return nil, fmt.Errorf("%s: interpreter.max_call_depth must not be negative", path)
	}
	if cfg.Interpreter.MaxCallDepth > lox.MaxCallDepthLimit {
		return nil, fmt.Errorf("%s: interpreter.max_call_depth must be at most %d", path, lox.MaxCallDepthLimit)
	}
	if cfg.REPL.Prompt == "" {
		cfg.REPL.Prompt = "lox> "
	}
	if cfg.REPL.HistoryLimit <= 0 {
		cfg.REPL.HistoryLimit = 200
	}
	if cfg.Log.Path != "" && !filepath.IsAbs(cfg.Log.Path) {
		cfg.Log.Path = filepath.Join(cfg.Dir, cfg.Log.Path)
	}

	return cfg, nil
}

// findAndLoadConfig walks up from startDir to find a lox.toml file. When
// none exists the defaults are returned.
func findAndLoadConfig(startDir string) (*fileConfig, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, configFileName)
		if _, err := os.Stat(path); err == nil {
			return loadConfig(path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return defaultConfig(), nil
		}
		dir = parent
	}
}
