// Package config loads the gateway's JSON configuration documents, the way
// main.cpp's load_configuration_json does: every file named on argv is
// parsed and merged and unknown keys are ignored. Loading stops at the
// first missing/malformed file: Load reports it and returns what was
// merged from the files before it.
package config

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// Config is the recognised subset of the gateway's JSON configuration.
// Unknown top-level keys are ignored (encoding/json does this by default
// since we don't set DisallowUnknownFields).
type Config struct {
	// Bind lists listen addresses; every element is bound and listened on.
	Bind []string `json:"bind"`

	// Backlog is the listen backlog depth. Not present in spec.md's
	// configuration surface but supplemented from original_source's
	// default_backlog usage in main.cpp; zero means "let the runtime pick".
	Backlog int `json:"backlog"`
}

// Load reads and merges one JSON document per path. Bind addresses
// accumulate across documents; the last document to set Backlog wins.
func Load(paths []string) (Config, error) {
	var cfg Config
	for _, p := range paths {
		if err := loadOne(p, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "loading config %q", p)
		}
	}
	return cfg, nil
}

func loadOne(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var doc Config
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	cfg.Bind = append(cfg.Bind, doc.Bind...)
	if doc.Backlog != 0 {
		cfg.Backlog = doc.Backlog
	}
	return nil
}
