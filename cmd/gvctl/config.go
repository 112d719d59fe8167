package main

import (
	"os"

	"github.com/BurntSushi/toml"
)

// CLIConfig is gvctl's own local config file, distinct from the in-DB
// config table internal/dbconfig manages.
type CLIConfig struct {
	Backend string `toml:"backend"` // "sqlite" or "dolt"
	SQLite  struct {
		Path string `toml:"path"`
	} `toml:"sqlite"`
	Dolt struct {
		Path           string `toml:"path"`
		Database       string `toml:"database"`
		CommitterName  string `toml:"committer_name"`
		CommitterEmail string `toml:"committer_email"`
		ServerMode     bool   `toml:"server_mode"`
		ServerHost     string `toml:"server_host"`
		ServerPort     int    `toml:"server_port"`
		ServerUser     string `toml:"server_user"`
		ServerPassword string `toml:"server_password"`
	} `toml:"dolt"`
}

func defaultConfig() CLIConfig {
	cfg := CLIConfig{Backend: "sqlite"}
	cfg.SQLite.Path = "./gvctl.db"
	return cfg
}

// loadConfig reads path as TOML; a missing file silently yields defaults
// rather than erroring.
func loadConfig(path string) (CLIConfig, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return CLIConfig{}, err
	}
	return cfg, nil
}
