package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

// monConfig is the TOML-file configuration; flags override any field.
type monConfig struct {
	Device string `toml:"device"`
	Baud   int    `toml:"baud"`
}

func defaultMonConfig() monConfig {
	return monConfig{
		Device: "/dev/ttyACM0",
		Baud:   115200,
	}
}

// defaultConfigPath is ~/.config/adbmon/config.toml when present.
func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "adbmon", "config.toml")
}

// loadConfig resolves the effective configuration: defaults, then the
// config file, then command-line flags.
func loadConfig(cmd *cobra.Command) (monConfig, error) {
	cfg := defaultMonConfig()

	path, _ := cmd.Flags().GetString("config")
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath()
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			if explicit || !os.IsNotExist(err) {
				return cfg, fmt.Errorf("config %s: %w", path, err)
			}
		}
	}

	if device, _ := cmd.Flags().GetString("device"); device != "" {
		cfg.Device = device
	}
	if baud, _ := cmd.Flags().GetInt("baud"); baud != 0 {
		cfg.Baud = baud
	}
	return cfg, nil
}
