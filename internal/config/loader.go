package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/transcodarr/monitor/internal/errors"
)

const (
	// GlobalConfigDir is the directory for the monitor config, under $HOME.
	GlobalConfigDir = ".config/transcodarr"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yaml"
)

// Load reads config from the specified path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Config file not found",
				"Run 'transcodarr-monitor init' to create one, or specify it with --config")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read config file",
			"Check the file exists and is valid YAML")
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax in "+path)
	}

	return cfg, nil
}

// Find locates the config file:
// 1. Explicit path (from --config flag)
// 2. ~/.config/transcodarr/config.yaml
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", nil
	}

	global := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
	if _, err := os.Stat(global); err == nil {
		return global, nil
	}

	return "", nil
}

// LoadOrDefault loads config from the found path, or returns defaults if
// no config file exists.
func LoadOrDefault(explicit string) (*Config, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, err
	}

	if path == "" {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// setDefaults mirrors DefaultConfig for keys absent from the file, so a
// partial config file still unmarshals into a complete Config.
func setDefaults(v *viper.Viper) {
	v.SetDefault("coordinator.address", "192.168.1.100")
	v.SetDefault("coordinator.ssh_timeout", "5s")
	v.SetDefault("jellyfin.container", "jellyfin")
	v.SetDefault("jellyfin.port", 8096)
	v.SetDefault("mounts.media", "/data/media")
	v.SetDefault("mounts.cache", "/config/cache")
	v.SetDefault("monitor.refresh_interval", "10s")
	v.SetDefault("monitor.log_lines", 100)
	v.SetDefault("monitor.node_timeout", "15s")
}
