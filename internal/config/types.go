package config

import (
	"fmt"
	"os"
	"time"
)

// Config represents the complete monitor configuration.
// It is loaded once and passed by value into the collector; "reload" means
// constructing a new collector from a freshly loaded Config.
type Config struct {
	Coordinator CoordinatorConfig `yaml:"coordinator" mapstructure:"coordinator"`
	Jellyfin    JellyfinConfig    `yaml:"jellyfin" mapstructure:"jellyfin"`
	Mounts      MountsConfig      `yaml:"mounts" mapstructure:"mounts"`
	Monitor     MonitorConfig     `yaml:"monitor" mapstructure:"monitor"`
}

// CoordinatorConfig describes how to reach the host that runs the Jellyfin
// container and the rffmpeg state (the NAS, in a typical deployment).
type CoordinatorConfig struct {
	// Address is the hostname or IP of the coordinator.
	Address string `yaml:"address" mapstructure:"address"`

	// User is the SSH user on the coordinator. Empty means the current user.
	User string `yaml:"user" mapstructure:"user"`

	// IdentityFile is an optional SSH private key path.
	IdentityFile string `yaml:"identity_file" mapstructure:"identity_file"`

	// SSHTimeout is the ConnectTimeout for coordinator-facing SSH commands.
	SSHTimeout time.Duration `yaml:"ssh_timeout" mapstructure:"ssh_timeout"`
}

// JellyfinConfig describes the Jellyfin container and its optional API.
type JellyfinConfig struct {
	// Container is the docker container name holding Jellyfin and rffmpeg.
	Container string `yaml:"container" mapstructure:"container"`

	// Port is the Jellyfin HTTP port on the coordinator.
	Port int `yaml:"port" mapstructure:"port"`

	// APIKey enables the optional Jellyfin API health check when set.
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
}

// MountsConfig holds the storage paths the probe verifies. The values are
// container-side paths; in remote mode the same fragments are expected to
// appear in the local mount table.
type MountsConfig struct {
	Media string `yaml:"media" mapstructure:"media"`
	Cache string `yaml:"cache" mapstructure:"cache"`
}

// MonitorConfig controls collection cadence and sizing.
type MonitorConfig struct {
	// RefreshInterval is how often the dashboard triggers a collection cycle.
	RefreshInterval time.Duration `yaml:"refresh_interval" mapstructure:"refresh_interval"`

	// LogLines is how many log lines to tail from each log source.
	LogLines int `yaml:"log_lines" mapstructure:"log_lines"`

	// NodeTimeout bounds each per-node diagnostic session.
	NodeTimeout time.Duration `yaml:"node_timeout" mapstructure:"node_timeout"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Coordinator: CoordinatorConfig{
			Address:    "192.168.1.100",
			SSHTimeout: 5 * time.Second,
		},
		Jellyfin: JellyfinConfig{
			Container: "jellyfin",
			Port:      8096,
		},
		Mounts: MountsConfig{
			Media: "/data/media",
			Cache: "/config/cache",
		},
		Monitor: MonitorConfig{
			RefreshInterval: 10 * time.Second,
			LogLines:        100,
			NodeTimeout:     15 * time.Second,
		},
	}
}

// ResolvedUser returns the configured SSH user, falling back to the current
// process user when unset.
func (c *Config) ResolvedUser() string {
	if c.Coordinator.User != "" {
		return c.Coordinator.User
	}
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "root"
}

// JellyfinURL returns the Jellyfin base URL on the coordinator.
func (c *Config) JellyfinURL() string {
	return fmt.Sprintf("http://%s:%d", c.Coordinator.Address, c.Jellyfin.Port)
}
