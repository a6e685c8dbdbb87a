package target

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/kevinburke/ssh_config"
)

// hostDefaults are connection settings resolved from ~/.ssh/config.
type hostDefaults struct {
	hostname     string
	user         string
	identityFile string
}

// resolveHostDefaults consults the user's SSH config for the given host or
// alias. Values the config does not set come back empty; callers layer the
// monitor config and process defaults on top.
func resolveHostDefaults(host string) hostDefaults {
	var d hostDefaults

	if hostname := ssh_config.Get(host, "HostName"); hostname != "" && hostname != host {
		d.hostname = hostname
	}
	if user := ssh_config.Get(host, "User"); user != "" {
		d.user = user
	}

	identity := ssh_config.Get(host, "IdentityFile")
	// The library returns the protocol-1 default when nothing is configured;
	// treat it as unset.
	if identity != "" && identity != ssh_config.Default("IdentityFile") {
		d.identityFile = expandPath(identity)
	}

	return d
}

// defaultIdentityFile returns the first default key that exists on disk,
// or empty if none do.
func defaultIdentityFile() string {
	home := homeDir()
	if home == "" {
		return ""
	}

	candidates := []string{
		filepath.Join(home, ".ssh", "id_ed25519"),
		filepath.Join(home, ".ssh", "id_rsa"),
		filepath.Join(home, ".ssh", "id_ecdsa"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}
