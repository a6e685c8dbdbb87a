// Package target decides where diagnostic commands execute and builds the
// argument lists that put them there.
//
// The monitor can run in two environments: co-located with the fleet
// coordinator ("local mode", typically directly on the NAS) or on a separate
// workstation that reaches the coordinator over SSH ("remote mode"). Every
// other component asks the Resolver to place a command rather than branching
// on the mode itself.
package target

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/transcodarr/monitor/internal/config"
	"github.com/transcodarr/monitor/internal/logger"
	"github.com/transcodarr/monitor/internal/util"
)

const (
	// synologyMarker is a distribution-specific file that only exists on
	// Synology DSM. Its presence is the strongest local-mode signal.
	synologyMarker = "/etc/synoinfo.conf"

	// fleetRoot is the Synology volume root. Its absence rules local mode out.
	fleetRoot = "/volume1"

	// containerKeyPath is where rffmpeg keeps the SSH key it uses to reach
	// fleet members, inside the Jellyfin container.
	containerKeyPath = "/config/rffmpeg/.ssh/id_rsa"

	// controlPersist keeps multiplexed SSH connections alive between cycles
	// so interactive password auth is only needed once.
	controlPersist = "600"

	// detectTimeout bounds the docker probe during mode detection.
	detectTimeout = 5 * time.Second
)

// pathExists checks a filesystem path; overridable in tests.
var pathExists = func(path string) bool {
	return fileExists(path)
}

// Resolver builds argument lists that execute a command in the right place:
// the local shell, the coordinator over SSH, or nested inside the Jellyfin
// container. Mode detection runs once and is cached for the process lifetime.
type Resolver struct {
	cfg    config.Config
	runner Runner
	log    logger.Logger

	detectOnce sync.Once
	local      bool
}

// NewResolver creates a Resolver for the given configuration. The runner is
// only used for the container probe during mode detection.
func NewResolver(cfg config.Config, runner Runner, log logger.Logger) *Resolver {
	if log == nil {
		log = logger.Noop()
	}
	return &Resolver{cfg: cfg, runner: runner, log: log}
}

// Local reports whether the monitor is co-located with the coordinator.
//
// Detection steps, in order:
//  1. The Synology marker file exists: local.
//  2. The fleet root path is missing: remote.
//  3. Probe whether docker (plain, then sudo -n) can see the Jellyfin
//     container: local if it can.
//  4. Probe failed but the fleet root exists: still local. Docker probably
//     just needs interactive sudo, which a background probe cannot provide.
func (r *Resolver) Local() bool {
	r.detectOnce.Do(func() {
		r.local = r.detect()
		r.log.Debug("target mode: local=%v", r.local)
	})
	return r.local
}

func (r *Resolver) detect() bool {
	if pathExists(synologyMarker) {
		return true
	}

	if !pathExists(fleetRoot) {
		return false
	}

	probe := []string{"ps", "-q", "-f", "name=" + r.cfg.Jellyfin.Container}
	for _, docker := range [][]string{{"docker"}, {"sudo", "-n", "docker"}} {
		ctx, cancel := context.WithTimeout(context.Background(), detectTimeout)
		result, err := r.runner.Run(ctx, append(docker, probe...))
		cancel()
		if err != nil {
			continue
		}
		if result.ExitCode == 0 && strings.TrimSpace(result.Stdout) != "" {
			return true
		}
	}

	// Fleet root exists but the docker check failed; assume local anyway.
	return true
}

// SSHCommand builds the argument list that runs cmd on the coordinator over
// SSH. All transport options are fixed, explicit arguments; only cmd itself
// is handed to the remote shell for interpretation.
func (r *Resolver) SSHCommand(cmd string) []string {
	user := r.sshUser()
	addr := r.sshAddress()

	args := []string{"ssh",
		"-o", fmt.Sprintf("ConnectTimeout=%d", int(r.sshTimeout().Seconds())),
		"-o", "StrictHostKeyChecking=no",
		"-o", "UserKnownHostsFile=/dev/null",
		"-o", "LogLevel=ERROR",
		// Reuse one authenticated connection across the cycle's probes.
		"-o", fmt.Sprintf("ControlPath=/tmp/ssh-transcodarr-%s@%s", user, addr),
		"-o", "ControlMaster=auto",
		"-o", "ControlPersist=" + controlPersist,
	}

	if identity := r.identityFile(); identity != "" {
		args = append(args, "-i", identity)
	}

	args = append(args, user+"@"+addr, cmd)
	return args
}

// LocalCommand builds the argument list that runs cmd through the local
// shell. Used in local mode where docker access may require sudo.
func (r *Resolver) LocalCommand(cmd string) []string {
	return []string{"sh", "-c", cmd}
}

// ContainerCommand builds the argument list that runs cmd inside the
// Jellyfin container, routed through SSH in remote mode and through
// sudo docker in local mode.
func (r *Resolver) ContainerCommand(cmd string) []string {
	if r.Local() {
		// On Synology, docker typically requires sudo.
		return r.LocalCommand("sudo docker exec " + r.cfg.Jellyfin.Container + " " + cmd)
	}
	// Over SSH, the remote user is expected to have docker permissions.
	return r.SSHCommand("docker exec " + r.cfg.Jellyfin.Container + " " + cmd)
}

// NodeCommand builds the argument list that runs cmd on a fleet member.
//
// In remote mode the workstation reaches the node directly. In local mode
// the session has to originate inside the Jellyfin container: only the
// container holds the rffmpeg key that fleet members trust, so the node hop
// is nested through docker exec.
func (r *Resolver) NodeCommand(nodeAddr, cmd string) []string {
	if !r.Local() {
		args := []string{"ssh",
			"-o", fmt.Sprintf("ConnectTimeout=%d", int(r.sshTimeout().Seconds())),
			"-o", "StrictHostKeyChecking=no",
			"-o", "UserKnownHostsFile=/dev/null",
			"-o", "LogLevel=ERROR",
		}
		if identity := r.identityFile(); identity != "" {
			args = append(args, "-i", identity)
		}
		args = append(args, r.nodeUser(nodeAddr)+"@"+nodeAddr, cmd)
		return args
	}

	inner := fmt.Sprintf(
		"ssh -o ConnectTimeout=%d -o StrictHostKeyChecking=no -o UserKnownHostsFile=/dev/null -o LogLevel=ERROR -i %s %s@%s %s",
		int(r.sshTimeout().Seconds()),
		containerKeyPath,
		r.nodeUser(nodeAddr), nodeAddr,
		util.ShellQuote(cmd),
	)
	return r.LocalCommand("sudo docker exec " + r.cfg.Jellyfin.Container + " " + inner)
}

// sshAddress returns the coordinator address, honoring a HostName override
// from ~/.ssh/config when the configured address is an alias.
func (r *Resolver) sshAddress() string {
	if d := resolveHostDefaults(r.cfg.Coordinator.Address); d.hostname != "" {
		return d.hostname
	}
	return r.cfg.Coordinator.Address
}

// sshUser returns the coordinator SSH user: monitor config first, then
// ~/.ssh/config, then the current process user.
func (r *Resolver) sshUser() string {
	if r.cfg.Coordinator.User != "" {
		return r.cfg.Coordinator.User
	}
	if d := resolveHostDefaults(r.cfg.Coordinator.Address); d.user != "" {
		return d.user
	}
	return r.cfg.ResolvedUser()
}

// nodeUser resolves the SSH user for a fleet member the same way.
func (r *Resolver) nodeUser(nodeAddr string) string {
	if d := resolveHostDefaults(nodeAddr); d.user != "" {
		return d.user
	}
	return r.cfg.ResolvedUser()
}

// identityFile returns the key to offer: monitor config first, then
// ~/.ssh/config, then the first default key present on disk.
func (r *Resolver) identityFile() string {
	if r.cfg.Coordinator.IdentityFile != "" {
		return r.cfg.Coordinator.IdentityFile
	}
	if d := resolveHostDefaults(r.cfg.Coordinator.Address); d.identityFile != "" {
		return d.identityFile
	}
	return defaultIdentityFile()
}

func (r *Resolver) sshTimeout() time.Duration {
	if r.cfg.Coordinator.SSHTimeout > 0 {
		return r.cfg.Coordinator.SSHTimeout
	}
	return 5 * time.Second
}
