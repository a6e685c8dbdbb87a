package collector

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/transcodarr/monitor/internal/target"
)

const pathCheckTimeout = 5 * time.Second

// checkTransport verifies the coordinator is reachable by echoing through
// the resolved transport. A timeout maps to Disconnected, not Error: an
// unreachable host and a broken session are distinct failure kinds and
// the display treats them differently.
func (c *Collector) checkTransport(ctx context.Context) (ConnectionStatus, string) {
	timeout := c.cfg.Coordinator.SSHTimeout + 2*time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := c.runner.Run(ctx, c.resolver.SSHCommand("echo ok"))
	if err != nil {
		if target.IsTimeout(err) {
			return StatusDisconnected, "Connection timeout"
		}
		return StatusError, truncate(err.Error(), 100)
	}

	if result.ExitCode == 0 && strings.Contains(result.Stdout, "ok") {
		return StatusConnected, ""
	}
	return StatusError, c.classifyTransportError(result.Stderr)
}

// classifyTransportError folds raw SSH stderr into a short user-facing
// diagnostic.
func (c *Collector) classifyTransportError(stderr string) string {
	msg := strings.TrimSpace(stderr)
	user := c.cfg.ResolvedUser()
	addr := c.cfg.Coordinator.Address

	switch {
	case strings.Contains(msg, "Permission denied") || strings.Contains(strings.ToLower(msg), "password"):
		return fmt.Sprintf("Auth failed for %s@%s", user, addr)
	case strings.Contains(msg, "Connection refused"):
		return fmt.Sprintf("SSH refused at %s:22", addr)
	case strings.Contains(msg, "No route to host") || strings.Contains(msg, "Host unreachable"):
		return fmt.Sprintf("Cannot reach %s", addr)
	default:
		return truncate(msg, 100)
	}
}

// checkMounts inspects the local mount table for the expected media and
// cache shares. Remote mode only: the workstation mounts the coordinator's
// storage over NFS, so a missing entry means stale or absent mounts.
func (c *Collector) checkMounts(ctx context.Context) (media, cache channelStatus) {
	result, err := c.runner.Run(ctx, []string{"mount"})
	if err != nil {
		status := channelStatus{StatusError, truncate(err.Error(), 50)}
		return status, status
	}

	table := result.Stdout
	if strings.Contains(table, c.cfg.Mounts.Media) {
		media = channelStatus{StatusConnected, ""}
	} else {
		media = channelStatus{StatusDisconnected, "Not mounted"}
	}

	lower := strings.ToLower(table)
	switch {
	case strings.Contains(lower, "jellyfin") && strings.Contains(lower, "cache"),
		strings.Contains(table, c.cfg.Mounts.Cache):
		cache = channelStatus{StatusConnected, ""}
	default:
		cache = channelStatus{StatusDisconnected, "Not mounted"}
	}
	return media, cache
}

// checkContainerPath verifies a directory exists inside the coordinator's
// container. Local mode replaces the host mount-table check with this,
// since host and container path layouts differ; falling back to the host
// table would report the wrong namespace.
func (c *Collector) checkContainerPath(ctx context.Context, dir string) channelStatus {
	ctx, cancel := context.WithTimeout(ctx, pathCheckTimeout)
	defer cancel()

	cmd := c.resolver.ContainerCommand("test -d " + dir + " && echo ok")
	result, err := c.runner.Run(ctx, cmd)
	if err != nil {
		return channelStatus{StatusError, "Check failed"}
	}
	if strings.Contains(result.Stdout, "ok") {
		return channelStatus{StatusConnected, ""}
	}
	return channelStatus{StatusDisconnected, dir + " not in container"}
}

// checkJellyfinAPI optionally verifies the media server's HTTP API. Skipped
// (reported Disconnected) when no API key is configured.
func (c *Collector) checkJellyfinAPI(ctx context.Context) channelStatus {
	if c.cfg.Jellyfin.APIKey == "" {
		return channelStatus{StatusDisconnected, "No API key"}
	}

	ctx, cancel := context.WithTimeout(ctx, pathCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.JellyfinURL()+"/System/Info", nil)
	if err != nil {
		return channelStatus{StatusError, truncate(err.Error(), 50)}
	}
	req.Header.Set("X-Emby-Token", c.cfg.Jellyfin.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return channelStatus{StatusError, truncate(err.Error(), 50)}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return channelStatus{StatusConnected, ""}
	}
	return channelStatus{StatusError, fmt.Sprintf("HTTP %d", resp.StatusCode)}
}

// channelStatus pairs a status with its diagnostic for one channel.
type channelStatus struct {
	status ConnectionStatus
	err    string
}

// truncate caps a diagnostic string at max bytes without splitting a
// multi-byte rune, so SSH stderr in any locale stays printable.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
