package collector

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/transcodarr/monitor/internal/config"
	"github.com/transcodarr/monitor/internal/errors"
	"github.com/transcodarr/monitor/internal/logger"
	"github.com/transcodarr/monitor/internal/target"
)

// Log files inside the coordinator's container.
const (
	controllerLogPath   = "/config/log/rffmpeg.log"
	loadBalancerLogPath = "/config/log/rffmpeg-lb.log"
)

const fleetStatusTimeout = 10 * time.Second

// Target builds the argument list that runs a command in the right place:
// local shell, over SSH, inside the coordinator's container, or on a fleet
// member. Satisfied by *target.Resolver.
type Target interface {
	Local() bool
	SSHCommand(cmd string) []string
	LocalCommand(cmd string) []string
	ContainerCommand(cmd string) []string
	NodeCommand(nodeAddr, cmd string) []string
}

// Collector runs one collection cycle at a time and publishes the result
// as an immutable snapshot. Configuration is fixed for the life of the
// instance; reloading config means constructing a new Collector.
type Collector struct {
	cfg      config.Config
	resolver Target
	runner   target.Runner
	http     *http.Client
	log      logger.Logger

	mu   sync.RWMutex
	data CollectedData
}

// New creates a Collector. The resolver decides where each command runs;
// the runner executes the built argument lists.
func New(cfg config.Config, resolver Target, runner target.Runner, log logger.Logger) *Collector {
	if log == nil {
		log = logger.Noop()
	}
	return &Collector{
		cfg:      cfg,
		resolver: resolver,
		runner:   runner,
		http:     &http.Client{},
		log:      log,
	}
}

// Snapshot returns the most recently completed cycle's data. Safe to call
// from the display layer while a cycle is in flight.
func (c *Collector) Snapshot() CollectedData {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data
}

// Collect runs one full collection cycle and publishes the snapshot.
//
// Phase 1 establishes connectivity (and, in remote mode, scrapes local
// ffmpeg processes alongside). Phase 2 runs only once the transport
// status is known: fleet status and logs first, then node stats fanned
// out across every discovered member. Each probe captures its own
// failure as a status value; one probe failing never stops the others.
//
// The only cycle-fatal outcome is an internal fault in aggregation
// itself, returned as an error with the previous snapshot left intact.
func (c *Collector) Collect(ctx context.Context) (data CollectedData, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New(errors.ErrUnavailable,
				fmt.Sprintf("Collection cycle failed: %v", r),
				"This is a bug in the monitor; the previous snapshot is preserved.")
			data = c.Snapshot()
		}
	}()

	data = CollectedData{
		Status: SystemStatus{
			Transport: StatusChecking,
			Media:     StatusChecking,
			Cache:     StatusChecking,
			Jellyfin:  StatusChecking,
			LocalMode: c.resolver.Local(),
		},
	}

	if data.Status.LocalMode {
		c.collectLocalPhase1(ctx, &data)
	} else {
		c.collectRemotePhase1(ctx, &data)
	}

	// Node and job discovery is meaningless without a live transport.
	if data.Status.Transport == StatusConnected {
		c.collectPhase2(ctx, &data)
	}

	data.LastUpdated = time.Now()

	c.mu.Lock()
	c.data = data
	c.mu.Unlock()
	return data, nil
}

// collectLocalPhase1 handles connectivity when the monitor runs on the
// coordinator host itself: no SSH hop exists, so the transport channel is
// trivially up and the storage checks run inside the container's mount
// namespace.
func (c *Collector) collectLocalPhase1(ctx context.Context, data *CollectedData) {
	data.Status.Transport = StatusConnected

	var wg sync.WaitGroup
	// Each goroutine writes a disjoint set of fields.
	wg.Add(3)
	go func() {
		defer wg.Done()
		s := c.checkContainerPath(ctx, c.cfg.Mounts.Media)
		data.Status.Media, data.Status.MediaError = s.status, s.err
	}()
	go func() {
		defer wg.Done()
		s := c.checkContainerPath(ctx, c.cfg.Mounts.Cache)
		data.Status.Cache, data.Status.CacheError = s.status, s.err
	}()
	go func() {
		defer wg.Done()
		s := c.checkJellyfinAPI(ctx)
		data.Status.Jellyfin, data.Status.JellyfinError = s.status, s.err
	}()
	wg.Wait()
}

// collectRemotePhase1 probes the SSH transport and the workstation's NFS
// mounts, and scrapes ffmpeg processes running on the workstation itself.
func (c *Collector) collectRemotePhase1(ctx context.Context, data *CollectedData) {
	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		data.Status.Transport, data.Status.TransportError = c.checkTransport(ctx)
	}()
	go func() {
		defer wg.Done()
		media, cache := c.checkMounts(ctx)
		data.Status.Media, data.Status.MediaError = media.status, media.err
		data.Status.Cache, data.Status.CacheError = cache.status, cache.err
	}()
	go func() {
		defer wg.Done()
		data.Jobs = append(data.Jobs, c.scrapeLocalProcesses(ctx)...)
	}()
	go func() {
		defer wg.Done()
		s := c.checkJellyfinAPI(ctx)
		data.Status.Jellyfin, data.Status.JellyfinError = s.status, s.err
	}()
	wg.Wait()
}

// collectPhase2 gathers coordinator-side data (fleet status, logs) and
// fans out across fleet members for per-node stats and jobs.
func (c *Collector) collectPhase2(ctx context.Context, data *CollectedData) {
	var (
		wg    sync.WaitGroup
		fleet []FleetHost
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		fleet = c.fetchFleetStatus(ctx)
	}()
	go func() {
		defer wg.Done()
		data.Logs = c.fetchLogs(ctx)
		data.History = deriveHistory(data.Logs)
	}()
	wg.Wait()

	if len(fleet) == 0 {
		return
	}

	jobsToday := jobsCompletedToday(data.History, time.Now())

	nodes := make([]NodeStats, len(fleet))
	var (
		jobsMu sync.Mutex
		nodeWg sync.WaitGroup
	)
	for i, host := range fleet {
		nodeWg.Add(1)
		go func(i int, host FleetHost) {
			defer nodeWg.Done()
			stats, jobs := c.collectNode(ctx, host)
			stats.JobsToday = jobsToday
			nodes[i] = stats

			jobsMu.Lock()
			data.Jobs = append(data.Jobs, jobs...)
			jobsMu.Unlock()
		}(i, host)
	}
	nodeWg.Wait()

	data.Nodes = nodes
}

// scrapeLocalProcesses lists ffmpeg processes on the workstation. An
// empty result is normal when nothing is transcoding locally.
func (c *Collector) scrapeLocalProcesses(ctx context.Context) []TranscodeJob {
	result, err := c.runner.Run(ctx, []string{"pgrep", "-lf", "ffmpeg"})
	if err != nil || result.ExitCode != 0 {
		// pgrep exits 1 when nothing matches.
		return nil
	}
	return parseLocalProcesses(result.Stdout)
}

// fetchFleetStatus runs rffmpeg status in the coordinator's container and
// parses the table. Returns nil when rffmpeg is absent or produced
// nothing.
func (c *Collector) fetchFleetStatus(ctx context.Context) []FleetHost {
	ctx, cancel := context.WithTimeout(ctx, fleetStatusTimeout)
	defer cancel()

	cmd := c.resolver.ContainerCommand("rffmpeg status 2>/dev/null || echo 'rffmpeg not available'")
	result, err := c.runner.Run(ctx, cmd)
	if err != nil {
		c.log.Debug("fleet status failed: %v", err)
		return nil
	}

	output := strings.TrimSpace(result.Stdout)
	if output == "" || strings.Contains(output, "not available") {
		return nil
	}

	hosts := parseFleetStatus(output)
	if hosts == nil && strings.Contains(output, "\n") {
		// rffmpeg answered with a table we could not read a single
		// record from. The cycle continues with no nodes.
		c.log.Warn("%v", errors.New(errors.ErrParse,
			"Unusable rffmpeg status output: "+truncate(output, 100),
			"Check the rffmpeg version inside the container"))
	}
	return hosts
}

// fetchLogs tails the controller and load-balancer logs from the
// container, tags each line with its source, and returns the merged,
// time-ordered view.
func (c *Collector) fetchLogs(ctx context.Context) []string {
	controller := c.tailLog(ctx, controllerLogPath)
	lb := c.tailLog(ctx, loadBalancerLogPath)
	if controller == nil && lb == nil {
		return nil
	}
	return mergeLogs(
		logSource{prefix: "rff", lines: controller},
		logSource{prefix: "lb", lines: lb},
	)
}

func (c *Collector) tailLog(ctx context.Context, path string) []string {
	ctx, cancel := context.WithTimeout(ctx, fleetStatusTimeout)
	defer cancel()

	n := c.cfg.Monitor.LogLines
	cmd := c.resolver.ContainerCommand(
		"tail -" + strconv.Itoa(n) + " " + path + " 2>/dev/null || echo 'No logs'")
	result, err := c.runner.Run(ctx, cmd)
	if err != nil {
		return nil
	}

	output := strings.TrimSpace(result.Stdout)
	if output == "" || strings.Contains(output, "No logs") {
		return nil
	}
	return strings.Split(output, "\n")
}

// collectNode opens one diagnostics session against a fleet member and
// parses its vitals and jobs. Failures are folded into the returned
// NodeStats; they never propagate.
func (c *Collector) collectNode(ctx context.Context, host FleetHost) (NodeStats, []TranscodeJob) {
	stats := NodeStats{
		Hostname: host.Hostname,
		Address:  host.Hostname,
		Weight:   host.Weight,
		State:    host.State,
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Monitor.NodeTimeout)
	defer cancel()

	cmd := c.resolver.NodeCommand(host.Hostname, buildNodeStatsCommand())
	result, err := c.runner.Run(ctx, cmd)
	if err != nil {
		if target.IsTimeout(err) {
			stats.Error = "Connection timeout"
		} else {
			stats.Error = truncate(err.Error(), 100)
		}
		return stats, nil
	}

	vitals, jobs, alive := parseNodeOutput(result.Stdout, host.Hostname)
	if !alive {
		stats.Error = c.classifyNodeError(result.Stderr, host.Hostname)
		return stats, nil
	}

	stats.Online = true
	stats.CPUPercent = vitals.cpuPercent
	stats.MemoryUsedGB = vitals.memoryUsedGB
	stats.MemoryTotalGB = vitals.memoryTotalGB
	stats.MemoryPercent = vitals.memoryPercent
	return stats, jobs
}

// classifyNodeError folds a failed node session's stderr into a short
// diagnostic for the node card.
func (c *Collector) classifyNodeError(stderr, addr string) string {
	msg := strings.TrimSpace(stderr)
	switch {
	case strings.Contains(msg, "Permission denied") || strings.Contains(strings.ToLower(msg), "password"):
		return "Auth rejected by " + addr
	case strings.Contains(msg, "Connection refused"):
		return "SSH refused at " + addr
	case strings.Contains(msg, "No route to host") || strings.Contains(msg, "Host unreachable"):
		return "Cannot reach " + addr
	case msg == "":
		return "No stats returned"
	default:
		return truncate(msg, 100)
	}
}
