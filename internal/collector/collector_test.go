package collector

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transcodarr/monitor/internal/config"
	"github.com/transcodarr/monitor/internal/errors"
	"github.com/transcodarr/monitor/internal/logger"
	"github.com/transcodarr/monitor/internal/target"
)

// fakeTarget builds transparent argument lists so the scripted runner can
// match on command text.
type fakeTarget struct {
	local bool
}

func (f fakeTarget) Local() bool { return f.local }
func (f fakeTarget) SSHCommand(cmd string) []string {
	return []string{"ssh", "coordinator", cmd}
}
func (f fakeTarget) LocalCommand(cmd string) []string {
	return []string{"sh", "-c", cmd}
}
func (f fakeTarget) ContainerCommand(cmd string) []string {
	return []string{"container", cmd}
}
func (f fakeTarget) NodeCommand(nodeAddr, cmd string) []string {
	return []string{"node", nodeAddr, cmd}
}

// scriptedRunner answers each command by substring match against the
// joined argv, recording every call.
type scriptedRunner struct {
	mu      sync.Mutex
	replies map[string]target.Result
	errs    map[string]error
	calls   []string
}

func newScriptedRunner() *scriptedRunner {
	return &scriptedRunner{
		replies: make(map[string]target.Result),
		errs:    make(map[string]error),
	}
}

func (s *scriptedRunner) on(substr string, result target.Result) {
	s.replies[substr] = result
}

func (s *scriptedRunner) failWith(substr string, err error) {
	s.errs[substr] = err
}

func (s *scriptedRunner) Run(_ context.Context, argv []string) (target.Result, error) {
	joined := strings.Join(argv, " ")

	s.mu.Lock()
	s.calls = append(s.calls, joined)
	s.mu.Unlock()

	for substr, err := range s.errs {
		if strings.Contains(joined, substr) {
			return target.Result{ExitCode: -1}, err
		}
	}
	for substr, result := range s.replies {
		if strings.Contains(joined, substr) {
			return result, nil
		}
	}
	return target.Result{ExitCode: 1}, nil
}

func (s *scriptedRunner) called(substr string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, call := range s.calls {
		if strings.Contains(call, substr) {
			return true
		}
	}
	return false
}

func newTestCollector(local bool, runner *scriptedRunner) *Collector {
	cfg := *config.DefaultConfig()
	cfg.Coordinator.Address = "10.0.0.2"
	cfg.Coordinator.User = "admin"
	return New(cfg, fakeTarget{local: local}, runner, logger.Noop())
}

func TestCollectRemoteHappyPath(t *testing.T) {
	runner := newScriptedRunner()
	runner.on("echo ok", target.Result{Stdout: "ok\n", ExitCode: 0})
	runner.on("mount", target.Result{
		Stdout: "nas:/volume1/media on /data/media (nfs)\nnas:/volume1/jellyfin-cache on /config/cache (nfs)\n",
	})
	runner.on("pgrep", target.Result{ExitCode: 1})
	runner.on("rffmpeg status", target.Result{
		Stdout:   "HOST SRV ID W STATE\n10.0.0.7 10.0.0.7 1 4 active\n",
		ExitCode: 0,
	})
	runner.on("rffmpeg.log", target.Result{
		Stdout: "2025-01-02 09:00:00 transcode completed for movie.mkv\n",
	})
	runner.on("rffmpeg-lb.log", target.Result{Stdout: "No logs"})
	runner.on("STATS_CPU_START", target.Result{Stdout: sampleNodeOutput, ExitCode: 0})

	c := newTestCollector(false, runner)
	data, err := c.Collect(context.Background())

	require.NoError(t, err)
	assert.False(t, data.Status.LocalMode)
	assert.Equal(t, StatusConnected, data.Status.Transport)
	assert.Equal(t, StatusConnected, data.Status.Media)
	assert.Equal(t, StatusConnected, data.Status.Cache)

	require.Len(t, data.Nodes, 1)
	node := data.Nodes[0]
	assert.True(t, node.Online)
	assert.Equal(t, "10.0.0.7", node.Address)
	assert.Equal(t, 4, node.Weight)
	assert.Equal(t, "active", node.State)
	assert.InDelta(t, 54.75, node.CPUPercent, 0.01)

	require.Len(t, data.Jobs, 1)
	assert.Equal(t, "show.mkv", data.Jobs[0].Filename)

	require.Len(t, data.History, 1)
	assert.NotEmpty(t, data.Logs)
	assert.False(t, data.LastUpdated.IsZero())
}

func TestCollectTransportFailureSkipsPhase2(t *testing.T) {
	runner := newScriptedRunner()
	runner.on("echo ok", target.Result{
		Stderr:   "ssh: connect to host 10.0.0.2 port 22: Connection refused",
		ExitCode: 255,
	})

	c := newTestCollector(false, runner)
	data, err := c.Collect(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StatusError, data.Status.Transport)
	assert.Equal(t, "SSH refused at 10.0.0.2:22", data.Status.TransportError)

	// Phase ordering: no fleet or node commands ran.
	assert.False(t, runner.called("rffmpeg status"))
	assert.False(t, runner.called("STATS_CPU_START"))
	assert.Empty(t, data.Nodes)
}

func TestCollectTransportTimeoutIsDisconnected(t *testing.T) {
	runner := newScriptedRunner()
	runner.failWith("echo ok", errors.New(errors.ErrTimeout, "Connection timeout", ""))

	c := newTestCollector(false, runner)
	data, err := c.Collect(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StatusDisconnected, data.Status.Transport)
	assert.Equal(t, "Connection timeout", data.Status.TransportError)
}

func TestCollectTransportAuthFailure(t *testing.T) {
	runner := newScriptedRunner()
	runner.on("echo ok", target.Result{
		Stderr:   "admin@10.0.0.2: Permission denied (publickey,password).",
		ExitCode: 255,
	})

	c := newTestCollector(false, runner)
	data, _ := c.Collect(context.Background())

	assert.Equal(t, StatusError, data.Status.Transport)
	assert.Equal(t, "Auth failed for admin@10.0.0.2", data.Status.TransportError)
}

func TestCollectLocalMode(t *testing.T) {
	runner := newScriptedRunner()
	runner.on("test -d /data/media", target.Result{Stdout: "ok\n", ExitCode: 0})
	runner.on("test -d /config/cache", target.Result{Stdout: "", ExitCode: 1})
	runner.on("rffmpeg status", target.Result{Stdout: "rffmpeg not available", ExitCode: 0})
	runner.on("rffmpeg.log", target.Result{Stdout: "No logs"})
	runner.on("rffmpeg-lb.log", target.Result{Stdout: "No logs"})

	c := newTestCollector(true, runner)
	data, err := c.Collect(context.Background())

	require.NoError(t, err)
	assert.True(t, data.Status.LocalMode)
	// Co-located with the coordinator: the transport channel is trivially up.
	assert.Equal(t, StatusConnected, data.Status.Transport)
	assert.Equal(t, StatusConnected, data.Status.Media)
	assert.Equal(t, StatusDisconnected, data.Status.Cache)
	assert.Equal(t, "/config/cache not in container", data.Status.CacheError)

	// Local mode checks paths inside the container, never the host table.
	assert.False(t, runner.called("mount"))
	assert.Empty(t, data.Nodes)
}

func TestCollectUnusableFleetTableWarnsAndContinues(t *testing.T) {
	runner := newScriptedRunner()
	runner.on("test -d", target.Result{Stdout: "ok\n", ExitCode: 0})
	// A table rffmpeg printed but no record of which parses: every row is
	// either a continuation line or has a non-numeric id column.
	runner.on("rffmpeg status", target.Result{
		Stdout:   "HOST SRV ID W STATE\n   still transcoding a.mkv\n10.0.0.7 10.0.0.7 one 4 active\n",
		ExitCode: 0,
	})
	runner.on("rffmpeg.log", target.Result{Stdout: "No logs"})
	runner.on("rffmpeg-lb.log", target.Result{Stdout: "No logs"})

	log := logger.NewBufferLogger()
	cfg := *config.DefaultConfig()
	c := New(cfg, fakeTarget{local: true}, runner, log)

	data, err := c.Collect(context.Background())

	require.NoError(t, err)
	assert.Empty(t, data.Nodes)
	assert.True(t, log.HasLevel("warn"))
	require.NotEmpty(t, log.Messages)

	found := false
	for _, m := range log.Messages {
		if m.Level == "warn" && strings.Contains(m.Message, "Unusable rffmpeg status output") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCollectNodeSessionFailureIsolated(t *testing.T) {
	runner := newScriptedRunner()
	runner.on("echo ok", target.Result{Stdout: "ok\n", ExitCode: 0})
	runner.on("mount", target.Result{Stdout: "/data/media\n/config/cache\n"})
	runner.on("pgrep", target.Result{ExitCode: 1})
	runner.on("rffmpeg status", target.Result{
		Stdout:   "HOST SRV ID W STATE\n10.0.0.7 10.0.0.7 1 4 active\n10.0.0.8 10.0.0.8 2 2 idle\n",
		ExitCode: 0,
	})
	runner.on("rffmpeg.log", target.Result{Stdout: "No logs"})
	runner.on("rffmpeg-lb.log", target.Result{Stdout: "No logs"})
	runner.on("node 10.0.0.7", target.Result{Stdout: sampleNodeOutput, ExitCode: 0})
	runner.on("node 10.0.0.8", target.Result{
		Stderr:   "ssh: connect to host 10.0.0.8 port 22: No route to host",
		ExitCode: 255,
	})

	c := newTestCollector(false, runner)
	data, err := c.Collect(context.Background())

	require.NoError(t, err)
	require.Len(t, data.Nodes, 2)

	byAddr := map[string]NodeStats{}
	for _, n := range data.Nodes {
		byAddr[n.Address] = n
	}

	assert.True(t, byAddr["10.0.0.7"].Online)
	assert.False(t, byAddr["10.0.0.8"].Online)
	assert.Equal(t, "Cannot reach 10.0.0.8", byAddr["10.0.0.8"].Error)

	// The healthy node's jobs still arrived.
	require.Len(t, data.Jobs, 1)
}

func TestCollectNodeMissingMarkerIsOffline(t *testing.T) {
	runner := newScriptedRunner()
	runner.on("echo ok", target.Result{Stdout: "ok\n", ExitCode: 0})
	runner.on("mount", target.Result{Stdout: ""})
	runner.on("pgrep", target.Result{ExitCode: 1})
	runner.on("rffmpeg status", target.Result{
		Stdout:   "HOST SRV ID W STATE\n10.0.0.7 10.0.0.7 1 4 active\n",
		ExitCode: 0,
	})
	runner.on("rffmpeg.log", target.Result{Stdout: "No logs"})
	runner.on("rffmpeg-lb.log", target.Result{Stdout: "No logs"})
	// Clean exit, but no diagnostic markers in the output.
	runner.on("node 10.0.0.7", target.Result{Stdout: "motd banner\n", ExitCode: 0})

	c := newTestCollector(false, runner)
	data, _ := c.Collect(context.Background())

	require.Len(t, data.Nodes, 1)
	assert.False(t, data.Nodes[0].Online)
	assert.Equal(t, "No stats returned", data.Nodes[0].Error)
}

func TestSnapshotReturnsLastPublished(t *testing.T) {
	runner := newScriptedRunner()
	runner.on("echo ok", target.Result{Stdout: "ok\n", ExitCode: 0})
	runner.on("mount", target.Result{Stdout: ""})
	runner.on("pgrep", target.Result{ExitCode: 1})
	runner.on("rffmpeg status", target.Result{Stdout: "rffmpeg not available", ExitCode: 0})
	runner.on("rffmpeg.log", target.Result{Stdout: "No logs"})
	runner.on("rffmpeg-lb.log", target.Result{Stdout: "No logs"})

	c := newTestCollector(false, runner)

	assert.True(t, c.Snapshot().LastUpdated.IsZero())

	first, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.LastUpdated, c.Snapshot().LastUpdated)
}

func TestCollectJobsTodayAttachedToNodes(t *testing.T) {
	today := time.Now().Format("2006-01-02")
	runner := newScriptedRunner()
	runner.on("echo ok", target.Result{Stdout: "ok\n", ExitCode: 0})
	runner.on("mount", target.Result{Stdout: ""})
	runner.on("pgrep", target.Result{ExitCode: 1})
	runner.on("rffmpeg status", target.Result{
		Stdout:   "HOST SRV ID W STATE\n10.0.0.7 10.0.0.7 1 4 idle\n",
		ExitCode: 0,
	})
	runner.on("rffmpeg.log", target.Result{
		Stdout: today + " 08:00:00 transcode completed for a.mkv\n" +
			today + " 09:00:00 transcode completed for b.mkv\n",
	})
	runner.on("rffmpeg-lb.log", target.Result{Stdout: "No logs"})
	runner.on("node 10.0.0.7", target.Result{Stdout: sampleNodeOutput, ExitCode: 0})

	c := newTestCollector(false, runner)
	data, _ := c.Collect(context.Background())

	require.Len(t, data.Nodes, 1)
	assert.Equal(t, 2, data.Nodes[0].JobsToday)
}
