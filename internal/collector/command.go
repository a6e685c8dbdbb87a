package collector

// Markers that precede each section of the node diagnostics output.
// Their presence, not the exit code, signals which sections arrived:
// the process listing legitimately exits non-zero when nothing matches.
const (
	markerCPU    = "STATS_CPU_START"
	markerMem    = "STATS_MEM_START"
	markerFFmpeg = "STATS_FFMPEG_START"
)

// buildNodeStatsCommand returns a single composite script that prints three
// marked sections on a macOS worker:
//  1. top output - "CPU usage:" summary line
//  2. vm_stat page counters plus sysctl hw.memsize for total memory
//  3. ffmpeg process list filtered from ps
//
// Batching everything into one script keeps each node at exactly one
// remote session per cycle.
func buildNodeStatsCommand() string {
	return `echo STATS_CPU_START; top -l 1 -n 0 2>/dev/null | grep "CPU usage"; ` +
		`echo STATS_MEM_START; vm_stat 2>/dev/null; sysctl -n hw.memsize 2>/dev/null; ` +
		`echo STATS_FFMPEG_START; ps aux 2>/dev/null | grep "[f]fmpeg" || true`
}
