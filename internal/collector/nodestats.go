package collector

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"
)

// vm_stat reports pages; Apple Silicon uses 16KB pages.
const nodePageSize = 16384

const bytesPerGB = 1024 * 1024 * 1024

var cpuUsageRe = regexp.MustCompile(`([\d.]+)%\s+user.*?([\d.]+)%\s+sys`)

// nodeVitals is the parsed result of one node diagnostics session.
type nodeVitals struct {
	cpuPercent    float64
	memoryUsedGB  float64
	memoryTotalGB float64
	memoryPercent float64
}

// parseNodeOutput splits the marker-sectioned diagnostics output into
// vitals and the node's ffmpeg processes. The second return is false when
// the CPU marker is missing, which means the session never reached the
// node: exit codes are not trusted here because the process listing exits
// non-zero whenever no ffmpeg is running.
func parseNodeOutput(output, nodeAddr string) (nodeVitals, []TranscodeJob, bool) {
	if !strings.Contains(output, markerCPU) {
		return nodeVitals{}, nil, false
	}

	cpuSection := sectionBetween(output, markerCPU, markerMem)
	memSection := sectionBetween(output, markerMem, markerFFmpeg)
	procSection := sectionAfter(output, markerFFmpeg)

	vitals := nodeVitals{cpuPercent: parseCPUUsage(cpuSection)}
	vitals.memoryUsedGB, vitals.memoryTotalGB = parseMemoryCounters(memSection)
	if vitals.memoryTotalGB > 0 {
		// The page counters and hw.memsize come from separate commands
		// with an assumed page size, so used can overshoot total.
		if vitals.memoryUsedGB > vitals.memoryTotalGB {
			vitals.memoryUsedGB = vitals.memoryTotalGB
		}
		vitals.memoryPercent = vitals.memoryUsedGB / vitals.memoryTotalGB * 100
	}

	return vitals, parseNodeProcesses(procSection, nodeAddr), true
}

func sectionBetween(output, start, end string) string {
	i := strings.Index(output, start)
	if i < 0 {
		return ""
	}
	rest := output[i+len(start):]
	if j := strings.Index(rest, end); j >= 0 {
		return rest[:j]
	}
	return rest
}

func sectionAfter(output, start string) string {
	i := strings.Index(output, start)
	if i < 0 {
		return ""
	}
	return output[i+len(start):]
}

// parseCPUUsage reads the "CPU usage: X% user, Y% sys, Z% idle" summary
// line and returns user + sys.
func parseCPUUsage(section string) float64 {
	m := cpuUsageRe.FindStringSubmatch(section)
	if m == nil {
		return 0
	}
	user, err1 := strconv.ParseFloat(m[1], 64)
	sys, err2 := strconv.ParseFloat(m[2], 64)
	if err1 != nil || err2 != nil {
		return 0
	}
	return user + sys
}

// parseMemoryCounters reads vm_stat page counters plus the bare
// hw.memsize value. Used memory counts active, wired, and compressor
// pages; free and cached pages are reclaimable and excluded.
func parseMemoryCounters(section string) (usedGB, totalGB float64) {
	var active, wired, compressed, totalBytes int64

	scanner := bufio.NewScanner(strings.NewReader(section))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		// sysctl -n hw.memsize prints the total as a bare number.
		if !strings.Contains(line, ":") {
			if val, err := strconv.ParseInt(line, 10, 64); err == nil {
				totalBytes = val
			}
			continue
		}

		colon := strings.Index(line, ":")
		key := strings.TrimSpace(line[:colon])
		valStr := strings.TrimSuffix(strings.TrimSpace(line[colon+1:]), ".")
		val, err := strconv.ParseInt(valStr, 10, 64)
		if err != nil {
			continue
		}

		switch key {
		case "Pages active":
			active = val
		case "Pages wired down":
			wired = val
		case "Pages occupied by compressor":
			compressed = val
		}
	}

	usedGB = float64((active+wired+compressed)*nodePageSize) / bytesPerGB
	totalGB = float64(totalBytes) / bytesPerGB
	return usedGB, totalGB
}

// parseNodeProcesses parses the filtered ps listing: each line is
// standard ps aux layout, command starting at the 11th field. Lines that
// do not fit are dropped.
func parseNodeProcesses(section, nodeAddr string) []TranscodeJob {
	var jobs []TranscodeJob
	for _, line := range strings.Split(strings.TrimSpace(section), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.Contains(line, "grep") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 11 {
			continue
		}
		pid, err := strconv.Atoi(fields[1])
		if err != nil {
			continue
		}
		cpu, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			continue
		}

		cmdline := strings.Join(fields[10:], " ")
		if !strings.Contains(cmdline, "ffmpeg") {
			continue
		}

		jobs = append(jobs, parseJobCommand(cmdline, nodeAddr, pid, cpu))
	}
	return jobs
}
