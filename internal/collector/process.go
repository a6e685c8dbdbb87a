package collector

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
)

var (
	inputFileRe  = regexp.MustCompile(`-i\s+(?:"([^"]+)"|'([^']+)'|(\S+))`)
	scaleRe      = regexp.MustCompile(`scale=(\d+):(\d+)`)
	maxrateRe    = regexp.MustCompile(`-maxrate:?v?\s+(\d+)`)
	audioCodecRe = regexp.MustCompile(`-(?:c:a|acodec)(?::\d+)?\s+(\S+)`)
)

// videoCodecLabel maps known encoder tokens to display labels. Unknown
// encoders yield an empty label, never an error.
func videoCodecLabel(cmdline string) string {
	switch {
	case strings.Contains(cmdline, "hevc_videotoolbox"):
		return "HEVC (HW)"
	case strings.Contains(cmdline, "h264_videotoolbox"):
		return "H.264 (HW)"
	case strings.Contains(cmdline, "libx265"):
		return "HEVC (CPU)"
	case strings.Contains(cmdline, "libx264"):
		return "H.264 (CPU)"
	default:
		return ""
	}
}

func audioCodecLabel(cmdline string) string {
	m := audioCodecRe.FindStringSubmatch(cmdline)
	if m == nil {
		return ""
	}
	switch strings.ToLower(m[1]) {
	case "aac", "libfdk_aac", "aac_at":
		return "AAC"
	case "ac3":
		return "AC3"
	case "eac3":
		return "E-AC3"
	case "opus", "libopus":
		return "Opus"
	case "copy":
		return "copy"
	default:
		return ""
	}
}

// inputFilename pulls the basename of the -i argument from an ffmpeg
// command line. Returns "" when no input argument is present.
func inputFilename(cmdline string) string {
	m := inputFileRe.FindStringSubmatch(cmdline)
	if m == nil {
		return ""
	}
	for _, g := range m[1:] {
		if g != "" {
			return path.Base(g)
		}
	}
	return ""
}

// outputResolution reads the scale video filter, e.g. scale=1280:720.
func outputResolution(cmdline string) string {
	m := scaleRe.FindStringSubmatch(cmdline)
	if m == nil {
		return ""
	}
	return m[1] + "x" + m[2]
}

// maxrateEstimate derives a bitrate label and an estimated input
// resolution tier from the encoder maxrate argument. The source
// resolution is not observable on the command line, so the tier is an
// approximation by rate, labeled as such, not a measurement.
func maxrateEstimate(cmdline string) (bitrate, inputRes string) {
	m := maxrateRe.FindStringSubmatch(cmdline)
	if m == nil {
		return "", ""
	}
	rate, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return "", ""
	}

	bitrate = fmt.Sprintf("%dk", rate/1000)
	switch {
	case rate >= 15_000_000:
		inputRes = "4K"
	case rate >= 6_000_000:
		inputRes = "1080p"
	case rate >= 2_500_000:
		inputRes = "720p"
	default:
		inputRes = "SD"
	}
	return bitrate, inputRes
}

// parseJobCommand decomposes one ffmpeg command line into a TranscodeJob.
// Every attribute is best-effort: whatever is not recognizable stays at
// its zero value.
func parseJobCommand(cmdline, nodeAddr string, pid int, cpuPercent float64) TranscodeJob {
	bitrate, inputRes := maxrateEstimate(cmdline)
	return TranscodeJob{
		Filename:         inputFilename(cmdline),
		NodeAddress:      nodeAddr,
		PID:              pid,
		OutputCodec:      videoCodecLabel(cmdline),
		AudioCodec:       audioCodecLabel(cmdline),
		InputResolution:  inputRes,
		OutputResolution: outputResolution(cmdline),
		Bitrate:          bitrate,
		CPUPercent:       cpuPercent,
	}
}

// parseLocalProcesses parses `pgrep -lf ffmpeg` output from the machine
// the monitor runs on. Each line is "<pid> <command line>". Lines for
// pgrep itself are skipped.
func parseLocalProcesses(output string) []TranscodeJob {
	var jobs []TranscodeJob
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.Contains(line, "pgrep") {
			continue
		}

		fields := strings.SplitN(line, " ", 2)
		if len(fields) < 2 {
			continue
		}
		pid, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		if !strings.Contains(fields[1], "ffmpeg") {
			continue
		}

		jobs = append(jobs, parseJobCommand(fields[1], "local", pid, 0))
	}
	return jobs
}
