// Package collector gathers live status of a transcoding fleet: it probes
// connectivity, scrapes worker processes, parses the fleet-status table and
// logs, and assembles everything into one CollectedData snapshot per cycle.
package collector

import "time"

// ConnectionStatus describes the state of one monitored channel.
type ConnectionStatus int

const (
	StatusChecking ConnectionStatus = iota
	StatusConnected
	StatusDisconnected
	StatusError
)

// String returns a lowercase label suitable for display.
func (s ConnectionStatus) String() string {
	switch s {
	case StatusConnected:
		return "connected"
	case StatusDisconnected:
		return "disconnected"
	case StatusError:
		return "error"
	default:
		return "checking"
	}
}

// SystemStatus holds one ConnectionStatus plus diagnostic per channel.
// An error string is non-empty only when the matching status is not
// Connected.
type SystemStatus struct {
	Transport ConnectionStatus
	Media     ConnectionStatus
	Cache     ConnectionStatus
	Jellyfin  ConnectionStatus

	TransportError string
	MediaError     string
	CacheError     string
	JellyfinError  string

	// LocalMode is true when the monitor runs co-located with the
	// coordinator and needs no SSH hop for coordinator-facing probes.
	LocalMode bool
}

// NodeStats is one fleet member's vitals for a single collection cycle.
// It is rebuilt from fresh probe output every cycle, never mutated across
// cycles.
type NodeStats struct {
	Hostname string
	Address  string
	Online   bool
	Error    string

	CPUPercent    float64
	MemoryUsedGB  float64
	MemoryTotalGB float64
	MemoryPercent float64

	Weight    int
	State     string // idle, active, bad, unknown
	JobsToday int
}

// TranscodeJob is one running ffmpeg process. Identity within a cycle is
// (NodeAddress, PID); it is not stable across cycles.
type TranscodeJob struct {
	Filename    string
	NodeAddress string
	PID         int

	InputCodec  string
	OutputCodec string
	AudioCodec  string

	// InputResolution is estimated from the encoder maxrate, not measured.
	InputResolution  string
	OutputResolution string
	Bitrate          string

	CPUPercent float64
}

// TranscodeHistoryItem is a completed transcode reconstructed from log
// text. Best-effort: derived by keyword scan, capped to the newest 20.
type TranscodeHistoryItem struct {
	Filename  string
	Timestamp time.Time
	Success   bool
	Error     string
}

// FleetHost is one record from the fleet-status table.
type FleetHost struct {
	Hostname   string
	Servername string
	ID         int
	Weight     int
	State      string
}

// CollectedData is the full snapshot handed to the display layer. It is
// replaced wholesale each cycle; consumers only ever see a completed one.
type CollectedData struct {
	Status      SystemStatus
	Nodes       []NodeStats
	Jobs        []TranscodeJob
	History     []TranscodeHistoryItem
	Logs        []string
	LastUpdated time.Time
}
