package collector

import (
	"strconv"
	"strings"
	"unicode"
)

// parseFleetStatus parses the rffmpeg status table into fleet members.
//
// The first line is a header and is discarded. Records start at column
// zero: <host> <servername> <id> <weight> <state> [active commands...].
// The trailing "active commands" field wraps onto continuation lines that
// begin with whitespace; those belong to the previous record and are
// skipped. A line whose id or weight field is not numeric is dropped,
// never aborting the batch.
func parseFleetStatus(output string) []FleetHost {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) < 2 {
		return nil
	}

	var hosts []FleetHost
	for _, line := range lines[1:] {
		if line == "" || strings.TrimSpace(line) == "" {
			continue
		}
		// Continuation of the previous record's command list.
		if unicode.IsSpace(rune(line[0])) {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 5 {
			continue
		}

		id, err := strconv.Atoi(fields[2])
		if err != nil {
			continue
		}
		weight, err := strconv.Atoi(fields[3])
		if err != nil {
			continue
		}

		hosts = append(hosts, FleetHost{
			Hostname:   fields[0],
			Servername: fields[1],
			ID:         id,
			Weight:     weight,
			State:      normalizeFleetState(fields[4]),
		})
	}
	return hosts
}

// normalizeFleetState maps the status column onto the small set of states
// the display layer understands.
func normalizeFleetState(raw string) string {
	switch strings.ToLower(raw) {
	case "idle", "active", "bad":
		return strings.ToLower(raw)
	default:
		return "unknown"
	}
}
