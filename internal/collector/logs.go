package collector

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

const historyLimit = 20

var (
	logTimestampRe = regexp.MustCompile(`(\d{4}-\d{2}-\d{2}\s+\d{2}:\d{2}:\d{2})`)
	mediaFileRe    = regexp.MustCompile(`(?i)([^\s/]+\.(mkv|mp4|avi|mov|m4v))`)
)

// logSource pairs a tail of raw lines with the short prefix used to tag
// them in the merged view.
type logSource struct {
	prefix string
	lines  []string
}

// mergeLogs tags each source's lines with its prefix and orders the
// combined set by the embedded timestamp. Lines without a recognizable
// timestamp sort first; the sort is stable so same-second lines keep
// their original relative order.
func mergeLogs(sources ...logSource) []string {
	var merged []string
	for _, src := range sources {
		for _, line := range src.lines {
			if strings.TrimSpace(line) == "" {
				continue
			}
			merged = append(merged, "["+src.prefix+"] "+line)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return logSortKey(merged[i]) < logSortKey(merged[j])
	})
	return merged
}

// logSortKey extracts a best-effort "YYYY-MM-DD HH:MM:SS" key; lines
// without one get the empty key and sort to the front.
func logSortKey(line string) string {
	m := logTimestampRe.FindStringSubmatch(line)
	if m == nil {
		return ""
	}
	return m[1]
}

// deriveHistory scans merged log lines for completed transcodes. A line
// counts when it mentions completion; the filename comes from a media
// extension match and success from the absence of error keywords. The
// result keeps only the newest entries, most recent last.
func deriveHistory(lines []string) []TranscodeHistoryItem {
	var history []TranscodeHistoryItem
	for _, line := range lines {
		lower := strings.ToLower(line)
		if !strings.Contains(lower, "completed") && !strings.Contains(lower, "finished") {
			continue
		}

		item := TranscodeHistoryItem{
			Filename: "Unknown",
			Success:  !strings.Contains(lower, "error") && !strings.Contains(lower, "failed"),
		}
		if ts := logSortKey(line); ts != "" {
			if parsed, err := time.ParseInLocation("2006-01-02 15:04:05", normalizeSpaces(ts), time.Local); err == nil {
				item.Timestamp = parsed
			}
		}
		if m := mediaFileRe.FindStringSubmatch(line); m != nil {
			item.Filename = m[1]
		}
		if !item.Success {
			item.Error = "reported failure"
		}

		history = append(history, item)
	}

	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	return history
}

// jobsCompletedToday counts history entries whose timestamp falls on the
// local calendar day.
func jobsCompletedToday(history []TranscodeHistoryItem, now time.Time) int {
	count := 0
	y, m, d := now.Date()
	for _, item := range history {
		iy, im, id := item.Timestamp.Date()
		if iy == y && im == m && id == d && item.Success {
			count++
		}
	}
	return count
}

// normalizeSpaces collapses the run of spaces between date and time that
// some log formats emit.
func normalizeSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
