package collector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJobCommand(t *testing.T) {
	cmdline := "/usr/local/bin/ffmpeg -i /media/show.mkv -c:v hevc_videotoolbox " +
		"-maxrate 9000000 -vf scale=1280:720 -c:a aac /config/cache/out.mp4"

	job := parseJobCommand(cmdline, "10.0.0.7", 4242, 312.5)

	assert.Equal(t, "show.mkv", job.Filename)
	assert.Equal(t, "HEVC (HW)", job.OutputCodec)
	assert.Equal(t, "AAC", job.AudioCodec)
	assert.Equal(t, "1080p", job.InputResolution)
	assert.Equal(t, "1280x720", job.OutputResolution)
	assert.Equal(t, "9000k", job.Bitrate)
	assert.Equal(t, "10.0.0.7", job.NodeAddress)
	assert.Equal(t, 4242, job.PID)
	assert.Equal(t, 312.5, job.CPUPercent)
}

func TestVideoCodecLabel(t *testing.T) {
	tests := []struct {
		token string
		want  string
	}{
		{"hevc_videotoolbox", "HEVC (HW)"},
		{"h264_videotoolbox", "H.264 (HW)"},
		{"libx264", "H.264 (CPU)"},
		{"libx265", "HEVC (CPU)"},
		{"av1_qsv", ""}, // unknown encoders stay blank, never error
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got := videoCodecLabel("ffmpeg -i a.mkv -c:v " + tt.token + " out.mp4")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMaxrateEstimateTiers(t *testing.T) {
	tests := []struct {
		rate    string
		bitrate string
		res     string
	}{
		{"20000000", "20000k", "4K"},
		{"15000000", "15000k", "4K"},
		{"9000000", "9000k", "1080p"},
		{"6000000", "6000k", "1080p"},
		{"3000000", "3000k", "720p"},
		{"1500000", "1500k", "SD"},
	}

	for _, tt := range tests {
		t.Run(tt.rate, func(t *testing.T) {
			bitrate, res := maxrateEstimate("ffmpeg -maxrate " + tt.rate + " out.mp4")
			assert.Equal(t, tt.bitrate, bitrate)
			assert.Equal(t, tt.res, res)
		})
	}
}

func TestMaxrateEstimateAbsent(t *testing.T) {
	bitrate, res := maxrateEstimate("ffmpeg -i a.mkv out.mp4")
	assert.Empty(t, bitrate)
	assert.Empty(t, res)
}

func TestInputFilename(t *testing.T) {
	tests := []struct {
		name    string
		cmdline string
		want    string
	}{
		{"bare path", "ffmpeg -i /media/tv/show.mkv out.mp4", "show.mkv"},
		{"double quoted", `ffmpeg -i "/media/Some Show S01E02.mkv" out.mp4`, "Some Show S01E02.mkv"},
		{"single quoted", "ffmpeg -i '/media/a b.mp4' out.mp4", "a b.mp4"},
		{"no input flag", "ffmpeg -version", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, inputFilename(tt.cmdline))
		})
	}
}

func TestOutputResolution(t *testing.T) {
	assert.Equal(t, "1920x1080", outputResolution("ffmpeg -vf scale=1920:1080 out.mp4"))
	assert.Empty(t, outputResolution("ffmpeg -vf yadif out.mp4"))
}

func TestAudioCodecLabel(t *testing.T) {
	assert.Equal(t, "AAC", audioCodecLabel("ffmpeg -c:a aac out.mp4"))
	assert.Equal(t, "E-AC3", audioCodecLabel("ffmpeg -c:a eac3 out.mp4"))
	assert.Equal(t, "copy", audioCodecLabel("ffmpeg -c:a copy out.mp4"))
	assert.Empty(t, audioCodecLabel("ffmpeg out.mp4"))
}

func TestParseLocalProcesses(t *testing.T) {
	output := "512 /usr/local/bin/ffmpeg -i /media/movie.mkv -c:v libx264 out.mp4\n" +
		"513 pgrep -lf ffmpeg\n" +
		"not-a-pid ffmpeg -i x.mkv\n" +
		"514 /bin/sleep 60\n"

	jobs := parseLocalProcesses(output)

	require.Len(t, jobs, 1)
	assert.Equal(t, 512, jobs[0].PID)
	assert.Equal(t, "movie.mkv", jobs[0].Filename)
	assert.Equal(t, "H.264 (CPU)", jobs[0].OutputCodec)
	assert.Equal(t, "local", jobs[0].NodeAddress)
}

func TestParseLocalProcessesEmpty(t *testing.T) {
	assert.Empty(t, parseLocalProcesses(""))
}
