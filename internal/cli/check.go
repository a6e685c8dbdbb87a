package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/transcodarr/monitor/internal/collector"
	"github.com/transcodarr/monitor/internal/config"
	"github.com/transcodarr/monitor/internal/errors"
	"github.com/transcodarr/monitor/internal/logger"
	"github.com/transcodarr/monitor/internal/target"
)

const checkTimeout = 60 * time.Second

// ANSI colors for terminal compatibility.
var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one collection cycle and print the result",
	Long: `Run a single collection cycle without the dashboard and print the
fleet's status. Exits non-zero when the coordinator is unreachable, so
it can double as a health check in scripts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return checkCommand()
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func checkCommand() error {
	cfg, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return err
	}

	runner := target.NewRunner()
	resolver := target.NewResolver(*cfg, runner, logger.NewEnvLogger("target"))
	coll := collector.New(*cfg, resolver, runner, logger.NewEnvLogger("collector"))

	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	data, err := coll.Collect(ctx)
	if err != nil {
		return err
	}

	printCheckReport(data)

	if data.Status.Transport != collector.StatusConnected {
		return errors.New(errors.ErrSSH,
			"Coordinator is not reachable",
			"Check the address and credentials in your config.")
	}
	return nil
}

func printCheckReport(data collector.CollectedData) {
	mode := "remote"
	if data.Status.LocalMode {
		mode = "local"
	}
	fmt.Printf("Mode: %s\n\n", mode)

	printChannel("coordinator", data.Status.Transport, data.Status.TransportError)
	printChannel("media mount", data.Status.Media, data.Status.MediaError)
	printChannel("cache mount", data.Status.Cache, data.Status.CacheError)
	printChannel("jellyfin api", data.Status.Jellyfin, data.Status.JellyfinError)

	fmt.Println()
	if len(data.Nodes) == 0 {
		fmt.Println("No fleet nodes registered.")
	}
	for _, node := range data.Nodes {
		if node.Online {
			fmt.Printf("%s  %-20s %-7s w%d  cpu %5.1f%%  mem %.1f/%.0fGB  %d jobs today\n",
				okStyle.Render("●"),
				node.Hostname, node.State, node.Weight,
				node.CPUPercent, node.MemoryUsedGB, node.MemoryTotalGB, node.JobsToday)
		} else {
			fmt.Printf("%s  %-20s offline  %s\n",
				failStyle.Render("○"), node.Hostname, node.Error)
		}
	}

	if len(data.Jobs) > 0 {
		fmt.Printf("\n%d active transcode(s):\n", len(data.Jobs))
		for _, job := range data.Jobs {
			fmt.Printf("  %s  %s  %s  %s\n",
				job.Filename, job.OutputCodec, job.Bitrate, job.NodeAddress)
		}
	}
}

func printChannel(name string, status collector.ConnectionStatus, errMsg string) {
	var glyph string
	switch status {
	case collector.StatusConnected:
		glyph = okStyle.Render("●")
	case collector.StatusDisconnected:
		glyph = warnStyle.Render("○")
	case collector.StatusError:
		glyph = failStyle.Render("✗")
	default:
		glyph = "◌"
	}

	line := fmt.Sprintf("%s  %-12s %s", glyph, name, status)
	if errMsg != "" {
		line += "  (" + errMsg + ")"
	}
	fmt.Println(line)
}
