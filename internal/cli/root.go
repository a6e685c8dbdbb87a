// Package cli wires the transcodarr-monitor command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// cfgFile is the --config override shared by every command.
var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "transcodarr-monitor",
	Short: "Live dashboard for a distributed transcoding fleet",
	Long: `transcodarr-monitor watches an rffmpeg transcoding fleet: the Jellyfin
coordinator, its media and cache storage, and every registered worker node.

It runs in two modes, detected automatically:
  local   directly on the coordinator host (e.g. a Synology NAS)
  remote  from a workstation, reaching the coordinator over SSH

Start the dashboard with 'transcodarr-monitor up', or run a one-shot
health check with 'transcodarr-monitor check'.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default ~/.config/transcodarr/config.yaml)")
}
