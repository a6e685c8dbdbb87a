package cli

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/transcodarr/monitor/internal/collector"
	"github.com/transcodarr/monitor/internal/config"
	"github.com/transcodarr/monitor/internal/errors"
	"github.com/transcodarr/monitor/internal/logger"
	"github.com/transcodarr/monitor/internal/target"
	"github.com/transcodarr/monitor/internal/tui"
)

var upIntervalFlag string

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Start the monitoring dashboard",
	Long: `Start the full-screen monitoring dashboard.

In remote mode the first SSH connection is primed before the dashboard
takes over the screen, so any password or host-key prompt happens on a
normal terminal. The multiplexed connection is then reused by every
probe.

Examples:
  transcodarr-monitor up
  transcodarr-monitor up --interval 5s`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return upCommand()
	},
}

func init() {
	rootCmd.AddCommand(upCmd)
	upCmd.Flags().StringVar(&upIntervalFlag, "interval", "", "refresh interval (e.g. 10s)")
}

func upCommand() error {
	cfg, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return err
	}

	interval := cfg.Monitor.RefreshInterval
	if upIntervalFlag != "" {
		parsed, err := time.ParseDuration(upIntervalFlag)
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Invalid --interval value: "+upIntervalFlag,
				"Use a Go duration like 5s or 1m.")
		}
		interval = parsed
	}

	runner := target.NewRunner()
	resolver := target.NewResolver(*cfg, runner, logger.NewEnvLogger("target"))

	// Prime the SSH control connection while stdin is still a plain
	// terminal: once the alternate screen is up, an auth prompt would be
	// invisible.
	if !resolver.Local() && term.IsTerminal(int(os.Stdin.Fd())) {
		if err := primeConnection(resolver); err != nil {
			return err
		}
	}

	coll := collector.New(*cfg, resolver, runner, logger.NewEnvLogger("collector"))

	model := tui.New(coll, interval).WithReload(func() (*collector.Collector, error) {
		fresh, err := config.LoadOrDefault(cfgFile)
		if err != nil {
			return nil, err
		}
		r := target.NewResolver(*fresh, runner, logger.NewEnvLogger("target"))
		return collector.New(*fresh, r, runner, logger.NewEnvLogger("collector")), nil
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return errors.WrapWithCode(err, errors.ErrExec,
			"Dashboard exited unexpectedly",
			"Check terminal compatibility, or run 'transcodarr-monitor check' instead.")
	}
	return nil
}

// primeConnection opens the first SSH session with the terminal attached,
// establishing the multiplexed control socket every later probe reuses.
func primeConnection(resolver *target.Resolver) error {
	argv := resolver.SSHCommand("echo ok")

	fmt.Printf("Connecting to %s...\n", argv[len(argv)-2])

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return errors.WrapWithCode(err, errors.ErrSSH,
			"Could not connect to the coordinator",
			"Check the address and credentials, or try: ssh "+argv[len(argv)-2])
	}
	return nil
}
