package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/transcodarr/monitor/internal/config"
	"github.com/transcodarr/monitor/internal/errors"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the monitor configuration interactively",
	Long: `Create ~/.config/transcodarr/config.yaml by asking for the coordinator
address, SSH user, and container name. Everything else starts from
defaults you can edit afterwards.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return initCommand()
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing config without asking")
}

func initCommand() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine home directory",
			"Set $HOME and try again.")
	}
	configPath := filepath.Join(home, config.GlobalConfigDir, config.GlobalConfigFile)

	if _, err := os.Stat(configPath); err == nil && !initForce {
		var overwrite bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Config file '%s' already exists. Overwrite?", configPath)).
					Value(&overwrite),
			),
		)
		if err := form.Run(); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to get user input",
				"Try running with --force to overwrite")
		}
		if !overwrite {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	cfg := config.DefaultConfig()

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Coordinator address").
				Description("IP or hostname of the NAS running Jellyfin").
				Placeholder("192.168.1.50").
				Value(&cfg.Coordinator.Address).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("coordinator address is required")
					}
					return nil
				}),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("SSH user").
				Description("User for SSH sessions to the coordinator (empty uses $USER)").
				Placeholder("admin").
				Value(&cfg.Coordinator.User),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Jellyfin container name").
				Description("Docker container that runs Jellyfin and rffmpeg").
				Value(&cfg.Jellyfin.Container),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Jellyfin API key (optional)").
				Description("Enables the media-server API health check").
				Value(&cfg.Jellyfin.APIKey),
		),
	)

	if err := form.Run(); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input",
			"Check terminal compatibility")
	}

	if err := writeConfig(configPath, cfg); err != nil {
		return err
	}

	fmt.Printf("Wrote %s\n", configPath)
	fmt.Println("Start the dashboard with: transcodarr-monitor up")
	return nil
}

func writeConfig(path string, cfg *config.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to serialize config",
			"This shouldn't happen - please report this bug!")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot create config directory",
			"Check permissions on "+filepath.Dir(path))
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot write config file",
			"Check permissions on "+path)
	}
	return nil
}
