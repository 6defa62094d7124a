package cli

import (
	"fmt"
	"path/filepath"

	"stacknote/internal/config"
	"stacknote/internal/logging"
	"stacknote/internal/store"

	"github.com/spf13/cobra"
)

type configPayload struct {
	ConfigDir string          `json:"configDir"`
	LogFile   string          `json:"logFile"`
	Settings  config.Settings `json:"settings"`
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, dir, err := loadSettings(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope{Data: configPayload{
				ConfigDir: dir,
				LogFile:   filepath.Join(dir, logging.FileName),
				Settings:  s,
			}})
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write default settings.toml into the config dir, or to --config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := store.ConfigDir()
			if err != nil {
				return writeErr(cmd, err)
			}
			target := config.SettingsHandle{Path: filepath.Join(dir, "settings.toml"), Format: config.SettingsFormatTOML}
			var (
				current config.Settings
				handle  config.SettingsHandle
			)
			if app.ConfigPath != "" {
				target = config.HandleFor(app.ConfigPath)
				current, handle, err = config.LoadHandle(target)
			} else {
				current, handle, err = config.LoadSettings(dir)
			}
			if err != nil && !force {
				return writeErr(cmd, err)
			}
			if handle.Path != "" && !force {
				return writeErr(cmd, fmt.Errorf("settings already exist: %s (use --force to overwrite)", handle.Path))
			}
			settings := config.DefaultSettings()
			if err == nil && handle.Path != "" {
				settings = current
			}
			if err := config.SaveSettings(settings, target); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope{Data: configPayload{
				ConfigDir: dir,
				LogFile:   filepath.Join(dir, logging.FileName),
				Settings:  config.Normalise(settings),
			}, Meta: map[string]any{"written": target.Path}})
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite existing settings")
	cmd.AddCommand(initCmd)

	return cmd
}
