// Package cli is the tminus command tree: the interactive countdown plus
// headless subcommands over the same store and engine.
package cli

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/sadopc/tminus/internal/logx"
	"github.com/sadopc/tminus/internal/tui"
)

// NewRootCmd builds the command tree. With no subcommand it opens the TUI.
func NewRootCmd() *cobra.Command {
	var flags globalFlags
	root := &cobra.Command{
		Use:           appName,
		Short:         "Countdown timer with alarm, notifications and history",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, flags)
		},
	}

	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "config file (default <user config dir>/tminus/config.yaml)")
	root.PersistentFlags().StringVar(&flags.dbPath, "db", "", "database path (overrides db_path)")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newRunCmd(&flags))
	root.AddCommand(newSettingsCmd(&flags))
	root.AddCommand(newHistoryCmd(&flags))
	root.AddCommand(newExportCmd(&flags))
	root.AddCommand(newConfigCmd(&flags))

	return root
}

func runTUI(cmd *cobra.Command, flags globalFlags) error {
	ctx := cmd.Context()
	cfg, err := flags.loadConfig()
	if err != nil {
		return err
	}

	// The alt screen owns the terminal, so the session logs to a file.
	log, closer, err := logx.File(cfg.LogFile, flags.verbose)
	if err != nil {
		return err
	}
	defer closer.Close()

	rt, err := openRuntime(cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	app := tui.NewApp(tui.Deps{
		Engine:          rt.engine,
		Settings:        rt.settings,
		Sounds:          rt.dispatcher,
		History:         rt.store,
		DefaultDuration: cfg.Timer.DefaultDurationSeconds,
	})
	defer app.Close()

	log.Info("session started", "db", cfg.DBPath)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	}
	log.Info("session ended")
	return nil
}
