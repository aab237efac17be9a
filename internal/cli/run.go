package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/tminus/internal/alert"
	"github.com/sadopc/tminus/internal/logx"
	"github.com/sadopc/tminus/internal/settings"
	"github.com/sadopc/tminus/internal/timefmt"
	"github.com/sadopc/tminus/internal/timer"
)

// parseDurationArg accepts HH:MM:SS, MM:SS, plain seconds or 1h30m style.
func parseDurationArg(arg string) (int, error) {
	seconds, err := timefmt.Parse(arg)
	if err != nil {
		return 0, fmt.Errorf("duration %q: %w", arg, err)
	}
	if seconds <= 0 || seconds > timefmt.MaxSeconds {
		return 0, fmt.Errorf("duration %q: must be between 00:00:01 and %s", arg, timefmt.Format(timefmt.MaxSeconds))
	}
	return seconds, nil
}

func newRunCmd(flags *globalFlags) *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "run <duration>",
		Short: "Count down without the TUI",
		Long: "Count down from HH:MM:SS, MM:SS or a number of seconds and raise the alarm.\n" +
			"With repeat enabled the countdown restarts until interrupted.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seconds, err := parseDurationArg(args[0])
			if err != nil {
				return err
			}
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			log := logx.Ctx(cmd.Context())
			rt, err := openRuntime(cfg, log)
			if err != nil {
				return err
			}
			defer rt.Close()

			rt.requestPermission(cmd.Context())
			rt.settings.SetDuration(seconds)
			return countdown(cmd.Context(), rt.engine, rt.settings, seconds, once, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "exit after the first alarm even when repeat is on")
	return cmd
}

type countdownEngine interface {
	Start(seconds int) error
	Reset()
	Subscribe(buffer int) (<-chan timer.Event, func())
	Settle(ctx context.Context) error
}

type settingsSource interface {
	Settings() settings.Settings
}

// countdown starts e and prints its progress to out until the alarm fires
// or ctx is cancelled. After the last alarm it waits for the notification,
// the haptic pulses and the sound to finish.
func countdown(ctx context.Context, e countdownEngine, st settingsSource, seconds int, once bool, out io.Writer) error {
	events, cancel := e.Subscribe(16)
	defer cancel()

	if err := e.Start(seconds); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s", timefmt.Format(seconds))

	for {
		select {
		case <-ctx.Done():
			e.Reset()
			fmt.Fprintln(out)
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev.Type {
			case timer.EventTick, timer.EventRepeated:
				fmt.Fprintf(out, "\r%s", ev.State.Remaining())
			case timer.EventCompleted:
				fmt.Fprintf(out, "\r%s  Time's up!\n", ev.State.Remaining())
				s := st.Settings()
				if once || !s.RepeatEnabled {
					waitForAlarm(ctx, s)
					if err := e.Settle(ctx); err != nil && ctx.Err() == nil {
						return err
					}
					return nil
				}
			}
		}
	}
}

// waitForAlarm lets the alarm sound play out before the process exits.
func waitForAlarm(ctx context.Context, s settings.Settings) {
	if !s.SoundEnabled {
		return
	}
	asset, err := alert.AssetFor(s.AlarmSound)
	if err != nil {
		return
	}
	t := time.NewTimer(asset.Length())
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
