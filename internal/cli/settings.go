package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sadopc/tminus/internal/logx"
	"github.com/sadopc/tminus/internal/settings"
	"github.com/sadopc/tminus/internal/timefmt"
)

func newSettingsCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change alert settings",
	}
	cmd.AddCommand(newSettingsShowCmd(flags))
	cmd.AddCommand(newSettingsSetCmd(flags))
	cmd.AddCommand(newSettingsResetCmd(flags))
	cmd.AddCommand(newSettingsDumpCmd(flags))
	return cmd
}

func newSettingsShowCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			st, err := openStorage(cfg, logx.Ctx(cmd.Context()))
			if err != nil {
				return err
			}
			defer st.Close()
			printSettings(cmd.OutOrStdout(), st.settings.Settings(), st.settings.Duration(cfg.Timer.DefaultDurationSeconds))
			return nil
		},
	}
}

func printSettings(w io.Writer, s settings.Settings, duration int) {
	fmt.Fprintf(w, "sound:      %s\n", onOff(s.SoundEnabled))
	fmt.Fprintf(w, "vibration:  %s\n", onOff(s.VibrationEnabled))
	fmt.Fprintf(w, "repeat:     %s\n", onOff(s.RepeatEnabled))
	fmt.Fprintf(w, "alarm:      %s (%s)\n", s.AlarmSound.Label(), s.AlarmSound)
	fmt.Fprintf(w, "duration:   %s\n", timefmt.Format(duration))
}

func newSettingsSetCmd(flags *globalFlags) *cobra.Command {
	var sound, vibration, repeat, alarm string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change one or more settings",
		Example: "  tminus settings set --sound off\n" +
			"  tminus settings set --alarm chime --repeat on",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := buildPatch(cmd, sound, vibration, repeat, alarm)
			if err != nil {
				return err
			}
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			log := logx.Ctx(cmd.Context())
			st, err := openStorage(cfg, log)
			if err != nil {
				return err
			}
			defer st.Close()

			next := st.settings.Update(patch)
			log.Debug("settings updated", "sound", string(next.AlarmSound))
			printSettings(cmd.OutOrStdout(), next, st.settings.Duration(cfg.Timer.DefaultDurationSeconds))
			return nil
		},
	}
	cmd.Flags().StringVar(&sound, "sound", "", "alarm sound on|off")
	cmd.Flags().StringVar(&vibration, "vibration", "", "vibration on|off")
	cmd.Flags().StringVar(&repeat, "repeat", "", "restart after the alarm on|off")
	cmd.Flags().StringVar(&alarm, "alarm", "", "alarm sound id or name (beep, chime, bell, digital)")
	return cmd
}

func newSettingsResetCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Restore default settings and forget the saved duration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			st, err := openStorage(cfg, logx.Ctx(cmd.Context()))
			if err != nil {
				return err
			}
			defer st.Close()

			defaults := st.settings.Reset()
			printSettings(cmd.OutOrStdout(), defaults, cfg.Timer.DefaultDurationSeconds)
			return nil
		},
	}
}

func newSettingsDumpCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:    "dump",
		Short:  "Print the raw stored key/value pairs",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			st, err := openStorage(cfg, logx.Ctx(cmd.Context()))
			if err != nil {
				return err
			}
			defer st.Close()

			values, err := st.store.AllValues()
			if err != nil {
				return err
			}
			for _, kv := range values {
				fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", kv.Key, kv.Value)
			}
			return nil
		},
	}
}

// buildPatch turns the flags the user actually set into a settings patch.
func buildPatch(cmd *cobra.Command, sound, vibration, repeat, alarm string) (settings.Patch, error) {
	var p settings.Patch
	for _, f := range []struct {
		name  string
		value string
		dst   **bool
	}{
		{"sound", sound, &p.SoundEnabled},
		{"vibration", vibration, &p.VibrationEnabled},
		{"repeat", repeat, &p.RepeatEnabled},
	} {
		if !cmd.Flags().Changed(f.name) {
			continue
		}
		v, err := parseSwitch(f.value)
		if err != nil {
			return settings.Patch{}, fmt.Errorf("--%s: %w", f.name, err)
		}
		*f.dst = settings.Bool(v)
	}
	if cmd.Flags().Changed("alarm") {
		a, err := settings.ParseAlarmSound(alarm)
		if err != nil {
			return settings.Patch{}, fmt.Errorf("--alarm: %w", err)
		}
		p.AlarmSound = settings.Sound(a)
	}
	if p.IsZero() {
		return settings.Patch{}, errors.New("nothing to change; pass --sound, --vibration, --repeat or --alarm")
	}
	return p, nil
}

var errSwitch = errors.New("expected on or off")

func parseSwitch(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, errSwitch
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
