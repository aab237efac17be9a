package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/sadopc/tminus/internal/logx"
	"github.com/sadopc/tminus/internal/settings"
	"github.com/sadopc/tminus/internal/store"
	"github.com/sadopc/tminus/internal/timefmt"
)

func newHistoryCmd(flags *globalFlags) *cobra.Command {
	var days, limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List finished countdowns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if days <= 0 {
				return fmt.Errorf("--days must be positive")
			}
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			st, err := openStorage(cfg, logx.Ctx(cmd.Context()))
			if err != nil {
				return err
			}
			defer st.Close()

			to := time.Now()
			from := to.AddDate(0, 0, -days)
			completions, err := st.store.ListCompletions(store.CompletionFilter{From: &from, Limit: limit})
			if err != nil {
				return err
			}
			count, total, err := st.store.GetCompletionStats(from, to.Add(time.Second))
			if err != nil {
				return fmt.Errorf("completion stats: %w", err)
			}
			printHistory(cmd.OutOrStdout(), completions, count, total, days)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 7, "how many days back to look")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum rows to print (0 for all)")
	return cmd
}

func printHistory(w io.Writer, completions []store.Completion, count int, total int64, days int) {
	if len(completions) == 0 {
		fmt.Fprintf(w, "No countdowns finished in the last %d days.\n", days)
		return
	}

	rows := make([][]string, 0, len(completions))
	for _, c := range completions {
		rows = append(rows, []string{
			c.CompletedAt.Local().Format("2006-01-02 15:04:05"),
			timefmt.Format(c.Duration),
			settings.AlarmSound(c.AlarmSound).Label(),
			strings.Join(c.Channels(), ", "),
		})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Completed", "Duration", "Alarm", "Channels").
		Rows(rows...)

	fmt.Fprintln(w, t.String())
	fmt.Fprintf(w, "%d completed in the last %d days, %s counted down\n", count, days, timefmt.Format(int(total)))
}
