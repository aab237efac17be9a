package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/tminus/internal/export"
	"github.com/sadopc/tminus/internal/logx"
	"github.com/sadopc/tminus/internal/store"
)

func newExportCmd(flags *globalFlags) *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the completion history as CSV or JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "csv" && format != "json" {
				return fmt.Errorf("--format must be csv or json, got %q", format)
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

			completions, err := st.store.ListCompletions(store.CompletionFilter{})
			if err != nil {
				return err
			}

			if out == "-" {
				return writeExport(cmd.OutOrStdout(), format, completions)
			}
			if out == "" {
				out = defaultExportName(format, time.Now())
			}
			if format == "csv" {
				err = export.ToCSV(completions, out)
			} else {
				err = export.ToJSON(completions, out)
			}
			if err != nil {
				return err
			}
			log.Info("export written", "path", out, "count", len(completions))
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "csv or json")
	cmd.Flags().StringVarP(&out, "out", "o", "", `output file, "-" for stdout (default tminus-export-DATE.<format>)`)
	return cmd
}

func writeExport(w io.Writer, format string, completions []store.Completion) error {
	if format == "csv" {
		return export.WriteCSV(w, completions)
	}
	return export.WriteJSON(w, completions)
}

func defaultExportName(format string, now time.Time) string {
	return fmt.Sprintf("tminus-export-%s.%s", now.Format("2006-01-02"), format)
}
