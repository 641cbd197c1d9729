package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"pokertracker/internal/export"
	"pokertracker/internal/stats"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	var rangeName, formatName, outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export sessions to CSV or XLSX, oldest first",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, true, func(cmd *cobra.Command, _ []string, a *app) error {
			rng := stats.ParseExportRange(rangeName)
			format := export.ParseFormat(formatName)

			sessions, err := a.stats.Export(cmd.Context(), a.identity, rng)
			if err != nil {
				return err
			}

			if outPath == "" {
				outPath = export.Filename(string(rng), format)
			}
			var w io.Writer = cmd.OutOrStdout()
			if outPath != "-" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create %s: %w", outPath, err)
				}
				defer f.Close()
				w = f
			}

			if err := export.Write(w, format, sessions); err != nil {
				return err
			}
			if outPath != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d sessions to %s\n", len(sessions), outPath)
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&rangeName, "range", string(stats.ExportAll), "7days, 30days, 90days, 1year or all")
	cmd.Flags().StringVar(&formatName, "format", string(export.FormatCSV), "csv or xlsx")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", `output file, "-" for stdout (default poker-sessions-<range>.<ext>)`)
	return cmd
}
