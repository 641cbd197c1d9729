package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"pokertracker/internal/cli"
	"pokertracker/internal/stats"
)

func newStatsCmd(opts *rootOptions) *cobra.Command {
	var (
		rangeName string
		allRanges bool
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show profit, hours and hourly rate",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, true, func(cmd *cobra.Command, _ []string, a *app) error {
			ranges := []stats.ChartRange{stats.ParseChartRange(rangeName)}
			if allRanges {
				ranges = stats.ChartRanges()
			}

			reports := make([]stats.Report, len(ranges))
			g, ctx := errgroup.WithContext(cmd.Context())
			for i, r := range ranges {
				g.Go(func() error {
					rep, err := a.stats.Report(ctx, a.identity, r)
					if err != nil {
						return fmt.Errorf("stats for %s: %w", r, err)
					}
					reports[i] = rep
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			return printReports(cmd.OutOrStdout(), reports)
		}),
	}
	cmd.Flags().StringVar(&rangeName, "range", string(stats.RangeMonth), "week, month, quarter, year or all")
	cmd.Flags().BoolVar(&allRanges, "all-ranges", false, "compute every range")
	return cmd
}

func printReports(out io.Writer, reports []stats.Report) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "RANGE\tSESSIONS\tHOURS\tPROFIT\tPER HOUR\t")
	for _, rep := range reports {
		fmt.Fprintf(tw, "%s\t%d\t%.1f\t%s\t%s\t\n",
			rep.Range,
			rep.Stats.TotalSessions,
			rep.Stats.HoursFloat(),
			cli.FormatProfit(rep.Stats.TotalProfit),
			cli.FormatProfit(rep.Stats.HourlyRate))
	}
	return tw.Flush()
}
