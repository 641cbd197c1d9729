package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"pokertracker/internal/cli"
	"pokertracker/internal/core"
	"pokertracker/internal/stats"
)

type addOptions struct {
	date    string
	minutes int
	buyIn   string
	rebuy   string
	cashOut string
	notes   string
}

func newAddCmd(opts *rootOptions) *cobra.Command {
	o := &addOptions{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a session",
		Example: `  pokerctl add --date yesterday --minutes 180 --buy-in 100 --cash-out 250
  pokerctl add --date 2024-03-10 --minutes 90 --buy-in 50 --rebuy 50 --cash-out 0 --notes "bad beat"`,
		Args: cobra.NoArgs,
		RunE: withApp(opts, true, func(cmd *cobra.Command, _ []string, a *app) error {
			s, err := o.session(a)
			if err != nil {
				return err
			}
			created, err := a.sessions.Create(cmd.Context(), a.identity, s)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added session %s on %s: %s, profit %s\n",
				created.ID, created.Date, cli.FormatHours(created.DurationMinutes), cli.FormatProfit(created.Profit()))
			return nil
		}),
	}
	cmd.Flags().StringVar(&o.date, "date", "today", `session date: YYYY-MM-DD or phrases like "yesterday"`)
	cmd.Flags().IntVar(&o.minutes, "minutes", 0, "duration in minutes")
	cmd.Flags().StringVar(&o.buyIn, "buy-in", "", "buy-in amount")
	cmd.Flags().StringVar(&o.rebuy, "rebuy", "0", "rebuy amount")
	cmd.Flags().StringVar(&o.cashOut, "cash-out", "", "cash-out amount")
	cmd.Flags().StringVar(&o.notes, "notes", "", "free-form notes")
	_ = cmd.MarkFlagRequired("minutes")
	_ = cmd.MarkFlagRequired("buy-in")
	_ = cmd.MarkFlagRequired("cash-out")
	return cmd
}

func (o *addOptions) session(a *app) (core.Session, error) {
	date, err := cli.ParseSessionDate(o.date, a.now())
	if err != nil {
		return core.Session{}, err
	}
	s := core.Session{Date: date, DurationMinutes: o.minutes}
	amounts := []struct {
		flag string
		raw  string
		dst  *core.Money
	}{{"buy-in", o.buyIn, &s.BuyIn}, {"rebuy", o.rebuy, &s.Rebuy}, {"cash-out", o.cashOut, &s.CashOut}}
	for _, am := range amounts {
		m, err := core.ParseAmount(am.raw)
		if err != nil {
			return core.Session{}, fmt.Errorf("--%s %q: %w", am.flag, am.raw, err)
		}
		*am.dst = m
	}
	if notes := strings.TrimSpace(o.notes); notes != "" {
		s.Notes = &notes
	}
	return s, nil
}

func newListCmd(opts *rootOptions) *cobra.Command {
	var rangeName string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List sessions, newest first",
		Args:    cobra.NoArgs,
		RunE: withApp(opts, true, func(cmd *cobra.Command, _ []string, a *app) error {
			sessions, err := a.sessions.List(cmd.Context(), a.identity)
			if err != nil {
				return err
			}
			now := a.now()
			sessions = stats.ParseChartRange(rangeName).Filter(sessions, now)

			out := cmd.OutOrStdout()
			if len(sessions) == 0 {
				fmt.Fprintln(out, "No sessions found. Use 'pokerctl add' to record one.")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "DATE\tHOURS\tBUY-IN\tREBUY\tCASH-OUT\tPROFIT\tCREATED\tNOTES")
			for _, s := range sessions {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					s.Date,
					cli.FormatHours(s.DurationMinutes),
					cli.FormatMoney(s.BuyIn),
					cli.FormatMoney(s.Rebuy),
					cli.FormatMoney(s.CashOut),
					cli.FormatProfit(s.Profit()),
					cli.Ago(s.CreatedAt, now),
					truncate(s.NotesText(), 40))
			}
			return tw.Flush()
		}),
	}
	cmd.Flags().StringVar(&rangeName, "range", string(stats.RangeAll), "week, month, quarter, year or all")
	return cmd
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}
