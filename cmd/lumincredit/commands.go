package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func scoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score <username>",
		Short: "Score a user and print the dashboard as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			d, err := a.dashboard.Build(cmd.Context(), args[0], "cli")
			if err != nil {
				return err
			}
			return printJSON(d)
		},
	}
}

func usersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List users and their scenario",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "USERNAME\tTYPE")
			for _, u := range a.store.List() {
				fmt.Fprintf(w, "%s\t%s\n", u.Username, u.Type)
			}
			return w.Flush()
		},
	}
}

func historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history <username>",
		Short: "Show recorded scoring runs for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			runs, err := a.recorder.RecentRuns(args[0], limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tTRIGGER\tSCORE\tPROVISIONAL\tWEIGHTS\tALERTS")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%d\n",
					r.Timestamp.Local().Format(time.DateTime), r.Trigger, r.Score, r.ProvisionalScore, r.WeightsSource, r.AlertCount)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of runs to show")
	return cmd
}

func payCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pay <username> <amount>",
		Short: "Pay down a user's debt from savings",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("amount %q: %w", args[1], err)
			}
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			receipt, err := a.payments.Pay(args[0], amount)
			if err != nil {
				return err
			}
			return printJSON(receipt)
		},
	}
}
