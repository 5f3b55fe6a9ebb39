package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"fintrack/internal/aggregate"
	"fintrack/internal/core"
	"fintrack/internal/store"
)

type summaryOutput struct {
	Summary    aggregate.SummaryView `json:"summary"`
	Categories []categoryTotalOutput `json:"categories"`
}

type categoryTotalOutput struct {
	Name  string `json:"name"`
	Total string `json:"total"`
	Color string `json:"color"`
}

func summaryCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show balance and spending per category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			return writeSummary(os.Stdout, buildSummary(s.store.Snapshot()), asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func buildSummary(snap store.Snapshot) summaryOutput {
	out := summaryOutput{
		Summary:    aggregate.Balance(snap.Incomes, snap.Expenses).Display(),
		Categories: []categoryTotalOutput{},
	}
	for _, t := range aggregate.CategoryBreakdown(snap.Expenses, snap.Categories) {
		out.Categories = append(out.Categories, categoryTotalOutput{
			Name:  t.Name,
			Total: t.Total.StringFixed(core.MoneyPlaces),
			Color: t.Color.Hex(),
		})
	}
	return out
}

func writeSummary(out io.Writer, s summaryOutput, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "Incomes\t%s\t\n", s.Summary.Incomes)
	fmt.Fprintf(w, "Expenses\t%s\t\n", s.Summary.Expenses)
	fmt.Fprintf(w, "Balance\t%s\t\n", s.Summary.Balance)
	if len(s.Categories) > 0 {
		fmt.Fprintln(w, "\t\t")
		for _, c := range s.Categories {
			fmt.Fprintf(w, "%s\t%s\t\n", c.Name, c.Total)
		}
	}
	return w.Flush()
}
