package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"fintrack/internal/aggregate"
	"fintrack/internal/core"
)

func initCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Seed the default categories for a new principal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := a.initCategories(cmd.Context())
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Println("Categories already present, nothing seeded")
				return nil
			}
			fmt.Printf("Seeded %d default categories\n", n)
			return nil
		},
	}
}

func categoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "category", Aliases: []string{"categories"}, Short: "Manage categories"}

	var form core.CategoryForm
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			form.Name = args[0]
			c, err := form.Parse()
			if err != nil {
				return err
			}
			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			created, err := s.store.Categories.Add(cmd.Context(), c)
			if err != nil {
				return err
			}
			fmt.Printf("Created category %s (%s)\n", created.Name, created.ID)
			return nil
		},
	}
	add.Flags().StringVar(&form.Color, "color", "", fmt.Sprintf("color tag, one of %v", core.Colors()))
	add.Flags().StringVar(&form.Icon, "icon", "", "SVG path data for the icon")

	list := &cobra.Command{
		Use:   "list",
		Short: "List categories by name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			return writeCategories(os.Stdout, s.store.Categories.All())
		},
	}

	cmd.AddCommand(list, add, removeCmd(a, "category", func(s *session) remover { return s.store.Categories }))
	return cmd
}

func expenseCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "expense", Aliases: []string{"expenses"}, Short: "Manage expenses"}

	var (
		form     core.ExpenseForm
		category string
	)
	add := &cobra.Command{
		Use:   "add <description> <amount>",
		Short: "Record an expense",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			form.Description, form.Amount = args[0], args[1]
			form.CategoryID = resolveCategoryID(s.store.Categories.All(), category)
			e, err := form.Parse(s.loc)
			if err != nil {
				return err
			}
			created, err := s.store.Expenses.Add(cmd.Context(), e)
			if err != nil {
				return err
			}
			fmt.Printf("Recorded expense %s %s (%s)\n", created.Amount.Display(), created.Description, created.ID)
			return nil
		},
	}
	add.Flags().StringVarP(&category, "category", "c", core.FallbackCategoryName, "category name or id")
	add.Flags().StringVarP(&form.Date, "date", "d", "", "date as YYYY-MM-DD (default today)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List expenses grouped by day, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			snap := s.store.Snapshot()
			return writeExpenseDays(os.Stdout, aggregate.GroupExpensesByDay(snap.Expenses, s.loc), snap.Categories, s.loc)
		},
	}

	cmd.AddCommand(list, add, removeCmd(a, "expense", func(s *session) remover { return s.store.Expenses }))
	return cmd
}

func incomeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "income", Aliases: []string{"incomes"}, Short: "Manage incomes"}

	var form core.IncomeForm
	add := &cobra.Command{
		Use:   "add <description> <amount>",
		Short: "Record an income",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			form.Description, form.Amount = args[0], args[1]
			in, err := form.Parse(s.loc)
			if err != nil {
				return err
			}
			created, err := s.store.Incomes.Add(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Printf("Recorded income %s %s (%s)\n", created.Amount.Display(), created.Description, created.ID)
			return nil
		},
	}
	add.Flags().StringVarP(&form.Date, "date", "d", "", "date as YYYY-MM-DD (default today)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List incomes grouped by month, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			return writeIncomeMonths(os.Stdout, aggregate.GroupIncomesByMonth(s.store.Incomes.All(), s.loc))
		},
	}

	cmd.AddCommand(list, add, removeCmd(a, "income", func(s *session) remover { return s.store.Incomes }))
	return cmd
}

type remover interface {
	Remove(ctx context.Context, id string) error
}

func removeCmd(a *app, noun string, pick func(*session) remover) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a " + noun,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			if err := pick(s).Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted %s %s\n", noun, args[0])
			return nil
		},
	}
}

// resolveCategoryID accepts a category id or a case-insensitive name.
// Unknown values are passed through so the store reports them.
func resolveCategoryID(categories []core.Category, v string) string {
	for _, c := range categories {
		if c.ID == v || c.Matches(v) {
			return c.ID
		}
	}
	return v
}

func writeCategories(out io.Writer, categories []core.Category) error {
	if len(categories) == 0 {
		_, err := fmt.Fprintln(out, "No categories.")
		return err
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCOLOR")
	for _, c := range categories {
		fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, c.Name, c.Color)
	}
	return w.Flush()
}

func writeExpenseDays(out io.Writer, days []aggregate.DayGroup, categories []core.Category, loc *time.Location) error {
	if len(days) == 0 {
		_, err := fmt.Fprintln(out, "No expenses.")
		return err
	}
	now := time.Now()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, d := range days {
		fmt.Fprintf(w, "%s\t\t%s\n", aggregate.DayLabel(d.Key, now, loc), d.Total.StringFixed(core.MoneyPlaces))
		for _, e := range d.Expenses {
			name := "(missing category)"
			if c, ok := aggregate.ResolveCategory(categories, e.CategoryID); ok {
				name = c.Name
			}
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", e.ID, e.Description, name, e.Amount.Display())
		}
	}
	return w.Flush()
}

func writeIncomeMonths(out io.Writer, months []aggregate.MonthGroup) error {
	if len(months) == 0 {
		_, err := fmt.Fprintln(out, "No incomes.")
		return err
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, m := range months {
		fmt.Fprintf(w, "%s\t\t%s\n", aggregate.MonthLabel(m.Key), m.Total.StringFixed(core.MoneyPlaces))
		for _, in := range m.Incomes {
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", in.ID, in.Description, in.Date, in.Amount.Display())
		}
	}
	return w.Flush()
}
