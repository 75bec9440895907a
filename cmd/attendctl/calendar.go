package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"faceattend/internal/attendance"
	"faceattend/internal/calendar"
)

func (a *app) calendarCmd() *cobra.Command {
	var asJSON bool
	var at string
	cmd := &cobra.Command{
		Use:   "calendar <email>",
		Short: "Print a user's attendance calendar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, err := a.mongo(ctx)
			if err != nil {
				return err
			}
			defer m.Close(ctx)

			doc, err := attendance.NewRepository(m.DB).Get(ctx, args[0])
			if err != nil {
				return err
			}
			r := attendance.NewReconciler(a.cfg.Location(), attendance.PolicyByName(a.cfg.FuturePolicy))
			if at != "" {
				now, err := time.ParseInLocation(calendar.DateLayout, at, a.cfg.Location())
				if err != nil {
					return fmt.Errorf("--at: %w", err)
				}
				r.Now = func() time.Time { return now }
			}
			view := r.Document(doc)

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(view)
			}
			fmt.Fprintf(out, "%s  total attendance %d\n\n", view.UserEmail, view.TotalAttendance)
			for _, g := range view.Months {
				if err := attendance.RenderGrid(out, g); err != nil {
					return err
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the view as JSON")
	cmd.Flags().StringVar(&at, "at", "", "classify as of this date (YYYY-MM-DD) instead of now")
	return cmd
}

func (a *app) totalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "total <email>",
		Short: "Print a user's total attendance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, err := a.mongo(ctx)
			if err != nil {
				return err
			}
			defer m.Close(ctx)

			doc, err := attendance.NewRepository(m.DB).Get(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), attendance.TotalAttendance(doc))
			return nil
		},
	}
}

func (a *app) monthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "month <monthName>",
		Short: `Parse a month name such as "January 2026"`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := calendar.ParseMonthIdentity(args[0])
			if err != nil {
				return err
			}
			first := m.First(a.cfg.Location())
			fmt.Fprintf(cmd.OutOrStdout(), "%s: index %d, year %d, %d days, starts %s\n",
				m.Name(), m.Index, m.Year, m.Days(), first.Weekday())
			return nil
		},
	}
}
