package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/geocoder89/perfeval/internal/engine"
	"github.com/spf13/cobra"
)

func (c *cli) summaryCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "summary [employee-id]",
		Short: "Show score summaries for every employee or for one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := ctxOf(cmd)
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				u, err := c.app.Users.GetByID(ctx, args[0])
				if err != nil {
					return fmt.Errorf("employee %s: %w", args[0], err)
				}
				s := engine.EmployeeSummary{
					Summary:      c.app.Engine.EmployeeSummary(ctx, u.ID),
					EmployeeName: u.DisplayName(),
					Email:        u.Email,
				}
				if asJSON {
					return writeJSON(cmd, s)
				}

				fmt.Fprintf(out, "Employee:          %s <%s>\n", s.EmployeeName, s.Email)
				fmt.Fprintf(out, "Evaluations:       %d (%d final)\n", s.TotalEvaluations, s.FinalEvaluations)
				fmt.Fprintf(out, "Average score:     %.2f\n", s.AverageScore)
				fmt.Fprintf(out, "Latest score:      %.2f\n", s.LatestScore)
				if s.LatestEvaluation != nil {
					fmt.Fprintf(out, "Latest evaluation: %s on %s (%s)\n", s.LatestEvaluation.ID, s.LatestEvaluation.Date, s.LatestEvaluation.Status)
				}
				return nil
			}

			summaries := c.app.Engine.AllEmployeeSummaries(ctx, c.app.Users)
			if asJSON {
				return writeJSON(cmd, summaries)
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "EMPLOYEE\tEMAIL\tTOTAL\tFINAL\tAVERAGE\tLATEST")
			for _, s := range summaries {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%.2f\t%.2f\n",
					s.EmployeeName, s.Email, s.TotalEvaluations, s.FinalEvaluations, s.AverageScore, s.LatestScore)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) exportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write xlsx reports into the exports directory",
	}
	cmd.PersistentFlags().StringVarP(&output, "output", "o", "", "file name inside the exports directory (default timestamped)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "detail",
			Short: "One row per evaluation, one column per criterion",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				ctx := ctxOf(cmd)
				path, err := c.app.Exporter.EvaluationsDetail(
					c.app.Evaluations.List(ctx),
					c.app.Criteria.List(ctx),
					c.app.Users.List(ctx),
					output,
				)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "summary",
			Short: "One row per employee with average and latest scores",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				summaries := c.app.Engine.AllEmployeeSummaries(ctxOf(cmd), c.app.Users)
				path, err := c.app.Exporter.EmployeeSummary(summaries, output)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			},
		},
	)

	return cmd
}

func (c *cli) backupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Copy the data files into a timestamped backup directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := c.app.Backup.Run(ctxOf(cmd))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backed up %d files to %s\n", len(res.Files), res.Dir)
			if res.Uploaded > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %d files\n", res.Uploaded)
			}
			return nil
		},
	}
}
