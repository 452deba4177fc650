package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/geocoder89/perfeval/internal/domain/evaluation"
	"github.com/geocoder89/perfeval/internal/domain/user"
	"github.com/geocoder89/perfeval/internal/engine"
	"github.com/geocoder89/perfeval/internal/validation"
	"github.com/spf13/cobra"
)

func (c *cli) evaluationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "evaluations",
		Aliases: []string{"evals"},
		Short:   "List and record evaluations",
	}
	cmd.AddCommand(c.evaluationsListCmd(), c.evaluationsCreateCmd())
	return cmd
}

func (c *cli) evaluationsListCmd() *cobra.Command {
	var employeeID, evaluatorID, status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List evaluations with names and weighted scores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := ctxOf(cmd)

			var evals []evaluation.Evaluation
			switch {
			case employeeID != "":
				evals = c.app.Evaluations.ListByEmployee(ctx, employeeID)
			case evaluatorID != "":
				evals = c.app.Evaluations.ListByEvaluator(ctx, evaluatorID)
			default:
				evals = c.app.Evaluations.List(ctx)
			}

			names := c.app.Users.Names(ctx)
			criteria := c.app.Engine.CriteriaMap(ctx)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDATE\tEMPLOYEE\tEVALUATOR\tSTATUS\tSCORE")
			for _, ev := range evals {
				if status != "" && ev.Status != status {
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.2f\n",
					ev.ID, ev.Date, lookupName(names, ev.EmployeeID), lookupName(names, ev.EvaluatorID),
					ev.Status, engine.WeightedScore(ev.Scores, criteria))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&employeeID, "employee", "", "only evaluations of this employee id")
	cmd.Flags().StringVar(&evaluatorID, "evaluator", "", "only evaluations written by this user id")
	cmd.Flags().StringVar(&status, "status", "", "only evaluations with this status")
	return cmd
}

func (c *cli) evaluationsCreateCmd() *cobra.Command {
	var req evaluation.CreateRequest

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Record an evaluation",
		Example: `  perfeval evaluations create --employee u-1a2b3c4d --evaluator u-5e6f7a8b \
    --score c-11111111=4 --score c-22222222=5 --status final`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := ctxOf(cmd)

			var refs []validation.FieldError
			if u, err := c.app.Users.GetByID(ctx, req.EmployeeID); err != nil || u.Role != user.RoleEmployee {
				refs = append(refs, validation.Field("employee_id", "exists", ""))
			}
			if u, err := c.app.Users.GetByID(ctx, req.EvaluatorID); err != nil || u.Role == user.RoleEmployee {
				refs = append(refs, validation.Field("evaluator_id", "exists", ""))
			}

			criteria := c.app.Engine.CriteriaMap(ctx)
			ids := make([]string, 0, len(req.Scores))
			for id := range req.Scores {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				if _, ok := criteria[id]; !ok {
					refs = append(refs, validation.Field("scores."+id, "exists", ""))
				}
			}
			if err := validation.New(refs...); err != nil {
				return err
			}

			ev, err := evaluation.New(req, c.app.Rating)
			if err != nil {
				return err
			}
			if err := c.app.Evaluations.Create(ctx, ev); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Recorded evaluation %s (weighted score %.2f)\n",
				ev.ID, engine.WeightedScore(ev.Scores, criteria))
			return nil
		},
	}

	cmd.Flags().StringVar(&req.EmployeeID, "employee", "", "employee user id")
	cmd.Flags().StringVar(&req.EvaluatorID, "evaluator", "", "evaluator user id")
	cmd.Flags().StringToIntVar(&req.Scores, "score", nil, "criterion-id=rating, repeatable")
	cmd.Flags().StringVar(&req.Comments, "comments", "", "free text")
	cmd.Flags().StringVar(&req.Status, "status", evaluation.StatusDraft, "draft, final or archived")
	_ = cmd.MarkFlagRequired("employee")
	_ = cmd.MarkFlagRequired("evaluator")
	_ = cmd.MarkFlagRequired("score")

	return cmd
}

func lookupName(names map[string]string, id string) string {
	if n, ok := names[id]; ok && n != "" {
		return n
	}
	return "Unknown"
}
