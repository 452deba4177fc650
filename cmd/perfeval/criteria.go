package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/geocoder89/perfeval/internal/domain/criterion"
	"github.com/spf13/cobra"
)

func (c *cli) criteriaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "criteria",
		Short: "Manage evaluation criteria",
	}
	cmd.AddCommand(c.criteriaListCmd(), c.criteriaAddCmd(), c.criteriaDeleteCmd())
	return cmd
}

func (c *cli) criteriaListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List criteria",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tWEIGHT\tDESCRIPTION")
			for _, cr := range c.app.Criteria.List(ctxOf(cmd)) {
				fmt.Fprintf(tw, "%s\t%s\t%g\t%s\n", cr.ID, cr.Name, cr.Weight, cr.Description)
			}
			return tw.Flush()
		},
	}
}

func (c *cli) criteriaAddCmd() *cobra.Command {
	var (
		req    criterion.CreateRequest
		weight float64
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a criterion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("weight") {
				req.Weight = &weight
			}

			cr, err := criterion.New(req)
			if err != nil {
				return err
			}
			if err := c.app.Criteria.Create(ctxOf(cmd), cr); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added criterion %s (%s)\n", cr.Name, cr.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "criterion name")
	cmd.Flags().Float64Var(&weight, "weight", criterion.DefaultWeight, "relative weight, greater than 0")
	cmd.Flags().StringVar(&req.Description, "description", "", "what the criterion measures")

	return cmd
}

func (c *cli) criteriaDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <criterion-id>",
		Short: "Delete a criterion; existing scores for it stop counting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Criteria.Delete(ctxOf(cmd), args[0]); err != nil {
				return fmt.Errorf("delete criterion %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}
