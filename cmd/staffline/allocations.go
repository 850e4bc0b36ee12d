package main

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"staffline/internal/domain"
	"staffline/internal/engine"
	"staffline/internal/query"
)

func allocationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "allocation",
		Aliases: []string{"alloc"},
		Short:   "Manage the allocation ledger",
	}
	cmd.AddCommand(allocationCreateCmd())
	cmd.AddCommand(allocationListCmd())
	cmd.AddCommand(allocationUpdateCmd())
	cmd.AddCommand(allocationDeleteCmd())
	return cmd
}

func allocationCreateCmd() *cobra.Command {
	var projectID, developerID int64
	var hours string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Allocate programmer hours to a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := engine.ParseHours(hours)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.CreateAllocation(ctx, engine.AllocationCreateOptions{
					ProjectID:   projectID,
					DeveloperID: developerID,
					Hours:       h,
					ActorID:     actor(),
				})
				if err != nil {
					return err
				}
				return printAllocations([]domain.Allocation{a})
			})
		},
	}
	cmd.Flags().Int64Var(&projectID, "project", 0, "project id")
	cmd.Flags().Int64Var(&developerID, "developer", 0, "programmer id")
	cmd.Flags().StringVar(&hours, "hours", "", "hours, up to two decimals")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("developer")
	_ = cmd.MarkFlagRequired("hours")
	return cmd
}

func allocationListCmd() *cobra.Command {
	var filters []string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List allocations",
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := filterParams(filters)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListAllocations(ctx, query.Allocations.Parse(params))
				if err != nil {
					return err
				}
				return printAllocations(items)
			})
		},
	}
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "field[__lookup]=value, may repeat")
	return cmd
}

func allocationUpdateCmd() *cobra.Command {
	var projectID, developerID int64
	var hours string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change an allocation; its own hours do not count against the ceiling",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "allocation")
			if err != nil {
				return err
			}
			opts := engine.AllocationUpdateOptions{ID: id, ActorID: actor()}
			if cmd.Flags().Changed("project") {
				opts.ProjectID = &projectID
			}
			if cmd.Flags().Changed("developer") {
				opts.DeveloperID = &developerID
			}
			if cmd.Flags().Changed("hours") {
				h, err := engine.ParseHours(hours)
				if err != nil {
					return err
				}
				opts.Hours = &h
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.UpdateAllocation(ctx, opts)
				if err != nil {
					return err
				}
				return printAllocations([]domain.Allocation{a})
			})
		},
	}
	cmd.Flags().Int64Var(&projectID, "project", 0, "move to project id")
	cmd.Flags().Int64Var(&developerID, "developer", 0, "move to programmer id")
	cmd.Flags().StringVar(&hours, "hours", "", "new hours")
	return cmd
}

func allocationDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an allocation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "allocation")
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.DeleteAllocation(ctx, id, actor()); err != nil {
					return err
				}
				fmt.Println("deleted allocation", id)
				return nil
			})
		},
	}
}

func printAllocations(items []domain.Allocation) error {
	if viper.GetBool("json") {
		return printJSON(items)
	}
	tw := newTable("ID", "Project", "Developer", "Hours")
	total := decimal.Zero
	for _, a := range items {
		total = total.Add(a.Hours)
		tw.AppendRow(table.Row{a.ID, a.ProjectID, a.DeveloperID, a.Hours.StringFixed(2)})
	}
	tw.AppendFooter(table.Row{"", "", "Total", total.StringFixed(2)})
	tw.Render()
	return nil
}
