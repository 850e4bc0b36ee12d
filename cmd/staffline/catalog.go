package main

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"staffline/internal/domain"
	"staffline/internal/engine"
	"staffline/internal/query"
)

func technologyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "technology",
		Aliases: []string{"tech"},
		Short:   "Manage the technology catalog",
	}
	cmd.AddCommand(technologyAddCmd())
	cmd.AddCommand(technologyListCmd())
	cmd.AddCommand(technologyRenameCmd())
	cmd.AddCommand(technologyDeleteCmd())
	return cmd
}

func technologyAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>",
		Short: "Add a technology",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.CreateTechnology(ctx, args[0], actor())
				if err != nil {
					return err
				}
				return printTechnologies([]domain.Technology{t})
			})
		},
	}
}

func technologyListCmd() *cobra.Command {
	var filters []string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List technologies",
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := filterParams(filters)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListTechnologies(ctx, query.Technologies.Parse(params))
				if err != nil {
					return err
				}
				return printTechnologies(items)
			})
		},
	}
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "field[__lookup]=value, may repeat")
	return cmd
}

func technologyRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a technology that nothing references",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "technology")
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.RenameTechnology(ctx, id, args[1], actor())
				if err != nil {
					return err
				}
				return printTechnologies([]domain.Technology{t})
			})
		},
	}
}

func technologyDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a technology that nothing references",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "technology")
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.DeleteTechnology(ctx, id, actor()); err != nil {
					return err
				}
				fmt.Println("deleted technology", id)
				return nil
			})
		},
	}
}

func printTechnologies(items []domain.Technology) error {
	if viper.GetBool("json") {
		return printJSON(items)
	}
	tw := newTable("ID", "Name")
	for _, t := range items {
		tw.AppendRow(table.Row{t.ID, t.Name})
	}
	tw.Render()
	return nil
}

func programmerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "programmer",
		Aliases: []string{"dev"},
		Short:   "Manage programmers",
	}
	cmd.AddCommand(programmerCreateCmd())
	cmd.AddCommand(programmerListCmd())
	cmd.AddCommand(programmerShowCmd())
	cmd.AddCommand(programmerUpdateCmd())
	cmd.AddCommand(programmerAssignCmd())
	cmd.AddCommand(programmerDeleteCmd())
	return cmd
}

func programmerCreateCmd() *cobra.Command {
	var name string
	var skills []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create programmer",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := skillArgs(skills)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.CreateProgrammer(ctx, engine.ProgrammerCreateOptions{Name: name, Skills: items, ActorID: actor()})
				if err != nil {
					return err
				}
				return printProgrammers([]domain.Programmer{p})
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "programmer name")
	cmd.Flags().StringArrayVar(&skills, "skill", nil, "technology name or inline JSON object, may repeat")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func programmerListCmd() *cobra.Command {
	var filters []string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List programmers",
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := filterParams(filters)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListProgrammers(ctx, query.Programmers.Parse(params))
				if err != nil {
					return err
				}
				return printProgrammers(items)
			})
		},
	}
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "field[__lookup]=value, may repeat")
	return cmd
}

func programmerShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a programmer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "programmer")
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.Repo.GetProgrammer(ctx, id)
				if err != nil {
					return err
				}
				return printProgrammers([]domain.Programmer{p})
			})
		},
	}
}

func programmerUpdateCmd() *cobra.Command {
	var name string
	var skills []string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Rename a programmer or append skills",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "programmer")
			if err != nil {
				return err
			}
			items, err := skillArgs(skills)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.UpdateProgrammer(ctx, engine.ProgrammerUpdateOptions{
					ID:      id,
					Name:    optionalString(cmd, "name", name),
					Skills:  items,
					ActorID: actor(),
				})
				if err != nil {
					return err
				}
				return printProgrammers([]domain.Programmer{p})
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringArrayVar(&skills, "skill", nil, "skill to append, may repeat")
	return cmd
}

func programmerAssignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assign <id> <skill>...",
		Short: "Append skills to a programmer",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "programmer")
			if err != nil {
				return err
			}
			items, err := skillArgs(args[1:])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.AssignProgrammerSkills(ctx, id, items, actor())
				if err != nil {
					return err
				}
				return printProgrammers([]domain.Programmer{p})
			})
		},
	}
}

func programmerDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a programmer and their allocations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "programmer")
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.DeleteProgrammer(ctx, id, actor()); err != nil {
					return err
				}
				fmt.Println("deleted programmer", id)
				return nil
			})
		},
	}
}

func printProgrammers(items []domain.Programmer) error {
	if viper.GetBool("json") {
		return printJSON(items)
	}
	tw := newTable("ID", "Name", "Skills")
	for _, p := range items {
		tw.AppendRow(table.Row{p.ID, p.Name, skillsText(p.Skills)})
	}
	tw.Render()
	return nil
}
