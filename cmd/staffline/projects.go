package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"staffline/internal/domain"
	"staffline/internal/engine"
	"staffline/internal/query"
)

func projectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
		Long:  "Projects move PLANNED -> IN_PROGRESS -> DONE; the sweep marks them LATE once their end date has passed. DONE is terminal unless --force is given.",
	}
	cmd.AddCommand(projectCreateCmd())
	cmd.AddCommand(projectListCmd())
	cmd.AddCommand(projectShowCmd())
	cmd.AddCommand(projectUpdateCmd())
	cmd.AddCommand(projectAssignCmd())
	cmd.AddCommand(projectStatusCmd())
	cmd.AddCommand(projectDeleteCmd())
	return cmd
}

func projectCreateCmd() *cobra.Command {
	var name, start, end, status string
	var skills []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create project",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := skillArgs(skills)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.CreateProject(ctx, engine.ProjectCreateOptions{
					Name:           name,
					StartDate:      start,
					EndDate:        end,
					RequiredSkills: items,
					Status:         status,
					ActorID:        actor(),
				})
				if err != nil {
					return err
				}
				return printProjects(e, []domain.Project{p})
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "project name")
	cmd.Flags().StringVar(&start, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "end date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&status, "status", "", "initial status (default PLANNED)")
	cmd.Flags().StringArrayVar(&skills, "skill", nil, "required technology, may repeat")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func projectListCmd() *cobra.Command {
	var filters []string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := filterParams(filters)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListProjects(ctx, query.Projects.Parse(params))
				if err != nil {
					return err
				}
				return printProjects(e, items)
			})
		},
	}
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "field[__lookup]=value, may repeat")
	return cmd
}

func projectShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a project with its allocations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.Repo.GetProject(ctx, id)
				if err != nil {
					return err
				}
				allocs, err := e.Repo.ListAllocations(ctx, query.Allocations.Parse(map[string][]string{"project": {args[0]}}))
				if err != nil {
					return err
				}
				allocated, err := e.Repo.AllocatedHours(ctx, id)
				if err != nil {
					return err
				}
				ceiling := e.Capacity.Ceiling(p)
				if viper.GetBool("json") {
					view := projectView(e, p)
					view["allocated"] = allocated.StringFixed(2)
					view["remaining"] = ceiling.Sub(allocated).StringFixed(2)
					view["allocations"] = allocs
					return printJSON(view)
				}
				if err := printProjects(e, []domain.Project{p}); err != nil {
					return err
				}
				fmt.Printf("allocated %s of %s hours (%s)\n", allocated.StringFixed(2), ceiling.StringFixed(2), e.Capacity.Name())
				return printAllocations(allocs)
			})
		},
	}
}

func projectUpdateCmd() *cobra.Command {
	var name, start, end string
	var skills []string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update project name, window or append required skills",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			items, err := skillArgs(skills)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.UpdateProject(ctx, engine.ProjectUpdateOptions{
					ID:             id,
					Name:           optionalString(cmd, "name", name),
					StartDate:      optionalString(cmd, "start", start),
					EndDate:        optionalString(cmd, "end", end),
					RequiredSkills: items,
					ActorID:        actor(),
				})
				if err != nil {
					return err
				}
				return printProjects(e, []domain.Project{p})
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&start, "start", "", "new start date")
	cmd.Flags().StringVar(&end, "end", "", "new end date")
	cmd.Flags().StringArrayVar(&skills, "skill", nil, "required skill to append, may repeat")
	return cmd
}

func projectAssignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assign <id> <skill>...",
		Short: "Append required skills to a project",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			items, err := skillArgs(args[1:])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.AssignProjectSkills(ctx, id, items, actor())
				if err != nil {
					return err
				}
				return printProjects(e, []domain.Project{p})
			})
		},
	}
}

func projectStatusCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "status <id> <PLANNED|IN_PROGRESS|LATE|DONE>",
		Short: "Set project status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			status := strings.ToUpper(args[1])
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.UpdateProject(ctx, engine.ProjectUpdateOptions{ID: id, Status: &status, Force: force, ActorID: actor()})
				if err != nil {
					return err
				}
				return printProjects(e, []domain.Project{p})
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "allow leaving DONE")
	return cmd
}

func projectDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a project and its allocations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.DeleteProject(ctx, id, actor()); err != nil {
					return err
				}
				fmt.Println("deleted project", id)
				return nil
			})
		},
	}
}

func projectView(e engine.Engine, p domain.Project) map[string]any {
	return map[string]any{
		"id":              p.ID,
		"name":            p.Name,
		"start_date":      domain.FormatDate(p.StartDate),
		"end_date":        domain.FormatDate(p.EndDate),
		"required_skills": domain.SkillValues(p.RequiredSkills),
		"status":          p.Status,
		"capacity":        e.Capacity.Ceiling(p).StringFixed(2),
	}
}

func printProjects(e engine.Engine, items []domain.Project) error {
	if viper.GetBool("json") {
		views := make([]map[string]any, 0, len(items))
		for _, p := range items {
			views = append(views, projectView(e, p))
		}
		return printJSON(views)
	}
	tw := newTable("ID", "Name", "Start", "End", "Status", "Capacity", "Required")
	for _, p := range items {
		tw.AppendRow(table.Row{
			p.ID, p.Name, domain.FormatDate(p.StartDate), domain.FormatDate(p.EndDate),
			p.Status, e.Capacity.Ceiling(p).StringFixed(2), skillsText(p.RequiredSkills),
		})
	}
	tw.Render()
	return nil
}

func filterParams(filters []string) (map[string][]string, error) {
	params := map[string][]string{}
	for _, f := range filters {
		key, value, ok := strings.Cut(f, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid filter %q, want field[__lookup]=value", f)
		}
		params[key] = append(params[key], value)
	}
	return params, nil
}
