package engine

import (
	"context"
	"database/sql"
	"time"

	"staffline/internal/domain"
	"staffline/internal/events"
)

type ProjectCreateOptions struct {
	Name      string
	StartDate string
	EndDate   string
	// RequiredSkills are stored as named refs as given, without a catalog lookup.
	RequiredSkills []any
	Status         string
	ActorID        string
}

func parseDateField(field, raw string) (time.Time, error) {
	t, err := domain.ParseDate(raw)
	if err != nil {
		return time.Time{}, validationError("%s must be a %s date, got %q", field, "YYYY-MM-DD", raw)
	}
	return t, nil
}

func validateWindow(p domain.Project) error {
	if p.EndDate.Before(p.StartDate) {
		return newError(KindValidation, map[string]any{
			"start_date": domain.FormatDate(p.StartDate),
			"end_date":   domain.FormatDate(p.EndDate),
		}, "end_date %s is before start_date %s", domain.FormatDate(p.EndDate), domain.FormatDate(p.StartDate))
	}
	return nil
}

func parseStatus(raw string) (domain.ProjectStatus, error) {
	s := domain.ProjectStatus(raw)
	if !s.Valid() {
		return "", validationError("status must be one of PLANNED, IN_PROGRESS, LATE, DONE, got %q", raw)
	}
	return s, nil
}

func namedSkills(items []any) ([]domain.SkillRef, error) {
	refs := make([]domain.SkillRef, 0, len(items))
	for i, item := range items {
		name, ok := item.(string)
		if !ok {
			return nil, validationError("required_skills %d: must be a technology name, got %T", i, item)
		}
		refs = append(refs, domain.Named(name))
	}
	return refs, nil
}

func (e Engine) CreateProject(ctx context.Context, opts ProjectCreateOptions) (domain.Project, error) {
	if err := validateName("name", opts.Name, maxEntityName); err != nil {
		return domain.Project{}, err
	}
	p := domain.Project{Name: opts.Name, Status: domain.StatusPlanned}
	var err error
	if p.StartDate, err = parseDateField("start_date", opts.StartDate); err != nil {
		return domain.Project{}, err
	}
	if p.EndDate, err = parseDateField("end_date", opts.EndDate); err != nil {
		return domain.Project{}, err
	}
	if err := validateWindow(p); err != nil {
		return domain.Project{}, err
	}
	if opts.Status != "" {
		if p.Status, err = parseStatus(opts.Status); err != nil {
			return domain.Project{}, err
		}
	}
	if p.RequiredSkills, err = namedSkills(opts.RequiredSkills); err != nil {
		return domain.Project{}, err
	}
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()
	p, err = e.Repo.InsertProject(ctx, tx, p)
	if err != nil {
		return domain.Project{}, writeErr(err)
	}
	if err := e.Events.Append(ctx, tx, "project.created", events.KindProject, p.ID, opts.ActorID, events.EventPayload{
		"name":   p.Name,
		"status": p.Status,
	}); err != nil {
		return domain.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

// ProjectUpdateOptions leaves nil fields unchanged. RequiredSkills are appended
// through the catalog. Force lets Status leave DONE.
type ProjectUpdateOptions struct {
	ID             int64
	Name           *string
	StartDate      *string
	EndDate        *string
	Status         *string
	RequiredSkills []any
	Force          bool
	ActorID        string
}

func (e Engine) UpdateProject(ctx context.Context, opts ProjectUpdateOptions) (domain.Project, error) {
	if opts.Name != nil {
		if err := validateName("name", *opts.Name, maxEntityName); err != nil {
			return domain.Project{}, err
		}
	}
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()
	p, err := e.Repo.GetProjectTx(ctx, tx, opts.ID)
	if err != nil {
		return domain.Project{}, lookupErr(err, "project", opts.ID)
	}
	oldStatus := p.Status
	if opts.Name != nil {
		p.Name = *opts.Name
	}
	if opts.StartDate != nil {
		if p.StartDate, err = parseDateField("start_date", *opts.StartDate); err != nil {
			return domain.Project{}, err
		}
	}
	if opts.EndDate != nil {
		if p.EndDate, err = parseDateField("end_date", *opts.EndDate); err != nil {
			return domain.Project{}, err
		}
	}
	if err := validateWindow(p); err != nil {
		return domain.Project{}, err
	}
	if opts.StartDate != nil || opts.EndDate != nil {
		if err := e.checkProjectCeiling(ctx, tx, p); err != nil {
			return domain.Project{}, err
		}
	}
	if opts.Status != nil {
		next, err := parseStatus(*opts.Status)
		if err != nil {
			return domain.Project{}, err
		}
		if err := ensureProjectTransition(oldStatus, next, opts.Force); err != nil {
			return domain.Project{}, err
		}
		p.Status = next
	}
	if len(opts.RequiredSkills) > 0 {
		if p.RequiredSkills, err = e.stageSkills(ctx, tx, p.RequiredSkills, opts.RequiredSkills, true); err != nil {
			return domain.Project{}, err
		}
	}
	if err := e.Repo.UpdateProjectTx(ctx, tx, p); err != nil {
		return domain.Project{}, writeErr(err)
	}
	payload := events.EventPayload{"name": p.Name, "status": p.Status}
	if oldStatus != p.Status {
		payload["from"] = oldStatus
		if opts.Force {
			payload["force"] = true
		}
	}
	if err := e.Events.Append(ctx, tx, "project.updated", events.KindProject, p.ID, opts.ActorID, payload); err != nil {
		return domain.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

// checkProjectCeiling rejects a window change that leaves the project's
// existing allocations above its new ceiling.
func (e Engine) checkProjectCeiling(ctx context.Context, tx *sql.Tx, p domain.Project) error {
	allocated, err := e.Repo.AllocatedHoursTx(ctx, tx, p.ID, 0)
	if err != nil {
		return err
	}
	ceiling := e.Capacity.Ceiling(p)
	if allocated.LessThanOrEqual(ceiling) {
		return nil
	}
	excess := allocated.Sub(ceiling)
	return newError(KindCapacityExceeded, map[string]any{
		"project":    p.ID,
		"policy":     e.Capacity.Name(),
		"ceiling":    ceiling.String(),
		"allocated":  allocated.String(),
		"excess":     excess.String(),
		"start_date": domain.FormatDate(p.StartDate),
		"end_date":   domain.FormatDate(p.EndDate),
	}, "project %q holds %s hours, exceeding the ceiling of %s for %s..%s by %s",
		p.Name, allocated, ceiling, domain.FormatDate(p.StartDate), domain.FormatDate(p.EndDate), excess)
}

// ensureProjectTransition allows any move except out of DONE, unless forced.
func ensureProjectTransition(oldStatus, newStatus domain.ProjectStatus, force bool) error {
	if force || oldStatus == newStatus || oldStatus != domain.StatusDone {
		return nil
	}
	return newError(KindInvalidTransition, map[string]any{"from": oldStatus, "to": newStatus},
		"invalid project status transition %s -> %s", oldStatus, newStatus)
}

// DeleteProject removes the project and, by cascade, its allocations.
func (e Engine) DeleteProject(ctx context.Context, id int64, actorID string) error {
	tx, err := e.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteProjectTx(ctx, tx, id); err != nil {
		return lookupErr(err, "project", id)
	}
	if err := e.Events.Append(ctx, tx, "project.deleted", events.KindProject, id, actorID, nil); err != nil {
		return err
	}
	return tx.Commit()
}

// MarkProjectLate moves one project to LATE for the lifecycle sweep. It
// reports false when the project was already LATE or DONE.
func (e Engine) MarkProjectLate(ctx context.Context, id int64, runID string) (bool, error) {
	tx, err := e.begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()
	p, err := e.Repo.GetProjectTx(ctx, tx, id)
	if err != nil {
		return false, lookupErr(err, "project", id)
	}
	changed, err := e.Repo.MarkProjectLateTx(ctx, tx, id)
	if err != nil || !changed {
		return false, err
	}
	if err := e.Events.Append(ctx, tx, "project.late", events.KindProject, id, "system", events.EventPayload{
		"from":     p.Status,
		"end_date": domain.FormatDate(p.EndDate),
		"run_id":   runID,
	}); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// ListSweepableProjects lists the projects not yet LATE or DONE.
func (e Engine) ListSweepableProjects(ctx context.Context) ([]domain.Project, error) {
	return e.Repo.ListSweepableProjects(ctx)
}
