package engine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"staffline/internal/config"
	"staffline/internal/domain"
	"staffline/internal/events"
	"staffline/internal/repo"
)

var maxHours = decimal.RequireFromString("999.99")

// ValidateHours checks that hours lie in [0, 999.99] with at most two decimals.
func ValidateHours(h decimal.Decimal) error {
	if h.IsNegative() {
		return newError(KindValidation, map[string]any{"hours": h.String()}, "hours must not be negative, got %s", h)
	}
	if h.GreaterThan(maxHours) {
		return newError(KindValidation, map[string]any{"hours": h.String()}, "hours must be at most %s, got %s", maxHours, h)
	}
	if !h.Equal(h.Truncate(2)) {
		return newError(KindValidation, map[string]any{"hours": h.String()}, "hours allow at most 2 decimal places, got %s", h)
	}
	return nil
}

// ParseHours reads a decimal hours value and validates it.
func ParseHours(raw string) (decimal.Decimal, error) {
	h, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, validationError("hours must be a decimal number, got %q", raw)
	}
	if err := ValidateHours(h); err != nil {
		return decimal.Decimal{}, err
	}
	return h, nil
}

type AllocationCreateOptions struct {
	ProjectID   int64
	DeveloperID int64
	Hours       decimal.Decimal
	ActorID     string
}

// AllocationUpdateOptions leaves nil fields unchanged.
type AllocationUpdateOptions struct {
	ID          int64
	ProjectID   *int64
	DeveloperID *int64
	Hours       *decimal.Decimal
	ActorID     string
}

func (e Engine) CreateAllocation(ctx context.Context, opts AllocationCreateOptions) (domain.Allocation, error) {
	if err := ValidateHours(opts.Hours); err != nil {
		return domain.Allocation{}, err
	}
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.Allocation{}, err
	}
	defer tx.Rollback()
	a := domain.Allocation{ProjectID: opts.ProjectID, DeveloperID: opts.DeveloperID, Hours: opts.Hours}
	if err := e.checkAllocation(ctx, tx, a); err != nil {
		return domain.Allocation{}, err
	}
	a, err = e.Repo.InsertAllocation(ctx, tx, a)
	if err != nil {
		return domain.Allocation{}, duplicateErr(err, a)
	}
	if err := e.Events.Append(ctx, tx, "allocation.created", events.KindAllocation, a.ID, opts.ActorID, allocationPayload(a)); err != nil {
		return domain.Allocation{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Allocation{}, err
	}
	return a, nil
}

func (e Engine) UpdateAllocation(ctx context.Context, opts AllocationUpdateOptions) (domain.Allocation, error) {
	if opts.Hours != nil {
		if err := ValidateHours(*opts.Hours); err != nil {
			return domain.Allocation{}, err
		}
	}
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.Allocation{}, err
	}
	defer tx.Rollback()
	a, err := e.Repo.GetAllocationTx(ctx, tx, opts.ID)
	if err != nil {
		return domain.Allocation{}, lookupErr(err, "allocation", opts.ID)
	}
	if opts.ProjectID != nil {
		a.ProjectID = *opts.ProjectID
	}
	if opts.DeveloperID != nil {
		a.DeveloperID = *opts.DeveloperID
	}
	if opts.Hours != nil {
		a.Hours = *opts.Hours
	}
	if err := e.checkAllocation(ctx, tx, a); err != nil {
		return domain.Allocation{}, err
	}
	if err := e.Repo.UpdateAllocationTx(ctx, tx, a); err != nil {
		return domain.Allocation{}, duplicateErr(err, a)
	}
	if err := e.Events.Append(ctx, tx, "allocation.updated", events.KindAllocation, a.ID, opts.ActorID, allocationPayload(a)); err != nil {
		return domain.Allocation{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Allocation{}, err
	}
	return a, nil
}

// DeleteAllocation removes the allocation without re-checking anything.
func (e Engine) DeleteAllocation(ctx context.Context, id int64, actorID string) error {
	tx, err := e.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	a, err := e.Repo.GetAllocationTx(ctx, tx, id)
	if err != nil {
		return lookupErr(err, "allocation", id)
	}
	if err := e.Repo.DeleteAllocationTx(ctx, tx, id); err != nil {
		return lookupErr(err, "allocation", id)
	}
	if err := e.Events.Append(ctx, tx, "allocation.deleted", events.KindAllocation, id, actorID, allocationPayload(a)); err != nil {
		return err
	}
	return tx.Commit()
}

// checkAllocation enforces skill match, the project window, the capacity
// ceiling and pair uniqueness, in that order. a.ID is zero for new allocations.
func (e Engine) checkAllocation(ctx context.Context, tx *sql.Tx, a domain.Allocation) error {
	project, err := e.Repo.GetProjectTx(ctx, tx, a.ProjectID)
	if err != nil {
		return lookupErr(err, "project", a.ProjectID)
	}
	dev, err := e.Repo.GetProgrammerTx(ctx, tx, a.DeveloperID)
	if err != nil {
		return lookupErr(err, "programmer", a.DeveloperID)
	}
	if err := e.checkSkills(project, dev); err != nil {
		return err
	}
	if err := e.checkWindow(project); err != nil {
		return err
	}
	if err := e.checkCapacity(ctx, tx, project, a); err != nil {
		return err
	}
	existing, err := e.Repo.FindAllocationByPairTx(ctx, tx, a.ProjectID, a.DeveloperID)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != a.ID:
		return duplicatePair(a, existing.ID)
	}
	return nil
}

func (e Engine) checkSkills(project domain.Project, dev domain.Programmer) error {
	required := domain.SkillNames(project.RequiredSkills)
	if len(required) == 0 {
		if e.Config != nil && e.Config.Allocation.EmptyRequiredSkills == config.EmptySkillsAllow {
			return nil
		}
		return newError(KindNoRequiredSkills, map[string]any{"project": project.ID},
			"project %q does not require any technologies", project.Name)
	}
	if len(domain.SharedSkills(dev.Skills, project.RequiredSkills)) == 0 {
		return newError(KindSkillMismatch, map[string]any{
			"project":          project.ID,
			"developer":        dev.ID,
			"required_skills":  required,
			"developer_skills": domain.SkillNames(dev.Skills),
		}, "programmer %q has none of the technologies project %q requires", dev.Name, project.Name)
	}
	return nil
}

// checkWindow accepts writes from start_date 00:00 through end_date 00:00 in
// the configured time zone.
func (e Engine) checkWindow(project domain.Project) error {
	if e.Config != nil && !e.Config.Allocation.TemporalFence {
		return nil
	}
	loc := e.location()
	now := e.now().In(loc)
	start := midnight(project.StartDate, loc)
	end := midnight(project.EndDate, loc)
	if now.Before(start) || now.After(end) {
		return newError(KindTemporalFence, map[string]any{
			"project":    project.ID,
			"start_date": domain.FormatDate(project.StartDate),
			"end_date":   domain.FormatDate(project.EndDate),
			"now":        now.Format(time.RFC3339),
		}, "project %q only accepts allocations between %s and %s", project.Name,
			domain.FormatDate(project.StartDate), domain.FormatDate(project.EndDate))
	}
	return nil
}

func midnight(d time.Time, loc *time.Location) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
}

func (e Engine) checkCapacity(ctx context.Context, tx *sql.Tx, project domain.Project, a domain.Allocation) error {
	others, err := e.Repo.AllocatedHoursTx(ctx, tx, project.ID, a.ID)
	if err != nil {
		return err
	}
	ceiling := e.Capacity.Ceiling(project)
	total := others.Add(a.Hours)
	if total.GreaterThan(ceiling) {
		return newError(KindCapacityExceeded, map[string]any{
			"project":   project.ID,
			"policy":    e.Capacity.Name(),
			"ceiling":   ceiling.String(),
			"allocated": others.String(),
			"requested": a.Hours.String(),
			"total":     total.String(),
			"excess":    total.Sub(ceiling).String(),
		}, "project %q would hold %s hours, exceeding its ceiling of %s by %s",
			project.Name, total, ceiling, total.Sub(ceiling))
	}
	return nil
}

func duplicatePair(a domain.Allocation, existingID int64) error {
	return newError(KindDuplicatePair, map[string]any{
		"project":    a.ProjectID,
		"developer":  a.DeveloperID,
		"allocation": existingID,
	}, "programmer %d is already allocated to project %d", a.DeveloperID, a.ProjectID)
}

// duplicateErr maps a unique-index violation on (project, developer) to DuplicatePair.
func duplicateErr(err error, a domain.Allocation) error {
	if errors.Is(err, repo.ErrDuplicate) {
		return duplicatePair(a, 0)
	}
	return lookupErr(err, "allocation", a.ID)
}

func allocationPayload(a domain.Allocation) events.EventPayload {
	return events.EventPayload{
		"project":   a.ProjectID,
		"developer": a.DeveloperID,
		"hours":     a.Hours.StringFixed(2),
	}
}
