package engine

import (
	"context"
	"database/sql"
	"errors"

	"staffline/internal/domain"
	"staffline/internal/events"
	"staffline/internal/repo"
)

// stageSkills resolves items against the catalog into a copy of existing.
// The stored list is never touched here; callers persist the result only when
// every named item resolved.
func (e Engine) stageSkills(ctx context.Context, tx *sql.Tx, existing []domain.SkillRef, items []any, dedup bool) ([]domain.SkillRef, error) {
	refs, err := domain.ParseSkillItems(items)
	if err != nil {
		return nil, validationError("%s", err.Error())
	}
	staged := make([]domain.SkillRef, 0, len(existing)+len(refs))
	staged = append(staged, existing...)
	for _, ref := range refs {
		if ref.IsNamed() {
			if _, err := e.Repo.GetTechnologyByNameTx(ctx, tx, ref.Name()); err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					return nil, newError(KindSkillNotFound, map[string]any{"skill": ref.Name()},
						"technology %q is not in the catalog", ref.Name())
				}
				return nil, err
			}
		}
		if dedup && domain.ContainsSkill(staged, ref) {
			continue
		}
		staged = append(staged, ref)
	}
	return staged, nil
}

// AssignProgrammerSkills appends items to the programmer's skills. Repeats are kept.
func (e Engine) AssignProgrammerSkills(ctx context.Context, id int64, items []any, actorID string) (domain.Programmer, error) {
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.Programmer{}, err
	}
	defer tx.Rollback()
	p, err := e.Repo.GetProgrammerTx(ctx, tx, id)
	if err != nil {
		return domain.Programmer{}, lookupErr(err, "programmer", id)
	}
	if p.Skills, err = e.stageSkills(ctx, tx, p.Skills, items, false); err != nil {
		return domain.Programmer{}, err
	}
	if err := e.Repo.UpdateProgrammerTx(ctx, tx, p); err != nil {
		return domain.Programmer{}, writeErr(err)
	}
	if err := e.Events.Append(ctx, tx, "programmer.skills.assigned", events.KindProgrammer, p.ID, actorID, events.EventPayload{"skills": domain.SkillValues(p.Skills)}); err != nil {
		return domain.Programmer{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Programmer{}, err
	}
	return p, nil
}

// AssignProjectSkills appends items to the project's required skills, skipping
// refs already present.
func (e Engine) AssignProjectSkills(ctx context.Context, id int64, items []any, actorID string) (domain.Project, error) {
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()
	p, err := e.Repo.GetProjectTx(ctx, tx, id)
	if err != nil {
		return domain.Project{}, lookupErr(err, "project", id)
	}
	if p.RequiredSkills, err = e.stageSkills(ctx, tx, p.RequiredSkills, items, true); err != nil {
		return domain.Project{}, err
	}
	if err := e.Repo.UpdateProjectTx(ctx, tx, p); err != nil {
		return domain.Project{}, writeErr(err)
	}
	if err := e.Events.Append(ctx, tx, "project.skills.assigned", events.KindProject, p.ID, actorID, events.EventPayload{"required_skills": domain.SkillValues(p.RequiredSkills)}); err != nil {
		return domain.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	return p, nil
}
