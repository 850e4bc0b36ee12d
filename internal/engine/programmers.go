package engine

import (
	"context"

	"staffline/internal/domain"
	"staffline/internal/events"
)

type ProgrammerCreateOptions struct {
	Name    string
	Skills  []any
	ActorID string
}

// CreateProgrammer inserts the programmer and assigns Skills in the same transaction.
func (e Engine) CreateProgrammer(ctx context.Context, opts ProgrammerCreateOptions) (domain.Programmer, error) {
	if err := validateName("name", opts.Name, maxEntityName); err != nil {
		return domain.Programmer{}, err
	}
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.Programmer{}, err
	}
	defer tx.Rollback()
	skills, err := e.stageSkills(ctx, tx, nil, opts.Skills, false)
	if err != nil {
		return domain.Programmer{}, err
	}
	p, err := e.Repo.InsertProgrammer(ctx, tx, domain.Programmer{Name: opts.Name, Skills: skills})
	if err != nil {
		return domain.Programmer{}, writeErr(err)
	}
	if err := e.Events.Append(ctx, tx, "programmer.created", events.KindProgrammer, p.ID, opts.ActorID, events.EventPayload{
		"name":   p.Name,
		"skills": domain.SkillValues(p.Skills),
	}); err != nil {
		return domain.Programmer{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Programmer{}, err
	}
	return p, nil
}

// ProgrammerUpdateOptions leaves nil fields unchanged. Skills are appended.
type ProgrammerUpdateOptions struct {
	ID      int64
	Name    *string
	Skills  []any
	ActorID string
}

func (e Engine) UpdateProgrammer(ctx context.Context, opts ProgrammerUpdateOptions) (domain.Programmer, error) {
	if opts.Name != nil {
		if err := validateName("name", *opts.Name, maxEntityName); err != nil {
			return domain.Programmer{}, err
		}
	}
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.Programmer{}, err
	}
	defer tx.Rollback()
	p, err := e.Repo.GetProgrammerTx(ctx, tx, opts.ID)
	if err != nil {
		return domain.Programmer{}, lookupErr(err, "programmer", opts.ID)
	}
	if opts.Name != nil {
		p.Name = *opts.Name
	}
	if len(opts.Skills) > 0 {
		if p.Skills, err = e.stageSkills(ctx, tx, p.Skills, opts.Skills, false); err != nil {
			return domain.Programmer{}, err
		}
	}
	if err := e.Repo.UpdateProgrammerTx(ctx, tx, p); err != nil {
		return domain.Programmer{}, writeErr(err)
	}
	if err := e.Events.Append(ctx, tx, "programmer.updated", events.KindProgrammer, p.ID, opts.ActorID, events.EventPayload{
		"name":   p.Name,
		"skills": domain.SkillValues(p.Skills),
	}); err != nil {
		return domain.Programmer{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Programmer{}, err
	}
	return p, nil
}

// DeleteProgrammer removes the programmer and, by cascade, their allocations.
func (e Engine) DeleteProgrammer(ctx context.Context, id int64, actorID string) error {
	tx, err := e.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteProgrammerTx(ctx, tx, id); err != nil {
		return lookupErr(err, "programmer", id)
	}
	if err := e.Events.Append(ctx, tx, "programmer.deleted", events.KindProgrammer, id, actorID, nil); err != nil {
		return err
	}
	return tx.Commit()
}
