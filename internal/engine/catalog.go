package engine

import (
	"context"
	"database/sql"
	"strings"
	"unicode/utf8"

	"staffline/internal/domain"
	"staffline/internal/events"
)

const (
	maxTechnologyName = 18
	maxEntityName     = 128
)

func validateName(field, name string, max int) error {
	if strings.TrimSpace(name) == "" {
		return validationError("%s is required", field)
	}
	if n := utf8.RuneCountInString(name); n > max {
		return validationError("%s must be at most %d characters, got %d", field, max, n)
	}
	return nil
}

func (e Engine) CreateTechnology(ctx context.Context, name, actorID string) (domain.Technology, error) {
	if err := validateName("name", name, maxTechnologyName); err != nil {
		return domain.Technology{}, err
	}
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.Technology{}, err
	}
	defer tx.Rollback()
	t, err := e.Repo.InsertTechnology(ctx, tx, name)
	if err != nil {
		return domain.Technology{}, writeErr(err)
	}
	if err := e.Events.Append(ctx, tx, "technology.created", events.KindTechnology, t.ID, actorID, events.EventPayload{"name": t.Name}); err != nil {
		return domain.Technology{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Technology{}, err
	}
	return t, nil
}

// RenameTechnology changes the catalog name. Names held by programmers or
// projects are immutable.
func (e Engine) RenameTechnology(ctx context.Context, id int64, name, actorID string) (domain.Technology, error) {
	if err := validateName("name", name, maxTechnologyName); err != nil {
		return domain.Technology{}, err
	}
	tx, err := e.begin(ctx)
	if err != nil {
		return domain.Technology{}, err
	}
	defer tx.Rollback()
	t, err := e.Repo.GetTechnologyTx(ctx, tx, id)
	if err != nil {
		return domain.Technology{}, lookupErr(err, "technology", id)
	}
	if t.Name == name {
		return t, nil
	}
	if err := e.ensureTechnologyUnused(ctx, tx, t); err != nil {
		return domain.Technology{}, err
	}
	if err := e.Repo.RenameTechnologyTx(ctx, tx, id, name); err != nil {
		return domain.Technology{}, writeErr(err)
	}
	if err := e.Events.Append(ctx, tx, "technology.renamed", events.KindTechnology, id, actorID, events.EventPayload{"from": t.Name, "to": name}); err != nil {
		return domain.Technology{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Technology{}, err
	}
	t.Name = name
	return t, nil
}

func (e Engine) DeleteTechnology(ctx context.Context, id int64, actorID string) error {
	tx, err := e.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	t, err := e.Repo.GetTechnologyTx(ctx, tx, id)
	if err != nil {
		return lookupErr(err, "technology", id)
	}
	if err := e.ensureTechnologyUnused(ctx, tx, t); err != nil {
		return err
	}
	if err := e.Repo.DeleteTechnologyTx(ctx, tx, id); err != nil {
		return lookupErr(err, "technology", id)
	}
	if err := e.Events.Append(ctx, tx, "technology.deleted", events.KindTechnology, id, actorID, events.EventPayload{"name": t.Name}); err != nil {
		return err
	}
	return tx.Commit()
}

func (e Engine) ensureTechnologyUnused(ctx context.Context, tx *sql.Tx, t domain.Technology) error {
	used, err := e.Repo.TechnologyReferencedTx(ctx, tx, t.Name)
	if err != nil {
		return err
	}
	if used {
		return newError(KindTechnologyInUse, map[string]any{"technology": t.Name, "id": t.ID},
			"technology %q is referenced by a programmer or project", t.Name)
	}
	return nil
}
