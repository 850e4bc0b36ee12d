package repo

import (
	"context"
	"database/sql"
	"fmt"

	"staffline/internal/domain"
	"staffline/internal/query"
)

func (r Repo) InsertTechnology(ctx context.Context, tx *sql.Tx, name string) (domain.Technology, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO technologies(name) VALUES (?)`, name)
	if isUniqueViolation(err) {
		return domain.Technology{}, fmt.Errorf("technology %q: %w", name, ErrDuplicate)
	}
	if err != nil {
		return domain.Technology{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Technology{}, err
	}
	return domain.Technology{ID: id, Name: name}, nil
}

func (r Repo) GetTechnology(ctx context.Context, id int64) (domain.Technology, error) {
	return getTechnology(ctx, r.DB, `WHERE id=?`, id)
}

func (r Repo) GetTechnologyTx(ctx context.Context, tx *sql.Tx, id int64) (domain.Technology, error) {
	return getTechnology(ctx, tx, `WHERE id=?`, id)
}

// GetTechnologyByNameTx resolves a catalog entry by its exact name.
func (r Repo) GetTechnologyByNameTx(ctx context.Context, tx *sql.Tx, name string) (domain.Technology, error) {
	return getTechnology(ctx, tx, `WHERE name=?`, name)
}

func getTechnology(ctx context.Context, q querier, where string, arg any) (domain.Technology, error) {
	var t domain.Technology
	err := q.QueryRowContext(ctx, `SELECT id,name FROM technologies `+where, arg).Scan(&t.ID, &t.Name)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	return t, err
}

func (r Repo) ListTechnologies(ctx context.Context, conds []query.Condition) ([]domain.Technology, error) {
	q, args, err := filtered(`SELECT id,name FROM technologies`, conds, "name ASC, id ASC")
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Technology{}
	for rows.Next() {
		var t domain.Technology
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r Repo) RenameTechnologyTx(ctx context.Context, tx *sql.Tx, id int64, name string) error {
	res, err := tx.ExecContext(ctx, `UPDATE technologies SET name=? WHERE id=?`, name, id)
	if isUniqueViolation(err) {
		return fmt.Errorf("technology %q: %w", name, ErrDuplicate)
	}
	if err != nil {
		return err
	}
	return affected(res)
}

func (r Repo) DeleteTechnologyTx(ctx context.Context, tx *sql.Tx, id int64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM technologies WHERE id=?`, id)
	if err != nil {
		return err
	}
	return affected(res)
}

// TechnologyReferencedTx reports whether any programmer or project holds a
// named skill reference to name.
func (r Repo) TechnologyReferencedTx(ctx context.Context, tx *sql.Tx, name string) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx, `SELECT
  EXISTS (SELECT 1 FROM programmers p, json_each(p.skills_json) j WHERE j.type='text' AND j.value=?)
  OR EXISTS (SELECT 1 FROM projects p, json_each(p.required_skills_json) j WHERE j.type='text' AND j.value=?)`,
		name, name).Scan(&n)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
