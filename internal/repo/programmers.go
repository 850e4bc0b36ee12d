package repo

import (
	"context"
	"database/sql"
	"fmt"

	"staffline/internal/domain"
	"staffline/internal/query"
)

const programmerColumns = `id,name,skills_json`

func scanProgrammer(scan func(...any) error) (domain.Programmer, error) {
	var p domain.Programmer
	var skills string
	if err := scan(&p.ID, &p.Name, &skills); err != nil {
		return p, err
	}
	refs, err := decodeSkills(skills)
	if err != nil {
		return p, fmt.Errorf("programmer %d: %w", p.ID, err)
	}
	p.Skills = refs
	return p, nil
}

func (r Repo) InsertProgrammer(ctx context.Context, tx *sql.Tx, p domain.Programmer) (domain.Programmer, error) {
	skills, err := encodeSkills(p.Skills)
	if err != nil {
		return p, err
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO programmers(name,skills_json) VALUES (?,?)`, p.Name, skills)
	if isUniqueViolation(err) {
		return p, fmt.Errorf("programmer %q: %w", p.Name, ErrDuplicate)
	}
	if err != nil {
		return p, err
	}
	if p.ID, err = res.LastInsertId(); err != nil {
		return p, err
	}
	if p.Skills == nil {
		p.Skills = []domain.SkillRef{}
	}
	return p, nil
}

func (r Repo) GetProgrammer(ctx context.Context, id int64) (domain.Programmer, error) {
	return getProgrammer(ctx, r.DB, id)
}

func (r Repo) GetProgrammerTx(ctx context.Context, tx *sql.Tx, id int64) (domain.Programmer, error) {
	return getProgrammer(ctx, tx, id)
}

func getProgrammer(ctx context.Context, q querier, id int64) (domain.Programmer, error) {
	p, err := scanProgrammer(q.QueryRowContext(ctx, `SELECT `+programmerColumns+` FROM programmers WHERE id=?`, id).Scan)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

func (r Repo) ListProgrammers(ctx context.Context, conds []query.Condition) ([]domain.Programmer, error) {
	q, args, err := filtered(`SELECT `+programmerColumns+` FROM programmers`, conds, "name ASC, id ASC")
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Programmer{}
	for rows.Next() {
		p, err := scanProgrammer(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r Repo) UpdateProgrammerTx(ctx context.Context, tx *sql.Tx, p domain.Programmer) error {
	skills, err := encodeSkills(p.Skills)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `UPDATE programmers SET name=?, skills_json=? WHERE id=?`, p.Name, skills, p.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("programmer %q: %w", p.Name, ErrDuplicate)
	}
	if err != nil {
		return err
	}
	return affected(res)
}

func (r Repo) DeleteProgrammerTx(ctx context.Context, tx *sql.Tx, id int64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM programmers WHERE id=?`, id)
	if err != nil {
		return err
	}
	return affected(res)
}
