package repo

import (
	"context"
	"database/sql"
	"fmt"

	"staffline/internal/domain"
	"staffline/internal/query"
)

const projectColumns = `id,name,start_date,end_date,required_skills_json,status`

func scanProject(scan func(...any) error) (domain.Project, error) {
	var p domain.Project
	var start, end, skills, status string
	if err := scan(&p.ID, &p.Name, &start, &end, &skills, &status); err != nil {
		return p, err
	}
	var err error
	if p.StartDate, err = domain.ParseDate(start); err != nil {
		return p, fmt.Errorf("project %d start_date: %w", p.ID, err)
	}
	if p.EndDate, err = domain.ParseDate(end); err != nil {
		return p, fmt.Errorf("project %d end_date: %w", p.ID, err)
	}
	if p.RequiredSkills, err = decodeSkills(skills); err != nil {
		return p, fmt.Errorf("project %d: %w", p.ID, err)
	}
	p.Status = domain.ProjectStatus(status)
	return p, nil
}

func (r Repo) InsertProject(ctx context.Context, tx *sql.Tx, p domain.Project) (domain.Project, error) {
	skills, err := encodeSkills(p.RequiredSkills)
	if err != nil {
		return p, err
	}
	if p.Status == "" {
		p.Status = domain.StatusPlanned
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO projects(name,start_date,end_date,required_skills_json,status) VALUES (?,?,?,?,?)`,
		p.Name, domain.FormatDate(p.StartDate), domain.FormatDate(p.EndDate), skills, string(p.Status))
	if isUniqueViolation(err) {
		return p, fmt.Errorf("project %q: %w", p.Name, ErrDuplicate)
	}
	if err != nil {
		return p, err
	}
	if p.ID, err = res.LastInsertId(); err != nil {
		return p, err
	}
	if p.RequiredSkills == nil {
		p.RequiredSkills = []domain.SkillRef{}
	}
	return p, nil
}

func (r Repo) GetProject(ctx context.Context, id int64) (domain.Project, error) {
	return getProject(ctx, r.DB, id)
}

func (r Repo) GetProjectTx(ctx context.Context, tx *sql.Tx, id int64) (domain.Project, error) {
	return getProject(ctx, tx, id)
}

func getProject(ctx context.Context, q querier, id int64) (domain.Project, error) {
	p, err := scanProject(q.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id=?`, id).Scan)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

func (r Repo) ListProjects(ctx context.Context, conds []query.Condition) ([]domain.Project, error) {
	q, args, err := filtered(`SELECT `+projectColumns+` FROM projects`, conds, "name ASC, id ASC")
	if err != nil {
		return nil, err
	}
	return listProjects(ctx, r.DB, q, args...)
}

// ListSweepableProjects returns the projects the lifecycle sweep may still move.
func (r Repo) ListSweepableProjects(ctx context.Context) ([]domain.Project, error) {
	return listProjects(ctx, r.DB, `SELECT `+projectColumns+` FROM projects WHERE status NOT IN (?,?) ORDER BY id ASC`,
		string(domain.StatusLate), string(domain.StatusDone))
}

func listProjects(ctx context.Context, q querier, stmt string, args ...any) ([]domain.Project, error) {
	rows, err := q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Project{}
	for rows.Next() {
		p, err := scanProject(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r Repo) UpdateProjectTx(ctx context.Context, tx *sql.Tx, p domain.Project) error {
	skills, err := encodeSkills(p.RequiredSkills)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `UPDATE projects SET name=?, start_date=?, end_date=?, required_skills_json=?, status=? WHERE id=?`,
		p.Name, domain.FormatDate(p.StartDate), domain.FormatDate(p.EndDate), skills, string(p.Status), p.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("project %q: %w", p.Name, ErrDuplicate)
	}
	if err != nil {
		return err
	}
	return affected(res)
}

// MarkProjectLateTx moves the project to LATE unless it is already LATE or DONE.
// It reports whether the row changed.
func (r Repo) MarkProjectLateTx(ctx context.Context, tx *sql.Tx, id int64) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE projects SET status=? WHERE id=? AND status NOT IN (?,?)`,
		string(domain.StatusLate), id, string(domain.StatusLate), string(domain.StatusDone))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r Repo) DeleteProjectTx(ctx context.Context, tx *sql.Tx, id int64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id=?`, id)
	if err != nil {
		return err
	}
	return affected(res)
}
