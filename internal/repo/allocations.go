package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"staffline/internal/domain"
	"staffline/internal/query"
)

const allocationColumns = `id,project_id,developer_id,hours`

func scanAllocation(scan func(...any) error) (domain.Allocation, error) {
	var a domain.Allocation
	var hours string
	if err := scan(&a.ID, &a.ProjectID, &a.DeveloperID, &hours); err != nil {
		return a, err
	}
	d, err := decimal.NewFromString(hours)
	if err != nil {
		return a, fmt.Errorf("allocation %d hours: %w", a.ID, err)
	}
	a.Hours = d
	return a, nil
}

func (r Repo) InsertAllocation(ctx context.Context, tx *sql.Tx, a domain.Allocation) (domain.Allocation, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO allocations(project_id,developer_id,hours) VALUES (?,?,?)`,
		a.ProjectID, a.DeveloperID, a.Hours.StringFixed(2))
	if isUniqueViolation(err) {
		return a, fmt.Errorf("allocation for project %d and developer %d: %w", a.ProjectID, a.DeveloperID, ErrDuplicate)
	}
	if err != nil {
		return a, err
	}
	if a.ID, err = res.LastInsertId(); err != nil {
		return a, err
	}
	return a, nil
}

func (r Repo) UpdateAllocationTx(ctx context.Context, tx *sql.Tx, a domain.Allocation) error {
	res, err := tx.ExecContext(ctx, `UPDATE allocations SET project_id=?, developer_id=?, hours=? WHERE id=?`,
		a.ProjectID, a.DeveloperID, a.Hours.StringFixed(2), a.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("allocation for project %d and developer %d: %w", a.ProjectID, a.DeveloperID, ErrDuplicate)
	}
	if err != nil {
		return err
	}
	return affected(res)
}

func (r Repo) GetAllocation(ctx context.Context, id int64) (domain.Allocation, error) {
	return getAllocation(ctx, r.DB, id)
}

func (r Repo) GetAllocationTx(ctx context.Context, tx *sql.Tx, id int64) (domain.Allocation, error) {
	return getAllocation(ctx, tx, id)
}

func getAllocation(ctx context.Context, q querier, id int64) (domain.Allocation, error) {
	a, err := scanAllocation(q.QueryRowContext(ctx, `SELECT `+allocationColumns+` FROM allocations WHERE id=?`, id).Scan)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	return a, err
}

// FindAllocationByPairTx returns the allocation holding (projectID, developerID).
func (r Repo) FindAllocationByPairTx(ctx context.Context, tx *sql.Tx, projectID, developerID int64) (domain.Allocation, error) {
	a, err := scanAllocation(tx.QueryRowContext(ctx, `SELECT `+allocationColumns+` FROM allocations WHERE project_id=? AND developer_id=?`,
		projectID, developerID).Scan)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	return a, err
}

// AllocatedHoursTx sums the project's allocations, leaving out excludeID (0 excludes nothing).
func (r Repo) AllocatedHoursTx(ctx context.Context, tx *sql.Tx, projectID, excludeID int64) (decimal.Decimal, error) {
	return allocatedHours(ctx, tx, projectID, excludeID)
}

func (r Repo) AllocatedHours(ctx context.Context, projectID int64) (decimal.Decimal, error) {
	return allocatedHours(ctx, r.DB, projectID, 0)
}

func allocatedHours(ctx context.Context, q querier, projectID, excludeID int64) (decimal.Decimal, error) {
	rows, err := q.QueryContext(ctx, `SELECT hours FROM allocations WHERE project_id=? AND id<>?`, projectID, excludeID)
	if err != nil {
		return decimal.Zero, err
	}
	defer rows.Close()
	total := decimal.Zero
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return decimal.Zero, err
		}
		h, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, fmt.Errorf("project %d hours %q: %w", projectID, raw, err)
		}
		total = total.Add(h)
	}
	return total, rows.Err()
}

func (r Repo) ListAllocations(ctx context.Context, conds []query.Condition) ([]domain.Allocation, error) {
	q, args, err := filtered(`SELECT `+allocationColumns+` FROM allocations`, conds, "project_id ASC, id ASC")
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Allocation{}
	for rows.Next() {
		a, err := scanAllocation(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func (r Repo) DeleteAllocationTx(ctx context.Context, tx *sql.Tx, id int64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM allocations WHERE id=?`, id)
	if err != nil {
		return err
	}
	return affected(res)
}
