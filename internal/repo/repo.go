package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"staffline/internal/domain"
	"staffline/internal/query"
)

type Repo struct {
	DB *sql.DB
}

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

// filtered appends the compiled allow-listed conditions to base.
func filtered(base string, conds []query.Condition, order string) (string, []any, error) {
	where, args, err := query.Where(conds)
	if err != nil {
		return "", nil, err
	}
	q := base
	if where != "" {
		q += " WHERE " + where
	}
	return q + " ORDER BY " + order, args, nil
}

func encodeSkills(refs []domain.SkillRef) (string, error) {
	if refs == nil {
		refs = []domain.SkillRef{}
	}
	b, err := json.Marshal(refs)
	if err != nil {
		return "", fmt.Errorf("encode skills: %w", err)
	}
	return string(b), nil
}

func decodeSkills(raw string) ([]domain.SkillRef, error) {
	refs := []domain.SkillRef{}
	if raw == "" {
		return refs, nil
	}
	if err := json.Unmarshal([]byte(raw), &refs); err != nil {
		return nil, fmt.Errorf("decode skills: %w", err)
	}
	return refs, nil
}

func affected(res sql.Result) error {
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
