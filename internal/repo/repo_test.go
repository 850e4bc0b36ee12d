package repo_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"staffline/internal/db"
	"staffline/internal/domain"
	"staffline/internal/migrate"
	"staffline/internal/query"
	"staffline/internal/repo"
)

func newTestRepo(t *testing.T) repo.Repo {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(context.Background(), conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo.Repo{DB: conn}
}

// seedAllocations stores one project with an allocation per hours value.
func seedAllocations(t *testing.T, r repo.Repo, hours ...string) {
	t.Helper()
	ctx := context.Background()
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback()
	p, err := r.InsertProject(ctx, tx, domain.Project{
		Name:      "P1",
		StartDate: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC),
		Status:    domain.StatusPlanned,
	})
	if err != nil {
		t.Fatalf("insert project: %v", err)
	}
	for i, h := range hours {
		dev, err := r.InsertProgrammer(ctx, tx, domain.Programmer{Name: "Dev" + string(rune('A'+i))})
		if err != nil {
			t.Fatalf("insert programmer: %v", err)
		}
		a := domain.Allocation{ProjectID: p.ID, DeveloperID: dev.ID, Hours: decimal.RequireFromString(h)}
		if _, err := r.InsertAllocation(ctx, tx, a); err != nil {
			t.Fatalf("insert allocation %s: %v", h, err)
		}
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
}

func TestUniqueViolationMapsToErrDuplicate(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback()
	if _, err := r.InsertTechnology(ctx, tx, "Go"); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := r.InsertTechnology(ctx, tx, "Go"); !errors.Is(err, repo.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestForeignKeyViolationIsNotDuplicate(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback()
	_, err = r.InsertAllocation(ctx, tx, domain.Allocation{ProjectID: 41, DeveloperID: 42, Hours: decimal.NewFromInt(1)})
	if err == nil || errors.Is(err, repo.ErrDuplicate) {
		t.Fatalf("expected a foreign key error, got %v", err)
	}
}

func TestHoursRangeFiltersCompareExactly(t *testing.T) {
	r := newTestRepo(t)
	seedAllocations(t, r, "0.10", "0.20", "0.30", "10.50")
	cases := []struct {
		param string
		value string
		want  int
	}{
		{"hours__gte", "0.3", 2},
		{"hours__gt", "0.3", 1},
		{"hours__lte", "0.30", 3},
		{"hours__lt", "0.1", 0},
		{"hours__gte", "10.50", 1},
		{"hours", "0.2", 1},
	}
	for _, tc := range cases {
		t.Run(tc.param+"="+tc.value, func(t *testing.T) {
			list, err := r.ListAllocations(context.Background(), query.Allocations.Parse(map[string][]string{tc.param: {tc.value}}))
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(list) != tc.want {
				t.Fatalf("got %d allocations, want %d: %+v", len(list), tc.want, list)
			}
		})
	}
}
