package report

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"staffline/internal/config"
	"staffline/internal/db"
	"staffline/internal/engine"
	"staffline/internal/migrate"
)

func newEngine(t *testing.T) engine.Engine {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(context.Background(), conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default()
	cfg.Allocation.Capacity.Policy = config.PolicyFixed
	cfg.Allocation.Capacity.FixedHours = 80
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	return engine.New(conn, cfg).WithClock(func() time.Time { return now })
}

func TestBuildAndWrite(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	if _, err := e.CreateTechnology(ctx, "Python", "tester"); err != nil {
		t.Fatal(err)
	}
	dev, err := e.CreateProgrammer(ctx, engine.ProgrammerCreateOptions{Name: "Dev1", Skills: []any{"Python"}})
	if err != nil {
		t.Fatal(err)
	}
	p, err := e.CreateProject(ctx, engine.ProjectCreateOptions{
		Name: "P1", StartDate: "2024-05-01", EndDate: "2024-05-31", RequiredSkills: []any{"Python"},
	})
	if err != nil {
		t.Fatal(err)
	}
	empty, err := e.CreateProject(ctx, engine.ProjectCreateOptions{Name: "Empty", StartDate: "2024-05-01", EndDate: "2024-05-31"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.CreateAllocation(ctx, engine.AllocationCreateOptions{
		ProjectID: p.ID, DeveloperID: dev.ID, Hours: decimal.RequireFromString("30.5"),
	}); err != nil {
		t.Fatal(err)
	}

	summaries, err := Build(ctx, e)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
	var got Summary
	for _, s := range summaries {
		if s.Project.ID == p.ID {
			got = s
		}
	}
	if got.Allocated.StringFixed(2) != "30.50" || got.Remaining().StringFixed(2) != "49.50" {
		t.Fatalf("unexpected totals allocated=%s remaining=%s", got.Allocated, got.Remaining())
	}
	if len(got.Lines) != 1 || got.Lines[0].Developer != "Dev1" {
		t.Fatalf("unexpected lines %+v", got.Lines)
	}

	only, err := Build(ctx, e, empty.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(only) != 1 || !only[0].Allocated.IsZero() {
		t.Fatalf("unexpected summary %+v", only)
	}

	var buf bytes.Buffer
	if err := Write(&buf, "Staffing report", summaries); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("output is not a pdf")
	}
	out := filepath.Join(t.TempDir(), "report.pdf")
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestBuildUnknownProject(t *testing.T) {
	e := newEngine(t)
	if _, err := Build(context.Background(), e, 42); err == nil {
		t.Fatalf("expected error for missing project")
	}
}
