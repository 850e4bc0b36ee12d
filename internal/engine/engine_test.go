package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"staffline/internal/config"
	"staffline/internal/db"
	"staffline/internal/domain"
	"staffline/internal/engine"
	"staffline/internal/migrate"
)

var testNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T, tweak ...func(*config.Config)) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	ctx := context.Background()
	if err := migrate.Migrate(ctx, conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default()
	for _, fn := range tweak {
		fn(cfg)
	}
	eng := engine.New(conn, cfg).WithClock(func() time.Time { return testNow })
	return testEnv{Engine: eng, Ctx: ctx}
}

func fixedCapacity(hours float64) func(*config.Config) {
	return func(c *config.Config) {
		c.Allocation.Capacity.Policy = config.PolicyFixed
		c.Allocation.Capacity.FixedHours = hours
	}
}

func (env testEnv) tech(t *testing.T, name string) domain.Technology {
	t.Helper()
	tech, err := env.Engine.CreateTechnology(env.Ctx, name, "tester")
	if err != nil {
		t.Fatalf("create technology %s: %v", name, err)
	}
	return tech
}

func (env testEnv) programmer(t *testing.T, name string, skills ...any) domain.Programmer {
	t.Helper()
	p, err := env.Engine.CreateProgrammer(env.Ctx, engine.ProgrammerCreateOptions{Name: name, Skills: skills, ActorID: "tester"})
	if err != nil {
		t.Fatalf("create programmer %s: %v", name, err)
	}
	return p
}

func (env testEnv) project(t *testing.T, name, start, end string, skills ...any) domain.Project {
	t.Helper()
	p, err := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{
		Name: name, StartDate: start, EndDate: end, RequiredSkills: skills, ActorID: "tester",
	})
	if err != nil {
		t.Fatalf("create project %s: %v", name, err)
	}
	return p
}

func (env testEnv) allocate(projectID, developerID int64, hours string) (domain.Allocation, error) {
	return env.Engine.CreateAllocation(env.Ctx, engine.AllocationCreateOptions{
		ProjectID: projectID, DeveloperID: developerID, Hours: decimal.RequireFromString(hours), ActorID: "tester",
	})
}

func TestAllocationWithMatchingSkill(t *testing.T) {
	env := newTestEnv(t)
	env.tech(t, "Python")
	dev := env.programmer(t, "Dev1", "Python")
	p := env.project(t, "P1", "2024-05-01", "2024-05-31", "Python")

	a, err := env.allocate(p.ID, dev.ID, "10")
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	stored, err := env.Engine.Repo.GetAllocation(env.Ctx, a.ID)
	if err != nil {
		t.Fatalf("get allocation: %v", err)
	}
	if !stored.Hours.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected 10 hours, got %s", stored.Hours)
	}
	if stored.ProjectID != p.ID || stored.DeveloperID != dev.ID {
		t.Fatalf("unexpected allocation %+v", stored)
	}
}

func TestAllocationSkillMismatch(t *testing.T) {
	env := newTestEnv(t)
	env.tech(t, "Python")
	env.tech(t, "Java")
	p := env.project(t, "P1", "2024-05-01", "2024-05-31", "Python")
	dev := env.programmer(t, "Dev2", "Java")

	_, err := env.allocate(p.ID, dev.ID, "5")
	if !errors.Is(err, engine.ErrSkillMismatch) {
		t.Fatalf("expected skill mismatch, got %v", err)
	}
}

func TestInlineSkillNameCountsTowardMatch(t *testing.T) {
	env := newTestEnv(t)
	env.tech(t, "Go")
	dev := env.programmer(t, "Dev", map[string]any{"name": "Go", "level": "senior"})
	p := env.project(t, "P1", "2024-05-01", "2024-05-31", "Go")
	if _, err := env.allocate(p.ID, dev.ID, "1"); err != nil {
		t.Fatalf("inline skill should match by name: %v", err)
	}
}

func TestAllocationCapacityExceeded(t *testing.T) {
	env := newTestEnv(t, fixedCapacity(80))
	env.tech(t, "Python")
	p := env.project(t, "P1", "2024-05-01", "2024-05-31", "Python")
	first := env.programmer(t, "Dev1", "Python")
	second := env.programmer(t, "Dev2", "Python")
	if _, err := env.allocate(p.ID, first.ID, "75"); err != nil {
		t.Fatalf("first allocation: %v", err)
	}
	_, err := env.allocate(p.ID, second.ID, "10")
	if !errors.Is(err, engine.ErrCapacityExceeded) {
		t.Fatalf("expected capacity exceeded, got %v", err)
	}
	var engErr *engine.Error
	if !errors.As(err, &engErr) {
		t.Fatalf("expected *engine.Error, got %T", err)
	}
	if engErr.Details["ceiling"] != "80" || engErr.Details["excess"] != "5" {
		t.Fatalf("unexpected details %v", engErr.Details)
	}
	if _, err := env.allocate(p.ID, second.ID, "5"); err != nil {
		t.Fatalf("allocation up to the ceiling should pass: %v", err)
	}
}

func TestDerivedCapacityUsesProjectDays(t *testing.T) {
	env := newTestEnv(t)
	env.tech(t, "Python")
	// 2 days at 8 hours per day.
	p := env.project(t, "Short", "2024-05-09", "2024-05-11", "Python")
	dev := env.programmer(t, "Dev1", "Python")
	if _, err := env.allocate(p.ID, dev.ID, "16.01"); !errors.Is(err, engine.ErrCapacityExceeded) {
		t.Fatalf("expected capacity exceeded, got %v", err)
	}
	if _, err := env.allocate(p.ID, dev.ID, "16"); err != nil {
		t.Fatalf("allocate at ceiling: %v", err)
	}
}

func TestProjectWindowChangeKeepsAllocationsWithinCeiling(t *testing.T) {
	env := newTestEnv(t)
	env.tech(t, "Python")
	// 30 days, ceiling 240.
	p := env.project(t, "Long", "2024-05-01", "2024-05-31", "Python")
	dev := env.programmer(t, "Dev1", "Python")
	if _, err := env.allocate(p.ID, dev.ID, "200"); err != nil {
		t.Fatalf("allocate: %v", err)
	}
	shorter := "2024-05-11"
	_, err := env.Engine.UpdateProject(env.Ctx, engine.ProjectUpdateOptions{ID: p.ID, EndDate: &shorter})
	if !errors.Is(err, engine.ErrCapacityExceeded) {
		t.Fatalf("expected capacity exceeded, got %v", err)
	}
	var engErr *engine.Error
	if !errors.As(err, &engErr) {
		t.Fatalf("expected *engine.Error, got %T", err)
	}
	if engErr.Details["ceiling"] != "80" || engErr.Details["allocated"] != "200" || engErr.Details["excess"] != "120" {
		t.Fatalf("unexpected details %v", engErr.Details)
	}
	got, err := env.Engine.Repo.GetProject(env.Ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if domain.FormatDate(got.EndDate) != "2024-05-31" {
		t.Fatalf("end date changed to %s", domain.FormatDate(got.EndDate))
	}

	// 25 days, ceiling 200.
	fits := "2024-05-26"
	if _, err := env.Engine.UpdateProject(env.Ctx, engine.ProjectUpdateOptions{ID: p.ID, EndDate: &fits}); err != nil {
		t.Fatalf("shrink to the allocated hours: %v", err)
	}
}

func TestAllocationDuplicatePair(t *testing.T) {
	env := newTestEnv(t)
	env.tech(t, "Python")
	p := env.project(t, "P1", "2024-05-01", "2024-05-31", "Python")
	dev := env.programmer(t, "Dev1", "Python")
	if _, err := env.allocate(p.ID, dev.ID, "1"); err != nil {
		t.Fatalf("first: %v", err)
	}
	_, err := env.allocate(p.ID, dev.ID, "1")
	if !errors.Is(err, engine.ErrDuplicatePair) {
		t.Fatalf("expected duplicate pair, got %v", err)
	}
	list, err := env.Engine.Repo.ListAllocations(env.Ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("expected one allocation, got %d", len(list))
	}
}

func TestAllocationNoRequiredSkills(t *testing.T) {
	env := newTestEnv(t)
	env.tech(t, "Python")
	p := env.project(t, "Empty", "2024-05-01", "2024-05-31")
	dev := env.programmer(t, "Dev1", "Python")
	if _, err := env.allocate(p.ID, dev.ID, "1"); !errors.Is(err, engine.ErrNoRequiredSkills) {
		t.Fatalf("expected no required skills error, got %v", err)
	}

	allow := newTestEnv(t, func(c *config.Config) { c.Allocation.EmptyRequiredSkills = config.EmptySkillsAllow })
	p = allow.project(t, "Empty", "2024-05-01", "2024-05-31")
	dev = allow.programmer(t, "Dev1")
	if _, err := allow.allocate(p.ID, dev.ID, "1"); err != nil {
		t.Fatalf("allow policy should leave empty projects unconstrained: %v", err)
	}
}

func TestAllocationTemporalFence(t *testing.T) {
	env := newTestEnv(t)
	env.tech(t, "Python")
	dev := env.programmer(t, "Dev1", "Python")
	future := env.project(t, "Future", "2024-06-01", "2024-06-30", "Python")
	past := env.project(t, "Past", "2024-04-01", "2024-04-30", "Python")
	if _, err := env.allocate(future.ID, dev.ID, "1"); !errors.Is(err, engine.ErrTemporalFence) {
		t.Fatalf("expected temporal fence for future project, got %v", err)
	}
	if _, err := env.allocate(past.ID, dev.ID, "1"); !errors.Is(err, engine.ErrTemporalFence) {
		t.Fatalf("expected temporal fence for past project, got %v", err)
	}
	// The window closes at 00:00 on the end date.
	today := env.project(t, "EndsToday", "2024-05-01", "2024-05-10", "Python")
	if _, err := env.allocate(today.ID, dev.ID, "1"); !errors.Is(err, engine.ErrTemporalFence) {
		t.Fatalf("expected temporal fence on end date afternoon, got %v", err)
	}

	open := newTestEnv(t, func(c *config.Config) { c.Allocation.TemporalFence = false })
	open.tech(t, "Python")
	dev = open.programmer(t, "Dev1", "Python")
	future = open.project(t, "Future", "2024-06-01", "2024-06-30", "Python")
	if _, err := open.allocate(future.ID, dev.ID, "1"); err != nil {
		t.Fatalf("fence disabled: %v", err)
	}
}

func TestAllocationNotFound(t *testing.T) {
	env := newTestEnv(t)
	env.tech(t, "Python")
	dev := env.programmer(t, "Dev1", "Python")
	if _, err := env.allocate(999, dev.ID, "1"); !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("expected not found for project, got %v", err)
	}
	p := env.project(t, "P1", "2024-05-01", "2024-05-31", "Python")
	if _, err := env.allocate(p.ID, 999, "1"); !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("expected not found for developer, got %v", err)
	}
}

func TestHoursValidation(t *testing.T) {
	cases := map[string]bool{
		"0":       true,
		"999.99":  true,
		"12.5":    true,
		"1000":    false,
		"-1":      false,
		"1.234":   false,
		"abc":     false,
		"0010.10": true,
	}
	for raw, ok := range cases {
		_, err := engine.ParseHours(raw)
		if ok && err != nil {
			t.Fatalf("%s: unexpected error %v", raw, err)
		}
		if !ok && !errors.Is(err, engine.ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", raw, err)
		}
	}
}

func TestUpdateAllocationExcludesItself(t *testing.T) {
	env := newTestEnv(t, fixedCapacity(80))
	env.tech(t, "Python")
	p := env.project(t, "P1", "2024-05-01", "2024-05-31", "Python")
	dev := env.programmer(t, "Dev1", "Python")
	other := env.programmer(t, "Dev2", "Python")
	a, err := env.allocate(p.ID, dev.ID, "70")
	if err != nil {
		t.Fatal(err)
	}
	hours := decimal.NewFromInt(80)
	updated, err := env.Engine.UpdateAllocation(env.Ctx, engine.AllocationUpdateOptions{ID: a.ID, Hours: &hours, ActorID: "tester"})
	if err != nil {
		t.Fatalf("raising own allocation to ceiling: %v", err)
	}
	if !updated.Hours.Equal(hours) {
		t.Fatalf("expected 80, got %s", updated.Hours)
	}
	b, err := env.allocate(p.ID, other.ID, "0")
	if err != nil {
		t.Fatalf("zero-hour allocation: %v", err)
	}
	devID := dev.ID
	_, err = env.Engine.UpdateAllocation(env.Ctx, engine.AllocationUpdateOptions{ID: b.ID, DeveloperID: &devID, ActorID: "tester"})
	if !errors.Is(err, engine.ErrDuplicatePair) {
		t.Fatalf("expected duplicate pair on move, got %v", err)
	}
}

func TestDeleteAllocation(t *testing.T) {
	env := newTestEnv(t)
	env.tech(t, "Python")
	p := env.project(t, "P1", "2024-05-01", "2024-05-31", "Python")
	dev := env.programmer(t, "Dev1", "Python")
	a, err := env.allocate(p.ID, dev.ID, "1")
	if err != nil {
		t.Fatal(err)
	}
	if err := env.Engine.DeleteAllocation(env.Ctx, a.ID, "tester"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := env.Engine.DeleteAllocation(env.Ctx, a.ID, "tester"); !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestConcurrentAllocationsRespectCapacity(t *testing.T) {
	env := newTestEnv(t, fixedCapacity(80))
	env.tech(t, "Python")
	p := env.project(t, "P1", "2024-05-01", "2024-05-31", "Python")
	devs := make([]domain.Programmer, 12)
	for i := range devs {
		devs[i] = env.programmer(t, "Dev"+string(rune('A'+i)), "Python")
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(devs))
	for _, dev := range devs {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, err := env.allocate(p.ID, id, "10")
			errs <- err
		}(dev.ID)
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, engine.ErrCapacityExceeded):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 8 {
		t.Fatalf("expected 8 successful writes, got %d", succeeded)
	}
	total, err := env.Engine.Repo.AllocatedHours(env.Ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if total.GreaterThan(decimal.NewFromInt(80)) {
		t.Fatalf("capacity exceeded: %s", total)
	}
}

func TestAssignUnknownSkillLeavesListUnchanged(t *testing.T) {
	env := newTestEnv(t)
	env.tech(t, "Go")
	dev := env.programmer(t, "Dev1", "Go")

	_, err := env.Engine.AssignProgrammerSkills(env.Ctx, dev.ID, []any{"Go", "Rust"}, "tester")
	if !errors.Is(err, engine.ErrSkillNotFound) {
		t.Fatalf("expected skill not found, got %v", err)
	}
	var engErr *engine.Error
	if !errors.As(err, &engErr) || engErr.Details["skill"] != "Rust" {
		t.Fatalf("expected Rust in details, got %v", engErr.Details)
	}
	stored, err := env.Engine.Repo.GetProgrammer(env.Ctx, dev.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored.Skills) != 1 || stored.Skills[0].Name() != "Go" {
		t.Fatalf("skills changed: %v", stored.Skills)
	}
}

func TestAssignSkillsAppendSemantics(t *testing.T) {
	env := newTestEnv(t)
	env.tech(t, "Go")
	env.tech(t, "SQL")
	dev := env.programmer(t, "Dev1", "Go")
	dev, err := env.Engine.AssignProgrammerSkills(env.Ctx, dev.ID, []any{"Go", "SQL"}, "tester")
	if err != nil {
		t.Fatal(err)
	}
	if got := domain.SkillNames(dev.Skills); len(got) != 3 {
		t.Fatalf("programmer skills keep repeats, got %v", got)
	}

	p := env.project(t, "P1", "2024-05-01", "2024-05-31", "Go")
	inline := map[string]any{"name": "Infra"}
	p, err = env.Engine.AssignProjectSkills(env.Ctx, p.ID, []any{"Go", "SQL", "SQL", inline, inline}, "tester")
	if err != nil {
		t.Fatal(err)
	}
	if got := domain.SkillNames(p.RequiredSkills); len(got) != 3 || got[2] != "Infra" {
		t.Fatalf("project skills deduplicate, got %v", got)
	}

	if _, err := env.Engine.AssignProjectSkills(env.Ctx, p.ID, []any{42.0}, "tester"); !errors.Is(err, engine.ErrValidation) {
		t.Fatalf("expected validation error for number item, got %v", err)
	}
}

func TestCreateProgrammerWithUnknownSkillIsAtomic(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.CreateProgrammer(env.Ctx, engine.ProgrammerCreateOptions{Name: "Dev1", Skills: []any{"Rust"}})
	if !errors.Is(err, engine.ErrSkillNotFound) {
		t.Fatalf("expected skill not found, got %v", err)
	}
	list, err := env.Engine.Repo.ListProgrammers(env.Ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Fatalf("programmer should not be stored, got %v", list)
	}
}

func TestProjectValidation(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{Name: "P", StartDate: "2024-05-10", EndDate: "2024-05-01"})
	if !errors.Is(err, engine.ErrValidation) {
		t.Fatalf("expected validation error for reversed dates, got %v", err)
	}
	_, err = env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{Name: "P", StartDate: "10/05/2024", EndDate: "2024-05-01"})
	if !errors.Is(err, engine.ErrValidation) {
		t.Fatalf("expected validation error for date format, got %v", err)
	}
	_, err = env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{Name: "P", StartDate: "2024-05-01", EndDate: "2024-05-02", RequiredSkills: []any{map[string]any{"name": "x"}}})
	if !errors.Is(err, engine.ErrValidation) {
		t.Fatalf("expected validation error for object on create, got %v", err)
	}
	// Creation does not consult the catalog.
	p := env.project(t, "P", "2024-05-01", "2024-05-02", "NotInCatalog")
	if p.Status != domain.StatusPlanned {
		t.Fatalf("expected PLANNED, got %s", p.Status)
	}
	if _, err := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{Name: "P", StartDate: "2024-05-01", EndDate: "2024-05-02"}); !errors.Is(err, engine.ErrConflict) {
		t.Fatalf("expected conflict for duplicate name, got %v", err)
	}
}

func TestProjectDoneIsTerminal(t *testing.T) {
	env := newTestEnv(t)
	p := env.project(t, "P1", "2024-05-01", "2024-05-31")
	done := string(domain.StatusDone)
	p, err := env.Engine.UpdateProject(env.Ctx, engine.ProjectUpdateOptions{ID: p.ID, Status: &done})
	if err != nil || p.Status != domain.StatusDone {
		t.Fatalf("to done: %v", err)
	}
	planned := string(domain.StatusPlanned)
	if _, err := env.Engine.UpdateProject(env.Ctx, engine.ProjectUpdateOptions{ID: p.ID, Status: &planned}); !errors.Is(err, engine.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	p, err = env.Engine.UpdateProject(env.Ctx, engine.ProjectUpdateOptions{ID: p.ID, Status: &planned, Force: true})
	if err != nil || p.Status != domain.StatusPlanned {
		t.Fatalf("forced transition: %v", err)
	}
	bogus := "ARCHIVED"
	if _, err := env.Engine.UpdateProject(env.Ctx, engine.ProjectUpdateOptions{ID: p.ID, Status: &bogus}); !errors.Is(err, engine.ErrValidation) {
		t.Fatalf("expected validation error for unknown status, got %v", err)
	}
}

func TestTechnologyCatalog(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.CreateTechnology(env.Ctx, "ThisNameIsFarTooLong", "tester"); !errors.Is(err, engine.ErrValidation) {
		t.Fatalf("expected validation error for long name, got %v", err)
	}
	goTech := env.tech(t, "Go")
	if _, err := env.Engine.CreateTechnology(env.Ctx, "Go", "tester"); !errors.Is(err, engine.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	renamed, err := env.Engine.RenameTechnology(env.Ctx, goTech.ID, "Golang", "tester")
	if err != nil || renamed.Name != "Golang" {
		t.Fatalf("rename unused technology: %v", err)
	}
	env.programmer(t, "Dev1", "Golang")
	if _, err := env.Engine.RenameTechnology(env.Ctx, goTech.ID, "Go", "tester"); !errors.Is(err, engine.ErrTechnologyInUse) {
		t.Fatalf("expected technology in use on rename, got %v", err)
	}
	if err := env.Engine.DeleteTechnology(env.Ctx, goTech.ID, "tester"); !errors.Is(err, engine.ErrTechnologyInUse) {
		t.Fatalf("expected technology in use on delete, got %v", err)
	}
	unused := env.tech(t, "Cobol")
	if err := env.Engine.DeleteTechnology(env.Ctx, unused.ID, "tester"); err != nil {
		t.Fatalf("delete unused: %v", err)
	}
}

func TestDeleteProjectCascadesAllocations(t *testing.T) {
	env := newTestEnv(t)
	env.tech(t, "Python")
	p := env.project(t, "P1", "2024-05-01", "2024-05-31", "Python")
	dev := env.programmer(t, "Dev1", "Python")
	if _, err := env.allocate(p.ID, dev.ID, "1"); err != nil {
		t.Fatal(err)
	}
	if err := env.Engine.DeleteProject(env.Ctx, p.ID, "tester"); err != nil {
		t.Fatal(err)
	}
	list, err := env.Engine.Repo.ListAllocations(env.Ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Fatalf("expected allocations removed, got %v", list)
	}
}

func TestMarkProjectLate(t *testing.T) {
	env := newTestEnv(t)
	p := env.project(t, "P1", "2024-05-01", "2024-05-09")
	changed, err := env.Engine.MarkProjectLate(env.Ctx, p.ID, "run-1")
	if err != nil || !changed {
		t.Fatalf("first mark: changed=%v err=%v", changed, err)
	}
	changed, err = env.Engine.MarkProjectLate(env.Ctx, p.ID, "run-2")
	if err != nil || changed {
		t.Fatalf("second mark: changed=%v err=%v", changed, err)
	}
	evts, err := env.Engine.Repo.LatestEvents(env.Ctx, "project", 10)
	if err != nil {
		t.Fatal(err)
	}
	late := 0
	for _, e := range evts {
		if e.Type == "project.late" {
			late++
		}
	}
	if late != 1 {
		t.Fatalf("expected one project.late event, got %d", late)
	}
}
