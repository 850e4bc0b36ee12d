// Package lifecycle advances project status with time. The sweep only ever
// moves projects to LATE; every other transition is an explicit update.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"staffline/internal/domain"
)

//go:generate mockgen -destination=mock_store_test.go -package=lifecycle_test staffline/internal/lifecycle Store

// Store is the persistence the sweep needs. engine.Engine satisfies it.
type Store interface {
	ListSweepableProjects(ctx context.Context) ([]domain.Project, error)
	MarkProjectLate(ctx context.Context, id int64, runID string) (bool, error)
}

type Sweeper struct {
	Store    Store
	Location *time.Location
	Logger   *log.Logger
	NewRunID func() string
}

func (s Sweeper) logger() *log.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return log.New(os.Stderr, "lifecycle: ", log.LstdFlags)
}

func (s Sweeper) runID() string {
	if s.NewRunID != nil {
		return s.NewRunID()
	}
	return uuid.NewString()
}

// Overdue reports whether the calendar date of now, in loc, is past the
// project's end date.
func Overdue(p domain.Project, now time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(p.EndDate.Year(), p.EndDate.Month(), p.EndDate.Day(), 0, 0, 0, 0, time.UTC)
	return today.After(end)
}

// Sweep marks every overdue project not yet LATE or DONE as LATE. A failing
// project is logged and skipped; the count covers the successful transitions
// and the error joins the failures.
func (s Sweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	logger := s.logger()
	runID := s.runID()
	projects, err := s.Store.ListSweepableProjects(ctx)
	if err != nil {
		return 0, fmt.Errorf("sweep %s: list projects: %w", runID, err)
	}
	count := 0
	var failures []error
	for _, p := range projects {
		if err := ctx.Err(); err != nil {
			failures = append(failures, err)
			break
		}
		if p.Status == domain.StatusLate || p.Status == domain.StatusDone {
			continue
		}
		if !Overdue(p, now, s.Location) {
			continue
		}
		changed, err := s.Store.MarkProjectLate(ctx, p.ID, runID)
		if err != nil {
			logger.Printf("sweep %s: project %d (%s): %v", runID, p.ID, p.Name, err)
			failures = append(failures, fmt.Errorf("project %d: %w", p.ID, err))
			continue
		}
		if changed {
			count++
		}
	}
	logger.Printf("sweep %s: %d of %d projects marked late, %d failed", runID, count, len(projects), len(failures))
	return count, errors.Join(failures...)
}
