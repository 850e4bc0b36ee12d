package engine

import (
	"context"
	"database/sql"
	"time"

	"staffline/internal/config"
	"staffline/internal/events"
	"staffline/internal/repo"
)

type Engine struct {
	DB       *sql.DB
	Repo     repo.Repo
	Events   events.Writer
	Config   *config.Config
	Capacity CapacityPolicy
	Now      func() time.Time
}

// New wires an engine over db. The capacity policy is fixed here from cfg.
func New(db *sql.DB, cfg *config.Config) Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	return Engine{
		DB:       db,
		Repo:     repo.Repo{DB: db},
		Events:   events.Writer{Now: time.Now},
		Config:   cfg,
		Capacity: PolicyFromConfig(cfg),
		Now:      time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// CurrentTime is the engine clock reading.
func (e Engine) CurrentTime() time.Time {
	return e.now()
}

// WithClock returns a copy of e whose engine and event timestamps use now.
func (e Engine) WithClock(now func() time.Time) Engine {
	e.Now = now
	e.Events = events.Writer{Now: now}
	return e
}

func (e Engine) location() *time.Location {
	if e.Config == nil {
		return time.UTC
	}
	return e.Config.Location()
}

func (e Engine) begin(ctx context.Context) (*sql.Tx, error) {
	return e.DB.BeginTx(ctx, nil)
}
