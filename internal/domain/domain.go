package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the storage and wire format for project dates.
const DateLayout = "2006-01-02"

type ProjectStatus string

const (
	StatusPlanned    ProjectStatus = "PLANNED"
	StatusInProgress ProjectStatus = "IN_PROGRESS"
	StatusLate       ProjectStatus = "LATE"
	StatusDone       ProjectStatus = "DONE"
)

// Valid reports whether s is one of the known project statuses.
func (s ProjectStatus) Valid() bool {
	switch s {
	case StatusPlanned, StatusInProgress, StatusLate, StatusDone:
		return true
	}
	return false
}

type Technology struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Programmer struct {
	ID     int64      `json:"id"`
	Name   string     `json:"name"`
	Skills []SkillRef `json:"skills"`
}

type Project struct {
	ID             int64         `json:"id"`
	Name           string        `json:"name"`
	StartDate      time.Time     `json:"-"`
	EndDate        time.Time     `json:"-"`
	RequiredSkills []SkillRef    `json:"required_skills"`
	Status         ProjectStatus `json:"status"`
}

// Days is the whole number of days between start and end date.
func (p Project) Days() int {
	return int(p.EndDate.Sub(p.StartDate).Hours() / 24)
}

// DerivedCapacity returns the date-derived ceiling for the project.
func (p Project) DerivedCapacity(hoursPerDay decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(int64(p.Days())).Mul(hoursPerDay)
}

type Allocation struct {
	ID          int64           `json:"id"`
	ProjectID   int64           `json:"project"`
	DeveloperID int64           `json:"developer"`
	Hours       decimal.Decimal `json:"hours"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   int64  `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

// ParseDate parses a YYYY-MM-DD date at UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// FormatDate renders a date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
