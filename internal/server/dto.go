package server

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/danielgtaylor/huma/v2"
	"github.com/shopspring/decimal"

	"staffline/internal/domain"
	"staffline/internal/engine"
)

// Hours accepts a JSON number or a decimal string and is rendered as a
// two-decimal string.
type Hours struct {
	decimal.Decimal
}

func (h *Hours) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		raw = []byte(s)
	}
	d, err := decimal.NewFromString(string(raw))
	if err != nil {
		return fmt.Errorf("hours must be a decimal number, got %s", data)
	}
	h.Decimal = d
	return nil
}

func (h Hours) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.StringFixed(2))
}

func (Hours) Schema(huma.Registry) *huma.Schema {
	return &huma.Schema{
		Description: "Hours between 0 and 999.99 with at most two decimal places.",
		OneOf: []*huma.Schema{
			{Type: huma.TypeString, Examples: []any{"10.50"}},
			{Type: huma.TypeNumber, Examples: []any{10.5}},
		},
	}
}

// Request payloads

type TechnologyRequest struct {
	Name string `json:"name" maxLength:"18" example:"Python"`
}

type CreateProgrammerRequest struct {
	Name   string `json:"name" maxLength:"128"`
	Skills []any  `json:"skills,omitempty" doc:"Technology names or inline skill objects"`
}

type PutProgrammerRequest struct {
	Name   string `json:"name" maxLength:"128"`
	Skills []any  `json:"skills" doc:"Appended to the current skills"`
}

type PatchProgrammerRequest struct {
	Name   *string `json:"name,omitempty" maxLength:"128"`
	Skills []any   `json:"skills,omitempty" doc:"Appended to the current skills"`
}

type AssignSkillsRequest struct {
	Skills []any `json:"skills" doc:"Technology names or inline skill objects"`
}

type CreateProjectRequest struct {
	Name           string `json:"name" maxLength:"128"`
	StartDate      string `json:"start_date" format:"date" example:"2024-05-01"`
	EndDate        string `json:"end_date" format:"date" example:"2024-05-31"`
	RequiredSkills []any  `json:"required_skills,omitempty" doc:"Technology names"`
	Status         string `json:"status,omitempty" enum:"PLANNED,IN_PROGRESS,LATE,DONE"`
}

type PutProjectRequest struct {
	Name           string `json:"name" maxLength:"128"`
	StartDate      string `json:"start_date" format:"date"`
	EndDate        string `json:"end_date" format:"date"`
	RequiredSkills []any  `json:"required_skills" doc:"Appended to the current required skills"`
	Status         string `json:"status" enum:"PLANNED,IN_PROGRESS,LATE,DONE"`
	Force          bool   `json:"force,omitempty" doc:"Allow leaving DONE"`
}

type PatchProjectRequest struct {
	Name           *string `json:"name,omitempty" maxLength:"128"`
	StartDate      *string `json:"start_date,omitempty" format:"date"`
	EndDate        *string `json:"end_date,omitempty" format:"date"`
	RequiredSkills []any   `json:"required_skills,omitempty" doc:"Appended to the current required skills"`
	Status         *string `json:"status,omitempty" enum:"PLANNED,IN_PROGRESS,LATE,DONE"`
	Force          bool    `json:"force,omitempty" doc:"Allow leaving DONE"`
}

type AllocationRequest struct {
	Project   int64 `json:"project"`
	Developer int64 `json:"developer"`
	Hours     Hours `json:"hours"`
}

type PatchAllocationRequest struct {
	Project   *int64 `json:"project,omitempty"`
	Developer *int64 `json:"developer,omitempty"`
	Hours     *Hours `json:"hours,omitempty"`
}

// Responses

type ProgrammerResponse struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Skills []any  `json:"skills"`
}

type ProjectResponse struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	StartDate      string `json:"start_date" format:"date"`
	EndDate        string `json:"end_date" format:"date"`
	RequiredSkills []any  `json:"required_skills"`
	Status         string `json:"status" enum:"PLANNED,IN_PROGRESS,LATE,DONE"`
	Capacity       string `json:"capacity" doc:"Capacity ceiling in hours under the configured policy"`
}

type AllocationResponse struct {
	ID        int64 `json:"id"`
	Project   int64 `json:"project"`
	Developer int64 `json:"developer"`
	Hours     Hours `json:"hours"`
}

type EventResponse struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts" format:"date-time"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   int64          `json:"entity_id,omitempty"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

type SweepResponse struct {
	Count  int      `json:"count"`
	Now    string   `json:"now" format:"date-time"`
	Errors []string `json:"errors,omitempty"`
}

func programmerResponse(p domain.Programmer) ProgrammerResponse {
	return ProgrammerResponse{ID: p.ID, Name: p.Name, Skills: domain.SkillValues(p.Skills)}
}

func projectResponse(e engine.Engine, p domain.Project) ProjectResponse {
	return ProjectResponse{
		ID:             p.ID,
		Name:           p.Name,
		StartDate:      domain.FormatDate(p.StartDate),
		EndDate:        domain.FormatDate(p.EndDate),
		RequiredSkills: domain.SkillValues(p.RequiredSkills),
		Status:         string(p.Status),
		Capacity:       e.Capacity.Ceiling(p).StringFixed(2),
	}
}

func allocationResponse(a domain.Allocation) AllocationResponse {
	return AllocationResponse{ID: a.ID, Project: a.ProjectID, Developer: a.DeveloperID, Hours: Hours{a.Hours}}
}

func eventResponse(e domain.Event) EventResponse {
	return EventResponse{
		ID:         e.ID,
		TS:         e.TS,
		Type:       e.Type,
		EntityKind: e.EntityKind,
		EntityID:   e.EntityID,
		ActorID:    e.ActorID,
		Payload:    decodeJSONMap(e.Payload),
	}
}

func mapSlice[T, R any](items []T, fn func(T) R) []R {
	out := make([]R, 0, len(items))
	for _, item := range items {
		out = append(out, fn(item))
	}
	return out
}

func decodeJSONMap(raw string) map[string]any {
	if raw == "" {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil
	}
	return obj
}
