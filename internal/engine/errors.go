package engine

import (
	"errors"
	"fmt"

	"staffline/internal/repo"
)

type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindValidation        Kind = "validation_error"
	KindSkillNotFound     Kind = "skill_not_found"
	KindSkillMismatch     Kind = "skill_mismatch"
	KindNoRequiredSkills  Kind = "no_required_skills"
	KindCapacityExceeded  Kind = "capacity_exceeded"
	KindTemporalFence     Kind = "temporal_fence"
	KindDuplicatePair     Kind = "duplicate_pair"
	KindInvalidTransition Kind = "invalid_transition"
	KindTechnologyInUse   Kind = "technology_in_use"
	KindConflict          Kind = "conflict"
)

// Error is a rejected operation. Details carry the identifiers and numbers
// involved so callers can render them without parsing Message.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
}

func (e *Error) Error() string { return e.Message }

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrNotFound          = &Error{Kind: KindNotFound, Message: "not found"}
	ErrValidation        = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrSkillNotFound     = &Error{Kind: KindSkillNotFound, Message: "skill not found"}
	ErrSkillMismatch     = &Error{Kind: KindSkillMismatch, Message: "skill mismatch"}
	ErrNoRequiredSkills  = &Error{Kind: KindNoRequiredSkills, Message: "project requires no technologies"}
	ErrCapacityExceeded  = &Error{Kind: KindCapacityExceeded, Message: "capacity exceeded"}
	ErrTemporalFence     = &Error{Kind: KindTemporalFence, Message: "outside project window"}
	ErrDuplicatePair     = &Error{Kind: KindDuplicatePair, Message: "duplicate allocation"}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition, Message: "invalid status transition"}
	ErrTechnologyInUse   = &Error{Kind: KindTechnologyInUse, Message: "technology in use"}
	ErrConflict          = &Error{Kind: KindConflict, Message: "conflict"}
)

func newError(kind Kind, details map[string]any, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Details: details}
}

func validationError(format string, args ...any) *Error {
	return newError(KindValidation, nil, format, args...)
}

func notFound(entity string, id int64) *Error {
	return newError(KindNotFound, map[string]any{"entity": entity, "id": id}, "%s %d not found", entity, id)
}

// lookupErr turns a repository miss into a NotFound naming entity and id.
func lookupErr(err error, entity string, id int64) error {
	if errors.Is(err, repo.ErrNotFound) {
		return notFound(entity, id)
	}
	return err
}

// writeErr maps unique-name violations to Conflict.
func writeErr(err error) error {
	if errors.Is(err, repo.ErrDuplicate) {
		return newError(KindConflict, nil, "%s", err.Error())
	}
	return err
}
