// Package apperr defines the domain error taxonomy shared by the service,
// tool, and API layers.
package apperr

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Callers classify failures with errors.Is.
var (
	ErrNotFound    = errors.New("not found")
	ErrValidation  = errors.New("validation failed")
	ErrCycle       = errors.New("cycle detected")
	ErrConflict    = errors.New("conflict")
	ErrPersistence = errors.New("persistence failure")
)

// Error is a domain error with contextual detail about the entity and
// operation that produced it. It wraps one of the sentinel kinds so that
// errors.Is classification keeps working through it.
type Error struct {
	Kind   error  // one of the sentinels above
	Entity string // "document", "section", "link"
	ID     string
	Op     string // e.g. "create_section"
	Msg    string
}

func (e *Error) Error() string {
	switch {
	case e.ID != "" && e.Msg != "":
		return fmt.Sprintf("%s: %s %q: %s", e.Op, e.Entity, e.ID, e.Msg)
	case e.ID != "":
		return fmt.Sprintf("%s: %s %q: %v", e.Op, e.Entity, e.ID, e.Kind)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Kind }

// NotFound reports that the referenced entity does not exist.
func NotFound(op, entity, id string) error {
	return &Error{Kind: ErrNotFound, Entity: entity, ID: id, Op: op}
}

// Validation reports malformed input.
func Validation(op, msg string) error {
	return &Error{Kind: ErrValidation, Op: op, Msg: msg}
}

// Cycle reports a re-parent operation that would create a cycle.
func Cycle(op, sectionID string) error {
	return &Error{Kind: ErrCycle, Entity: "section", ID: sectionID, Op: op,
		Msg: "move would create a cycle in the section tree"}
}

// Conflict reports a concurrent-mutation or duplicate-resource conflict.
func Conflict(op, entity, id, msg string) error {
	return &Error{Kind: ErrConflict, Entity: entity, ID: id, Op: op, Msg: msg}
}

// Persistence wraps a backend failure so it surfaces instead of being
// swallowed. The original error stays reachable through errors.Unwrap.
func Persistence(op string, err error) error {
	return &Error{Kind: ErrPersistence, Op: op, Msg: err.Error()}
}

// KindTag returns the stable machine-readable tag for an error, used in
// tool and API error responses.
func KindTag(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrCycle):
		return "cycle_error"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrPersistence):
		return "persistence_error"
	default:
		return "internal_error"
	}
}
