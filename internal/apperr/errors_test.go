package apperr

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestSentinelClassification(t *testing.T) {
	cases := []struct {
		err  error
		want error
	}{
		{NotFound("get_section", "section", "s1"), ErrNotFound},
		{Validation("create_document", "title is required"), ErrValidation},
		{Cycle("move_section", "s1"), ErrCycle},
		{Conflict("update_section", "section", "s1", "stale version"), ErrConflict},
		{Persistence("create_link", errors.New("disk full")), ErrPersistence},
	}
	for _, tc := range cases {
		if !errors.Is(tc.err, tc.want) {
			t.Errorf("errors.Is(%v, %v) = false", tc.err, tc.want)
		}
	}
}

func TestKindTag(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{NotFound("get_document", "document", "d1"), "not_found"},
		{Validation("search_sections", "query must not be empty"), "validation_error"},
		{Cycle("move_section", "s1"), "cycle_error"},
		{Conflict("link_section", "link", "l1", "duplicate"), "conflict"},
		{Persistence("delete_document", errors.New("io error")), "persistence_error"},
		{errors.New("something else"), "internal_error"},
	}
	for _, tc := range cases {
		if got := KindTag(tc.err); got != tc.want {
			t.Errorf("KindTag(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestKindTagThroughWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", NotFound("get_section", "section", "s1"))
	if got := KindTag(err); got != "not_found" {
		t.Errorf("KindTag through wrap = %q, want not_found", got)
	}
}

func TestErrorMessageDetail(t *testing.T) {
	err := NotFound("get_section", "section", "abc-123")
	msg := err.Error()
	for _, part := range []string{"get_section", "section", "abc-123"} {
		if !strings.Contains(msg, part) {
			t.Errorf("message %q missing %q", msg, part)
		}
	}

	verr := Validation("create_document", "title is required")
	if !strings.Contains(verr.Error(), "title is required") {
		t.Errorf("message %q missing detail", verr.Error())
	}
}
