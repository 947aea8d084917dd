package docservice

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/docomatic/docomatic/internal/models"
)

// Field limits shared across entities.
const (
	maxTitleLen   = 500
	maxHeadingLen = 500
	maxIDLen      = 255
	maxTargetLen  = 500
)

// Link target formats per system.
var (
	taskTargetRe   = regexp.MustCompile(`^task://(project/task/|task/)[a-zA-Z0-9_-]+$`)
	factTargetRe   = regexp.MustCompile(`^fact://fact/[a-zA-Z0-9_-]+$`)
	githubTargetRe = regexp.MustCompile(`^github://[a-zA-Z0-9_-]+/[a-zA-Z0-9_.-]+/(commit/[a-f0-9]+|pull/[0-9]+|issues/[0-9]+|blob/[a-zA-Z0-9_./-]+)$`)
)

var idRules = []validation.Rule{validation.Length(1, maxIDLen)}

// InitialSection describes one section created together with its document.
// Parent references may point at earlier entries by their explicit ids.
type InitialSection struct {
	ID         string         `json:"id,omitempty"`
	Heading    string         `json:"heading"`
	Body       string         `json:"body"`
	ParentID   *string        `json:"parent_section_id,omitempty"`
	OrderIndex *int           `json:"order_index,omitempty"`
	Meta       map[string]any `json:"metadata,omitempty"`
}

// Validate implements the validation contract for initial sections.
func (s InitialSection) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.ID, idRules[0]),
		validation.Field(&s.Heading, validation.Required, validation.Length(1, maxHeadingLen)),
		validation.Field(&s.OrderIndex, validation.By(nonNegative)),
	)
}

// CreateDocumentRequest creates a document, optionally seeded with sections.
type CreateDocumentRequest struct {
	ID              string           `json:"id,omitempty"`
	Title           string           `json:"title"`
	Meta            map[string]any   `json:"metadata,omitempty"`
	InitialSections []InitialSection `json:"initial_sections,omitempty"`
}

// Validate checks the request before it reaches the store.
func (r CreateDocumentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, idRules[0]),
		validation.Field(&r.Title, validation.Required, validation.Length(1, maxTitleLen)),
		validation.Field(&r.InitialSections),
	)
}

// UpdateDocumentRequest updates title and/or metadata. Nil fields are left
// untouched; non-nil metadata replaces the stored map.
type UpdateDocumentRequest struct {
	DocumentID string          `json:"document_id"`
	Title      *string         `json:"title,omitempty"`
	Meta       *map[string]any `json:"metadata,omitempty"`
}

// Validate checks the request before it reaches the store.
func (r UpdateDocumentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.DocumentID, validation.Required, idRules[0]),
		validation.Field(&r.Title, validation.Length(1, maxTitleLen)),
	)
}

// ListDocumentsRequest paginates documents with an optional title filter.
type ListDocumentsRequest struct {
	TitlePattern string `json:"title_pattern,omitempty"`
	Limit        int    `json:"limit,omitempty"`
	Offset       int    `json:"offset,omitempty"`
}

// Validate checks the request before it reaches the store.
func (r ListDocumentsRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Limit, validation.Min(0)),
		validation.Field(&r.Offset, validation.Min(0)),
	)
}

// CreateSectionRequest creates a section under a document, optionally
// nested below a parent. A nil OrderIndex assigns max(sibling)+1.
type CreateSectionRequest struct {
	ID         string         `json:"id,omitempty"`
	DocumentID string         `json:"document_id"`
	Heading    string         `json:"heading"`
	Body       string         `json:"body"`
	ParentID   *string        `json:"parent_section_id,omitempty"`
	OrderIndex *int           `json:"order_index,omitempty"`
	Meta       map[string]any `json:"metadata,omitempty"`
}

// Validate checks the request before it reaches the store.
func (r CreateSectionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, idRules[0]),
		validation.Field(&r.DocumentID, validation.Required, idRules[0]),
		validation.Field(&r.Heading, validation.Required, validation.Length(1, maxHeadingLen)),
		validation.Field(&r.OrderIndex, validation.By(nonNegative)),
	)
}

// UpdateSectionRequest updates section fields. Nil fields are untouched.
type UpdateSectionRequest struct {
	SectionID  string          `json:"section_id"`
	Heading    *string         `json:"heading,omitempty"`
	Body       *string         `json:"body,omitempty"`
	OrderIndex *int            `json:"order_index,omitempty"`
	Meta       *map[string]any `json:"metadata,omitempty"`
}

// Validate checks the request before it reaches the store.
func (r UpdateSectionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.SectionID, validation.Required, idRules[0]),
		validation.Field(&r.Heading, validation.Length(1, maxHeadingLen)),
		validation.Field(&r.OrderIndex, validation.By(nonNegative)),
	)
}

// MoveSectionRequest re-parents a section. A nil NewParentID moves it to
// the document root; a nil OrderIndex places it after the last sibling at
// the destination.
type MoveSectionRequest struct {
	SectionID   string  `json:"section_id"`
	NewParentID *string `json:"new_parent_section_id,omitempty"`
	OrderIndex  *int    `json:"order_index,omitempty"`
}

// Validate checks the request before it reaches the store.
func (r MoveSectionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.SectionID, validation.Required, idRules[0]),
		validation.Field(&r.OrderIndex, validation.By(nonNegative)),
	)
}

// ReorderSectionsRequest renumbers a sibling set to the given id order.
// A nil ParentID addresses the root sibling set of the sections' document.
type ReorderSectionsRequest struct {
	ParentID     *string  `json:"parent_section_id,omitempty"`
	SectionOrder []string `json:"section_order"`
}

// Validate checks the request before it reaches the store.
func (r ReorderSectionsRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.SectionOrder, validation.Required, validation.Length(1, 0)),
	)
}

// SearchSectionsRequest runs full-text search, optionally scoped to one
// document and composable with a link filter.
type SearchSectionsRequest struct {
	Query      string `json:"query"`
	DocumentID string `json:"document_id,omitempty"`
	LinkSystem string `json:"link_system,omitempty"`
	LinkTarget string `json:"link_target,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
}

// Validate checks the request before it reaches the store.
func (r SearchSectionsRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Query, validation.Required.Error("query must be a non-empty string")),
		validation.Field(&r.Limit, validation.Min(0)),
		validation.Field(&r.Offset, validation.Min(0)),
		validation.Field(&r.LinkSystem, validation.In(toAny(models.ValidSystems)...)),
	)
}

// CreateLinkRequest attaches an external reference to a document or
// section, depending on OwnerKind.
type CreateLinkRequest struct {
	ID        string           `json:"id,omitempty"`
	OwnerKind models.OwnerKind `json:"owner_kind"`
	OwnerID   string           `json:"owner_id"`
	System    string           `json:"system"`
	Target    string           `json:"target"`
	Meta      map[string]any   `json:"metadata,omitempty"`
}

// Validate checks the request, including the per-system target format.
func (r CreateLinkRequest) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.ID, idRules[0]),
		validation.Field(&r.OwnerID, validation.Required, idRules[0]),
		validation.Field(&r.OwnerKind, validation.Required,
			validation.In(models.OwnerDocument, models.OwnerSection)),
		validation.Field(&r.System, validation.Required,
			validation.In(toAny(models.ValidSystems)...).Error("system must be one of: task, fact, github")),
		validation.Field(&r.Target, validation.Required, validation.Length(1, maxTargetLen)),
	)
	if err != nil {
		return err
	}
	return validateTargetFormat(r.System, r.Target)
}

func validateTargetFormat(system, target string) error {
	var re *regexp.Regexp
	var hint string
	switch system {
	case models.SystemTask:
		re, hint = taskTargetRe, "task://task/<id> or task://project/task/<id>"
	case models.SystemFact:
		re, hint = factTargetRe, "fact://fact/<id>"
	case models.SystemGitHub:
		re, hint = githubTargetRe, "github://owner/repo/{commit/<sha>|pull/<n>|issues/<n>|blob/<path>}"
	default:
		return nil
	}
	if !re.MatchString(target) {
		return validation.NewError("validation_target_format",
			"target for system "+system+" must match "+hint)
	}
	return nil
}

func nonNegative(value any) error {
	var n int
	switch v := value.(type) {
	case int:
		n = v
	case *int:
		if v == nil {
			return nil
		}
		n = *v
	default:
		return nil
	}
	if n < 0 {
		return validation.NewError("validation_order_index", "order_index must be non-negative")
	}
	return nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
