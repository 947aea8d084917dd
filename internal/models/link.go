package models

import "time"

// Link systems. A link attaches a document or section to a resource in one
// of these external systems.
const (
	SystemTask   = "task"
	SystemFact   = "fact"
	SystemGitHub = "github"
)

// ValidSystems lists the recognized link systems.
var ValidSystems = []string{SystemTask, SystemFact, SystemGitHub}

// IsValidSystem reports whether s names a recognized link system.
func IsValidSystem(s string) bool {
	for _, v := range ValidSystems {
		if s == v {
			return true
		}
	}
	return false
}

// Link is a typed reference from a document or section to an external
// resource. SectionID nil means the link is attached at document level;
// section links carry their owning document id as well so document
// cascade deletes them in one pass.
type Link struct {
	ID         string         `json:"id"`
	DocumentID string         `json:"document_id"`
	SectionID  *string        `json:"section_id,omitempty"`
	System     string         `json:"system"`
	Target     string         `json:"target"`
	Meta       map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// OwnerKind identifies which entity type owns a link.
type OwnerKind string

// Owner kinds.
const (
	OwnerDocument OwnerKind = "document"
	OwnerSection  OwnerKind = "section"
)

// LinkOwner is one entry in a reverse lookup: the entity referencing a
// given external resource.
type LinkOwner struct {
	Kind       OwnerKind `json:"kind"`
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	LinkID     string    `json:"link_id"`
}
