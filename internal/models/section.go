package models

import "time"

// Section is a node in a document's hierarchy. ParentID nil means the
// section sits at the root of its document. OrderIndex gives deterministic
// sibling ordering; values are unique per sibling set but not necessarily
// contiguous.
type Section struct {
	ID         string         `json:"id"`
	DocumentID string         `json:"document_id"`
	ParentID   *string        `json:"parent_section_id,omitempty"`
	Heading    string         `json:"heading"`
	Body       string         `json:"body"`
	OrderIndex int            `json:"order_index"`
	Meta       map[string]any `json:"metadata,omitempty"`
	Version    int64          `json:"version"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// SectionNode is a section with its children resolved, as returned by
// tree-shaped reads. Children are ordered by order_index.
type SectionNode struct {
	Section
	Children []*SectionNode `json:"children,omitempty"`
	Links    []Link         `json:"links,omitempty"`
}

// FlatSection annotates a section with its position in a depth-first
// traversal of the document tree.
type FlatSection struct {
	Section
	Depth int `json:"depth"`
}
