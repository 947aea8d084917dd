// Package models defines the domain types for Doc-O-Matic.
package models

import "time"

// Document is a top-level container owning an ordered forest of sections.
type Document struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Meta      map[string]any `json:"metadata,omitempty"`
	Version   int64          `json:"version"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`

	// Populated on request only; never lazily loaded.
	Sections []*SectionNode `json:"sections,omitempty"`
	Links    []Link         `json:"links,omitempty"`
}

// DocumentListItem is a lightweight representation returned by list operations.
type DocumentListItem struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
