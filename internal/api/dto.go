package api

import (
	"github.com/docomatic/docomatic/internal/docservice"
	"github.com/docomatic/docomatic/internal/models"
)

// CreateDocumentRequest is the request body for creating a document
// (aliased from the domain layer).
type CreateDocumentRequest = docservice.CreateDocumentRequest

// CreateSectionRequest is the request body for creating a section.
type CreateSectionRequest = docservice.CreateSectionRequest

// MoveSectionBody is the request body for moving a section.
type MoveSectionBody struct {
	NewParentID *string `json:"new_parent_section_id,omitempty"`
	OrderIndex  *int    `json:"order_index,omitempty"`
}

// CreateLinkBody is the request body for attaching a link to a section
// or document. The owner comes from the URL.
type CreateLinkBody struct {
	System string         `json:"link_type" example:"task" validate:"required"`
	Target string         `json:"target" example:"task://task/T-1" validate:"required"`
	Meta   map[string]any `json:"metadata,omitempty"`
}

// DocumentListResponse wraps paginated document listings.
type DocumentListResponse struct {
	Documents []models.DocumentListItem `json:"documents" validate:"required"`
	Total     int                       `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []models.Section `json:"results" validate:"required"`
}
