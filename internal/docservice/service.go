// Package docservice implements the document/section/link service facade.
// Every public operation runs as one transactional unit against the store
// and surfaces failures through the apperr taxonomy.
package docservice

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/docomatic/docomatic/internal/apperr"
	"github.com/docomatic/docomatic/internal/models"
	"github.com/docomatic/docomatic/internal/store"
	"github.com/docomatic/docomatic/internal/tree"
)

// Notifier receives entity change events; the SSE broker implements it.
type Notifier interface {
	PublishEntityEvent(entity, kind, id string)
}

// Service coordinates store operations for documents, sections, and links.
type Service struct {
	store  store.Store
	events Notifier
}

// New creates a service facade over the given store. events may be nil.
func New(st store.Store, events Notifier) *Service {
	return &Service{store: st, events: events}
}

func (s *Service) notify(entity, kind, id string) {
	if s.events != nil {
		s.events.PublishEntityEvent(entity, kind, id)
	}
}

func now() time.Time { return time.Now().UTC() }

// newID returns the supplied id or a fresh UUID when empty.
func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

// invalid converts a request validation failure into a domain error.
func invalid(op string, err error) error {
	return apperr.Validation(op, err.Error())
}

// CreateDocument creates a document together with any initial sections in
// one transaction. Initial sections may nest by referencing earlier
// entries' explicit ids as parents.
func (s *Service) CreateDocument(ctx context.Context, req CreateDocumentRequest) (*models.Document, error) {
	const op = "create_document"
	if err := req.Validate(); err != nil {
		return nil, invalid(op, err)
	}

	id := newID(req.ID)
	if existing, err := s.store.GetDocument(ctx, id); err != nil {
		return nil, apperr.Persistence(op, err)
	} else if existing != nil {
		return nil, apperr.Conflict(op, "document", id, "document with this id already exists")
	}

	ts := now()
	doc := models.Document{
		ID:        id,
		Title:     req.Title,
		Meta:      req.Meta,
		Version:   1,
		CreatedAt: ts,
		UpdatedAt: ts,
	}

	sections, err := buildInitialSections(id, req.InitialSections, ts)
	if err != nil {
		return nil, apperr.Validation(op, err.Error())
	}

	if err := s.store.CreateDocument(ctx, doc, sections); err != nil {
		return nil, apperr.Persistence(op, err)
	}
	s.notify("document", "created", id)
	if doc.Meta == nil {
		doc.Meta = map[string]any{}
	}
	return &doc, nil
}

// buildInitialSections resolves parent references and order indexes for
// sections created alongside their document. Parents must be earlier
// entries; a missing order_index becomes max(sibling index)+1, and an
// explicit index that collides with an earlier entry shifts that entry
// and everything after it in the same sibling set up one slot, matching
// what creating the sections one by one would produce.
func buildInitialSections(documentID string, in []InitialSection, ts time.Time) ([]models.Section, error) {
	if len(in) == 0 {
		return nil, nil
	}
	known := make(map[string]bool, len(in))
	out := make([]models.Section, 0, len(in))

	scopeOf := func(sec models.Section) string {
		if sec.ParentID == nil {
			return ""
		}
		return *sec.ParentID
	}

	for _, is := range in {
		id := newID(is.ID)
		if known[id] {
			return nil, errors.New("duplicate initial section id: " + id)
		}
		scope := ""
		if is.ParentID != nil {
			if !known[*is.ParentID] {
				return nil, errors.New("initial section parent must be an earlier initial section: " + *is.ParentID)
			}
			scope = *is.ParentID
		}

		idx := 0
		for _, sec := range out {
			if scopeOf(sec) == scope && sec.OrderIndex >= idx {
				idx = sec.OrderIndex + 1
			}
		}
		if is.OrderIndex != nil {
			idx = *is.OrderIndex
			taken := false
			for j := range out {
				if scopeOf(out[j]) == scope && out[j].OrderIndex == idx {
					taken = true
					break
				}
			}
			if taken {
				for j := range out {
					if scopeOf(out[j]) == scope && out[j].OrderIndex >= idx {
						out[j].OrderIndex++
					}
				}
			}
		}

		out = append(out, models.Section{
			ID:         id,
			DocumentID: documentID,
			ParentID:   is.ParentID,
			Heading:    is.Heading,
			Body:       is.Body,
			OrderIndex: idx,
			Meta:       is.Meta,
			CreatedAt:  ts,
			UpdatedAt:  ts,
		})
		known[id] = true
	}
	return out, nil
}

// GetDocument returns a document, optionally with its section forest and
// document-level links resolved.
func (s *Service) GetDocument(ctx context.Context, id string, includeSections, includeLinks bool) (*models.Document, error) {
	const op = "get_document"
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	if doc == nil {
		return nil, apperr.NotFound(op, "document", id)
	}
	if includeSections {
		forest, err := s.GetTree(ctx, id)
		if err != nil {
			return nil, err
		}
		doc.Sections = forest
	}
	if includeLinks {
		links, err := s.store.LinksForDocument(ctx, id)
		if err != nil {
			return nil, apperr.Persistence(op, err)
		}
		doc.Links = links
	}
	return doc, nil
}

// UpdateDocument updates title and/or metadata. Concurrent updates are
// serialized by the store's version check.
func (s *Service) UpdateDocument(ctx context.Context, req UpdateDocumentRequest) (*models.Document, error) {
	const op = "update_document"
	if err := req.Validate(); err != nil {
		return nil, invalid(op, err)
	}

	doc, err := s.store.GetDocument(ctx, req.DocumentID)
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	if doc == nil {
		return nil, apperr.NotFound(op, "document", req.DocumentID)
	}

	if req.Title != nil {
		doc.Title = *req.Title
	}
	if req.Meta != nil {
		doc.Meta = *req.Meta
	}
	doc.UpdatedAt = now()

	if err := s.store.UpdateDocument(ctx, *doc); err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			return nil, apperr.Conflict(op, "document", doc.ID, "document was modified concurrently")
		}
		return nil, apperr.Persistence(op, err)
	}
	doc.Version++
	s.notify("document", "updated", doc.ID)
	return doc, nil
}

// DeleteDocument removes a document and cascades to every owned section
// and every link referencing it or its sections.
func (s *Service) DeleteDocument(ctx context.Context, id string) error {
	const op = "delete_document"
	deleted, err := s.store.DeleteDocument(ctx, id)
	if err != nil {
		return apperr.Persistence(op, err)
	}
	if !deleted {
		return apperr.NotFound(op, "document", id)
	}
	s.notify("document", "deleted", id)
	return nil
}

// ListDocuments returns paginated documents plus the total match count.
func (s *Service) ListDocuments(ctx context.Context, req ListDocumentsRequest) ([]models.DocumentListItem, int, error) {
	const op = "list_documents"
	if err := req.Validate(); err != nil {
		return nil, 0, invalid(op, err)
	}
	items, total, err := s.store.ListDocuments(ctx, req.TitlePattern, req.Limit, req.Offset)
	if err != nil {
		return nil, 0, apperr.Persistence(op, err)
	}
	return items, total, nil
}

// GetTree returns the full section forest of a document, children ordered
// by order_index. Deterministic across calls absent mutation.
func (s *Service) GetTree(ctx context.Context, documentID string) ([]*models.SectionNode, error) {
	const op = "get_tree"
	if err := s.requireDocument(ctx, op, documentID); err != nil {
		return nil, err
	}
	sections, err := s.store.SectionsByDocument(ctx, documentID)
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	return tree.BuildForest(sections), nil
}

// GetFlat returns every section of a document in depth-first sibling
// order, annotated with depth and parent id.
func (s *Service) GetFlat(ctx context.Context, documentID string) ([]models.FlatSection, error) {
	const op = "get_flat"
	if err := s.requireDocument(ctx, op, documentID); err != nil {
		return nil, err
	}
	sections, err := s.store.SectionsByDocument(ctx, documentID)
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	return tree.Flatten(tree.BuildForest(sections)), nil
}

func (s *Service) requireDocument(ctx context.Context, op, id string) error {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return apperr.Persistence(op, err)
	}
	if doc == nil {
		return apperr.NotFound(op, "document", id)
	}
	return nil
}
