package docservice

import (
	"context"
	"errors"

	"github.com/docomatic/docomatic/internal/apperr"
	"github.com/docomatic/docomatic/internal/models"
	"github.com/docomatic/docomatic/internal/store"
)

// CreateLink attaches an external reference to a document or section.
// Linking the same owner to the same (system, target) twice is rejected
// with a conflict; duplicate links are never silently merged.
func (s *Service) CreateLink(ctx context.Context, req CreateLinkRequest) (*models.Link, error) {
	const op = "create_link"
	if err := req.Validate(); err != nil {
		return nil, invalid(op, err)
	}

	link := models.Link{
		ID:     newID(req.ID),
		System: req.System,
		Target: req.Target,
		Meta:   req.Meta,
	}

	switch req.OwnerKind {
	case models.OwnerSection:
		sec, err := s.store.GetSection(ctx, req.OwnerID)
		if err != nil {
			return nil, apperr.Persistence(op, err)
		}
		if sec == nil {
			return nil, apperr.NotFound(op, "section", req.OwnerID)
		}
		ownerID := req.OwnerID
		link.SectionID = &ownerID
		link.DocumentID = sec.DocumentID
	case models.OwnerDocument:
		if err := s.requireDocument(ctx, op, req.OwnerID); err != nil {
			return nil, err
		}
		link.DocumentID = req.OwnerID
	}

	if existing, err := s.store.GetLink(ctx, link.ID); err != nil {
		return nil, apperr.Persistence(op, err)
	} else if existing != nil {
		return nil, apperr.Conflict(op, "link", link.ID, "link with this id already exists")
	}

	ts := now()
	link.CreatedAt = ts
	link.UpdatedAt = ts

	if err := s.store.CreateLink(ctx, link); err != nil {
		if errors.Is(err, store.ErrDuplicateLink) {
			return nil, apperr.Conflict(op, "link", link.ID,
				"owner already linked to "+req.System+":"+req.Target)
		}
		return nil, apperr.Persistence(op, err)
	}
	s.notify("link", "created", link.ID)
	if link.Meta == nil {
		link.Meta = map[string]any{}
	}
	return &link, nil
}

// Unlink removes a link by id.
func (s *Service) Unlink(ctx context.Context, linkID string) error {
	const op = "unlink"
	deleted, err := s.store.DeleteLink(ctx, linkID)
	if err != nil {
		return apperr.Persistence(op, err)
	}
	if !deleted {
		return apperr.NotFound(op, "link", linkID)
	}
	s.notify("link", "deleted", linkID)
	return nil
}

// GetSectionLinks returns every link attached to a section, oldest first.
func (s *Service) GetSectionLinks(ctx context.Context, sectionID string) ([]models.Link, error) {
	const op = "get_section_links"
	sec, err := s.store.GetSection(ctx, sectionID)
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	if sec == nil {
		return nil, apperr.NotFound(op, "section", sectionID)
	}
	links, err := s.store.LinksForSection(ctx, sectionID)
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	return links, nil
}

// GetDocumentLinks returns a document's document-level links, oldest first.
func (s *Service) GetDocumentLinks(ctx context.Context, documentID string) ([]models.Link, error) {
	const op = "get_document_links"
	if err := s.requireDocument(ctx, op, documentID); err != nil {
		return nil, err
	}
	links, err := s.store.LinksForDocument(ctx, documentID)
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	return links, nil
}

// SectionRef summarizes a section found through a reverse link lookup.
type SectionRef struct {
	SectionID  string         `json:"section_id"`
	Heading    string         `json:"heading"`
	DocumentID string         `json:"document_id"`
	LinkID     string         `json:"link_id"`
	Target     string         `json:"target"`
	Meta       map[string]any `json:"link_metadata,omitempty"`
}

// DocumentRef summarizes a document found through a reverse link lookup.
type DocumentRef struct {
	DocumentID string         `json:"document_id"`
	Title      string         `json:"title"`
	LinkID     string         `json:"link_id"`
	Meta       map[string]any `json:"link_metadata,omitempty"`
}

// GetSectionsByLink finds every section linked to one external resource.
func (s *Service) GetSectionsByLink(ctx context.Context, system, target string) ([]SectionRef, error) {
	const op = "get_sections_by_link"
	links, err := s.linksByTarget(ctx, op, system, target)
	if err != nil {
		return nil, err
	}
	out := []SectionRef{}
	for _, l := range links {
		if l.SectionID == nil {
			continue
		}
		sec, err := s.store.GetSection(ctx, *l.SectionID)
		if err != nil {
			return nil, apperr.Persistence(op, err)
		}
		if sec == nil {
			continue
		}
		out = append(out, SectionRef{
			SectionID:  sec.ID,
			Heading:    sec.Heading,
			DocumentID: sec.DocumentID,
			LinkID:     l.ID,
			Target:     l.Target,
			Meta:       l.Meta,
		})
	}
	return out, nil
}

// GetDocumentsByLink finds every document linked (at document level) to
// one external resource.
func (s *Service) GetDocumentsByLink(ctx context.Context, system, target string) ([]DocumentRef, error) {
	const op = "get_documents_by_link"
	links, err := s.linksByTarget(ctx, op, system, target)
	if err != nil {
		return nil, err
	}
	out := []DocumentRef{}
	for _, l := range links {
		if l.SectionID != nil {
			continue
		}
		doc, err := s.store.GetDocument(ctx, l.DocumentID)
		if err != nil {
			return nil, apperr.Persistence(op, err)
		}
		if doc == nil {
			continue
		}
		out = append(out, DocumentRef{
			DocumentID: doc.ID,
			Title:      doc.Title,
			LinkID:     l.ID,
			Meta:       l.Meta,
		})
	}
	return out, nil
}

// OwnersFor returns the set of entities referencing one external resource:
// the reverse index, computed from the links table alone.
func (s *Service) OwnersFor(ctx context.Context, system, target string) ([]models.LinkOwner, error) {
	const op = "owners_for"
	links, err := s.linksByTarget(ctx, op, system, target)
	if err != nil {
		return nil, err
	}
	out := []models.LinkOwner{}
	for _, l := range links {
		owner := models.LinkOwner{DocumentID: l.DocumentID, LinkID: l.ID}
		if l.SectionID != nil {
			owner.Kind = models.OwnerSection
			owner.ID = *l.SectionID
		} else {
			owner.Kind = models.OwnerDocument
			owner.ID = l.DocumentID
		}
		out = append(out, owner)
	}
	return out, nil
}

func (s *Service) linksByTarget(ctx context.Context, op, system, target string) ([]models.Link, error) {
	if !models.IsValidSystem(system) {
		return nil, apperr.Validation(op, "system must be one of: task, fact, github")
	}
	if target == "" {
		return nil, apperr.Validation(op, "target is required")
	}
	links, err := s.store.LinksByTarget(ctx, system, target)
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	return links, nil
}

// GetLinksByType returns links for one system, capped at limit.
func (s *Service) GetLinksByType(ctx context.Context, system string, limit int) ([]models.Link, error) {
	const op = "get_links_by_type"
	if !models.IsValidSystem(system) {
		return nil, apperr.Validation(op, "system must be one of: task, fact, github")
	}
	if limit < 0 {
		return nil, apperr.Validation(op, "limit must be non-negative")
	}
	links, err := s.store.LinksByType(ctx, system, limit)
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	return links, nil
}

// UpdateLinkMetadata replaces a link's metadata map.
func (s *Service) UpdateLinkMetadata(ctx context.Context, linkID string, meta map[string]any) (*models.Link, error) {
	const op = "update_link_metadata"
	if meta == nil {
		return nil, apperr.Validation(op, "metadata is required")
	}
	updated, err := s.store.UpdateLinkMeta(ctx, linkID, meta)
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	if !updated {
		return nil, apperr.NotFound(op, "link", linkID)
	}
	link, err := s.store.GetLink(ctx, linkID)
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	s.notify("link", "updated", linkID)
	return link, nil
}
