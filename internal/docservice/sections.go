package docservice

import (
	"context"
	"errors"
	"strings"

	"github.com/docomatic/docomatic/internal/apperr"
	"github.com/docomatic/docomatic/internal/models"
	"github.com/docomatic/docomatic/internal/store"
	"github.com/docomatic/docomatic/internal/tree"
)

// CreateSection creates a section under a document. A missing order_index
// is assigned as max(sibling order_index)+1, or 0 with no siblings; an
// explicit index that collides with a sibling shifts the sibling set up.
func (s *Service) CreateSection(ctx context.Context, req CreateSectionRequest) (*models.Section, error) {
	const op = "create_section"
	if err := req.Validate(); err != nil {
		return nil, invalid(op, err)
	}
	if err := s.requireDocument(ctx, op, req.DocumentID); err != nil {
		return nil, err
	}

	if req.ParentID != nil {
		parent, err := s.store.GetSection(ctx, *req.ParentID)
		if err != nil {
			return nil, apperr.Persistence(op, err)
		}
		if parent == nil {
			return nil, apperr.NotFound(op, "section", *req.ParentID)
		}
		if parent.DocumentID != req.DocumentID {
			return nil, apperr.Validation(op, "parent section must belong to the same document")
		}
	}

	id := newID(req.ID)
	if existing, err := s.store.GetSection(ctx, id); err != nil {
		return nil, apperr.Persistence(op, err)
	} else if existing != nil {
		return nil, apperr.Conflict(op, "section", id, "section with this id already exists")
	}

	ts := now()
	sec := models.Section{
		ID:         id,
		DocumentID: req.DocumentID,
		ParentID:   req.ParentID,
		Heading:    req.Heading,
		Body:       req.Body,
		Meta:       req.Meta,
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}
	autoIndex := req.OrderIndex == nil
	if !autoIndex {
		sec.OrderIndex = *req.OrderIndex
	}

	created, err := s.store.CreateSection(ctx, sec, autoIndex)
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	s.notify("section", "created", id)
	if created.Meta == nil {
		created.Meta = map[string]any{}
	}
	return created, nil
}

// GetSection returns a section, optionally with its subtree and links.
func (s *Service) GetSection(ctx context.Context, id string, includeChildren, includeLinks bool) (*models.SectionNode, error) {
	const op = "get_section"
	sec, err := s.store.GetSection(ctx, id)
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	if sec == nil {
		return nil, apperr.NotFound(op, "section", id)
	}

	node := &models.SectionNode{Section: *sec}
	if includeChildren {
		all, err := s.store.SectionsByDocument(ctx, sec.DocumentID)
		if err != nil {
			return nil, apperr.Persistence(op, err)
		}
		if sub := tree.Subtree(tree.BuildForest(all), id); sub != nil {
			node = sub
		}
	}
	if includeLinks {
		links, err := s.store.LinksForSection(ctx, id)
		if err != nil {
			return nil, apperr.Persistence(op, err)
		}
		node.Links = links
	}
	return node, nil
}

// UpdateSection updates heading, body, order_index, and/or metadata. An
// explicit order_index colliding with a sibling fails with a conflict, as
// does a concurrent modification of the same section.
func (s *Service) UpdateSection(ctx context.Context, req UpdateSectionRequest) (*models.Section, error) {
	const op = "update_section"
	if err := req.Validate(); err != nil {
		return nil, invalid(op, err)
	}

	sec, err := s.store.GetSection(ctx, req.SectionID)
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	if sec == nil {
		return nil, apperr.NotFound(op, "section", req.SectionID)
	}

	if req.Heading != nil {
		sec.Heading = *req.Heading
	}
	if req.Body != nil {
		sec.Body = *req.Body
	}
	if req.OrderIndex != nil {
		sec.OrderIndex = *req.OrderIndex
	}
	if req.Meta != nil {
		sec.Meta = *req.Meta
	}
	sec.UpdatedAt = now()

	if err := s.store.UpdateSection(ctx, *sec); err != nil {
		switch {
		case errors.Is(err, store.ErrOrderConflict):
			return nil, apperr.Conflict(op, "section", sec.ID, "order_index already used by a sibling")
		case errors.Is(err, store.ErrVersionConflict):
			return nil, apperr.Conflict(op, "section", sec.ID, "section was modified concurrently")
		default:
			return nil, apperr.Persistence(op, err)
		}
	}
	sec.Version++
	s.notify("section", "updated", sec.ID)
	return sec, nil
}

// MoveSection re-parents a section. Moving a section under itself or any
// of its descendants fails with a cycle error; a cross-document parent
// fails validation. Sibling order_index uniqueness is guaranteed after the
// move, and a concurrent move of the same section fails with a conflict.
func (s *Service) MoveSection(ctx context.Context, req MoveSectionRequest) (*models.Section, error) {
	const op = "move_section"
	if err := req.Validate(); err != nil {
		return nil, invalid(op, err)
	}

	sec, err := s.store.GetSection(ctx, req.SectionID)
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	if sec == nil {
		return nil, apperr.NotFound(op, "section", req.SectionID)
	}

	if req.NewParentID != nil {
		parent, err := s.store.GetSection(ctx, *req.NewParentID)
		if err != nil {
			return nil, apperr.Persistence(op, err)
		}
		if parent == nil {
			return nil, apperr.NotFound(op, "section", *req.NewParentID)
		}
		if parent.DocumentID != sec.DocumentID {
			return nil, apperr.Validation(op, "new parent section must belong to the same document")
		}
		cycle, err := s.wouldCreateCycle(ctx, req.SectionID, *req.NewParentID)
		if err != nil {
			return nil, apperr.Persistence(op, err)
		}
		if cycle {
			return nil, apperr.Cycle(op, req.SectionID)
		}
	}

	autoIndex := req.OrderIndex == nil
	orderIndex := 0
	if !autoIndex {
		orderIndex = *req.OrderIndex
	}

	moved, err := s.store.MoveSection(ctx, req.SectionID, req.NewParentID, orderIndex, autoIndex, sec.Version)
	if err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			return nil, apperr.Conflict(op, "section", req.SectionID, "section was moved concurrently")
		}
		return nil, apperr.Persistence(op, err)
	}
	if moved == nil {
		return nil, apperr.NotFound(op, "section", req.SectionID)
	}
	s.notify("section", "moved", req.SectionID)
	return moved, nil
}

// wouldCreateCycle walks the ancestor chain of the proposed parent; the
// move is a cycle when the chain reaches the moving section. Bounded by
// tree depth.
func (s *Service) wouldCreateCycle(ctx context.Context, sectionID, newParentID string) (bool, error) {
	if sectionID == newParentID {
		return true, nil
	}
	seen := map[string]bool{newParentID: true}
	cur := newParentID
	for {
		node, err := s.store.GetSection(ctx, cur)
		if err != nil {
			return false, err
		}
		if node == nil || node.ParentID == nil {
			return false, nil
		}
		next := *node.ParentID
		if next == sectionID {
			return true, nil
		}
		if seen[next] {
			// Pre-existing corruption in the chain; treat as a cycle.
			return true, nil
		}
		seen[next] = true
		cur = next
	}
}

// DeleteSection removes a section. With cascade the whole subtree and its
// links go too; without it, a section that still has children fails with
// a conflict.
func (s *Service) DeleteSection(ctx context.Context, id string, cascade bool) error {
	const op = "delete_section"
	sec, err := s.store.GetSection(ctx, id)
	if err != nil {
		return apperr.Persistence(op, err)
	}
	if sec == nil {
		return apperr.NotFound(op, "section", id)
	}

	if !cascade {
		hasChildren, err := s.store.HasChildren(ctx, id)
		if err != nil {
			return apperr.Persistence(op, err)
		}
		if hasChildren {
			return apperr.Conflict(op, "section", id, "section has children; delete with cascade or move them first")
		}
	}

	deleted, err := s.store.DeleteSection(ctx, id)
	if err != nil {
		return apperr.Persistence(op, err)
	}
	if !deleted {
		return apperr.NotFound(op, "section", id)
	}
	s.notify("section", "deleted", id)
	return nil
}

// GetSectionsByDocument returns a document's sections as a tree (default)
// or as the depth-first flat view, with optional case-insensitive heading
// filter and metadata containment filter. The flat view preserves depth
// annotations; filters drop entries after flattening so depths stay true
// to the full tree.
func (s *Service) GetSectionsByDocument(ctx context.Context, documentID string, flat bool, headingPattern string, metaFilter map[string]any) ([]models.FlatSection, []*models.SectionNode, error) {
	const op = "get_sections_by_document"
	if err := s.requireDocument(ctx, op, documentID); err != nil {
		return nil, nil, err
	}
	sections, err := s.store.SectionsByDocument(ctx, documentID)
	if err != nil {
		return nil, nil, apperr.Persistence(op, err)
	}

	if flat {
		flatOut := tree.Flatten(tree.BuildForest(sections))
		if headingPattern != "" || len(metaFilter) > 0 {
			filtered := flatOut[:0:0]
			for _, fs := range flatOut {
				if !matchesFilters(fs.Section, headingPattern, metaFilter) {
					continue
				}
				filtered = append(filtered, fs)
			}
			flatOut = filtered
		}
		return flatOut, nil, nil
	}

	if headingPattern != "" || len(metaFilter) > 0 {
		filtered := sections[:0:0]
		for _, sec := range sections {
			if matchesFilters(sec, headingPattern, metaFilter) {
				filtered = append(filtered, sec)
			}
		}
		sections = filtered
	}
	return nil, tree.BuildForest(sections), nil
}

// matchesFilters applies the heading substring and metadata containment
// filters of GetSectionsByDocument to one section.
func matchesFilters(sec models.Section, headingPattern string, metaFilter map[string]any) bool {
	if headingPattern != "" && !strings.Contains(strings.ToLower(sec.Heading), strings.ToLower(headingPattern)) {
		return false
	}
	return matchesMeta(sec.Meta, metaFilter)
}

// matchesMeta reports whether meta contains every key-value pair of filter.
func matchesMeta(meta, filter map[string]any) bool {
	for k, want := range filter {
		got, ok := meta[k]
		if !ok || got != want {
			return false
		}
	}
	return true
}

// ReorderSections renumbers a sibling set to match the requested order.
// Every listed section must belong to the addressed parent, and the list
// must cover ids from a single sibling set.
func (s *Service) ReorderSections(ctx context.Context, req ReorderSectionsRequest) ([]models.Section, error) {
	const op = "reorder_sections"
	if err := req.Validate(); err != nil {
		return nil, invalid(op, err)
	}

	first, err := s.store.GetSection(ctx, req.SectionOrder[0])
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	if first == nil {
		return nil, apperr.NotFound(op, "section", req.SectionOrder[0])
	}
	documentID := first.DocumentID

	if req.ParentID != nil {
		parent, err := s.store.GetSection(ctx, *req.ParentID)
		if err != nil {
			return nil, apperr.Persistence(op, err)
		}
		if parent == nil {
			return nil, apperr.NotFound(op, "section", *req.ParentID)
		}
		documentID = parent.DocumentID
	}

	seen := make(map[string]bool, len(req.SectionOrder))
	for _, id := range req.SectionOrder {
		if seen[id] {
			return nil, apperr.Validation(op, "section_order contains duplicate id "+id)
		}
		seen[id] = true
		sec, err := s.store.GetSection(ctx, id)
		if err != nil {
			return nil, apperr.Persistence(op, err)
		}
		if sec == nil {
			return nil, apperr.NotFound(op, "section", id)
		}
		if !sameParent(sec.ParentID, req.ParentID) {
			return nil, apperr.Validation(op, "section "+id+" does not belong to the addressed parent")
		}
		if sec.DocumentID != documentID {
			return nil, apperr.Validation(op, "section "+id+" does not belong to the same document")
		}
	}

	siblings, err := s.currentSiblings(ctx, documentID, req.ParentID)
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	if len(siblings) != len(req.SectionOrder) {
		return nil, apperr.Validation(op, "section_order must list every sibling exactly once")
	}

	if err := s.store.ReorderSections(ctx, documentID, req.ParentID, req.SectionOrder); err != nil {
		return nil, apperr.Persistence(op, err)
	}

	out := make([]models.Section, 0, len(req.SectionOrder))
	for _, id := range req.SectionOrder {
		sec, err := s.store.GetSection(ctx, id)
		if err != nil {
			return nil, apperr.Persistence(op, err)
		}
		if sec != nil {
			out = append(out, *sec)
		}
	}
	s.notify("section", "updated", documentID)
	return out, nil
}

// currentSiblings returns the sibling set addressed by (document, parent).
func (s *Service) currentSiblings(ctx context.Context, documentID string, parentID *string) ([]models.Section, error) {
	if parentID != nil {
		return s.store.GetChildren(ctx, *parentID)
	}
	all, err := s.store.SectionsByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	roots := all[:0:0]
	for _, sec := range all {
		if sec.ParentID == nil {
			roots = append(roots, sec)
		}
	}
	return roots, nil
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// SectionPath returns the ancestor chain from the root section down to and
// including the given section.
func (s *Service) SectionPath(ctx context.Context, id string) ([]models.Section, error) {
	const op = "get_section_path"
	var path []models.Section
	cur := id
	seen := map[string]bool{}
	for cur != "" {
		if seen[cur] {
			return nil, apperr.Conflict(op, "section", id, "parent chain contains a cycle")
		}
		seen[cur] = true
		sec, err := s.store.GetSection(ctx, cur)
		if err != nil {
			return nil, apperr.Persistence(op, err)
		}
		if sec == nil {
			if cur == id {
				return nil, apperr.NotFound(op, "section", id)
			}
			break
		}
		path = append([]models.Section{*sec}, path...)
		if sec.ParentID == nil {
			break
		}
		cur = *sec.ParentID
	}
	return path, nil
}
