package docservice

import (
	"context"
	"strings"

	"github.com/docomatic/docomatic/internal/apperr"
	"github.com/docomatic/docomatic/internal/models"
)

// SearchSections runs full-text search over section headings and bodies.
// Matching semantics depend on the build: FTS5 token match ranked by bm25
// when compiled with the sqlite_fts5 tag, case-insensitive substring match
// ordered newest-first otherwise; both are deterministic. A link filter
// (system + target) narrows results to sections carrying that link,
// composed here from the store's search and link queries rather than a
// bespoke join.
func (s *Service) SearchSections(ctx context.Context, req SearchSectionsRequest) ([]models.Section, error) {
	const op = "search_sections"
	req.Query = strings.TrimSpace(req.Query)
	if err := req.Validate(); err != nil {
		return nil, invalid(op, err)
	}
	if (req.LinkSystem == "") != (req.LinkTarget == "") {
		return nil, apperr.Validation(op, "link_system and link_target must be provided together")
	}
	if req.DocumentID != "" {
		if err := s.requireDocument(ctx, op, req.DocumentID); err != nil {
			return nil, err
		}
	}

	matches, err := s.store.SearchSections(ctx, req.Query, req.DocumentID, req.Limit, req.Offset)
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}

	if req.LinkSystem == "" {
		return matches, nil
	}

	links, err := s.store.LinksByTarget(ctx, req.LinkSystem, req.LinkTarget)
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	linked := make(map[string]bool, len(links))
	for _, l := range links {
		if l.SectionID != nil {
			linked[*l.SectionID] = true
		}
	}

	out := matches[:0:0]
	for _, sec := range matches {
		if linked[sec.ID] {
			out = append(out, sec)
		}
	}
	return out, nil
}
