package docservice_test

import (
	"context"
	"errors"
	"testing"

	"github.com/docomatic/docomatic/internal/apperr"
	"github.com/docomatic/docomatic/internal/docservice"
	"github.com/docomatic/docomatic/internal/models"
)

func seedSearchDoc(t *testing.T, svc *docservice.Service, docID string) {
	t.Helper()
	_, err := svc.CreateDocument(context.Background(), docservice.CreateDocumentRequest{
		ID:    docID,
		Title: "Search fixture " + docID,
		InitialSections: []docservice.InitialSection{
			{ID: docID + "-alpha", Heading: "Deployment guide", Body: "rollout procedure"},
			{ID: docID + "-beta", Heading: "Operations", Body: "deployment checklist"},
			{ID: docID + "-gamma", Heading: "Glossary", Body: "terminology"},
		},
	})
	if err != nil {
		t.Fatalf("seed search doc: %v", err)
	}
}

func TestSearchSections(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	seedSearchDoc(t, svc, "ops")

	results, err := svc.SearchSections(ctx, docservice.SearchSectionsRequest{Query: "deployment"})
	if err != nil {
		t.Fatalf("SearchSections: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("matches = %d, want 2 (heading and body hit)", len(results))
	}
	ids := map[string]bool{}
	for _, r := range results {
		ids[r.ID] = true
	}
	if !ids["ops-alpha"] || !ids["ops-beta"] {
		t.Errorf("ids = %v", ids)
	}

	results, err = svc.SearchSections(ctx, docservice.SearchSectionsRequest{Query: "terraform"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("no-match results = %+v", results)
	}
}

func TestSearchSectionsValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SearchSections(ctx, docservice.SearchSectionsRequest{Query: ""})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("empty query err = %v, want validation", err)
	}

	_, err = svc.SearchSections(ctx, docservice.SearchSectionsRequest{Query: "   "})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("blank query err = %v, want validation", err)
	}

	_, err = svc.SearchSections(ctx, docservice.SearchSectionsRequest{
		Query:      "deployment",
		LinkSystem: models.SystemTask,
	})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("one-sided link filter err = %v, want validation", err)
	}

	_, err = svc.SearchSections(ctx, docservice.SearchSectionsRequest{
		Query:      "deployment",
		DocumentID: "ghost",
	})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing document err = %v, want not found", err)
	}
}

func TestSearchSectionsDocumentScope(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	seedSearchDoc(t, svc, "ops")
	seedSearchDoc(t, svc, "dev")

	results, err := svc.SearchSections(ctx, docservice.SearchSectionsRequest{
		Query:      "deployment",
		DocumentID: "dev",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("scoped matches = %d, want 2", len(results))
	}
	for _, r := range results {
		if r.DocumentID != "dev" {
			t.Errorf("leaked result from %q", r.DocumentID)
		}
	}
}

func TestSearchSectionsLinkFilter(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	seedSearchDoc(t, svc, "ops")

	if _, err := svc.CreateLink(ctx, docservice.CreateLinkRequest{
		OwnerKind: models.OwnerSection,
		OwnerID:   "ops-beta",
		System:    models.SystemTask,
		Target:    "task://task/T-1",
	}); err != nil {
		t.Fatal(err)
	}

	results, err := svc.SearchSections(ctx, docservice.SearchSectionsRequest{
		Query:      "deployment",
		LinkSystem: models.SystemTask,
		LinkTarget: "task://task/T-1",
	})
	if err != nil {
		t.Fatalf("SearchSections with link filter: %v", err)
	}
	if len(results) != 1 || results[0].ID != "ops-beta" {
		t.Errorf("filtered results = %+v", results)
	}

	// A target nothing links to filters everything out.
	results, err = svc.SearchSections(ctx, docservice.SearchSectionsRequest{
		Query:      "deployment",
		LinkSystem: models.SystemTask,
		LinkTarget: "task://task/T-404",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("unlinked filter results = %+v", results)
	}
}

func TestSearchSectionsPagination(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	var sections []docservice.InitialSection
	for _, id := range []string{"p1", "p2", "p3", "p4"} {
		sections = append(sections, docservice.InitialSection{
			ID:      id,
			Heading: "Chapter " + id,
			Body:    "pagination content",
		})
	}
	if _, err := svc.CreateDocument(ctx, docservice.CreateDocumentRequest{
		ID:              "book",
		Title:           "Book",
		InitialSections: sections,
	}); err != nil {
		t.Fatal(err)
	}

	page1, err := svc.SearchSections(ctx, docservice.SearchSectionsRequest{Query: "pagination", Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	page2, err := svc.SearchSections(ctx, docservice.SearchSectionsRequest{Query: "pagination", Limit: 2, Offset: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(page1) != 2 || len(page2) != 2 {
		t.Fatalf("pages = %d, %d, want 2 each", len(page1), len(page2))
	}
	seen := map[string]bool{}
	for _, r := range append(page1, page2...) {
		if seen[r.ID] {
			t.Errorf("id %s appears on both pages", r.ID)
		}
		seen[r.ID] = true
	}
}
