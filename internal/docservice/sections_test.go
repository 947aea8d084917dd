package docservice_test

import (
	"context"
	"errors"
	"testing"

	"github.com/docomatic/docomatic/internal/apperr"
	"github.com/docomatic/docomatic/internal/docservice"
	"github.com/docomatic/docomatic/internal/models"
)

func TestCreateSectionAutoIndex(t *testing.T) {
	svc, events := newTestService(t)
	ctx := context.Background()
	seedSpecDoc(t, svc)

	sec, err := svc.CreateSection(ctx, docservice.CreateSectionRequest{
		DocumentID: "spec-v1",
		Heading:    "Appendix",
		Body:       "extras",
	})
	if err != nil {
		t.Fatalf("CreateSection: %v", err)
	}
	if sec.OrderIndex != 2 {
		t.Errorf("order_index = %d, want 2 (after intro, details)", sec.OrderIndex)
	}
	if !events.has("section.created:" + sec.ID) {
		t.Error("no section.created event")
	}

	// Nested sibling sets index independently.
	nested, err := svc.CreateSection(ctx, docservice.CreateSectionRequest{
		DocumentID: "spec-v1",
		Heading:    "Nested",
		ParentID:   strp("details"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if nested.OrderIndex != 1 {
		t.Errorf("nested order_index = %d, want 1 (after sub)", nested.OrderIndex)
	}
}

func TestCreateSectionErrors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	seedSpecDoc(t, svc)

	cases := []struct {
		name string
		req  docservice.CreateSectionRequest
		want error
	}{
		{"missing document", docservice.CreateSectionRequest{DocumentID: "ghost", Heading: "H"}, apperr.ErrNotFound},
		{"missing parent", docservice.CreateSectionRequest{DocumentID: "spec-v1", Heading: "H", ParentID: strp("ghost")}, apperr.ErrNotFound},
		{"duplicate id", docservice.CreateSectionRequest{ID: "intro", DocumentID: "spec-v1", Heading: "H"}, apperr.ErrConflict},
		{"empty heading", docservice.CreateSectionRequest{DocumentID: "spec-v1"}, apperr.ErrValidation},
		{"negative index", docservice.CreateSectionRequest{DocumentID: "spec-v1", Heading: "H", OrderIndex: intp(-1)}, apperr.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateSection(ctx, tc.req)
			if !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}

	// Parent from another document is rejected.
	other, err := svc.CreateDocument(ctx, docservice.CreateDocumentRequest{Title: "Other"})
	if err != nil {
		t.Fatal(err)
	}
	_, err = svc.CreateSection(ctx, docservice.CreateSectionRequest{
		DocumentID: other.ID,
		Heading:    "Stray",
		ParentID:   strp("intro"),
	})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("cross-document parent err = %v, want validation", err)
	}
}

func TestUpdateSectionOrderConflict(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	seedSpecDoc(t, svc)

	// intro holds 0, details holds 1: claiming 0 for details collides.
	_, err := svc.UpdateSection(ctx, docservice.UpdateSectionRequest{
		SectionID:  "details",
		OrderIndex: intp(0),
	})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}

	updated, err := svc.UpdateSection(ctx, docservice.UpdateSectionRequest{
		SectionID: "details",
		Heading:   strp("More Details"),
		Body:      strp("expanded"),
	})
	if err != nil {
		t.Fatalf("UpdateSection: %v", err)
	}
	if updated.Heading != "More Details" || updated.Body != "expanded" {
		t.Errorf("updated = %+v", updated)
	}
	if updated.Version != 2 {
		t.Errorf("version = %d, want 2", updated.Version)
	}
}

func TestMoveSectionCycleRejected(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	seedSpecDoc(t, svc)

	// Moving details under its own descendant would orphan the chain.
	_, err := svc.MoveSection(ctx, docservice.MoveSectionRequest{
		SectionID:   "details",
		NewParentID: strp("sub"),
	})
	if !errors.Is(err, apperr.ErrCycle) {
		t.Errorf("move into descendant err = %v, want cycle", err)
	}

	_, err = svc.MoveSection(ctx, docservice.MoveSectionRequest{
		SectionID:   "details",
		NewParentID: strp("details"),
	})
	if !errors.Is(err, apperr.ErrCycle) {
		t.Errorf("move under self err = %v, want cycle", err)
	}

	// The tree is untouched after rejected moves.
	node, err := svc.GetSection(ctx, "details", false, false)
	if err != nil {
		t.Fatal(err)
	}
	if node.ParentID != nil {
		t.Errorf("details parent = %v, want root", *node.ParentID)
	}
}

func TestMoveSectionReparentAndIndexes(t *testing.T) {
	svc, events := newTestService(t)
	ctx := context.Background()
	seedSpecDoc(t, svc)

	moved, err := svc.MoveSection(ctx, docservice.MoveSectionRequest{
		SectionID:   "intro",
		NewParentID: strp("details"),
	})
	if err != nil {
		t.Fatalf("MoveSection: %v", err)
	}
	if moved.ParentID == nil || *moved.ParentID != "details" {
		t.Fatalf("parent = %v", moved.ParentID)
	}
	if moved.OrderIndex != 1 {
		t.Errorf("order_index = %d, want 1 (after sub)", moved.OrderIndex)
	}
	if !events.has("section.moved:intro") {
		t.Error("no section.moved event")
	}

	// Move back to root at an explicit index; details shifts right.
	moved, err = svc.MoveSection(ctx, docservice.MoveSectionRequest{
		SectionID:  "intro",
		OrderIndex: intp(0),
	})
	if err != nil {
		t.Fatal(err)
	}
	if moved.ParentID != nil || moved.OrderIndex != 0 {
		t.Errorf("moved = parent %v index %d", moved.ParentID, moved.OrderIndex)
	}

	// Sibling order indexes stay unique at every scope.
	flat, err := svc.GetFlat(ctx, "spec-v1")
	if err != nil {
		t.Fatal(err)
	}
	type scope struct {
		parent string
		index  int
	}
	seen := map[scope]string{}
	for _, f := range flat {
		key := scope{index: f.OrderIndex}
		if f.ParentID != nil {
			key.parent = *f.ParentID
		}
		if prev, dup := seen[key]; dup {
			t.Errorf("order_index %d shared by %s and %s under %q", f.OrderIndex, prev, f.ID, key.parent)
		}
		seen[key] = f.ID
	}
}

func TestMoveSectionCrossDocumentParent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	seedSpecDoc(t, svc)

	other, err := svc.CreateDocument(ctx, docservice.CreateDocumentRequest{
		Title:           "Other",
		InitialSections: []docservice.InitialSection{{ID: "elsewhere", Heading: "Elsewhere"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	_ = other

	_, err = svc.MoveSection(ctx, docservice.MoveSectionRequest{
		SectionID:   "intro",
		NewParentID: strp("elsewhere"),
	})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("err = %v, want validation", err)
	}
}

func TestDeleteSectionCascade(t *testing.T) {
	svc, events := newTestService(t)
	ctx := context.Background()
	seedSpecDoc(t, svc)

	// A non-cascading delete of a parent is refused.
	err := svc.DeleteSection(ctx, "details", false)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("non-cascade err = %v, want conflict", err)
	}

	if _, err := svc.CreateLink(ctx, docservice.CreateLinkRequest{
		OwnerKind: models.OwnerSection,
		OwnerID:   "sub",
		System:    models.SystemFact,
		Target:    "fact://fact/F-9",
	}); err != nil {
		t.Fatal(err)
	}

	if err := svc.DeleteSection(ctx, "details", true); err != nil {
		t.Fatalf("cascade delete: %v", err)
	}
	if !events.has("section.deleted:details") {
		t.Error("no section.deleted event")
	}

	for _, id := range []string{"details", "sub"} {
		if _, err := svc.GetSection(ctx, id, false, false); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("GetSection(%s) err = %v, want not found", id, err)
		}
	}

	report, err := svc.GenerateLinkReport(ctx, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if report.TotalLinks != 0 {
		t.Errorf("links after cascade = %d, want 0", report.TotalLinks)
	}
}

func TestReorderSections(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	seedSpecDoc(t, svc)

	sections, err := svc.ReorderSections(ctx, docservice.ReorderSectionsRequest{
		SectionOrder: []string{"details", "intro"},
	})
	if err != nil {
		t.Fatalf("ReorderSections: %v", err)
	}
	if len(sections) != 2 {
		t.Fatalf("returned %d sections", len(sections))
	}
	if sections[0].ID != "details" || sections[0].OrderIndex != 0 {
		t.Errorf("first = %s at %d", sections[0].ID, sections[0].OrderIndex)
	}
	if sections[1].ID != "intro" || sections[1].OrderIndex != 1 {
		t.Errorf("second = %s at %d", sections[1].ID, sections[1].OrderIndex)
	}

	// Incomplete lists are rejected so unlisted siblings cannot collide.
	_, err = svc.ReorderSections(ctx, docservice.ReorderSectionsRequest{
		SectionOrder: []string{"details"},
	})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("partial list err = %v, want validation", err)
	}

	// Mixed sibling sets are rejected.
	_, err = svc.ReorderSections(ctx, docservice.ReorderSectionsRequest{
		SectionOrder: []string{"details", "sub"},
	})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("mixed scope err = %v, want validation", err)
	}

	// Duplicate ids are rejected.
	_, err = svc.ReorderSections(ctx, docservice.ReorderSectionsRequest{
		ParentID:     strp("details"),
		SectionOrder: []string{"sub", "sub"},
	})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("duplicate id err = %v, want validation", err)
	}
}

func TestGetSectionsByDocumentFlatIsDepthFirst(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	seedSpecDoc(t, svc)

	// Raw store order would put the nested section before its later-
	// indexed parent; the flat view must walk the tree instead.
	flat, _, err := svc.GetSectionsByDocument(ctx, "spec-v1", true, "", nil)
	if err != nil {
		t.Fatalf("GetSectionsByDocument: %v", err)
	}
	wantIDs := []string{"intro", "details", "sub"}
	wantDepths := []int{0, 0, 1}
	if len(flat) != len(wantIDs) {
		t.Fatalf("flat = %d entries, want %d", len(flat), len(wantIDs))
	}
	for i := range wantIDs {
		if flat[i].ID != wantIDs[i] || flat[i].Depth != wantDepths[i] {
			t.Errorf("flat[%d] = %s at depth %d, want %s at depth %d",
				i, flat[i].ID, flat[i].Depth, wantIDs[i], wantDepths[i])
		}
	}
}

func TestGetSectionsByDocumentFilters(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	seedSpecDoc(t, svc)

	if _, err := svc.UpdateSection(ctx, docservice.UpdateSectionRequest{
		SectionID: "sub",
		Meta:      &map[string]any{"status": "draft"},
	}); err != nil {
		t.Fatal(err)
	}

	flat, _, err := svc.GetSectionsByDocument(ctx, "spec-v1", true, "detail", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(flat) != 2 {
		t.Fatalf("heading filter matched %d, want 2 (Details, Sub-detail)", len(flat))
	}
	// Filtering drops entries but keeps traversal order and depths.
	if flat[0].ID != "details" || flat[0].Depth != 0 || flat[1].ID != "sub" || flat[1].Depth != 1 {
		t.Errorf("heading filter = %+v", flat)
	}

	flat, _, err = svc.GetSectionsByDocument(ctx, "spec-v1", true, "", map[string]any{"status": "draft"})
	if err != nil {
		t.Fatal(err)
	}
	if len(flat) != 1 || flat[0].ID != "sub" {
		t.Errorf("meta filter = %+v", flat)
	}

	_, forest, err := svc.GetSectionsByDocument(ctx, "spec-v1", false, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(forest) != 2 {
		t.Errorf("tree roots = %d, want 2", len(forest))
	}
}

func TestSectionPath(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	seedSpecDoc(t, svc)

	if _, err := svc.CreateSection(ctx, docservice.CreateSectionRequest{
		ID: "deep", DocumentID: "spec-v1", Heading: "Deep", ParentID: strp("sub"),
	}); err != nil {
		t.Fatal(err)
	}

	path, err := svc.SectionPath(ctx, "deep")
	if err != nil {
		t.Fatalf("SectionPath: %v", err)
	}
	want := []string{"details", "sub", "deep"}
	if len(path) != len(want) {
		t.Fatalf("path length = %d, want %d", len(path), len(want))
	}
	for i, id := range want {
		if path[i].ID != id {
			t.Errorf("path[%d] = %s, want %s", i, path[i].ID, id)
		}
	}
}
