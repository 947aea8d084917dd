package docservice_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/docomatic/docomatic/internal/apperr"
	"github.com/docomatic/docomatic/internal/docservice"
	"github.com/docomatic/docomatic/internal/models"
	"github.com/docomatic/docomatic/internal/testutil"
)

// recordingNotifier captures published entity events for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) PublishEntityEvent(entity, kind, id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, entity+"."+kind+":"+id)
}

func (n *recordingNotifier) has(event string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, e := range n.events {
		if e == event {
			return true
		}
	}
	return false
}

func newTestService(t *testing.T) (*docservice.Service, *recordingNotifier) {
	t.Helper()
	db := testutil.TestStore(t)
	events := &recordingNotifier{}
	return docservice.New(db, events), events
}

func strp(s string) *string { return &s }
func intp(n int) *int       { return &n }

// seedSpecDoc builds the canonical three-level fixture: Introduction and
// Details at the root, Sub-detail nested under Details.
func seedSpecDoc(t *testing.T, svc *docservice.Service) *models.Document {
	t.Helper()
	doc, err := svc.CreateDocument(context.Background(), docservice.CreateDocumentRequest{
		ID:    "spec-v1",
		Title: "Spec v1",
		InitialSections: []docservice.InitialSection{
			{ID: "intro", Heading: "Introduction", Body: "why"},
			{ID: "details", Heading: "Details", Body: "what"},
			{ID: "sub", Heading: "Sub-detail", Body: "how", ParentID: strp("details")},
		},
	})
	if err != nil {
		t.Fatalf("seed document: %v", err)
	}
	return doc
}

func TestCreateDocumentWithNestedInitialSections(t *testing.T) {
	svc, events := newTestService(t)
	ctx := context.Background()

	seedSpecDoc(t, svc)

	doc, err := svc.GetDocument(ctx, "spec-v1", true, false)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if len(doc.Sections) != 2 {
		t.Fatalf("roots = %d, want 2", len(doc.Sections))
	}
	if doc.Sections[0].Heading != "Introduction" || doc.Sections[1].Heading != "Details" {
		t.Errorf("root order = %q, %q", doc.Sections[0].Heading, doc.Sections[1].Heading)
	}
	details := doc.Sections[1]
	if len(details.Children) != 1 || details.Children[0].Heading != "Sub-detail" {
		t.Errorf("details children = %+v", details.Children)
	}

	if !events.has("document.created:spec-v1") {
		t.Error("no document.created event")
	}
}

func TestCreateDocumentValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateDocument(ctx, docservice.CreateDocumentRequest{Title: ""})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("empty title err = %v, want validation", err)
	}

	// Forward parent reference is rejected.
	_, err = svc.CreateDocument(ctx, docservice.CreateDocumentRequest{
		Title: "Bad",
		InitialSections: []docservice.InitialSection{
			{ID: "child", Heading: "Child", ParentID: strp("parent")},
			{ID: "parent", Heading: "Parent"},
		},
	})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("forward parent err = %v, want validation", err)
	}
}

func TestCreateDocumentInitialSectionIndexCollision(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateDocument(ctx, docservice.CreateDocumentRequest{
		ID:    "daily",
		Title: "Daily Notes",
		InitialSections: []docservice.InitialSection{
			{ID: "first", Heading: "First", OrderIndex: intp(0)},
			{ID: "second", Heading: "Second", OrderIndex: intp(0)},
			{ID: "third", Heading: "Third"},
			{ID: "child-a", Heading: "Child A", ParentID: strp("first"), OrderIndex: intp(0)},
			{ID: "child-b", Heading: "Child B", ParentID: strp("first"), OrderIndex: intp(0)},
		},
	})
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}

	flat, err := svc.GetFlat(ctx, "daily")
	if err != nil {
		t.Fatalf("GetFlat: %v", err)
	}

	// An explicit index claims its slot and shifts earlier entries up,
	// same as creating the sections one at a time.
	indexes := map[string]int{}
	for _, fs := range flat {
		indexes[fs.ID] = fs.OrderIndex
	}
	want := map[string]int{"second": 0, "first": 1, "third": 2, "child-b": 0, "child-a": 1}
	for id, idx := range want {
		if indexes[id] != idx {
			t.Errorf("order_index[%s] = %d, want %d", id, indexes[id], idx)
		}
	}

	type scope struct {
		parent string
		index  int
	}
	seen := map[scope]string{}
	for _, fs := range flat {
		key := scope{index: fs.OrderIndex}
		if fs.ParentID != nil {
			key.parent = *fs.ParentID
		}
		if prev, ok := seen[key]; ok {
			t.Errorf("order_index %d under %q held by both %s and %s", fs.OrderIndex, key.parent, prev, fs.ID)
		}
		seen[key] = fs.ID
	}
}

func TestCreateDocumentDuplicateID(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	seedSpecDoc(t, svc)

	_, err := svc.CreateDocument(ctx, docservice.CreateDocumentRequest{ID: "spec-v1", Title: "Again"})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("duplicate id err = %v, want conflict", err)
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetDocument(context.Background(), "ghost", false, false)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestUpdateDocumentReplacesMetadata(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	doc, err := svc.CreateDocument(ctx, docservice.CreateDocumentRequest{
		Title: "Doc",
		Meta:  map[string]any{"a": "1", "b": "2"},
	})
	if err != nil {
		t.Fatal(err)
	}

	meta := map[string]any{"c": "3"}
	updated, err := svc.UpdateDocument(ctx, docservice.UpdateDocumentRequest{
		DocumentID: doc.ID,
		Title:      strp("Renamed"),
		Meta:       &meta,
	})
	if err != nil {
		t.Fatalf("UpdateDocument: %v", err)
	}
	if updated.Title != "Renamed" {
		t.Errorf("title = %q", updated.Title)
	}
	// Metadata replaces, never merges.
	if _, ok := updated.Meta["a"]; ok {
		t.Errorf("old metadata survived: %v", updated.Meta)
	}
	if updated.Meta["c"] != "3" {
		t.Errorf("meta = %v", updated.Meta)
	}
	if updated.Version != 2 {
		t.Errorf("version = %d, want 2", updated.Version)
	}
}

func TestDeleteDocumentLeavesNoOrphans(t *testing.T) {
	svc, events := newTestService(t)
	ctx := context.Background()
	seedSpecDoc(t, svc)

	_, err := svc.CreateLink(ctx, docservice.CreateLinkRequest{
		OwnerKind: models.OwnerSection,
		OwnerID:   "sub",
		System:    models.SystemTask,
		Target:    "task://task/T-1",
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.DeleteDocument(ctx, "spec-v1"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if !events.has("document.deleted:spec-v1") {
		t.Error("no document.deleted event")
	}

	if _, err := svc.GetSection(ctx, "sub", false, false); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("section err = %v, want not found", err)
	}

	report, err := svc.GenerateLinkReport(ctx, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if report.TotalLinks != 0 {
		t.Errorf("links after cascade = %d, want 0", report.TotalLinks)
	}

	if err := svc.DeleteDocument(ctx, "spec-v1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v, want not found", err)
	}
}

func TestListDocuments(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, title := range []string{"Design Notes", "Meeting Notes", "Roadmap"} {
		if _, err := svc.CreateDocument(ctx, docservice.CreateDocumentRequest{Title: title}); err != nil {
			t.Fatal(err)
		}
	}

	items, total, err := svc.ListDocuments(ctx, docservice.ListDocumentsRequest{TitlePattern: "Notes"})
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(items) != 2 {
		t.Errorf("total = %d, items = %d, want 2", total, len(items))
	}

	_, _, err = svc.ListDocuments(ctx, docservice.ListDocumentsRequest{Limit: -1})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("negative limit err = %v, want validation", err)
	}
}

func TestGetFlatMatchesTreeTraversal(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	seedSpecDoc(t, svc)

	// Add one more level for a non-trivial traversal.
	if _, err := svc.CreateSection(ctx, docservice.CreateSectionRequest{
		ID: "deep", DocumentID: "spec-v1", Heading: "Deep", ParentID: strp("sub"),
	}); err != nil {
		t.Fatal(err)
	}

	forest, err := svc.GetTree(ctx, "spec-v1")
	if err != nil {
		t.Fatal(err)
	}
	flat, err := svc.GetFlat(ctx, "spec-v1")
	if err != nil {
		t.Fatal(err)
	}

	var dfs func(nodes []*models.SectionNode) []string
	dfs = func(nodes []*models.SectionNode) []string {
		var ids []string
		for _, n := range nodes {
			ids = append(ids, n.ID)
			ids = append(ids, dfs(n.Children)...)
		}
		return ids
	}
	wantIDs := dfs(forest)

	if len(flat) != len(wantIDs) {
		t.Fatalf("flat = %d entries, dfs = %d", len(flat), len(wantIDs))
	}
	for i, f := range flat {
		if f.ID != wantIDs[i] {
			t.Errorf("position %d: flat %s, dfs %s", i, f.ID, wantIDs[i])
		}
	}

	// Depth annotations.
	depths := map[string]int{"intro": 0, "details": 0, "sub": 1, "deep": 2}
	for _, f := range flat {
		if want, ok := depths[f.ID]; ok && f.Depth != want {
			t.Errorf("depth[%s] = %d, want %d", f.ID, f.Depth, want)
		}
	}
}
