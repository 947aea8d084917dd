package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/docomatic/docomatic/internal/models"
	"github.com/docomatic/docomatic/internal/store"
	"github.com/docomatic/docomatic/internal/testutil"
)

func now() time.Time { return time.Now().UTC().Truncate(time.Second) }

func doc(id, title string) models.Document {
	ts := now()
	return models.Document{ID: id, Title: title, Version: 1, CreatedAt: ts, UpdatedAt: ts}
}

func sec(id, docID string, parent *string, order int) models.Section {
	ts := now()
	return models.Section{
		ID: id, DocumentID: docID, ParentID: parent,
		Heading: "h-" + id, Body: "body " + id,
		OrderIndex: order, Version: 1, CreatedAt: ts, UpdatedAt: ts,
	}
}

func strp(s string) *string { return &s }

func TestCreateAndGetDocument(t *testing.T) {
	db := testutil.TestStore(t)
	ctx := context.Background()

	d := doc("d1", "Spec")
	d.Meta = map[string]any{"status": "draft"}
	if err := db.CreateDocument(ctx, d, []models.Section{sec("s1", "d1", nil, 0)}); err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}

	got, err := db.GetDocument(ctx, "d1")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got == nil {
		t.Fatal("document missing")
	}
	if got.Title != "Spec" || got.Version != 1 {
		t.Errorf("got = %+v", got)
	}
	if got.Meta["status"] != "draft" {
		t.Errorf("meta = %v", got.Meta)
	}

	secs, err := db.SectionsByDocument(ctx, "d1")
	if err != nil {
		t.Fatalf("SectionsByDocument: %v", err)
	}
	if len(secs) != 1 || secs[0].ID != "s1" {
		t.Errorf("sections = %+v", secs)
	}
}

func TestGetDocumentMissing(t *testing.T) {
	db := testutil.TestStore(t)

	got, err := db.GetDocument(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing document, got %+v", got)
	}
}

func TestUpdateDocumentVersionConflict(t *testing.T) {
	db := testutil.TestStore(t)
	ctx := context.Background()

	if err := db.CreateDocument(ctx, doc("d1", "One"), nil); err != nil {
		t.Fatal(err)
	}

	d, _ := db.GetDocument(ctx, "d1")
	d.Title = "Two"
	d.UpdatedAt = now()
	if err := db.UpdateDocument(ctx, *d); err != nil {
		t.Fatalf("first update: %v", err)
	}

	// Re-apply with the stale version.
	d.Title = "Three"
	if err := db.UpdateDocument(ctx, *d); !errors.Is(err, store.ErrVersionConflict) {
		t.Errorf("stale update err = %v, want ErrVersionConflict", err)
	}

	got, _ := db.GetDocument(ctx, "d1")
	if got.Title != "Two" {
		t.Errorf("title = %q, want Two", got.Title)
	}
	if got.Version != 2 {
		t.Errorf("version = %d, want 2", got.Version)
	}
}

func TestDeleteDocumentCascades(t *testing.T) {
	db := testutil.TestStore(t)
	ctx := context.Background()

	sections := []models.Section{
		sec("root", "d1", nil, 0),
		sec("child", "d1", strp("root"), 0),
	}
	if err := db.CreateDocument(ctx, doc("d1", "Doomed"), sections); err != nil {
		t.Fatal(err)
	}
	link := models.Link{
		ID: "l1", DocumentID: "d1", SectionID: strp("child"),
		System: models.SystemTask, Target: "task://task/T-1",
		CreatedAt: now(), UpdatedAt: now(),
	}
	if err := db.CreateLink(ctx, link); err != nil {
		t.Fatal(err)
	}

	deleted, err := db.DeleteDocument(ctx, "d1")
	if err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if !deleted {
		t.Fatal("expected deletion")
	}

	if s, _ := db.GetSection(ctx, "child"); s != nil {
		t.Error("section survived document delete")
	}
	if l, _ := db.GetLink(ctx, "l1"); l != nil {
		t.Error("link survived document delete")
	}

	// Second delete is a no-op.
	deleted, err = db.DeleteDocument(ctx, "d1")
	if err != nil || deleted {
		t.Errorf("second delete = (%v, %v), want (false, nil)", deleted, err)
	}
}

func TestListDocuments(t *testing.T) {
	db := testutil.TestStore(t)
	ctx := context.Background()

	for _, d := range []models.Document{doc("d1", "API Spec"), doc("d2", "Runbook"), doc("d3", "API Guide")} {
		if err := db.CreateDocument(ctx, d, nil); err != nil {
			t.Fatal(err)
		}
	}

	items, total, err := db.ListDocuments(ctx, "", 10, 0)
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if total != 3 || len(items) != 3 {
		t.Errorf("total = %d, items = %d", total, len(items))
	}

	items, total, err = db.ListDocuments(ctx, "API", 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 {
		t.Errorf("filtered total = %d, want 2", total)
	}
	for _, it := range items {
		if it.Title != "API Spec" && it.Title != "API Guide" {
			t.Errorf("unexpected item %+v", it)
		}
	}

	// Pagination: total stays at the full match count.
	items, total, err = db.ListDocuments(ctx, "", 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || total != 3 {
		t.Errorf("page = %d items, total = %d", len(items), total)
	}
}
