package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/docomatic/docomatic/internal/docservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *docservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Documents.
	r.Get("/documents", h.ListDocuments)
	r.Post("/documents", h.CreateDocument)
	r.Get("/documents/{documentID}", h.GetDocument)
	r.Put("/documents/{documentID}", h.UpdateDocument)
	r.Delete("/documents/{documentID}", h.DeleteDocument)
	r.Get("/documents/{documentID}/sections", h.GetDocumentSections)
	r.Get("/documents/{documentID}/links", h.GetDocumentLinks)
	r.Post("/documents/{documentID}/links", h.LinkDocument)

	// Sections.
	r.Post("/sections", h.CreateSection)
	r.Post("/sections/reorder", h.ReorderSections)
	r.Get("/sections/{sectionID}", h.GetSection)
	r.Put("/sections/{sectionID}", h.UpdateSection)
	r.Delete("/sections/{sectionID}", h.DeleteSection)
	r.Post("/sections/{sectionID}/move", h.MoveSection)
	r.Get("/sections/{sectionID}/links", h.GetSectionLinks)
	r.Post("/sections/{sectionID}/links", h.LinkSection)

	// Links.
	r.Get("/links", h.LinksByTarget)
	r.Get("/links/report", h.LinkReport)
	r.Delete("/links/{linkID}", h.Unlink)
	r.Put("/links/{linkID}/metadata", h.UpdateLinkMetadata)

	// Search.
	r.Get("/search", h.Search)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
