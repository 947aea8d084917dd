package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/docomatic/docomatic/internal/docservice"
	"github.com/docomatic/docomatic/internal/models"
)

const maxBodySize = 10 << 20 // 10 MB

// Handler holds API route handlers.
type Handler struct {
	svc *docservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *docservice.Service) *Handler {
	return &Handler{svc: svc}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

func queryBool(r *http.Request, key string, def bool) bool {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// ListDocuments handles GET /api/documents.
//
//	@Summary		List documents with optional pagination and title filtering
//	@Tags			documents
//	@Produce		json
//	@Param			limit			query		int		false	"Page size"
//	@Param			offset			query		int		false	"Page offset"
//	@Param			title_pattern	query		string	false	"Substring match against titles"
//	@Success		200				{object}	DocumentListResponse
//	@Security		BearerAuth
//	@Router			/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.ListDocuments(r.Context(), docservice.ListDocumentsRequest{
		TitlePattern: q.Get("title_pattern"),
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": items,
		"total":     total,
	})
}

// CreateDocument handles POST /api/documents.
//
//	@Summary		Create a document with an optional initial section tree
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateDocumentRequest	true	"Document to create"
//	@Success		201		{object}	models.Document
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents [post]
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req docservice.CreateDocumentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	doc, err := h.svc.CreateDocument(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// GetDocument handles GET /api/documents/{documentID}.
//
//	@Summary		Get a document, optionally with its section tree and links
//	@Tags			documents
//	@Produce		json
//	@Param			documentID			path		string	true	"Document id"
//	@Param			include_sections	query		bool	false	"Include the nested section tree (default true)"
//	@Param			include_links		query		bool	false	"Include links (default false)"
//	@Success		200					{object}	models.Document
//	@Failure		404					{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{documentID} [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.GetDocument(r.Context(),
		chi.URLParam(r, "documentID"),
		queryBool(r, "include_sections", true),
		queryBool(r, "include_links", false),
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// UpdateDocument handles PUT /api/documents/{documentID}.
//
//	@Summary		Update a document's title and/or metadata
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			documentID	path		string	true	"Document id"
//	@Success		200			{object}	models.Document
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{documentID} [put]
func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title *string         `json:"title,omitempty"`
		Meta  *map[string]any `json:"metadata,omitempty"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	doc, err := h.svc.UpdateDocument(r.Context(), docservice.UpdateDocumentRequest{
		DocumentID: chi.URLParam(r, "documentID"),
		Title:      body.Title,
		Meta:       body.Meta,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// DeleteDocument handles DELETE /api/documents/{documentID}.
//
//	@Summary		Delete a document and everything it contains
//	@Tags			documents
//	@Param			documentID	path	string	true	"Document id"
//	@Success		204			"Document deleted"
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{documentID} [delete]
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteDocument(r.Context(), chi.URLParam(r, "documentID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetDocumentSections handles GET /api/documents/{documentID}/sections.
//
//	@Summary		List a document's sections as a tree or a flat depth-first list
//	@Tags			sections
//	@Produce		json
//	@Param			documentID		path		string	true	"Document id"
//	@Param			flat			query		bool	false	"Flat depth-first list instead of a tree"
//	@Param			heading_pattern	query		string	false	"Substring match against headings"
//	@Success		200				{array}		models.SectionNode
//	@Failure		404				{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{documentID}/sections [get]
func (h *Handler) GetDocumentSections(w http.ResponseWriter, r *http.Request) {
	flat := queryBool(r, "flat", false)
	flatSecs, treeSecs, err := h.svc.GetSectionsByDocument(r.Context(),
		chi.URLParam(r, "documentID"),
		flat,
		r.URL.Query().Get("heading_pattern"),
		nil,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	if flat {
		writeJSON(w, http.StatusOK, flatSecs)
		return
	}
	writeJSON(w, http.StatusOK, treeSecs)
}

// CreateSection handles POST /api/sections.
//
//	@Summary		Add a section to a document
//	@Tags			sections
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateSectionRequest	true	"Section to create"
//	@Success		201		{object}	models.Section
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sections [post]
func (h *Handler) CreateSection(w http.ResponseWriter, r *http.Request) {
	var req docservice.CreateSectionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sec, err := h.svc.CreateSection(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sec)
}

// GetSection handles GET /api/sections/{sectionID}.
//
//	@Summary		Get a section, optionally with its subtree and links
//	@Tags			sections
//	@Produce		json
//	@Param			sectionID			path		string	true	"Section id"
//	@Param			include_children	query		bool	false	"Include the child subtree"
//	@Param			include_links		query		bool	false	"Include the section's links"
//	@Success		200					{object}	models.SectionNode
//	@Failure		404					{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sections/{sectionID} [get]
func (h *Handler) GetSection(w http.ResponseWriter, r *http.Request) {
	node, err := h.svc.GetSection(r.Context(),
		chi.URLParam(r, "sectionID"),
		queryBool(r, "include_children", false),
		queryBool(r, "include_links", false),
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

// UpdateSection handles PUT /api/sections/{sectionID}.
//
//	@Summary		Update a section's heading, body, position and/or metadata
//	@Tags			sections
//	@Accept			json
//	@Produce		json
//	@Param			sectionID	path		string	true	"Section id"
//	@Success		200			{object}	models.Section
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sections/{sectionID} [put]
func (h *Handler) UpdateSection(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Heading    *string         `json:"heading,omitempty"`
		Body       *string         `json:"body,omitempty"`
		OrderIndex *int            `json:"order_index,omitempty"`
		Meta       *map[string]any `json:"metadata,omitempty"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	sec, err := h.svc.UpdateSection(r.Context(), docservice.UpdateSectionRequest{
		SectionID:  chi.URLParam(r, "sectionID"),
		Heading:    body.Heading,
		Body:       body.Body,
		OrderIndex: body.OrderIndex,
		Meta:       body.Meta,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sec)
}

// DeleteSection handles DELETE /api/sections/{sectionID}.
//
//	@Summary		Delete a section, optionally cascading to its subtree
//	@Tags			sections
//	@Param			sectionID	path	string	true	"Section id"
//	@Param			cascade		query	bool	false	"Delete descendants too"
//	@Success		204			"Section deleted"
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sections/{sectionID} [delete]
func (h *Handler) DeleteSection(w http.ResponseWriter, r *http.Request) {
	err := h.svc.DeleteSection(r.Context(),
		chi.URLParam(r, "sectionID"),
		queryBool(r, "cascade", false),
	)
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveSection handles POST /api/sections/{sectionID}/move.
//
//	@Summary		Reparent a section within its document
//	@Tags			sections
//	@Accept			json
//	@Produce		json
//	@Param			sectionID	path		string			true	"Section id"
//	@Param			body		body		MoveSectionBody	true	"New position"
//	@Success		200			{object}	models.Section
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sections/{sectionID}/move [post]
func (h *Handler) MoveSection(w http.ResponseWriter, r *http.Request) {
	var body MoveSectionBody
	if !decodeBody(w, r, &body) {
		return
	}
	sec, err := h.svc.MoveSection(r.Context(), docservice.MoveSectionRequest{
		SectionID:   chi.URLParam(r, "sectionID"),
		NewParentID: body.NewParentID,
		OrderIndex:  body.OrderIndex,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sec)
}

// ReorderSections handles POST /api/sections/reorder.
//
//	@Summary		Reassign contiguous order to a full sibling group
//	@Tags			sections
//	@Accept			json
//	@Produce		json
//	@Success		200	{array}		models.Section
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sections/reorder [post]
func (h *Handler) ReorderSections(w http.ResponseWriter, r *http.Request) {
	var req docservice.ReorderSectionsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	secs, err := h.svc.ReorderSections(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, secs)
}

// LinkSection handles POST /api/sections/{sectionID}/links.
//
//	@Summary		Attach an external reference to a section
//	@Tags			links
//	@Accept			json
//	@Produce		json
//	@Param			sectionID	path		string			true	"Section id"
//	@Param			body		body		CreateLinkBody	true	"Link to create"
//	@Success		201			{object}	models.Link
//	@Failure		400			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sections/{sectionID}/links [post]
func (h *Handler) LinkSection(w http.ResponseWriter, r *http.Request) {
	h.createLink(w, r, models.OwnerSection, chi.URLParam(r, "sectionID"))
}

// LinkDocument handles POST /api/documents/{documentID}/links.
//
//	@Summary		Attach an external reference to a document
//	@Tags			links
//	@Accept			json
//	@Produce		json
//	@Param			documentID	path		string			true	"Document id"
//	@Param			body		body		CreateLinkBody	true	"Link to create"
//	@Success		201			{object}	models.Link
//	@Failure		400			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{documentID}/links [post]
func (h *Handler) LinkDocument(w http.ResponseWriter, r *http.Request) {
	h.createLink(w, r, models.OwnerDocument, chi.URLParam(r, "documentID"))
}

func (h *Handler) createLink(w http.ResponseWriter, r *http.Request, kind models.OwnerKind, ownerID string) {
	var body CreateLinkBody
	if !decodeBody(w, r, &body) {
		return
	}
	link, err := h.svc.CreateLink(r.Context(), docservice.CreateLinkRequest{
		OwnerKind: kind,
		OwnerID:   ownerID,
		System:    body.System,
		Target:    body.Target,
		Meta:      body.Meta,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, link)
}

// GetSectionLinks handles GET /api/sections/{sectionID}/links.
//
//	@Summary		List all links attached to a section
//	@Tags			links
//	@Produce		json
//	@Param			sectionID	path		string	true	"Section id"
//	@Success		200			{array}		models.Link
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sections/{sectionID}/links [get]
func (h *Handler) GetSectionLinks(w http.ResponseWriter, r *http.Request) {
	links, err := h.svc.GetSectionLinks(r.Context(), chi.URLParam(r, "sectionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, links)
}

// GetDocumentLinks handles GET /api/documents/{documentID}/links.
//
//	@Summary		List a document's document-level links
//	@Tags			links
//	@Produce		json
//	@Param			documentID	path		string	true	"Document id"
//	@Success		200			{array}		models.Link
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{documentID}/links [get]
func (h *Handler) GetDocumentLinks(w http.ResponseWriter, r *http.Request) {
	links, err := h.svc.GetDocumentLinks(r.Context(), chi.URLParam(r, "documentID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, links)
}

// LinksByTarget handles GET /api/links.
//
// With system and target it performs a reverse lookup; the owner query
// parameter picks sections (default) or documents. With only system it
// lists every link of that system.
//
//	@Summary		Reverse link lookup or per-system listing
//	@Tags			links
//	@Produce		json
//	@Param			system	query		string	true	"Link system (task, fact, github)"
//	@Param			target	query		string	false	"Target URI for reverse lookup"
//	@Param			owner	query		string	false	"sections (default) or documents"
//	@Param			limit	query		int		false	"Max links for per-system listing"
//	@Success		200		{object}	map[string]any
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/links [get]
func (h *Handler) LinksByTarget(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	system := q.Get("system")
	target := q.Get("target")

	if target == "" {
		limit, _ := strconv.Atoi(q.Get("limit"))
		if limit <= 0 {
			limit = 100
		}
		links, err := h.svc.GetLinksByType(r.Context(), system, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"links": links})
		return
	}

	if q.Get("owner") == "documents" {
		refs, err := h.svc.GetDocumentsByLink(r.Context(), system, target)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"documents": refs})
		return
	}

	refs, err := h.svc.GetSectionsByLink(r.Context(), system, target)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sections": refs})
}

// Unlink handles DELETE /api/links/{linkID}.
//
//	@Summary		Remove a link
//	@Tags			links
//	@Param			linkID	path	string	true	"Link id"
//	@Success		204		"Link removed"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/links/{linkID} [delete]
func (h *Handler) Unlink(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Unlink(r.Context(), chi.URLParam(r, "linkID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateLinkMetadata handles PUT /api/links/{linkID}/metadata.
//
//	@Summary		Replace a link's metadata object
//	@Tags			links
//	@Accept			json
//	@Produce		json
//	@Param			linkID	path		string	true	"Link id"
//	@Success		200		{object}	models.Link
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/links/{linkID}/metadata [put]
func (h *Handler) UpdateLinkMetadata(w http.ResponseWriter, r *http.Request) {
	var meta map[string]any
	if !decodeBody(w, r, &meta) {
		return
	}
	link, err := h.svc.UpdateLinkMetadata(r.Context(), chi.URLParam(r, "linkID"), meta)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

// LinkReport handles GET /api/links/report.
//
//	@Summary		Summarize link usage across the store
//	@Tags			links
//	@Produce		json
//	@Param			document_id	query		string	false	"Restrict to one document"
//	@Param			system		query		string	false	"Restrict to one system"
//	@Success		200			{object}	docservice.LinkReport
//	@Security		BearerAuth
//	@Router			/links/report [get]
func (h *Handler) LinkReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	report, err := h.svc.GenerateLinkReport(r.Context(), q.Get("document_id"), q.Get("system"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across section headings and bodies
//	@Tags			search
//	@Produce		json
//	@Param			q			query		string	true	"Search query"
//	@Param			document_id	query		string	false	"Restrict to one document"
//	@Param			limit		query		int		false	"Max results"
//	@Param			offset		query		int		false	"Page offset"
//	@Success		200			{object}	SearchResponse
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	results, err := h.svc.SearchSections(r.Context(), docservice.SearchSectionsRequest{
		Query:      q.Get("q"),
		DocumentID: q.Get("document_id"),
		LinkSystem: q.Get("link_system"),
		LinkTarget: q.Get("link_target"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}
