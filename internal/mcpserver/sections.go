package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/docomatic/docomatic/internal/docservice"
)

func (s *Server) registerSectionTools() {
	s.mcp.AddTool(mcp.NewTool("create_section",
		mcp.WithDescription("Add a section to a document, at the root or under a parent section. "+
			"Omitting order_index appends after the existing siblings; an occupied index shifts later siblings down."),
		mcp.WithString("document_id", mcp.Required(), mcp.Description("Owning document id")),
		mcp.WithString("heading", mcp.Required(), mcp.Description("Section heading")),
		mcp.WithString("body", mcp.Description("Section body text")),
		mcp.WithString("id", mcp.Description("Optional explicit section id")),
		mcp.WithString("parent_section_id", mcp.Description("Parent section id (root section when omitted)")),
		mcp.WithNumber("order_index", mcp.Description("Position among siblings (appended when omitted)")),
		mcp.WithObject("metadata", mcp.Description("Arbitrary JSON metadata")),
	), s.createSection)

	s.mcp.AddTool(mcp.NewTool("get_section",
		mcp.WithDescription("Fetch a section by id, optionally with its child subtree and links."),
		mcp.WithString("section_id", mcp.Required(), mcp.Description("Section id")),
		mcp.WithBoolean("include_children", mcp.Description("Include the nested child subtree (default false)")),
		mcp.WithBoolean("include_links", mcp.Description("Include the section's links (default false)")),
	), s.getSection)

	s.mcp.AddTool(mcp.NewTool("update_section",
		mcp.WithDescription("Update a section's heading, body, order_index and/or metadata. "+
			"An order_index already held by a sibling is rejected; use reorder_sections "+
			"to renumber a whole sibling group."),
		mcp.WithString("section_id", mcp.Required(), mcp.Description("Section id")),
		mcp.WithString("heading", mcp.Description("New heading")),
		mcp.WithString("body", mcp.Description("New body")),
		mcp.WithNumber("order_index", mcp.Description("New position among current siblings")),
		mcp.WithObject("metadata", mcp.Description("Replacement metadata object")),
	), s.updateSection)

	s.mcp.AddTool(mcp.NewTool("delete_section",
		mcp.WithDescription("Delete a section. With cascade=false the call fails when children exist; "+
			"with cascade=true the whole subtree and its links are removed."),
		mcp.WithString("section_id", mcp.Required(), mcp.Description("Section id")),
		mcp.WithBoolean("cascade", mcp.Description("Delete descendants too (default false)")),
	), s.deleteSection)

	s.mcp.AddTool(mcp.NewTool("move_section",
		mcp.WithDescription("Reparent a section within its document. Moving a section under its own "+
			"descendant is rejected. The subtree moves with it."),
		mcp.WithString("section_id", mcp.Required(), mcp.Description("Section id")),
		mcp.WithString("new_parent_section_id", mcp.Description("New parent id (moves to document root when omitted)")),
		mcp.WithNumber("order_index", mcp.Description("Position among the new siblings (appended when omitted)")),
	), s.moveSection)

	s.mcp.AddTool(mcp.NewTool("reorder_sections",
		mcp.WithDescription("Reassign order_index 0..n-1 to a full sibling group in the given order. "+
			"Every current sibling must appear exactly once."),
		mcp.WithString("parent_section_id", mcp.Description("Parent whose children are reordered (document root when omitted)")),
		mcp.WithArray("section_order", mcp.Required(), mcp.Description("Sibling section ids in the desired order")),
	), s.reorderSections)

	s.mcp.AddTool(mcp.NewTool("get_sections_by_document",
		mcp.WithDescription("List a document's sections as a nested tree or a depth-annotated flat "+
			"list in depth-first order, optionally filtered by heading pattern or metadata."),
		mcp.WithString("document_id", mcp.Required(), mcp.Description("Document id")),
		mcp.WithBoolean("flat", mcp.Description("Return a flat depth-first list instead of a tree (default false)")),
		mcp.WithString("heading_pattern", mcp.Description("Substring match against headings")),
		mcp.WithObject("metadata_filter", mcp.Description("Sections must contain all given metadata key/value pairs")),
	), s.getSectionsByDocument)

	s.mcp.AddTool(mcp.NewTool("search_sections",
		mcp.WithDescription("Full-text search over section headings and bodies, optionally scoped to "+
			"one document or to sections linked to a given external target."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query")),
		mcp.WithString("document_id", mcp.Description("Restrict to one document")),
		mcp.WithString("link_system", mcp.Description("Restrict to sections linked via this system (requires link_target)")),
		mcp.WithString("link_target", mcp.Description("Restrict to sections linked to this target URI (requires link_system)")),
		mcp.WithNumber("limit", mcp.Description("Page size (default 20)")),
		mcp.WithNumber("offset", mcp.Description("Page offset")),
	), s.searchSections)
}

func (s *Server) createSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docID, err := req.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	heading, err := req.RequireString("heading")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	in := docservice.CreateSectionRequest{
		ID:         argString(req, "id"),
		DocumentID: docID,
		Heading:    heading,
		Body:       argString(req, "body"),
		Meta:       argMap(req, "metadata"),
	}
	if p := argString(req, "parent_section_id"); p != "" {
		in.ParentID = &p
	}
	if n, ok := argInt(req, "order_index"); ok {
		in.OrderIndex = &n
	}

	sec, err := s.docs.CreateSection(ctx, in)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(sec), nil
}

func (s *Server) getSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("section_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	node, err := s.docs.GetSection(ctx,
		id,
		argBool(req, "include_children", false),
		argBool(req, "include_links", false),
	)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(node), nil
}

func (s *Server) updateSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("section_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	in := docservice.UpdateSectionRequest{SectionID: id}
	args := req.GetArguments()
	if _, present := args["heading"]; present {
		h := argString(req, "heading")
		in.Heading = &h
	}
	if _, present := args["body"]; present {
		b := argString(req, "body")
		in.Body = &b
	}
	if n, ok := argInt(req, "order_index"); ok {
		in.OrderIndex = &n
	}
	if _, present := args["metadata"]; present {
		m := argMap(req, "metadata")
		if m == nil {
			m = map[string]any{}
		}
		in.Meta = &m
	}

	sec, err := s.docs.UpdateSection(ctx, in)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(sec), nil
}

func (s *Server) deleteSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("section_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.docs.DeleteSection(ctx, id, argBool(req, "cascade", false)); err != nil {
		return errResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

func (s *Server) moveSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("section_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	in := docservice.MoveSectionRequest{SectionID: id}
	if p := argString(req, "new_parent_section_id"); p != "" {
		in.NewParentID = &p
	}
	if n, ok := argInt(req, "order_index"); ok {
		in.OrderIndex = &n
	}

	sec, err := s.docs.MoveSection(ctx, in)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(sec), nil
}

func (s *Server) reorderSections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	order := argStringSlice(req, "section_order")

	in := docservice.ReorderSectionsRequest{SectionOrder: order}
	if p := argString(req, "parent_section_id"); p != "" {
		in.ParentID = &p
	}

	secs, err := s.docs.ReorderSections(ctx, in)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(secs), nil
}

func (s *Server) getSectionsByDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docID, err := req.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	flat := argBool(req, "flat", false)
	flatSecs, treeSecs, err := s.docs.GetSectionsByDocument(ctx,
		docID,
		flat,
		argString(req, "heading_pattern"),
		argMap(req, "metadata_filter"),
	)
	if err != nil {
		return errResult(err), nil
	}
	if flat {
		return jsonResult(flatSecs), nil
	}
	return jsonResult(treeSecs), nil
}

func (s *Server) searchSections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	in := docservice.SearchSectionsRequest{
		Query:      query,
		DocumentID: argString(req, "document_id"),
		LinkSystem: argString(req, "link_system"),
		LinkTarget: argString(req, "link_target"),
	}
	if n, ok := argInt(req, "limit"); ok {
		in.Limit = n
	}
	if n, ok := argInt(req, "offset"); ok {
		in.Offset = n
	}

	secs, err := s.docs.SearchSections(ctx, in)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(secs), nil
}
