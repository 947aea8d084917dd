package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/docomatic/docomatic/internal/docservice"
)

func (s *Server) registerDocumentTools() {
	s.mcp.AddTool(mcp.NewTool("create_document",
		mcp.WithDescription("Create a document, optionally seeding it with an initial section tree. "+
			"Initial sections may reference earlier entries as parents via parent_section_id."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Document title")),
		mcp.WithString("id", mcp.Description("Optional explicit document id (UUID assigned when omitted)")),
		mcp.WithObject("metadata", mcp.Description("Arbitrary JSON metadata")),
		mcp.WithArray("initial_sections", mcp.Description("Sections to create with the document, each with heading, body, optional id/parent_section_id/order_index/metadata")),
	), s.createDocument)

	s.mcp.AddTool(mcp.NewTool("get_document",
		mcp.WithDescription("Fetch a document by id, optionally with its full section tree and links."),
		mcp.WithString("document_id", mcp.Required(), mcp.Description("Document id")),
		mcp.WithBoolean("include_sections", mcp.Description("Include the nested section tree (default true)")),
		mcp.WithBoolean("include_links", mcp.Description("Include links on the document and its sections (default false)")),
	), s.getDocument)

	s.mcp.AddTool(mcp.NewTool("update_document",
		mcp.WithDescription("Update a document's title and/or metadata. Metadata replaces the stored object wholesale."),
		mcp.WithString("document_id", mcp.Required(), mcp.Description("Document id")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithObject("metadata", mcp.Description("Replacement metadata object")),
	), s.updateDocument)

	s.mcp.AddTool(mcp.NewTool("delete_document",
		mcp.WithDescription("Delete a document and cascade to all of its sections and links."),
		mcp.WithString("document_id", mcp.Required(), mcp.Description("Document id")),
	), s.deleteDocument)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List documents with optional title filtering and pagination."),
		mcp.WithString("title_pattern", mcp.Description("Substring match against titles")),
		mcp.WithNumber("limit", mcp.Description("Page size (default 50)")),
		mcp.WithNumber("offset", mcp.Description("Page offset")),
	), s.listDocuments)
}

func (s *Server) createDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	in := docservice.CreateDocumentRequest{
		ID:    argString(req, "id"),
		Title: title,
		Meta:  argMap(req, "metadata"),
	}
	for _, raw := range argMapSlice(req, "initial_sections") {
		sec := docservice.InitialSection{
			Heading: str(raw["heading"]),
			Body:    str(raw["body"]),
		}
		if id := str(raw["id"]); id != "" {
			sec.ID = id
		}
		if p := str(raw["parent_section_id"]); p != "" {
			sec.ParentID = &p
		}
		if n, ok := raw["order_index"].(float64); ok {
			idx := int(n)
			sec.OrderIndex = &idx
		}
		if m, ok := raw["metadata"].(map[string]any); ok {
			sec.Meta = m
		}
		in.InitialSections = append(in.InitialSections, sec)
	}

	doc, err := s.docs.CreateDocument(ctx, in)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(doc), nil
}

func (s *Server) getDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.docs.GetDocument(ctx,
		id,
		argBool(req, "include_sections", true),
		argBool(req, "include_links", false),
	)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(doc), nil
}

func (s *Server) updateDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	in := docservice.UpdateDocumentRequest{DocumentID: id}
	if t := argString(req, "title"); t != "" {
		in.Title = &t
	}
	if _, present := req.GetArguments()["metadata"]; present {
		m := argMap(req, "metadata")
		if m == nil {
			m = map[string]any{}
		}
		in.Meta = &m
	}

	doc, err := s.docs.UpdateDocument(ctx, in)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(doc), nil
}

func (s *Server) deleteDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.docs.DeleteDocument(ctx, id); err != nil {
		return errResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in := docservice.ListDocumentsRequest{
		TitlePattern: argString(req, "title_pattern"),
	}
	if n, ok := argInt(req, "limit"); ok {
		in.Limit = n
	}
	if n, ok := argInt(req, "offset"); ok {
		in.Offset = n
	}

	docs, total, err := s.docs.ListDocuments(ctx, in)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(map[string]any{"documents": docs, "total": total}), nil
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
