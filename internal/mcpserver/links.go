package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/docomatic/docomatic/internal/docservice"
	"github.com/docomatic/docomatic/internal/models"
)

const linkSystemsDoc = "Link system: task, fact, or github"

func (s *Server) registerLinkTools() {
	s.mcp.AddTool(mcp.NewTool("link_section",
		mcp.WithDescription("Attach an external reference to a section. Targets are system URIs, e.g. "+
			"task://task/<id>, fact://fact/<id>, github://owner/repo/pull/42. Duplicate "+
			"system+target pairs on the same section are rejected."),
		mcp.WithString("section_id", mcp.Required(), mcp.Description("Section id")),
		mcp.WithString("link_type", mcp.Required(), mcp.Description(linkSystemsDoc)),
		mcp.WithString("target", mcp.Required(), mcp.Description("Target URI in the system's format")),
		mcp.WithObject("metadata", mcp.Description("Arbitrary JSON metadata on the link")),
	), s.linkSection)

	s.mcp.AddTool(mcp.NewTool("unlink_section",
		mcp.WithDescription("Remove a link from a section by link id."),
		mcp.WithString("link_id", mcp.Required(), mcp.Description("Link id")),
	), s.unlink)

	s.mcp.AddTool(mcp.NewTool("get_section_links",
		mcp.WithDescription("List all links attached to a section."),
		mcp.WithString("section_id", mcp.Required(), mcp.Description("Section id")),
	), s.getSectionLinks)

	s.mcp.AddTool(mcp.NewTool("get_sections_by_link",
		mcp.WithDescription("Reverse lookup: find all sections linked to a given external target."),
		mcp.WithString("link_type", mcp.Required(), mcp.Description(linkSystemsDoc)),
		mcp.WithString("target", mcp.Required(), mcp.Description("Target URI")),
	), s.getSectionsByLink)

	s.mcp.AddTool(mcp.NewTool("link_document",
		mcp.WithDescription("Attach an external reference to a document as a whole."),
		mcp.WithString("document_id", mcp.Required(), mcp.Description("Document id")),
		mcp.WithString("link_type", mcp.Required(), mcp.Description(linkSystemsDoc)),
		mcp.WithString("target", mcp.Required(), mcp.Description("Target URI in the system's format")),
		mcp.WithObject("metadata", mcp.Description("Arbitrary JSON metadata on the link")),
	), s.linkDocument)

	s.mcp.AddTool(mcp.NewTool("unlink_document",
		mcp.WithDescription("Remove a document-level link by link id."),
		mcp.WithString("link_id", mcp.Required(), mcp.Description("Link id")),
	), s.unlink)

	s.mcp.AddTool(mcp.NewTool("get_document_links",
		mcp.WithDescription("List the document-level links of a document (section links excluded)."),
		mcp.WithString("document_id", mcp.Required(), mcp.Description("Document id")),
	), s.getDocumentLinks)

	s.mcp.AddTool(mcp.NewTool("get_documents_by_link",
		mcp.WithDescription("Reverse lookup: find all documents linked at document level to a given target."),
		mcp.WithString("link_type", mcp.Required(), mcp.Description(linkSystemsDoc)),
		mcp.WithString("target", mcp.Required(), mcp.Description("Target URI")),
	), s.getDocumentsByLink)

	s.mcp.AddTool(mcp.NewTool("get_links_by_type",
		mcp.WithDescription("List every link of one system across all documents and sections."),
		mcp.WithString("link_type", mcp.Required(), mcp.Description(linkSystemsDoc)),
		mcp.WithNumber("limit", mcp.Description("Maximum number of links (default 100)")),
	), s.getLinksByType)

	s.mcp.AddTool(mcp.NewTool("update_link_metadata",
		mcp.WithDescription("Replace the metadata object of a link."),
		mcp.WithString("link_id", mcp.Required(), mcp.Description("Link id")),
		mcp.WithObject("metadata", mcp.Required(), mcp.Description("Replacement metadata object")),
	), s.updateLinkMetadata)

	s.mcp.AddTool(mcp.NewTool("generate_link_report",
		mcp.WithDescription("Summarize link usage: totals per system, section vs document split, "+
			"most-linked targets, and links whose owner no longer exists."),
		mcp.WithString("document_id", mcp.Description("Restrict the report to one document")),
		mcp.WithString("link_type", mcp.Description("Restrict the report to one system")),
	), s.generateLinkReport)
}

func (s *Server) createLink(ctx context.Context, req mcp.CallToolRequest, kind models.OwnerKind, ownerKey string) (*mcp.CallToolResult, error) {
	ownerID, err := req.RequireString(ownerKey)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	system, err := req.RequireString("link_type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := req.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	link, err := s.docs.CreateLink(ctx, docservice.CreateLinkRequest{
		OwnerKind: kind,
		OwnerID:   ownerID,
		System:    system,
		Target:    target,
		Meta:      argMap(req, "metadata"),
	})
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(link), nil
}

func (s *Server) linkSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.createLink(ctx, req, models.OwnerSection, "section_id")
}

func (s *Server) linkDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.createLink(ctx, req, models.OwnerDocument, "document_id")
}

func (s *Server) unlink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("link_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.docs.Unlink(ctx, id); err != nil {
		return errResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("unlinked: %s", id)), nil
}

func (s *Server) getSectionLinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("section_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	links, err := s.docs.GetSectionLinks(ctx, id)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(links), nil
}

func (s *Server) getDocumentLinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	links, err := s.docs.GetDocumentLinks(ctx, id)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(links), nil
}

func (s *Server) getSectionsByLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	system, err := req.RequireString("link_type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := req.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	refs, err := s.docs.GetSectionsByLink(ctx, system, target)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(refs), nil
}

func (s *Server) getDocumentsByLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	system, err := req.RequireString("link_type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := req.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	refs, err := s.docs.GetDocumentsByLink(ctx, system, target)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(refs), nil
}

func (s *Server) getLinksByType(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	system, err := req.RequireString("link_type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := 100
	if n, ok := argInt(req, "limit"); ok {
		limit = n
	}
	links, err := s.docs.GetLinksByType(ctx, system, limit)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(links), nil
}

func (s *Server) updateLinkMetadata(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("link_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	meta := argMap(req, "metadata")
	if meta == nil {
		meta = map[string]any{}
	}
	link, err := s.docs.UpdateLinkMetadata(ctx, id, meta)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(link), nil
}

func (s *Server) generateLinkReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.docs.GenerateLinkReport(ctx,
		argString(req, "document_id"),
		argString(req, "link_type"),
	)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(report), nil
}
