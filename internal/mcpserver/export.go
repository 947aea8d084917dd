package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/docomatic/docomatic/internal/export"
)

func (s *Server) registerExportTools() {
	s.mcp.AddTool(mcp.NewTool("export_to_github",
		mcp.WithDescription("Render a document's section tree to Markdown and publish it to a GitHub "+
			"repository. Format 'single' produces one file; 'multi' produces one file per "+
			"top-level section plus an index."),
		mcp.WithString("document_id", mcp.Required(), mcp.Description("Document id")),
		mcp.WithString("repo_owner", mcp.Required(), mcp.Description("GitHub repository owner")),
		mcp.WithString("repo_name", mcp.Required(), mcp.Description("GitHub repository name")),
		mcp.WithString("format", mcp.Description("single or multi (default single)")),
		mcp.WithString("file_naming", mcp.Description("kebab-case, snake_case, or preserve (default kebab-case)")),
		mcp.WithString("base_path", mcp.Description("Base directory in the repository (default docs)")),
		mcp.WithString("branch", mcp.Description("Target branch (repository default when omitted)")),
		mcp.WithBoolean("include_metadata", mcp.Description("Embed document metadata in the output (default true)")),
	), s.exportToGitHub)
}

func (s *Server) exportToGitHub(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docID, err := req.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	owner, err := req.RequireString("repo_owner")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("repo_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := s.exporter.ExportDocument(ctx, export.Request{
		DocumentID: docID,
		RepoOwner:  owner,
		RepoName:   name,
		Options: export.Options{
			Format:       export.Format(argString(req, "format")),
			FileNaming:   argString(req, "file_naming"),
			BasePath:     argString(req, "base_path"),
			Branch:       argString(req, "branch"),
			OmitMetadata: !argBool(req, "include_metadata", true),
		},
	})
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(res), nil
}
