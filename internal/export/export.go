// Package export renders a document's ordered section tree into Markdown
// file payloads and hands them to a Publisher for delivery to a GitHub
// repository. The GitHub API mechanics live behind the Publisher
// interface; this package only prepares content.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/docomatic/docomatic/internal/apperr"
	"github.com/docomatic/docomatic/internal/docservice"
	"github.com/docomatic/docomatic/internal/models"
)

// Format selects the file layout of an export.
type Format string

// Export formats.
const (
	FormatSingleFile Format = "single" // whole document in one file
	FormatMultiFile  Format = "multi"  // one file per top-level section
)

// File naming styles.
const (
	NamingKebab    = "kebab-case"
	NamingSnake    = "snake_case"
	NamingPreserve = "preserve"
)

// Options controls rendering and destination layout. The zero value
// renders a single kebab-case file under docs/ with metadata included,
// matching the tool surface defaults.
type Options struct {
	Format       Format
	FileNaming   string // kebab-case, snake_case, or preserve
	OmitMetadata bool   // metadata blocks render unless set
	BasePath     string // base directory in the target repository
	Branch       string // optional branch, created by the publisher if absent
}

// DefaultOptions mirrors the defaults of the tool surface.
func DefaultOptions() Options {
	return Options{
		Format:     FormatSingleFile,
		FileNaming: NamingKebab,
		BasePath:   "docs",
	}
}

// File is one rendered export payload.
type File struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// PublishRequest carries rendered files to a publisher.
type PublishRequest struct {
	RepoOwner     string
	RepoName      string
	Branch        string
	CommitMessage string
	Files         []File
}

// Result reports a completed export.
type Result struct {
	Status       string   `json:"status"`
	FilesCreated []string `json:"files_created"`
	CommitSHA    string   `json:"commit_sha,omitempty"`
	Message      string   `json:"message"`
}

// Publisher delivers rendered files to a repository. Implementations wrap
// a GitHub client; tests use a fake.
type Publisher interface {
	Publish(ctx context.Context, req PublishRequest) (commitSHA string, err error)
}

// DryRunPublisher accepts every publish without touching any remote. It is
// the default wiring when no GitHub credentials are configured; the
// rendered file list still comes back to the caller.
type DryRunPublisher struct{}

// Publish implements Publisher without side effects.
func (DryRunPublisher) Publish(context.Context, PublishRequest) (string, error) {
	return "", nil
}

// Service exports documents through a publisher.
type Service struct {
	docs *docservice.Service
	pub  Publisher
}

// NewService creates an export service.
func NewService(docs *docservice.Service, pub Publisher) *Service {
	return &Service{docs: docs, pub: pub}
}

// Request identifies the document and destination of an export.
type Request struct {
	DocumentID string
	RepoOwner  string
	RepoName   string
	Options    Options
}

// ExportDocument renders the document tree and publishes the result.
func (s *Service) ExportDocument(ctx context.Context, req Request) (*Result, error) {
	const op = "export_to_github"
	if req.DocumentID == "" {
		return nil, apperr.Validation(op, "document_id is required")
	}
	if req.RepoOwner == "" || req.RepoName == "" {
		return nil, apperr.Validation(op, "repo_owner and repo_name are required")
	}
	if req.Options.Format == "" {
		req.Options.Format = FormatSingleFile
	}
	if req.Options.FileNaming == "" {
		req.Options.FileNaming = NamingKebab
	}
	if req.Options.BasePath == "" {
		req.Options.BasePath = "docs"
	}

	doc, err := s.docs.GetDocument(ctx, req.DocumentID, true, true)
	if err != nil {
		return nil, err
	}

	files := Render(doc, req.Options)

	sha, err := s.pub.Publish(ctx, PublishRequest{
		RepoOwner:     req.RepoOwner,
		RepoName:      req.RepoName,
		Branch:        req.Options.Branch,
		CommitMessage: "Export document: " + doc.Title,
		Files:         files,
	})
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	return &Result{
		Status:       "success",
		FilesCreated: paths,
		CommitSHA:    sha,
		Message:      fmt.Sprintf("exported document %q as %d file(s)", doc.Title, len(files)),
	}, nil
}

// Render produces the export file set for a document whose section forest
// is already loaded. Single-file renders the whole tree into one Markdown
// file; multi-file renders one file per top-level section plus an index.
func Render(doc *models.Document, opts Options) []File {
	base := strings.TrimSuffix(opts.BasePath, "/")
	switch opts.Format {
	case FormatMultiFile:
		var files []File
		var index strings.Builder
		fmt.Fprintf(&index, "# %s\n\n", doc.Title)
		if !opts.OmitMetadata && len(doc.Meta) > 0 {
			index.WriteString(metaBlock(doc.Meta))
		}
		for _, sec := range doc.Sections {
			name := fileName(sec.Heading, opts.FileNaming)
			path := fmt.Sprintf("%s/%s.md", base, name)
			var b strings.Builder
			renderNode(&b, sec, 1, opts)
			files = append(files, File{Path: path, Content: b.String()})
			fmt.Fprintf(&index, "- [%s](%s.md)\n", sec.Heading, name)
		}
		indexPath := fmt.Sprintf("%s/%s.md", base, fileName(doc.Title, opts.FileNaming))
		return append([]File{{Path: indexPath, Content: index.String()}}, files...)
	default:
		var b strings.Builder
		fmt.Fprintf(&b, "# %s\n\n", doc.Title)
		if !opts.OmitMetadata && len(doc.Meta) > 0 {
			b.WriteString(metaBlock(doc.Meta))
		}
		for _, sec := range doc.Sections {
			renderNode(&b, sec, 2, opts)
		}
		path := fmt.Sprintf("%s/%s.md", base, fileName(doc.Title, opts.FileNaming))
		return []File{{Path: path, Content: b.String()}}
	}
}

// renderNode writes a section and its subtree. Heading level is clamped to
// h6, Markdown's deepest heading.
func renderNode(b *strings.Builder, node *models.SectionNode, level int, opts Options) {
	if level > 6 {
		level = 6
	}
	fmt.Fprintf(b, "%s %s\n\n", strings.Repeat("#", level), node.Heading)
	if body := strings.TrimSpace(node.Body); body != "" {
		b.WriteString(body)
		b.WriteString("\n\n")
	}
	for _, child := range node.Children {
		renderNode(b, child, level+1, opts)
	}
}

func metaBlock(meta map[string]any) string {
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return ""
	}
	return "```json\n" + string(raw) + "\n```\n\n"
}

var nonWordRe = regexp.MustCompile(`[^a-z0-9]+`)

// fileName derives a file name from a title per the configured style.
func fileName(title, naming string) string {
	switch naming {
	case NamingPreserve:
		return strings.TrimSpace(title)
	case NamingSnake:
		return strings.Trim(nonWordRe.ReplaceAllString(strings.ToLower(title), "_"), "_")
	default:
		return strings.Trim(nonWordRe.ReplaceAllString(strings.ToLower(title), "-"), "-")
	}
}
