package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	githubAPIBase = "https://api.github.com"

	maxRetries = 3
	retryDelay = time.Second
)

// GitHubPublisher pushes rendered files to a repository through the
// GitHub contents API, one commit per file. Files that already exist are
// updated in place via their blob SHA.
type GitHubPublisher struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewGitHubPublisher creates a publisher authenticated with a personal
// access token.
func NewGitHubPublisher(token string) *GitHubPublisher {
	return &GitHubPublisher{
		baseURL: githubAPIBase,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetBaseURL overrides the API endpoint, for GitHub Enterprise or tests.
func (p *GitHubPublisher) SetBaseURL(u string) {
	p.baseURL = u
}

// Publish implements Publisher. It verifies the repository, creates the
// branch from the default branch when it does not exist yet, then writes
// every file. The returned SHA is the commit of the last written file.
func (p *GitHubPublisher) Publish(ctx context.Context, req PublishRequest) (string, error) {
	repo, err := p.getRepository(ctx, req.RepoOwner, req.RepoName)
	if err != nil {
		return "", err
	}

	branch := req.Branch
	if branch == "" {
		branch = repo.DefaultBranch
	} else if err := p.ensureBranch(ctx, req.RepoOwner, req.RepoName, branch, repo.DefaultBranch); err != nil {
		return "", err
	}

	var lastSHA string
	for _, f := range req.Files {
		sha, err := p.putFile(ctx, req.RepoOwner, req.RepoName, branch, req.CommitMessage, f)
		if err != nil {
			return "", fmt.Errorf("write %s: %w", f.Path, err)
		}
		lastSHA = sha
	}
	return lastSHA, nil
}

type githubRepo struct {
	DefaultBranch string `json:"default_branch"`
}

func (p *GitHubPublisher) getRepository(ctx context.Context, owner, name string) (*githubRepo, error) {
	var repo githubRepo
	status, err := p.do(ctx, http.MethodGet, fmt.Sprintf("/repos/%s/%s", owner, name), nil, &repo)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
		return &repo, nil
	case http.StatusNotFound:
		return nil, fmt.Errorf("repository %s/%s not found", owner, name)
	case http.StatusUnauthorized:
		return nil, fmt.Errorf("github authentication failed, check the token")
	default:
		return nil, fmt.Errorf("get repository: unexpected status %d", status)
	}
}

func (p *GitHubPublisher) ensureBranch(ctx context.Context, owner, name, branch, defaultBranch string) error {
	status, err := p.do(ctx, http.MethodGet,
		fmt.Sprintf("/repos/%s/%s/branches/%s", owner, name, url.PathEscape(branch)), nil, nil)
	if err != nil {
		return err
	}
	if status == http.StatusOK {
		return nil
	}
	if status != http.StatusNotFound {
		return fmt.Errorf("check branch %q: unexpected status %d", branch, status)
	}

	// Branch the default branch's head.
	var ref struct {
		Object struct {
			SHA string `json:"sha"`
		} `json:"object"`
	}
	status, err = p.do(ctx, http.MethodGet,
		fmt.Sprintf("/repos/%s/%s/git/ref/heads/%s", owner, name, url.PathEscape(defaultBranch)), nil, &ref)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("resolve default branch %q: unexpected status %d", defaultBranch, status)
	}

	body := map[string]string{
		"ref": "refs/heads/" + branch,
		"sha": ref.Object.SHA,
	}
	status, err = p.do(ctx, http.MethodPost,
		fmt.Sprintf("/repos/%s/%s/git/refs", owner, name), body, nil)
	if err != nil {
		return err
	}
	if status != http.StatusCreated {
		return fmt.Errorf("create branch %q: unexpected status %d", branch, status)
	}
	return nil
}

func (p *GitHubPublisher) putFile(ctx context.Context, owner, name, branch, message string, f File) (string, error) {
	contentPath := fmt.Sprintf("/repos/%s/%s/contents/%s", owner, name, f.Path)

	// An existing file must be updated with its current blob SHA.
	var existing struct {
		SHA string `json:"sha"`
	}
	status, err := p.do(ctx, http.MethodGet, contentPath+"?ref="+url.QueryEscape(branch), nil, &existing)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK && status != http.StatusNotFound {
		return "", fmt.Errorf("check file: unexpected status %d", status)
	}

	body := map[string]string{
		"message": message,
		"content": base64.StdEncoding.EncodeToString([]byte(f.Content)),
		"branch":  branch,
	}
	if status == http.StatusOK && existing.SHA != "" {
		body["sha"] = existing.SHA
	}

	var result struct {
		Commit struct {
			SHA string `json:"sha"`
		} `json:"commit"`
	}
	for attempt := 0; attempt < maxRetries; attempt++ {
		status, err = p.do(ctx, http.MethodPut, contentPath, body, &result)
		if err != nil {
			return "", err
		}
		switch status {
		case http.StatusOK, http.StatusCreated:
			return result.Commit.SHA, nil
		case http.StatusUnauthorized:
			return "", fmt.Errorf("github authentication failed, check the token")
		case http.StatusForbidden:
			return "", fmt.Errorf("github permission denied, check repository access")
		}
		if attempt < maxRetries-1 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(retryDelay * time.Duration(attempt+1)):
			}
		}
	}
	return "", fmt.Errorf("unexpected status %d after %d attempts", status, maxRetries)
}

// do issues one API request. A nil out skips response decoding; 404s are
// returned as a status rather than an error so callers can branch on them.
func (p *GitHubPublisher) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+p.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	return resp.StatusCode, nil
}
