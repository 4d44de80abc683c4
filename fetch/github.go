package fetch

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// DefaultGitHubAPIURL is the public GitHub REST endpoint.
const DefaultGitHubAPIURL = "https://api.github.com"

// GitHubCode fetches source files from a public GitHub repository through
// the contents API, walking directories recursively. The query is the
// repository URL, e.g. "https://github.com/vulnerable-apps/verademo".
//
// Each matching file is rendered as "// {path}\n{content}\n" and the
// concatenation is truncated to MaxChars.
type GitHubCode struct {
	Token     string // optional; raises the rate limit
	BaseURL   string // defaults to DefaultGitHubAPIURL
	Extension string // defaults to ".java"
	MaxChars  int    // defaults to 10000
	Client    *http.Client
}

type contentItem struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Path        string `json:"path"`
	DownloadURL string `json:"download_url"`
}

// Fetch implements Fetcher.
func (g *GitHubCode) Fetch(ctx context.Context, repoURL string) (string, error) {
	repo, err := repoPath(repoURL)
	if err != nil {
		return "", &FetchError{Source: "github", Query: repoURL, Err: err}
	}

	var files []string
	if err := g.walk(ctx, repo, "", &files); err != nil {
		return "", &FetchError{Source: "github", Query: repoURL, Err: err}
	}

	code := strings.Join(files, "\n")
	limit := g.MaxChars
	if limit <= 0 {
		limit = 10000
	}
	if r := []rune(code); len(r) > limit {
		code = string(r[:limit])
	}
	return code, nil
}

func (g *GitHubCode) walk(ctx context.Context, repo, path string, files *[]string) error {
	base := g.BaseURL
	if base == "" {
		base = DefaultGitHubAPIURL
	}
	ext := g.Extension
	if ext == "" {
		ext = ".java"
	}
	client := clientOrDefault(g.Client)
	header := http.Header{"Accept": {"application/vnd.github+json"}}
	if g.Token != "" {
		header.Set("Authorization", "Bearer "+g.Token)
	}

	var items []contentItem
	endpoint := fmt.Sprintf("%s/repos/%s/contents/%s", strings.TrimRight(base, "/"), repo, path)
	if err := getJSON(ctx, client, endpoint, header, &items); err != nil {
		return err
	}

	for _, item := range items {
		switch {
		case item.Type == "file" && strings.HasSuffix(item.Name, ext):
			body, err := get(ctx, client, item.DownloadURL, nil)
			if err != nil {
				return fmt.Errorf("download %s: %w", item.Path, err)
			}
			*files = append(*files, fmt.Sprintf("// %s\n%s\n", item.Path, body))
		case item.Type == "dir":
			if err := g.walk(ctx, repo, item.Path, files); err != nil {
				return err
			}
		}
	}
	return nil
}

// repoPath extracts "owner/repo" from a GitHub URL.
func repoPath(repoURL string) (string, error) {
	p := strings.TrimSpace(repoURL)
	for _, prefix := range []string{"https://github.com/", "http://github.com/", "github.com/"} {
		p = strings.TrimPrefix(p, prefix)
	}
	p = strings.TrimSuffix(strings.Trim(p, "/"), ".git")
	parts := strings.Split(p, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", fmt.Errorf("not a GitHub repository URL: %q", repoURL)
	}
	return p, nil
}
