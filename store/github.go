package store

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/go-github/v60/github"
	"golang.org/x/oauth2"
)

// GitHubSource reads documents from a GitHub repository through the contents API.
type GitHubSource struct {
	client *github.Client
	owner  string
	repo   string
	ref    string
}

// NewGitHubSource creates a source for owner/repo at ref. An empty ref reads
// the default branch.
func NewGitHubSource(client *github.Client, owner, repo, ref string) *GitHubSource {
	return &GitHubSource{
		client: client,
		owner:  owner,
		repo:   repo,
		ref:    ref,
	}
}

// NewGitHubClient returns a GitHub client authenticated with token, or an
// anonymous client when token is empty.
func NewGitHubClient(ctx context.Context, token string) *github.Client {
	if token == "" {
		return github.NewClient(nil)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)
	return github.NewClient(tc)
}

// ParseRepo splits an "owner/name" repository reference.
func ParseRepo(s string) (owner, repo string, err error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository %q: expected owner/name", s)
	}
	return parts[0], parts[1], nil
}

// Fetch downloads the file at path from the repository.
func (g *GitHubSource) Fetch(ctx context.Context, path string) ([]byte, io.Closer, error) {
	var opts *github.RepositoryContentGetOptions
	if g.ref != "" {
		opts = &github.RepositoryContentGetOptions{Ref: g.ref}
	}

	content, _, _, err := g.client.Repositories.GetContents(ctx, g.owner, g.repo, strings.TrimPrefix(path, "/"), opts)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching %s from %s/%s: %w", path, g.owner, g.repo, err)
	}
	if content == nil {
		return nil, nil, fmt.Errorf("%s in %s/%s is a directory", path, g.owner, g.repo)
	}

	decoded, err := content.GetContent()
	if err != nil {
		return nil, nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return []byte(decoded), nil, nil
}
