package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v68/github"
)

type GitHubOptions struct {
	Owner   string
	Repo    string
	Branch  string
	Token   string
	APIURL  string // overrides https://api.github.com/
	Timeout time.Duration
}

// GitHubStore keeps resources as files in a GitHub repository through the
// contents API. The version token is the blob SHA.
type GitHubStore struct {
	client  *github.Client
	owner   string
	repo    string
	branch  string
	timeout time.Duration
}

func NewGitHubStore(opts GitHubOptions) (*GitHubStore, error) {
	if opts.Owner == "" || opts.Repo == "" {
		return nil, fmt.Errorf("repository owner and name are required")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := github.NewClient(&http.Client{Timeout: timeout})
	if opts.Token != "" {
		client = client.WithAuthToken(opts.Token)
	}

	if opts.APIURL != "" {
		baseURL, err := url.Parse(opts.APIURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL: %w", err)
		}
		if !strings.HasSuffix(baseURL.Path, "/") {
			baseURL.Path += "/"
		}
		client.BaseURL = baseURL
	}

	branch := opts.Branch
	if branch == "" {
		branch = "main"
	}

	return &GitHubStore{
		client:  client,
		owner:   opts.Owner,
		repo:    opts.Repo,
		branch:  branch,
		timeout: timeout,
	}, nil
}

func (s *GitHubStore) Get(ctx context.Context, path string) (Copy, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	file, _, resp, err := s.client.Repositories.GetContents(ctx, s.owner, s.repo, path,
		&github.RepositoryContentGetOptions{Ref: s.branch})
	if err != nil {
		status := responseStatus(resp, err)
		if status == http.StatusNotFound {
			return Copy{}, ErrNotFound
		}
		return Copy{}, &TransportError{Op: "get", Path: path, StatusCode: status, Err: err}
	}

	if file == nil {
		return Copy{}, &TransportError{Op: "get", Path: path, Err: errors.New("path is a directory")}
	}

	var content string
	if file.GetEncoding() == "none" {
		// Blobs over 1 MB are returned without inline content.
		content, err = s.download(ctx, path)
		if err != nil {
			return Copy{}, err
		}
	} else {
		content, err = file.GetContent()
		if err != nil {
			return Copy{}, &TransportError{Op: "get", Path: path, Err: fmt.Errorf("failed to decode content: %w", err)}
		}
	}

	slog.Debug("Fetched remote copy", "path", path, "sha", file.GetSHA(), "size", len(content))

	return Copy{
		Content: []byte(content),
		Version: file.GetSHA(),
	}, nil
}

func (s *GitHubStore) download(ctx context.Context, path string) (string, error) {
	body, resp, err := s.client.Repositories.DownloadContents(ctx, s.owner, s.repo, path,
		&github.RepositoryContentGetOptions{Ref: s.branch})
	if err != nil {
		return "", &TransportError{Op: "get", Path: path, StatusCode: responseStatus(resp, err), Err: fmt.Errorf("failed to download content: %w", err)}
	}
	defer body.Close()

	if resp != nil && resp.Response != nil && resp.StatusCode >= http.StatusBadRequest {
		return "", &TransportError{Op: "get", Path: path, StatusCode: resp.StatusCode, Err: fmt.Errorf("download returned %s", resp.Status)}
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return "", &TransportError{Op: "get", Path: path, Err: fmt.Errorf("failed to read content: %w", err)}
	}

	return string(data), nil
}

func (s *GitHubStore) Put(ctx context.Context, path string, content []byte, version, message string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	opts := &github.RepositoryContentFileOptions{
		Message: github.Ptr(message),
		Content: content,
		Branch:  github.Ptr(s.branch),
	}

	var (
		result *github.RepositoryContentResponse
		resp   *github.Response
		err    error
	)
	if version == "" {
		result, resp, err = s.client.Repositories.CreateFile(ctx, s.owner, s.repo, path, opts)
	} else {
		opts.SHA = github.Ptr(version)
		result, resp, err = s.client.Repositories.UpdateFile(ctx, s.owner, s.repo, path, opts)
	}

	if err != nil {
		status := responseStatus(resp, err)
		if status == http.StatusConflict || status == http.StatusUnprocessableEntity {
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return &TransportError{Op: "put", Path: path, StatusCode: status, Err: err}
	}

	if result != nil && result.Content != nil {
		slog.Debug("Pushed remote copy", "path", path, "sha", result.Content.GetSHA())
	}

	return nil
}

func responseStatus(resp *github.Response, err error) int {
	if resp != nil && resp.Response != nil {
		return resp.StatusCode
	}
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return ghErr.Response.StatusCode
	}
	return 0
}
