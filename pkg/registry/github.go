package registry

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fulmenhq/ion/pkg/ionerr"
	"github.com/fulmenhq/ion/pkg/logger"
	"github.com/fulmenhq/ion/pkg/versioning"
)

// DefaultGitHubAPI is the public GitHub REST endpoint.
const DefaultGitHubAPI = "https://api.github.com"

// Registration identifies the release a registrator bot should record.
type Registration struct {
	Registry  string
	Package   string
	UUID      string
	Owner     string
	Repo      string
	RepoURL   string
	CommitSHA string
	TreeSHA   string
	Version   versioning.Version
	Branch    string
	Notes     string
}

// GitHubSubmitter requests registration by commenting
// "@JuliaRegistrator register" on the release commit.
type GitHubSubmitter struct {
	httpFetcher HTTPFetcher
	apiURL      string
	token       string
}

// NewGitHubSubmitter creates a submitter using a TLS 1.2+ client.
func NewGitHubSubmitter(apiURL, token string, timeout time.Duration) *GitHubSubmitter {
	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
	return NewGitHubSubmitterWithHTTP(NewRealHTTPFetcher(client), apiURL, token)
}

// NewGitHubSubmitterWithHTTP creates a submitter with a custom transport.
func NewGitHubSubmitterWithHTTP(httpFetcher HTTPFetcher, apiURL, token string) *GitHubSubmitter {
	if apiURL == "" {
		apiURL = DefaultGitHubAPI
	}
	return &GitHubSubmitter{httpFetcher: httpFetcher, apiURL: strings.TrimRight(apiURL, "/"), token: token}
}

// CommentBody renders the registrator trigger for reg.
func CommentBody(reg Registration) string {
	var b strings.Builder
	b.WriteString("@JuliaRegistrator register")
	if reg.Branch != "" {
		b.WriteString(" branch=" + reg.Branch)
	}
	b.WriteString("\n")
	if notes := strings.TrimSpace(reg.Notes); notes != "" {
		b.WriteString("\nRelease notes:\n\n")
		b.WriteString(notes)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\n<!-- ion: package=%s uuid=%s version=%s tree=%s -->\n",
		reg.Package, reg.UUID, reg.Version, reg.TreeSHA)
	return b.String()
}

type commentResponse struct {
	HTMLURL string `json:"html_url"`
}

// Submit posts the registration comment.
func (s *GitHubSubmitter) Submit(ctx context.Context, reg Registration) error {
	if s.token == "" {
		return ionerr.New(ionerr.RegistrationError, "GITHUB_TOKEN is not set; comment %q on %s manually",
			"@JuliaRegistrator register", reg.RepoURL)
	}
	if reg.Owner == "" || reg.Repo == "" || reg.CommitSHA == "" {
		return ionerr.New(ionerr.RegistrationError, "incomplete registration for %s", reg.Package)
	}

	apiURL := fmt.Sprintf("%s/repos/%s/%s/commits/%s/comments", s.apiURL, reg.Owner, reg.Repo, reg.CommitSHA)
	payload, err := json.Marshal(map[string]string{"body": CommentBody(reg)})
	if err != nil {
		return ionerr.Wrap(ionerr.RegistrationError, err, "encode comment")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(payload))
	if err != nil {
		return ionerr.Wrap(ionerr.RegistrationError, err, "create request")
	}
	req.Header.Set("Authorization", "token "+s.token)
	req.Header.Set("User-Agent", "ion-release")
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpFetcher.Do(req)
	if err != nil {
		return ionerr.Wrap(ionerr.RegistrationError, err, "POST %s", apiURL)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusCreated, resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized:
		return ionerr.New(ionerr.RegistrationError, "GitHub rejected the token (HTTP 401)")
	case resp.StatusCode == http.StatusForbidden, resp.StatusCode == http.StatusTooManyRequests:
		return ionerr.New(ionerr.RegistrationError, "GitHub refused the comment (HTTP %d): %s", resp.StatusCode, snippet(resp.Body))
	case resp.StatusCode == http.StatusNotFound:
		return ionerr.New(ionerr.RegistrationError, "commit %s not found on %s/%s (was it pushed?)", reg.CommitSHA, reg.Owner, reg.Repo)
	default:
		return ionerr.New(ionerr.RegistrationError, "GitHub API error: HTTP %d: %s", resp.StatusCode, snippet(resp.Body))
	}

	var cr commentResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err == nil && cr.HTMLURL != "" {
		logger.Info("registration requested", logger.String("comment", cr.HTMLURL))
	}
	return nil
}

func snippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 512))
	return strings.TrimSpace(string(b))
}
