package gitctx

import (
	"context"
	"strings"

	"github.com/fulmenhq/ion/pkg/ionerr"
)

// RemoteRepo is the hosting location of a repository.
type RemoteRepo struct {
	Host  string
	Owner string
	Name  string
}

// URL returns the browsable https URL of the repository.
func (r RemoteRepo) URL() string {
	return "https://" + r.Host + "/" + r.Owner + "/" + r.Name
}

// Slug returns owner/name.
func (r RemoteRepo) Slug() string { return r.Owner + "/" + r.Name }

var schemes = []string{"https://", "http://", "ssh://", "git://", "git+ssh://"}

// ParseRemote extracts host, owner and name from a git remote URL. It
// accepts https, ssh and scp-style URLs with or without a .git suffix or
// trailing slash. URLs with a deeper path use the last two segments.
func ParseRemote(raw string) (RemoteRepo, error) {
	invalid := func() (RemoteRepo, error) {
		return RemoteRepo{}, ionerr.New(ionerr.InvalidRemoteURL, "cannot parse remote url %q", raw)
	}

	u := strings.TrimSpace(raw)
	u = strings.TrimRight(u, "/")
	u = strings.TrimSuffix(u, ".git")
	u = strings.TrimRight(u, "/")

	hadScheme := false
	for _, s := range schemes {
		if strings.HasPrefix(strings.ToLower(u), s) {
			u = u[len(s):]
			hadScheme = true
			break
		}
	}
	if at := strings.Index(u, "@"); at >= 0 && at < strings.IndexAny(u+"/", "/:") {
		u = u[at+1:]
	}
	if !hadScheme {
		// scp-like: host:owner/name
		if colon := strings.Index(u, ":"); colon >= 0 && colon < strings.IndexAny(u+"/", "/") {
			u = u[:colon] + "/" + u[colon+1:]
		}
	}

	var segs []string
	for _, s := range strings.Split(u, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	if len(segs) < 3 {
		return invalid()
	}
	host := segs[0]
	if i := strings.LastIndex(host, ":"); i >= 0 && hadScheme {
		host = host[:i] // drop port
	}
	if host == "" || strings.ContainsAny(host, " \t") {
		return invalid()
	}
	return RemoteRepo{Host: host, Owner: segs[len(segs)-2], Name: segs[len(segs)-1]}, nil
}

// Remote resolves and parses the URL of the origin remote.
func (r *Repo) Remote(ctx context.Context) (RemoteRepo, error) {
	url, err := r.RemoteURL(ctx, "origin")
	if err != nil {
		return RemoteRepo{}, err
	}
	return ParseRemote(url)
}
