package blueprint

import (
	"slices"

	"github.com/google/uuid"

	"github.com/fulmenhq/ion/pkg/manifest"
	"github.com/fulmenhq/ion/pkg/versioning"
)

// Context accumulates what components learn during collect. Each render and
// post-render call receives its own deep copy, so only collect can change
// what later components see.
type Context struct {
	Project ProjectInfo
	Git     *GitUser
	Repo    *RepoInfo
	License *LicenseInfo
	Julia   *JuliaInfo
	CI      *CIInfo
	Docs    *DocsInfo
	Codecov bool
	Badges  []Badge
}

// Clone returns a deep copy of c.
func (c *Context) Clone() Context {
	out := *c
	out.Project.Authors = slices.Clone(c.Project.Authors)
	out.Git = clonePtr(c.Git)
	if c.Repo != nil {
		r := *c.Repo
		r.Ignore = slices.Clone(c.Repo.Ignore)
		out.Repo = &r
	}
	out.License = clonePtr(c.License)
	out.Julia = clonePtr(c.Julia)
	if c.CI != nil {
		ci := CIInfo{Versions: slices.Clone(c.CI.Versions), OS: slices.Clone(c.CI.OS)}
		out.CI = &ci
	}
	out.Docs = clonePtr(c.Docs)
	out.Badges = slices.Clone(c.Badges)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// ProjectInfo describes the package being generated.
type ProjectInfo struct {
	Name    string
	UUID    uuid.UUID
	Version versioning.Version
	Authors []manifest.Author
	// Dir is the package directory, <parent>/<Name>.
	Dir string
}

// GitUser is the identity found in git config.
type GitUser struct {
	Name       string
	Email      string
	GitHubUser string
}

// RepoInfo is the hosted repository the package will live in.
type RepoInfo struct {
	Host   string
	Owner  string
	Name   string
	URL    string
	Remote string
	Branch string
	Ignore []string
}

// LicenseInfo names the license and its holder.
type LicenseInfo struct {
	Name   string
	Holder string
	Year   int
}

// JuliaInfo is the installed julia, when one was found.
type JuliaInfo struct {
	Version string
	Compat  string
}

// CIInfo is the GitHub Actions test matrix.
type CIInfo struct {
	Versions []string
	OS       []string
}

// DocsInfo locates the Documenter tree.
type DocsInfo struct {
	Dir string
}

// Badge is a README status badge.
type Badge struct {
	Alt   string
	Image string
	Link  string
}

// Markdown renders the badge as a linked image.
func (b Badge) Markdown() string {
	return "[![" + b.Alt + "](" + b.Image + ")](" + b.Link + ")"
}

// Data flattens the context into template data. Absent parts are left out
// so {{#if repo}} and friends work.
func (c *Context) Data() map[string]interface{} {
	var authors []map[string]interface{}
	var names []string
	for _, a := range c.Project.Authors {
		names = append(names, a.String())
		if a.IsPseudo() {
			continue
		}
		authors = append(authors, map[string]interface{}{
			"firstname":   a.Firstname,
			"lastname":    a.Lastname,
			"name":        a.Name(),
			"email":       a.Email,
			"url":         a.URL,
			"affiliation": a.Affiliation,
			"orcid":       a.ORCID,
		})
	}

	data := map[string]interface{}{
		"name":        c.Project.Name,
		"uuid":        c.Project.UUID.String(),
		"version":     c.Project.Version.String(),
		"authors":     authors,
		"authorNames": names,
	}
	if c.Git != nil {
		data["user"] = map[string]interface{}{
			"name":   c.Git.Name,
			"email":  c.Git.Email,
			"github": c.Git.GitHubUser,
		}
	}
	if c.Repo != nil {
		data["repo"] = map[string]interface{}{
			"host":   c.Repo.Host,
			"owner":  c.Repo.Owner,
			"name":   c.Repo.Name,
			"url":    c.Repo.URL,
			"remote": c.Repo.Remote,
			"branch": c.Repo.Branch,
		}
	}
	if c.License != nil {
		data["license"] = map[string]interface{}{
			"name":   c.License.Name,
			"holder": c.License.Holder,
			"year":   c.License.Year,
		}
	}
	if c.Julia != nil {
		data["julia"] = map[string]interface{}{
			"version": c.Julia.Version,
			"compat":  c.Julia.Compat,
		}
	}
	if c.CI != nil {
		data["ci"] = map[string]interface{}{
			"versions": c.CI.Versions,
			"os":       c.CI.OS,
			"codecov":  c.Codecov,
		}
	}
	if c.Docs != nil {
		data["docs"] = map[string]interface{}{"dir": c.Docs.Dir}
	}
	if len(c.Badges) > 0 {
		var badges []map[string]interface{}
		for _, b := range c.Badges {
			badges = append(badges, map[string]interface{}{
				"alt":      b.Alt,
				"image":    b.Image,
				"link":     b.Link,
				"markdown": b.Markdown(),
			})
		}
		data["badges"] = badges
	}
	return data
}
