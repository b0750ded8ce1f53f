package blueprint

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/github/go-spdx/v2/spdxexp"
	"gopkg.in/yaml.v3"

	"github.com/fulmenhq/ion/pkg/ionerr"
	"github.com/fulmenhq/ion/pkg/julia"
	"github.com/fulmenhq/ion/pkg/logger"
	"github.com/fulmenhq/ion/pkg/manifest"
	"github.com/fulmenhq/ion/pkg/prompt"
	"github.com/fulmenhq/ion/pkg/versioning"
)

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func boolDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// renderYAML renders a YAML file and refuses output that does not parse.
func renderYAML(t *Template, c *Context, src, dst string) error {
	text, err := t.RenderTo(src, c, dst)
	if err != nil {
		return err
	}
	var doc interface{}
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return ionerr.Wrap(ionerr.RenderFailed, err, "%s is not valid YAML", dst)
	}
	return nil
}

// ProjectConfig configures the Project component.
type ProjectConfig struct {
	Authors []string `toml:"authors"`
	Version string   `toml:"version"`
}

// Project writes Project.toml.
type Project struct {
	noop
	cfg ProjectConfig
}

func (*Project) Name() string { return "Project" }

func (p *Project) Collect(ctx context.Context, env *Env, _ *Template, c *Context) error {
	v, err := versioning.Parse(orDefault(p.cfg.Version, "0.1.0"))
	if err != nil {
		return ionerr.Wrap(ionerr.MalformedConfig, err, "Project.version")
	}
	c.Project.Version = v
	c.Project.UUID = env.NewUUID()

	switch {
	case len(p.cfg.Authors) > 0:
		for _, a := range p.cfg.Authors {
			c.Project.Authors = append(c.Project.Authors, manifest.ParseAuthor(a))
		}
	default:
		authors, err := promptAuthors(env)
		switch {
		case errors.Is(err, ionerr.NotInteractive):
			if c.Git != nil && c.Git.Name != "" {
				a := manifest.ParseAuthor(c.Git.Name)
				a.Email = c.Git.Email
				c.Project.Authors = []manifest.Author{a}
			}
		case err != nil:
			return err
		default:
			c.Project.Authors = authors
		}
	}

	if jv, err := julia.Version(ctx, env.Julia, env.JuliaBinary); err == nil {
		c.Julia = &JuliaInfo{Version: jv.String(), Compat: fmt.Sprintf("%d.%d", jv.Major, jv.Minor)}
	} else {
		logger.Debug("julia version unavailable; skipping compat", logger.Err(err))
	}
	return nil
}

func (p *Project) Render(_ context.Context, _ *Env, _ *Template, c Context) error {
	proj := manifest.New(c.Project.Name, c.Project.UUID).
		WithAuthors(c.Project.Authors).
		WithVersion(c.Project.Version)
	if c.Julia != nil {
		proj = proj.WithCompat("julia", c.Julia.Compat)
	}
	_, err := manifest.Create(c.Project.Dir, proj)
	return err
}

// promptAuthors asks for one or more authors, then whether to credit
// future contributors.
func promptAuthors(env *Env) ([]manifest.Author, error) {
	var authors []manifest.Author
	for {
		a, err := promptAuthor(env)
		if err != nil {
			return nil, err
		}
		authors = append(authors, a)
		more, err := env.Prompter.Confirm("another author of the project?", false)
		if err != nil {
			return nil, err
		}
		if !more {
			break
		}
	}
	include, err := env.Prompter.Confirm("include future contributors as an author?", true)
	if err != nil {
		return nil, err
	}
	if include {
		authors = append(authors, manifest.Contributors)
	}
	return authors, nil
}

func promptAuthor(env *Env) (manifest.Author, error) {
	var a manifest.Author
	first, err := prompt.Require(env.Prompter, "firstname", "")
	if err != nil {
		return a, err
	}
	a.Firstname = first
	for _, f := range []struct {
		label string
		dst   *string
	}{
		{"lastname", &a.Lastname},
		{"email", &a.Email},
		{"url", &a.URL},
		{"affiliation", &a.Affiliation},
		{"orcid", &a.ORCID},
	} {
		v, err := env.Prompter.Input(f.label+" (optional)", "")
		if err != nil {
			return a, err
		}
		*f.dst = strings.TrimSpace(v)
	}
	return a, nil
}

// SrcDirConfig configures the SrcDir component.
type SrcDirConfig struct {
	Template string `toml:"template"`
}

// SrcDir writes src/<Name>.jl.
type SrcDir struct {
	noop
	cfg SrcDirConfig
}

func (*SrcDir) Name() string { return "SrcDir" }

func (s *SrcDir) Render(_ context.Context, _ *Env, t *Template, c Context) error {
	_, err := t.RenderTo(orDefault(s.cfg.Template, "src/module.jl.hbs"), &c, path.Join("src", c.Project.Name+".jl"))
	return err
}

// TestsConfig configures the Tests component.
type TestsConfig struct {
	Template string `toml:"template"`
	Project  string `toml:"project"`
}

// Tests writes the test entry point and its environment.
type Tests struct {
	noop
	cfg TestsConfig
}

func (*Tests) Name() string { return "Tests" }

func (s *Tests) Render(_ context.Context, _ *Env, t *Template, c Context) error {
	if _, err := t.RenderTo(orDefault(s.cfg.Template, "test/runtests.jl.hbs"), &c, "test/runtests.jl"); err != nil {
		return err
	}
	_, err := t.RenderTo(orDefault(s.cfg.Project, "test/Project.toml.hbs"), &c, "test/Project.toml")
	return err
}

// LicenseConfig configures the License component.
type LicenseConfig struct {
	Name   string `toml:"name"`
	Holder string `toml:"holder"`
}

// License picks an SPDX license and writes LICENSE from licenses/<id>.hbs.
type License struct {
	noop
	cfg LicenseConfig
}

func (*License) Name() string { return "License" }

func (l *License) Collect(_ context.Context, env *Env, _ *Template, c *Context) error {
	id := orDefault(l.cfg.Name, "MIT")
	if ok, bad := spdxexp.ValidateLicenses([]string{id}); !ok {
		return ionerr.New(ionerr.MalformedConfig, "License.name: %s is not an SPDX license identifier", strings.Join(bad, ", "))
	}

	holder := l.cfg.Holder
	if holder == "" {
		var names []string
		for _, a := range c.Project.Authors {
			if !a.IsPseudo() && a.Name() != "" {
				names = append(names, a.Name())
			}
		}
		holder = strings.Join(names, ", ")
	}
	if holder == "" && c.Git != nil {
		holder = c.Git.Name
	}
	if holder == "" {
		holder = c.Project.Name + " contributors"
	}
	c.License = &LicenseInfo{Name: id, Holder: holder, Year: env.Now().Year()}
	return nil
}

func (l *License) Render(_ context.Context, _ *Env, t *Template, c Context) error {
	if c.License == nil {
		return missing("license")
	}
	_, err := t.RenderTo(path.Join("licenses", c.License.Name+".hbs"), &c, "LICENSE")
	return err
}

// ReadmeConfig configures the Readme component.
type ReadmeConfig struct {
	Template string `toml:"template"`
}

// Readme writes README.md, including any collected badges.
type Readme struct {
	noop
	cfg ReadmeConfig
}

func (*Readme) Name() string { return "Readme" }

func (r *Readme) Render(_ context.Context, _ *Env, t *Template, c Context) error {
	_, err := t.RenderTo(orDefault(r.cfg.Template, "README.md.hbs"), &c, "README.md")
	return err
}

// CitationConfig configures the Citation component.
type CitationConfig struct {
	Template string `toml:"template"`
}

// Citation writes CITATION.cff.
type Citation struct {
	noop
	cfg CitationConfig
}

func (*Citation) Name() string { return "Citation" }

func (ci *Citation) Render(_ context.Context, _ *Env, t *Template, c Context) error {
	return renderYAML(t, &c, orDefault(ci.cfg.Template, "CITATION.cff.hbs"), "CITATION.cff")
}

// CodecovConfig configures the Codecov component. Without a template no
// file is written.
type CodecovConfig struct {
	Template string `toml:"template"`
}

// Codecov writes .codecov.yml.
type Codecov struct {
	noop
	cfg CodecovConfig
}

func (*Codecov) Name() string { return "Codecov" }

func (cc *Codecov) Collect(_ context.Context, _ *Env, _ *Template, c *Context) error {
	c.Codecov = true
	return nil
}

func (cc *Codecov) Render(_ context.Context, _ *Env, t *Template, c Context) error {
	if cc.cfg.Template == "" {
		return nil
	}
	return renderYAML(t, &c, cc.cfg.Template, ".codecov.yml")
}

// DocumenterConfig configures the Documenter component.
type DocumenterConfig struct {
	Dir string `toml:"dir"`
}

// Documenter renders every docs/**/*.hbs file of the template.
type Documenter struct {
	noop
	cfg DocumenterConfig
}

func (*Documenter) Name() string { return "Documenter" }

func (d *Documenter) Collect(_ context.Context, _ *Env, _ *Template, c *Context) error {
	c.Docs = &DocsInfo{Dir: orDefault(d.cfg.Dir, "docs")}
	return nil
}

func (d *Documenter) Render(_ context.Context, _ *Env, t *Template, c Context) error {
	if c.Docs == nil {
		return missing("docs")
	}
	files, err := t.Glob("docs/**/*.hbs")
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return ionerr.New(ionerr.TemplateNotFound, "template %s has no docs/ files", t.Name)
	}
	for _, f := range files {
		rel := strings.TrimSuffix(strings.TrimPrefix(f, "docs/"), ".hbs")
		if _, err := t.RenderTo(f, &c, path.Join(c.Docs.Dir, rel)); err != nil {
			return err
		}
	}
	return nil
}

// GitHubActionsConfig configures the GitHubActions component.
type GitHubActionsConfig struct {
	CI           string   `toml:"ci"`
	TagBot       *bool    `toml:"tagbot"`
	CompatHelper *bool    `toml:"compathelper"`
	Versions     []string `toml:"versions"`
	OS           []string `toml:"os"`
}

// GitHubActions writes .github/workflows.
type GitHubActions struct {
	noop
	cfg GitHubActionsConfig
}

func (*GitHubActions) Name() string { return "GitHubActions" }

func (g *GitHubActions) Collect(_ context.Context, _ *Env, _ *Template, c *Context) error {
	info := &CIInfo{Versions: g.cfg.Versions, OS: g.cfg.OS}
	if len(info.Versions) == 0 {
		info.Versions = []string{"1.6", "1"}
	}
	if len(info.OS) == 0 {
		info.OS = []string{"ubuntu-latest"}
	}
	c.CI = info
	return nil
}

func (g *GitHubActions) Render(_ context.Context, _ *Env, t *Template, c Context) error {
	files := [][2]string{{orDefault(g.cfg.CI, "workflows/CI.yml.hbs"), "CI.yml"}}
	if boolDefault(g.cfg.TagBot, true) {
		files = append(files, [2]string{"workflows/TagBot.yml.hbs", "TagBot.yml"})
	}
	if boolDefault(g.cfg.CompatHelper, true) {
		files = append(files, [2]string{"workflows/CompatHelper.yml.hbs", "CompatHelper.yml"})
	}
	for _, f := range files {
		if err := renderYAML(t, &c, f[0], path.Join(".github", "workflows", f[1])); err != nil {
			return err
		}
	}
	return nil
}

// RepoConfig configures the Repo component.
type RepoConfig struct {
	Branch string  `toml:"branch"`
	SSH    bool    `toml:"ssh"`
	Suffix *string `toml:"suffix"`
	Ignore string  `toml:"ignore"`
}

// Repo initializes the git repository and makes the first commit.
type Repo struct {
	noop
	cfg RepoConfig
}

func (*Repo) Name() string { return "Repo" }

// InitialCommitMessage is the subject of the generated commit.
const InitialCommitMessage = "files generated"

func (r *Repo) Collect(_ context.Context, _ *Env, _ *Template, c *Context) error {
	if c.Git == nil || c.Git.GitHubUser == "" {
		return missing("GitHub user (set github.user in git config or ion.yaml)")
	}
	suffix := ".jl"
	if r.cfg.Suffix != nil {
		suffix = *r.cfg.Suffix
	}
	user := c.Git.GitHubUser
	name := c.Project.Name + suffix
	info := &RepoInfo{
		Host:   "github.com",
		Owner:  user,
		Name:   name,
		URL:    "https://github.com/" + user + "/" + name,
		Remote: "https://github.com/" + user + "/" + name + ".git",
		Branch: orDefault(r.cfg.Branch, "main"),
	}
	if r.cfg.SSH {
		info.Remote = "git@github.com:" + user + "/" + name + ".git"
	}
	c.Repo = info
	return nil
}

func (r *Repo) Render(ctx context.Context, env *Env, t *Template, c Context) error {
	if c.Repo == nil {
		return missing("repo")
	}
	if _, err := t.RenderTo(orDefault(r.cfg.Ignore, ".gitignore.hbs"), &c, ".gitignore"); err != nil {
		return err
	}
	repo := env.repo(c.Project.Dir)
	if err := repo.Init(ctx); err != nil {
		return err
	}
	if err := repo.SetHeadBranch(ctx, c.Repo.Branch); err != nil {
		return err
	}
	return repo.AddRemote(ctx, "origin", c.Repo.Remote)
}

func (r *Repo) PostRender(ctx context.Context, env *Env, _ *Template, c Context) error {
	repo := env.repo(c.Project.Dir)
	if err := repo.AddAll(ctx); err != nil {
		return err
	}
	return repo.Commit(ctx, InitialCommitMessage, false)
}

// Badges adds README badges for components collected before it.
type Badges struct {
	noop
}

func (*Badges) Name() string { return "Badges" }

func (*Badges) Collect(_ context.Context, _ *Env, _ *Template, c *Context) error {
	if c.Repo == nil {
		return missing("repo (list Repo before Badges)")
	}
	slug := c.Repo.Owner + "/" + c.Repo.Name
	branch := c.Repo.Branch
	if c.Docs != nil {
		pages := "https://" + c.Repo.Owner + ".github.io/" + c.Repo.Name
		c.Badges = append(c.Badges,
			Badge{Alt: "Stable", Image: "https://img.shields.io/badge/docs-stable-blue.svg", Link: pages + "/stable/"},
			Badge{Alt: "Dev", Image: "https://img.shields.io/badge/docs-dev-blue.svg", Link: pages + "/dev/"},
		)
	}
	if c.CI != nil {
		c.Badges = append(c.Badges, Badge{
			Alt:   "Build Status",
			Image: "https://github.com/" + slug + "/actions/workflows/CI.yml/badge.svg?branch=" + branch,
			Link:  "https://github.com/" + slug + "/actions/workflows/CI.yml?query=branch%3A" + branch,
		})
	}
	if c.Codecov {
		c.Badges = append(c.Badges, Badge{
			Alt:   "Coverage",
			Image: "https://codecov.io/gh/" + slug + "/branch/" + branch + "/graph/badge.svg",
			Link:  "https://codecov.io/gh/" + slug,
		})
	}
	return nil
}
