package blueprint

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fulmenhq/ion/internal/gitctx"
	"github.com/fulmenhq/ion/pkg/ionerr"
	"github.com/fulmenhq/ion/pkg/julia"
	"github.com/fulmenhq/ion/pkg/prompt"
)

// Component is one unit of a template. Collect may prompt and fills the
// context; Render writes files; PostRender runs side effects that need
// every file in place. Embed noop for the phases a component skips.
type Component interface {
	Name() string
	Collect(ctx context.Context, env *Env, t *Template, c *Context) error
	Render(ctx context.Context, env *Env, t *Template, c Context) error
	PostRender(ctx context.Context, env *Env, t *Template, c Context) error
}

type noop struct{}

func (noop) Collect(context.Context, *Env, *Template, *Context) error { return nil }
func (noop) Render(context.Context, *Env, *Template, Context) error { return nil }
func (noop) PostRender(context.Context, *Env, *Template, Context) error { return nil }

// Catalog lists every component a template may name, in the order they
// usually appear.
var Catalog = []string{
	"Project", "SrcDir", "Tests", "License", "Readme", "Citation",
	"Codecov", "Documenter", "GitHubActions", "Repo", "Badges",
}

func newComponent(name string, f *templateFile) (Component, error) {
	switch name {
	case "Project":
		return &Project{cfg: f.Project}, nil
	case "SrcDir":
		return &SrcDir{cfg: f.SrcDir}, nil
	case "Tests":
		return &Tests{cfg: f.Tests}, nil
	case "License":
		return &License{cfg: f.License}, nil
	case "Readme":
		return &Readme{cfg: f.Readme}, nil
	case "Citation":
		return &Citation{cfg: f.Citation}, nil
	case "Codecov":
		return &Codecov{cfg: f.Codecov}, nil
	case "Documenter":
		return &Documenter{cfg: f.Documenter}, nil
	case "GitHubActions":
		return &GitHubActions{cfg: f.GitHubActions}, nil
	case "Repo":
		return &Repo{cfg: f.Repo}, nil
	case "Badges":
		return &Badges{}, nil
	default:
		return nil, ionerr.New(ionerr.MalformedConfig, "unknown component %q", name)
	}
}

// Env carries the collaborators components use.
type Env struct {
	Prompter    prompt.Prompter
	Git         gitctx.Runner
	Julia       julia.Runner
	JuliaBinary string
	// GitHubUser is used when git config has no github.user.
	GitHubUser string
	Now        func() time.Time
	NewUUID    func() uuid.UUID
}

func (e *Env) defaults(ctx context.Context) {
	if e.Prompter == nil {
		e.Prompter = prompt.NewTerminal().WithContext(ctx)
	}
	if e.Julia == nil {
		e.Julia = julia.ExecRunner{}
	}
	if e.JuliaBinary == "" {
		e.JuliaBinary = julia.DefaultBinary
	}
	if e.Now == nil {
		e.Now = time.Now
	}
	if e.NewUUID == nil {
		e.NewUUID = uuid.New
	}
}

func (e *Env) repo(dir string) *gitctx.Repo {
	return gitctx.Open(dir, e.Git)
}

func missing(what string) error {
	return ionerr.New(ionerr.ComponentFailed, "missing prerequisite: %s", what)
}
