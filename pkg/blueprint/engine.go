package blueprint

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/fulmenhq/ion/pkg/ionerr"
	"github.com/fulmenhq/ion/pkg/logger"
)

// Phase is one pass over a template's components.
type Phase int

const (
	PhaseCollect Phase = iota
	PhaseRender
	PhasePostRender
)

func (p Phase) String() string {
	switch p {
	case PhaseCollect:
		return "collect"
	case PhaseRender:
		return "render"
	case PhasePostRender:
		return "post-render"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

var packageName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Generate creates <parent>/<name> from t. Every component collects, then
// every component renders, then every component runs post-render, each
// pass in declared order. The first error stops generation; files already
// written stay in place.
func Generate(ctx context.Context, env *Env, t *Template, name, parent string) (*Context, error) {
	env.defaults(ctx)

	name = strings.TrimSuffix(name, ".jl")
	if !packageName.MatchString(name) {
		return nil, ionerr.New(ionerr.UsageError, "%q is not a valid package name", name)
	}
	dir, err := filepath.Abs(filepath.Join(parent, name))
	if err != nil {
		return nil, ionerr.Wrap(ionerr.UsageError, err, "resolve %s", parent)
	}
	if err := prepareDir(dir); err != nil {
		return nil, err
	}

	c := &Context{Project: ProjectInfo{Name: name, Dir: dir}}
	c.Git = discoverUser(ctx, env, dir)

	if err := Run(ctx, env, t, c); err != nil {
		return c, err
	}
	logger.Info("package generated", logger.String("name", name), logger.String("dir", dir), logger.String("template", t.Name))
	return c, nil
}

// Run drives the three passes over an already prepared context.
func Run(ctx context.Context, env *Env, t *Template, c *Context) error {
	for _, comp := range t.Components {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := comp.Collect(ctx, env, t, c); err != nil {
			return componentError(comp, PhaseCollect, err)
		}
	}

	for _, phase := range []Phase{PhaseRender, PhasePostRender} {
		for _, comp := range t.Components {
			if err := ctx.Err(); err != nil {
				return err
			}
			var err error
			if phase == PhaseRender {
				err = comp.Render(ctx, env, t, c.Clone())
			} else {
				err = comp.PostRender(ctx, env, t, c.Clone())
			}
			if err != nil {
				return componentError(comp, phase, err)
			}
		}
	}
	return nil
}

// componentError keeps user-facing kinds intact and classifies the rest as
// ComponentFailed.
func componentError(comp Component, phase Phase, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	switch ionerr.KindOf(err) {
	case ionerr.UserAborted, ionerr.NotInteractive, ionerr.TemplateNotFound,
		ionerr.MalformedConfig, ionerr.RenderFailed, ionerr.ComponentFailed:
		return fmt.Errorf("%s %s: %w", comp.Name(), phase, err)
	}
	return ionerr.Wrap(ionerr.ComponentFailed, err, "%s %s", comp.Name(), phase)
}

func prepareDir(dir string) error {
	entries, err := os.ReadDir(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return ionerr.Wrap(ionerr.UsageError, err, "inspect %s", dir)
	case len(entries) > 0:
		return ionerr.New(ionerr.UsageError, "%s already exists and is not empty", dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ionerr.Wrap(ionerr.ComponentFailed, err, "create %s", dir)
	}
	return nil
}

// discoverUser reads the author identity from git config. It returns nil
// when nothing is configured.
func discoverUser(ctx context.Context, env *Env, dir string) *GitUser {
	repo := env.repo(dir)
	get := func(key string) string {
		v, err := repo.ConfigGet(ctx, key)
		if err != nil {
			logger.Debug("git config lookup failed", logger.String("key", key), logger.Err(err))
			return ""
		}
		return v
	}
	u := &GitUser{Name: get("user.name"), Email: get("user.email"), GitHubUser: get("github.user")}
	if u.GitHubUser == "" {
		u.GitHubUser = env.GitHubUser
	}
	if *u == (GitUser{}) {
		return nil
	}
	return u
}
