// Package release drives a version bump from manifest edit to registry
// submission.
package release

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/fulmenhq/ion/internal/gitctx"
	"github.com/fulmenhq/ion/pkg/ionerr"
	"github.com/fulmenhq/ion/pkg/logger"
	"github.com/fulmenhq/ion/pkg/manifest"
	"github.com/fulmenhq/ion/pkg/prompt"
	"github.com/fulmenhq/ion/pkg/registry"
	"github.com/fulmenhq/ion/pkg/report"
	"github.com/fulmenhq/ion/pkg/safeio"
	"github.com/fulmenhq/ion/pkg/versioning"
)

// Git is the subset of the git facade the pipeline drives.
type Git interface {
	report.History
	CurrentBranch(ctx context.Context) (string, error)
	DefaultBranch(ctx context.Context) (string, error)
	IsDirty(ctx context.Context) (bool, error)
	IsDirtyCached(ctx context.Context) (bool, error)
	Commit(ctx context.Context, msg string, all bool) error
	Push(ctx context.Context) error
	SHA(ctx context.Context, ref string) (string, error)
	Remote(ctx context.Context) (gitctx.RemoteRepo, error)
	TreeSHA(rev string) (string, error)
	LatestTag(limit *versioning.Version) (gitctx.Tag, bool, error)
}

// Submitter requests registration of a released version.
type Submitter interface {
	Submit(ctx context.Context, reg registry.Registration) error
}

// Init is a pipeline that has found its manifest but has no target yet.
type Init struct {
	project *manifest.Project
}

// RootProject locates the manifest governing path.
func RootProject(path string) (*Init, error) {
	p, err := manifest.RootProject(path)
	if err != nil {
		return nil, err
	}
	return &Init{project: p}, nil
}

// FromProject starts a pipeline for an already loaded manifest.
func FromProject(p *manifest.Project) *Init { return &Init{project: p} }

// Project returns the manifest the pipeline will modify.
func (i *Init) Project() *manifest.Project { return i.project }

// Bump sets the target version expression.
func (i *Init) Bump(spec versioning.Spec) *Pipeline {
	return &Pipeline{project: i.project, spec: spec}
}

// Pipeline accumulates release options. Nothing happens until Write.
type Pipeline struct {
	project *manifest.Project
	spec    versioning.Spec

	registry     *registry.Registry
	registryName string
	depot        string
	branch       string
	confirm      *bool
	commit       *bool
	report       *bool

	git        Git
	prompter   prompt.Prompter
	submitter  Submitter
	out        io.Writer
	reportOut  io.Writer
	reportPath string

	state State
	notes string
}

// Registry sets the registry to check against and register with.
func (p *Pipeline) Registry(r *registry.Registry) *Pipeline {
	p.registry = r
	return p
}

// RegistryName selects a registry to load from the depot at Write time.
func (p *Pipeline) RegistryName(name, depot string) *Pipeline {
	p.registryName, p.depot = name, depot
	return p
}

// Branch sets the release branch. Empty means the remote default branch.
func (p *Pipeline) Branch(name string) *Pipeline {
	p.branch = name
	return p
}

// Confirm toggles the interactive confirmation.
func (p *Pipeline) Confirm(v bool) *Pipeline {
	p.confirm = &v
	return p
}

// Commit toggles committing, pushing and registering.
func (p *Pipeline) Commit(v bool) *Pipeline {
	p.commit = &v
	return p
}

// Report toggles release notes generation.
func (p *Pipeline) Report(v bool) *Pipeline {
	p.report = &v
	return p
}

// WithGit replaces the git facade.
func (p *Pipeline) WithGit(g Git) *Pipeline {
	p.git = g
	return p
}

// WithPrompter replaces the confirmation prompter.
func (p *Pipeline) WithPrompter(pr prompt.Prompter) *Pipeline {
	p.prompter = pr
	return p
}

// WithSubmitter sets how registration is requested.
func (p *Pipeline) WithSubmitter(s Submitter) *Pipeline {
	p.submitter = s
	return p
}

// WithOutput sets where the confirmation summary and report are printed.
func (p *Pipeline) WithOutput(w io.Writer) *Pipeline {
	p.out = w
	return p
}

// ReportFile writes the release notes to path instead of the output.
func (p *Pipeline) ReportFile(path string) *Pipeline {
	p.reportPath = path
	return p
}

// State returns how far the last Write got.
func (p *Pipeline) State() State { return p.state }

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

type resolved struct {
	confirm, commit, report bool
	registry                *registry.Registry
	registryLabel           string
}

// defaults are applied once, when Write starts.
func (p *Pipeline) defaults(ctx context.Context) (resolved, error) {
	r := resolved{
		confirm:  boolOr(p.confirm, true),
		commit:   boolOr(p.commit, true),
		report:   boolOr(p.report, true),
		registry: p.registry,
	}
	if p.git == nil {
		p.git = gitctx.Open(p.project.Dir(), nil)
	}
	if p.prompter == nil {
		p.prompter = prompt.NewTerminal().WithContext(ctx)
	}
	if p.out == nil {
		p.out = os.Stdout
	}
	if r.registry == nil {
		name := p.registryName
		if name == "" {
			name = registry.DefaultName
		}
		reg, err := registry.Read(p.depot, name)
		if err != nil {
			return r, err
		}
		r.registry = reg
	}
	r.registryLabel = r.registry.Name
	if r.registryLabel == "" {
		r.registryLabel = p.registryName
	}
	return r, nil
}

// Write runs the release. It fails fast; nothing done after the manifest
// update is rolled back, and such failures are reported as *StepError.
func (p *Pipeline) Write(ctx context.Context) error {
	p.state = StateInit
	opts, err := p.defaults(ctx)
	if err != nil {
		return err
	}

	current, err := p.project.CurrentVersion()
	if err != nil {
		return err
	}

	target := p.spec.Apply(current)
	if p.spec.Kind != versioning.SpecCurrent && !target.GreaterThan(current) {
		return ionerr.New(ionerr.NotAStrictIncrease, "%s does not succeed the current version %s", target, current)
	}
	p.state = StateTargeted
	logger.Debug("release target", logger.String("current", current.String()), logger.String("target", target.String()))

	if err := p.checkRegistry(opts.registry, target); err != nil {
		return err
	}

	if opts.commit {
		if err := p.checkClean(ctx); err != nil {
			return err
		}
	}

	branch, err := p.checkBranch(ctx)
	if err != nil {
		return err
	}
	p.state = StateValidated

	if opts.confirm {
		p.printSummary(current, target, branch, opts)
		ok, err := p.prompter.Confirm("Proceed with this release?", false)
		if err != nil {
			return err
		}
		if !ok {
			return ionerr.New(ionerr.UserAborted, "release cancelled")
		}
	}
	p.state = StateConfirmed

	mutated := target.String() != current.String()
	if mutated {
		if err := manifest.Write(p.project.Path, p.project.WithVersion(target)); err != nil {
			return err
		}
		logger.Info("manifest updated", logger.String("file", p.project.Path), logger.String("version", target.String()))
	}
	p.state = StateMutated

	if opts.report {
		p.writeReport(ctx, current, target)
	}

	if !opts.commit {
		logger.Info("skipping commit and registration", logger.String("version", target.String()))
		return nil
	}

	if err := p.commitAndPush(ctx, target, mutated); err != nil {
		return err
	}
	p.state = StateCommitted

	if err := p.register(ctx, target, branch, opts.registryLabel); err != nil {
		return err
	}
	p.state = StateRegistered
	return nil
}

func (p *Pipeline) checkRegistry(reg *registry.Registry, target versioning.Version) error {
	entry, err := reg.LookupByUUID(p.project.UUID)
	if errors.Is(err, ionerr.PackageNotInRegistry) {
		logger.Info("package is not registered yet", logger.String("package", p.project.Name), logger.String("registry", reg.Name))
		return nil
	}
	if err != nil {
		return err
	}
	latest, ok := entry.LatestVersion()
	if !ok {
		return nil
	}
	if !target.GreaterThan(latest) {
		return ionerr.New(ionerr.VersionRegressesRegistry,
			"%s %s is not newer than %s, the latest version in %s", p.project.Name, target, latest, reg.Name)
	}
	return nil
}

func (p *Pipeline) checkClean(ctx context.Context) error {
	dirty, err := p.git.IsDirty(ctx)
	if err != nil {
		return err
	}
	cached, err := p.git.IsDirtyCached(ctx)
	if err != nil {
		return err
	}
	if dirty || cached {
		return ionerr.New(ionerr.WorkingTreeDirty, "working tree has uncommitted changes; commit or stash them first")
	}
	return nil
}

func (p *Pipeline) checkBranch(ctx context.Context) (string, error) {
	current, err := p.git.CurrentBranch(ctx)
	if err != nil {
		return "", err
	}
	want := p.branch
	if want == "" {
		def, err := p.git.DefaultBranch(ctx)
		if err != nil {
			logger.Warn("cannot determine the default branch; releasing from the current branch",
				logger.String("branch", current), logger.Err(err))
			return current, nil
		}
		want = def
	}
	if current != want {
		return "", ionerr.New(ionerr.WrongBranch, "on branch %q, but releases are made from %q", current, want)
	}
	return want, nil
}

func (p *Pipeline) printSummary(current, target versioning.Version, branch string, opts resolved) {
	rows := [][2]string{
		{"package", p.project.Name},
		{"version", current.String() + " → " + target.String()},
		{"branch", branch},
		{"registry", opts.registryLabel},
		{"commit", fmt.Sprintf("%t", opts.commit)},
	}
	width := 0
	for _, r := range rows {
		width = max(width, runewidth.StringWidth(r[0]))
	}
	_, _ = fmt.Fprintln(p.out)
	for _, r := range rows {
		_, _ = fmt.Fprintf(p.out, "  %s  %s\n", runewidth.FillRight(r[0], width), r[1])
	}
	_, _ = fmt.Fprintln(p.out)
}

// writeReport never fails the release; problems are logged.
func (p *Pipeline) writeReport(ctx context.Context, current, target versioning.Version) {
	req := report.Request{Name: p.project.Name, NewRef: "HEAD", NewVersion: target.String()}
	if tag, ok, err := p.git.LatestTag(&current); err != nil {
		logger.Warn("cannot list tags for the release report", logger.Err(err))
		return
	} else if ok {
		req.OldRef, req.OldVersion = tag.Name, tag.Version.String()
	}
	if remote, err := p.git.Remote(ctx); err == nil {
		req.RepoURL = remote.URL()
	}

	rep, err := report.Build(ctx, p.git, req)
	if err != nil {
		logger.Warn("cannot build the release report", logger.Err(err))
		return
	}
	md, err := rep.Markdown()
	if err != nil {
		logger.Warn("cannot render the release report", logger.Err(err))
		return
	}
	p.notes = md

	if p.reportPath != "" {
		if err := safeio.WriteFileAtomic(p.reportPath, []byte(md)); err != nil {
			logger.Warn("cannot write the release report", logger.String("file", p.reportPath), logger.Err(err))
		}
		return
	}
	w := p.reportOut
	if w == nil {
		w = p.out
	}
	_, _ = io.WriteString(w, md)
}

func (p *Pipeline) manifestName() string {
	return filepath.Base(p.project.Path)
}

func (p *Pipeline) commitAndPush(ctx context.Context, target versioning.Version, mutated bool) error {
	if mutated {
		if err := p.git.Commit(ctx, "bump version to "+target.String(), true); err != nil {
			return &StepError{
				Step: StepCommit,
				Recovery: fmt.Sprintf("%s now declares %s; commit it yourself or undo with `git checkout -- %s`",
					p.manifestName(), target, p.manifestName()),
				Err: err,
			}
		}
	}
	if err := p.git.Push(ctx); err != nil {
		return &StepError{
			Step:     StepCommit,
			Recovery: "the release commit exists only locally; run `git push`, then `ion bump current` to request registration",
			Err:      err,
		}
	}
	return nil
}

func (p *Pipeline) register(ctx context.Context, target versioning.Version, branch, registryName string) error {
	fail := func(err error) error {
		return &StepError{
			Step:     StepRegister,
			Recovery: "the release commit is pushed; rerun `ion bump current` or comment `@JuliaRegistrator register` on it",
			Err:      err,
		}
	}
	if p.submitter == nil {
		return fail(ionerr.New(ionerr.RegistrationError, "no registration channel configured"))
	}
	sha, err := p.git.SHA(ctx, "HEAD")
	if err != nil {
		return fail(err)
	}
	tree, err := p.git.TreeSHA(sha)
	if err != nil {
		return fail(err)
	}
	remote, err := p.git.Remote(ctx)
	if err != nil {
		return fail(err)
	}

	reg := registry.Registration{
		Registry:  registryName,
		Package:   p.project.Name,
		UUID:      p.project.UUID.String(),
		Owner:     remote.Owner,
		Repo:      remote.Name,
		RepoURL:   remote.URL(),
		CommitSHA: sha,
		TreeSHA:   tree,
		Version:   target,
		Branch:    branch,
		Notes:     strings.TrimSpace(p.notes),
	}
	if err := p.submitter.Submit(ctx, reg); err != nil {
		return fail(err)
	}
	logger.Info("registration submitted", logger.String("package", reg.Package), logger.String("version", target.String()))
	return nil
}
