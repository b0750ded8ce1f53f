package release

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulmenhq/ion/internal/gitctx"
	"github.com/fulmenhq/ion/internal/gitctx/gittest"
	"github.com/fulmenhq/ion/pkg/ionerr"
	"github.com/fulmenhq/ion/pkg/manifest"
	"github.com/fulmenhq/ion/pkg/prompt"
	"github.com/fulmenhq/ion/pkg/registry"
	"github.com/fulmenhq/ion/pkg/versioning"
)

const exampleUUID = "7876af07-990d-54b4-ab0e-23690620f79a"

func projectTOML(version string) string {
	return `name = "Example"
uuid = "` + exampleUUID + `"
authors = ["Jane Doe <jane@example.org>"]
version = "` + version + `"

[deps]
`
}

// registryWith writes a registry in which Example has the given versions.
func registryWith(t *testing.T, versions ...string) *registry.Registry {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"Registry.toml": `name = "General"
uuid = "23338594-aafe-5451-b93e-139f81909106"

[packages]
` + exampleUUID + ` = { name = "Example", path = "E/Example" }
`,
		"E/Example/Package.toml": `name = "Example"
uuid = "` + exampleUUID + `"
repo = "https://github.com/acme/Example.jl.git"
`,
	}
	var vs strings.Builder
	for _, v := range versions {
		vs.WriteString(`["` + v + `"]` + "\ngit-tree-sha1 = \"0000\"\n\n")
	}
	files["E/Example/Versions.toml"] = vs.String()
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	reg, err := registry.Load(dir)
	require.NoError(t, err)
	return reg
}

type fakeSubmitter struct {
	got []registry.Registration
	err error
}

func (f *fakeSubmitter) Submit(_ context.Context, reg registry.Registration) error {
	f.got = append(f.got, reg)
	return f.err
}

type fixture struct {
	repo      *gittest.Repo
	bare      string
	submitter *fakeSubmitter
	out       bytes.Buffer
}

func newFixture(t *testing.T, version string) *fixture {
	t.Helper()
	r := gittest.New(t)
	r.CommitFile("Project.toml", projectTOML(version), "initial")
	r.CommitFile("src/Example.jl", "module Example end\n", "add module")
	f := &fixture{repo: r, submitter: &fakeSubmitter{}}
	f.bare = r.Origin("https://github.com/acme/Example.jl.git")
	return f
}

func (f *fixture) pipeline(t *testing.T, spec versioning.Spec, reg *registry.Registry) *Pipeline {
	t.Helper()
	start, err := RootProject(f.repo.Dir)
	require.NoError(t, err)
	return start.Bump(spec).
		Registry(reg).
		WithGit(gitctx.Open(f.repo.Dir, nil)).
		WithPrompter(prompt.NonInteractive{}).
		WithSubmitter(f.submitter).
		WithOutput(&f.out).
		Confirm(false).
		Report(false)
}

func (f *fixture) version(t *testing.T) string {
	t.Helper()
	p, err := manifest.Read(filepath.Join(f.repo.Dir, "Project.toml"))
	require.NoError(t, err)
	v, err := p.CurrentVersion()
	require.NoError(t, err)
	return v.String()
}

func TestWriteWithoutCommit(t *testing.T) {
	f := newFixture(t, "0.2.3")
	head := f.repo.Git("rev-parse", "HEAD")

	p := f.pipeline(t, versioning.Patch, registryWith(t, "0.2.3")).Commit(false)
	require.NoError(t, p.Write(context.Background()))

	assert.Equal(t, "0.2.4", f.version(t))
	assert.Equal(t, StateMutated, p.State())
	assert.Equal(t, head, f.repo.Git("rev-parse", "HEAD"), "no commit")
	assert.Contains(t, f.repo.Git("status", "--porcelain"), "Project.toml")
	assert.Empty(t, f.submitter.got)
}

func TestWriteFullRelease(t *testing.T) {
	f := newFixture(t, "0.2.3")

	p := f.pipeline(t, versioning.Minor, registryWith(t, "0.1.0", "0.2.3"))
	require.NoError(t, p.Write(context.Background()))

	assert.Equal(t, StateRegistered, p.State())
	assert.Equal(t, "0.3.0", f.version(t))
	assert.Equal(t, "bump version to 0.3.0", f.repo.Git("log", "-1", "--format=%s"))

	head := f.repo.Git("rev-parse", "HEAD")
	assert.Equal(t, head, gittest.BareGit(t, f.bare, "rev-parse", "main"), "pushed")

	require.Len(t, f.submitter.got, 1)
	reg := f.submitter.got[0]
	assert.Equal(t, "General", reg.Registry)
	assert.Equal(t, "Example", reg.Package)
	assert.Equal(t, exampleUUID, reg.UUID)
	assert.Equal(t, "acme", reg.Owner)
	assert.Equal(t, "Example.jl", reg.Repo)
	assert.Equal(t, head, reg.CommitSHA)
	assert.Equal(t, f.repo.Git("rev-parse", "HEAD^{tree}"), reg.TreeSHA)
	assert.Equal(t, "0.3.0", reg.Version.String())
	assert.Equal(t, "main", reg.Branch)
}

func TestWriteRejectsNonIncrease(t *testing.T) {
	f := newFixture(t, "0.2.3")

	for _, lit := range []string{"0.2.2", "0.2.3"} {
		p := f.pipeline(t, versioning.Literal(versioning.MustParse(lit)), registryWith(t))
		err := p.Write(context.Background())
		require.Error(t, err, lit)
		assert.True(t, errors.Is(err, ionerr.NotAStrictIncrease), lit)
		assert.Equal(t, StateInit, p.State())
	}
	assert.Equal(t, "0.2.3", f.version(t))
	assert.Empty(t, f.repo.Git("status", "--porcelain"))
}

func TestWriteRejectsRegistryRegression(t *testing.T) {
	f := newFixture(t, "0.2.3")

	p := f.pipeline(t, versioning.Patch, registryWith(t, "0.2.3", "0.2.5"))
	err := p.Write(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ionerr.VersionRegressesRegistry))
	assert.Contains(t, err.Error(), "0.2.5")
	assert.Equal(t, "0.2.3", f.version(t))
}

func TestWriteUnregisteredPackage(t *testing.T) {
	f := newFixture(t, "0.1.0")

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Registry.toml"),
		[]byte("name = \"General\"\n\n[packages]\n"), 0o644))
	reg, err := registry.Load(dir)
	require.NoError(t, err)

	p := f.pipeline(t, versioning.Patch, reg).Commit(false)
	require.NoError(t, p.Write(context.Background()))
	assert.Equal(t, "0.1.1", f.version(t))
}

func TestWriteWrongBranch(t *testing.T) {
	f := newFixture(t, "0.2.3")
	f.repo.Git("checkout", "-q", "-b", "feature")

	p := f.pipeline(t, versioning.Patch, registryWith(t, "0.2.3")).Branch("main")
	err := p.Write(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ionerr.WrongBranch))
	assert.Equal(t, "0.2.3", f.version(t))
	assert.Empty(t, f.repo.Git("status", "--porcelain"))
	assert.Empty(t, f.submitter.got)
}

func TestWriteDirtyTree(t *testing.T) {
	f := newFixture(t, "0.2.3")
	f.repo.Write("src/Example.jl", "module Example\nend\n")

	err := f.pipeline(t, versioning.Patch, registryWith(t)).Write(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ionerr.WorkingTreeDirty))
	assert.Equal(t, "0.2.3", f.version(t))
}

func TestWriteDirtyTreeAllowedWithoutCommit(t *testing.T) {
	f := newFixture(t, "0.2.3")
	f.repo.Write("src/Example.jl", "module Example\nend\n")

	err := f.pipeline(t, versioning.Patch, registryWith(t)).Commit(false).Write(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0.2.4", f.version(t))
}

func TestWriteConfirmation(t *testing.T) {
	f := newFixture(t, "0.2.3")
	answers := prompt.NewScripted("n")

	p := f.pipeline(t, versioning.Patch, registryWith(t, "0.2.3")).
		Confirm(true).
		WithPrompter(answers)
	err := p.Write(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ionerr.UserAborted))
	assert.Equal(t, "0.2.3", f.version(t))
	assert.Len(t, answers.Questions, 1)

	out := f.out.String()
	assert.Contains(t, out, "package   Example")
	assert.Contains(t, out, "0.2.3 → 0.2.4")
	assert.Contains(t, out, "registry  General")
}

func TestWriteConfirmationNeedsTerminal(t *testing.T) {
	f := newFixture(t, "0.2.3")

	err := f.pipeline(t, versioning.Patch, registryWith(t)).Confirm(true).Write(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ionerr.NotInteractive))
	assert.Equal(t, "0.2.3", f.version(t))
}

func TestWritePushFailureReportsRecovery(t *testing.T) {
	f := newFixture(t, "0.2.3")
	f.repo.Git("remote", "set-url", "--push", "origin", filepath.Join(t.TempDir(), "missing.git"))

	p := f.pipeline(t, versioning.Patch, registryWith(t))
	err := p.Write(context.Background())
	require.Error(t, err)

	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, StepCommit, stepErr.Step)
	assert.Contains(t, stepErr.Recovery, "git push")
	assert.True(t, errors.Is(err, ionerr.GitError))
	assert.Equal(t, StateMutated, p.State())
	assert.Equal(t, "bump version to 0.2.4", f.repo.Git("log", "-1", "--format=%s"), "commit kept")
	assert.Empty(t, f.submitter.got)
}

func TestWriteRegistrationFailureReportsRecovery(t *testing.T) {
	f := newFixture(t, "0.2.3")
	f.submitter.err = ionerr.New(ionerr.RegistrationError, "GitHub rejected the token")

	p := f.pipeline(t, versioning.Patch, registryWith(t))
	err := p.Write(context.Background())
	require.Error(t, err)

	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, StepRegister, stepErr.Step)
	assert.Contains(t, stepErr.Recovery, "ion bump current")
	assert.True(t, errors.Is(err, ionerr.RegistrationError))
	assert.Equal(t, StateCommitted, p.State())
	assert.Len(t, f.submitter.got, 1)
}

func TestWriteCurrentRegistersWithoutCommit(t *testing.T) {
	f := newFixture(t, "0.2.4")
	head := f.repo.Git("rev-parse", "HEAD")

	p := f.pipeline(t, versioning.Current, registryWith(t, "0.2.3"))
	require.NoError(t, p.Write(context.Background()))

	assert.Equal(t, head, f.repo.Git("rev-parse", "HEAD"), "nothing to commit")
	require.Len(t, f.submitter.got, 1)
	assert.Equal(t, "0.2.4", f.submitter.got[0].Version.String())
}

func TestWriteReportGoesToFile(t *testing.T) {
	f := newFixture(t, "0.2.3")
	f.repo.Tag("v0.2.3")
	f.repo.CommitFile("NEWS.md", "news\n", "Add news (#7)")
	f.repo.Git("push", "-q")
	notes := filepath.Join(t.TempDir(), "notes.md")

	p := f.pipeline(t, versioning.Patch, registryWith(t, "0.2.3")).
		Report(true).
		ReportFile(notes)
	require.NoError(t, p.Write(context.Background()))

	data, err := os.ReadFile(notes)
	require.NoError(t, err)
	md := string(data)
	assert.Contains(t, md, "# Example v0.2.4")
	assert.Contains(t, md, "https://github.com/acme/Example.jl/compare/v0.2.3...HEAD")
	assert.Contains(t, md, "Add news (#7)")

	require.Len(t, f.submitter.got, 1)
	assert.Contains(t, f.submitter.got[0].Notes, "Add news")
}

func TestWriteWithoutCommitRunsNoMutatingGit(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Project.toml"), []byte(projectTOML("1.0.0")), 0o644))
	runner := gitctx.NewFakeRunner().
		OnOutput("main", "rev-parse", "--abbrev-ref", "HEAD").
		OnOutput("refs/remotes/origin/main", "symbolic-ref", "refs/remotes/origin/HEAD")

	start, err := RootProject(dir)
	require.NoError(t, err)
	p := start.Bump(versioning.Major).
		Registry(registryWith(t, "1.0.0")).
		WithGit(gitctx.Open(dir, runner)).
		WithOutput(&bytes.Buffer{}).
		Confirm(false).
		Commit(false).
		Report(false)
	require.NoError(t, p.Write(context.Background()))

	for _, cmd := range runner.Commands() {
		assert.NotContains(t, cmd, "commit", cmd)
		assert.NotContains(t, cmd, "push", cmd)
	}
	data, err := os.ReadFile(filepath.Join(dir, "Project.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `version = "2.0.0"`)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "registered", StateRegistered.String())
	assert.Equal(t, "State(42)", State(42).String())
	assert.Equal(t, "submit registration", StepRegister.String())
}
