package gitctx

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/fulmenhq/ion/pkg/ionerr"
)

// Repo runs git operations in one working directory. It caches nothing.
type Repo struct {
	Dir    string
	runner Runner
}

// Open returns a facade for dir. A nil runner uses the git binary on PATH.
func Open(dir string, runner Runner) *Repo {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Repo{Dir: dir, runner: runner}
}

// Commit is one entry of git log.
type Commit struct {
	SHA         string
	Subject     string
	AuthorName  string
	AuthorEmail string
	Body        string
}

func (r *Repo) exec(ctx context.Context, args ...string) (Result, error) {
	return r.runner.Run(ctx, r.Dir, args...)
}

// output runs git and returns trimmed stdout, failing on nonzero exit.
func (r *Repo) output(ctx context.Context, args ...string) (string, error) {
	res, err := r.exec(ctx, args...)
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", gitFailure(args, res)
	}
	return strings.TrimSpace(res.Stdout), nil
}

func gitFailure(args []string, res Result) error {
	msg := strings.TrimSpace(res.Stderr)
	if msg == "" {
		msg = strings.TrimSpace(res.Stdout)
	}
	if msg == "" {
		return ionerr.New(ionerr.GitError, "%s exited with status %d", describe(args), res.ExitCode)
	}
	return ionerr.New(ionerr.GitError, "%s: %s", describe(args), firstLine(msg))
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}

// CurrentBranch returns the checked-out branch name.
func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	return r.output(ctx, "rev-parse", "--abbrev-ref", "HEAD")
}

// DefaultBranch returns the branch origin/HEAD points at.
func (r *Repo) DefaultBranch(ctx context.Context) (string, error) {
	ref, err := r.output(ctx, "symbolic-ref", "refs/remotes/origin/HEAD")
	if err != nil {
		return "", err
	}
	if ref == "" {
		return "", ionerr.New(ionerr.GitError, "origin/HEAD is empty")
	}
	return ref[strings.LastIndex(ref, "/")+1:], nil
}

// Toplevel returns the absolute root of the working tree.
func (r *Repo) Toplevel(ctx context.Context) (string, error) {
	out, err := r.output(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return filepath.Clean(filepath.FromSlash(out)), nil
}

// RemoteURL returns the configured URL of remote.
func (r *Repo) RemoteURL(ctx context.Context, remote string) (string, error) {
	if remote == "" {
		remote = "origin"
	}
	return r.output(ctx, "config", "--get", "remote."+remote+".url")
}

// IsDirty reports unstaged changes to tracked files.
func (r *Repo) IsDirty(ctx context.Context) (bool, error) {
	return r.diffQuiet(ctx, "diff", "--quiet", "--exit-code")
}

// IsDirtyCached reports staged but uncommitted changes.
func (r *Repo) IsDirtyCached(ctx context.Context) (bool, error) {
	return r.diffQuiet(ctx, "diff", "--cached", "--quiet", "--exit-code")
}

func (r *Repo) diffQuiet(ctx context.Context, args ...string) (bool, error) {
	res, err := r.exec(ctx, args...)
	if err != nil {
		return false, err
	}
	switch res.ExitCode {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, gitFailure(args, res)
	}
}

// SHA returns the full commit hash of ref.
func (r *Repo) SHA(ctx context.Context, ref string) (string, error) {
	return r.output(ctx, "show", "-s", "--format=%H", ref)
}

// RefExists reports whether ref names a commit.
func (r *Repo) RefExists(ctx context.Context, ref string) (bool, error) {
	args := []string{"rev-parse", "--verify", "--quiet", ref + "^{commit}"}
	res, err := r.exec(ctx, args...)
	if err != nil {
		return false, err
	}
	return res.ExitCode == 0, nil
}

// RootCommit returns the first commit reachable from HEAD.
func (r *Repo) RootCommit(ctx context.Context) (string, error) {
	out, err := r.output(ctx, "rev-list", "--max-parents=0", "HEAD")
	if err != nil {
		return "", err
	}
	lines := strings.Fields(out)
	if len(lines) == 0 {
		return "", ionerr.New(ionerr.GitError, "repository has no commits")
	}
	return lines[len(lines)-1], nil
}

// Commit records a commit. With all set, tracked modifications are staged
// first (git commit -a).
func (r *Repo) Commit(ctx context.Context, msg string, all bool) error {
	args := []string{"commit"}
	if all {
		args = append(args, "-a")
	}
	args = append(args, "-m", msg)
	_, err := r.output(ctx, args...)
	return err
}

// Pull runs git pull.
func (r *Repo) Pull(ctx context.Context) error {
	_, err := r.output(ctx, "pull")
	return err
}

// Push runs git push.
func (r *Repo) Push(ctx context.Context) error {
	_, err := r.output(ctx, "push")
	return err
}

// Init creates a repository in Dir.
func (r *Repo) Init(ctx context.Context) error {
	_, err := r.output(ctx, "init")
	return err
}

// SetHeadBranch points HEAD at refs/heads/branch. On a fresh repository this
// names the branch the first commit lands on.
func (r *Repo) SetHeadBranch(ctx context.Context, branch string) error {
	_, err := r.output(ctx, "symbolic-ref", "HEAD", "refs/heads/"+branch)
	return err
}

// AddRemote registers a remote.
func (r *Repo) AddRemote(ctx context.Context, name, url string) error {
	_, err := r.output(ctx, "remote", "add", name, url)
	return err
}

// AddAll stages every change in the working tree.
func (r *Repo) AddAll(ctx context.Context) error {
	_, err := r.output(ctx, "add", "-A")
	return err
}

// ConfigGet reads a git config value. A missing key yields "" and no error.
func (r *Repo) ConfigGet(ctx context.Context, key string) (string, error) {
	args := []string{"config", "--get", key}
	res, err := r.exec(ctx, args...)
	if err != nil {
		return "", err
	}
	switch res.ExitCode {
	case 0:
		return strings.TrimSpace(res.Stdout), nil
	case 1:
		return "", nil
	default:
		return "", gitFailure(args, res)
	}
}

// LogFormat separates commit fields with NUL bytes and commits with RS.
const LogFormat = "--format=%H%x00%s%x00%an%x00%ae%x00%b%x1e"

// Log lists commits reachable from to but not from from. An empty from lists
// the whole history of to.
func (r *Repo) Log(ctx context.Context, from, to string) ([]Commit, error) {
	rng := to
	if from != "" {
		rng = from + ".." + to
	}
	out, err := r.output(ctx, "log", LogFormat, rng)
	if err != nil {
		return nil, err
	}
	return ParseLog(out), nil
}

// ParseLog decodes output produced with LogFormat.
func ParseLog(out string) []Commit {
	var commits []Commit
	for _, rec := range strings.Split(out, "\x1e") {
		rec = strings.TrimLeft(rec, "\r\n")
		if strings.TrimSpace(rec) == "" {
			continue
		}
		parts := strings.SplitN(rec, "\x00", 5)
		for len(parts) < 5 {
			parts = append(parts, "")
		}
		commits = append(commits, Commit{
			SHA:         strings.TrimSpace(parts[0]),
			Subject:     parts[1],
			AuthorName:  parts[2],
			AuthorEmail: strings.TrimRight(parts[3], "\r\n"),
			Body:        strings.TrimSpace(parts[4]),
		})
	}
	return commits
}
