// Package gittest builds throwaway git repositories for tests that need a
// real git binary.
package gittest

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// Isolate points git at an empty global config with a fixed identity so
// host settings (signing, hooks, default branch) do not leak into tests.
// It skips the test when git is not installed.
func Isolate(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	cfg := filepath.Join(t.TempDir(), "gitconfig")
	if err := os.WriteFile(cfg, []byte("[init]\n\tdefaultBranch = main\n[commit]\n\tgpgsign = false\n[user]\n\tname = Test Author\n\temail = author@example.org\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GIT_CONFIG_GLOBAL", cfg)
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")
	t.Setenv("GIT_AUTHOR_NAME", "Test Author")
	t.Setenv("GIT_AUTHOR_EMAIL", "author@example.org")
	t.Setenv("GIT_COMMITTER_NAME", "Test Author")
	t.Setenv("GIT_COMMITTER_EMAIL", "author@example.org")
}

// Repo is a temporary repository on branch main.
type Repo struct {
	t   *testing.T
	Dir string
}

// New initializes an empty repository in a temp dir.
func New(t *testing.T) *Repo {
	t.Helper()
	Isolate(t)
	r := &Repo{t: t, Dir: t.TempDir()}
	r.Git("init", "-q")
	r.Git("symbolic-ref", "HEAD", "refs/heads/main")
	return r
}

// Git runs git in the repository and returns trimmed stdout, failing the
// test on error.
func (r *Repo) Git(args ...string) string {
	r.t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		r.t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

// Write creates or replaces a file relative to the repository root.
func (r *Repo) Write(rel, content string) {
	r.t.Helper()
	path := filepath.Join(r.Dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		r.t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		r.t.Fatal(err)
	}
}

// CommitFile writes a file and commits it, returning the new HEAD sha.
func (r *Repo) CommitFile(rel, content, msg string) string {
	r.t.Helper()
	r.Write(rel, content)
	r.Git("add", "--", rel)
	r.Git("commit", "-q", "-m", msg)
	return r.Git("rev-parse", "HEAD")
}

// CommitAs commits a file with a specific author identity.
func (r *Repo) CommitAs(name, email, rel, content, msg string) string {
	r.t.Helper()
	r.Write(rel, content)
	r.Git("add", "--", rel)
	r.Git("-c", "user.name="+name, "-c", "user.email="+email,
		"commit", "-q", "--author", name+" <"+email+">", "-m", msg)
	return r.Git("rev-parse", "HEAD")
}

// Tag creates a lightweight tag at HEAD.
func (r *Repo) Tag(name string) {
	r.t.Helper()
	r.Git("tag", name)
}

// Origin adds a bare repository as origin, advertising fetchURL while
// pushes go to the bare copy, and pushes main to it. It returns the bare
// repository path.
func (r *Repo) Origin(fetchURL string) string {
	r.t.Helper()
	bare := filepath.Join(r.t.TempDir(), "origin.git")
	cmd := exec.Command("git", "init", "-q", "--bare", bare)
	if out, err := cmd.CombinedOutput(); err != nil {
		r.t.Fatalf("git init --bare: %v\n%s", err, out)
	}
	r.Git("remote", "add", "origin", fetchURL)
	r.Git("remote", "set-url", "--push", "origin", bare)
	r.Git("push", "-q", "-u", "origin", "main")
	r.Git("symbolic-ref", "refs/remotes/origin/HEAD", "refs/remotes/origin/main")
	return bare
}

// BareGit runs git against a bare repository path.
func BareGit(t *testing.T, bare string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", append([]string{"--git-dir", bare}, args...)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

// Open wraps an existing working tree, such as one a test just generated.
func Open(t *testing.T, dir string) *Repo {
	return &Repo{t: t, Dir: dir}
}
