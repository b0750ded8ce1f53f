// Package report summarizes the commits between two releases.
package report

import (
	"context"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/fulmenhq/ion/internal/gitctx"
)

// History is the part of the git facade a report needs.
type History interface {
	Log(ctx context.Context, from, to string) ([]gitctx.Commit, error)
	RootCommit(ctx context.Context) (string, error)
}

// Request names the releases to compare. An empty OldRef means the package
// has never been released.
type Request struct {
	Name       string
	RepoURL    string
	OldRef     string
	NewRef     string
	OldVersion string
	NewVersion string
}

// Contributor is a commit author.
type Contributor struct {
	Name  string
	Email string
	Login string
}

// Handle renders "@login" when the GitHub login is known, else the name.
func (c Contributor) Handle() string {
	if c.Login != "" {
		return "@" + c.Login
	}
	if c.Name != "" {
		return c.Name
	}
	return c.Email
}

// Commit is a commit annotated with its pull request number, if any.
// Opener is the owner of the merged branch; Author is whoever made the
// commit, which for a merge is the maintainer who merged it.
type Commit struct {
	SHA     string
	Subject string
	Title   string
	PR      int
	Opener  string
	Author  Contributor
}

// Handle credits the pull request opener when known, else the author.
func (c Commit) Handle() string {
	if c.Opener != "" {
		return "@" + c.Opener
	}
	return c.Author.Handle()
}

// Report is a release summary.
type Report struct {
	Name         string
	OldVersion   string
	NewVersion   string
	OldRef       string
	NewRef       string
	CompareURL   string
	Initial      bool
	Commits      []Commit
	Contributors []Contributor
}

// PullRequests returns the commits that merged a pull request.
func (r *Report) PullRequests() []Commit {
	var out []Commit
	for _, c := range r.Commits {
		if c.PR > 0 {
			out = append(out, c)
		}
	}
	return out
}

// Build walks OldRef..NewRef and collects commits and contributors, oldest
// first.
func Build(ctx context.Context, h History, req Request) (*Report, error) {
	newRef := req.NewRef
	if newRef == "" {
		newRef = "HEAD"
	}
	rep := &Report{
		Name:       req.Name,
		OldVersion: strings.TrimPrefix(req.OldVersion, "v"),
		NewVersion: strings.TrimPrefix(req.NewVersion, "v"),
		OldRef:     req.OldRef,
		NewRef:     newRef,
		Initial:    req.OldRef == "",
	}

	var raw []gitctx.Commit
	var err error
	if rep.Initial {
		root, rerr := h.RootCommit(ctx)
		if rerr != nil {
			return nil, rerr
		}
		rep.OldRef = root
		raw, err = h.Log(ctx, "", newRef)
	} else {
		raw, err = h.Log(ctx, req.OldRef, newRef)
	}
	if err != nil {
		return nil, err
	}
	slices.Reverse(raw)

	if base := strings.TrimRight(req.RepoURL, "/"); base != "" {
		rep.CompareURL = base + "/compare/" + rep.OldRef + "..." + newRef
	}

	fold := cases.Fold()
	seen := map[string]int{}
	for _, c := range raw {
		pr, opener := parseSubject(c.Subject)
		author := Contributor{Name: c.AuthorName, Email: c.AuthorEmail, Login: loginFromEmail(c.AuthorEmail)}
		rep.Commits = append(rep.Commits, Commit{
			SHA:     c.SHA,
			Subject: c.Subject,
			Title:   commitTitle(c, opener != ""),
			PR:      pr,
			Opener:  opener,
			Author:  author,
		})

		key := fold.String(strings.TrimSpace(c.AuthorEmail))
		if key == "" {
			key = fold.String(strings.TrimSpace(c.AuthorName))
		}
		if i, ok := seen[key]; ok {
			if rep.Contributors[i].Login == "" {
				rep.Contributors[i].Login = author.Login
			}
			continue
		}
		seen[key] = len(rep.Contributors)
		rep.Contributors = append(rep.Contributors, author)
	}
	return rep, nil
}

var (
	mergeSubject  = regexp.MustCompile(`^Merge pull request #(\d+) from ([A-Za-z0-9-]+)/`)
	squashSubject = regexp.MustCompile(`\(#(\d+)\)\s*$`)
	mergeBranch   = regexp.MustCompile(`^Merge pull request #\d+ from (\S+)`)
	noreplyEmail  = regexp.MustCompile(`^(?:\d+\+)?([A-Za-z0-9-]+)@users\.noreply\.github\.com$`)
)

// parseSubject extracts a pull request number and, for merge commits, the
// login of the branch owner.
func parseSubject(subject string) (int, string) {
	if m := mergeSubject.FindStringSubmatch(subject); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n, m[2]
	}
	if m := squashSubject.FindStringSubmatch(subject); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n, ""
	}
	return 0, ""
}

func loginFromEmail(email string) string {
	if m := noreplyEmail.FindStringSubmatch(strings.TrimSpace(email)); m != nil {
		return m[1]
	}
	return ""
}

// commitTitle is the pull request title for a merge commit (the first body
// line, falling back to the merged branch) and the subject otherwise, less
// a trailing "(#n)" that the markdown adds back.
func commitTitle(c gitctx.Commit, merge bool) string {
	if merge {
		if line, _, _ := strings.Cut(strings.TrimSpace(c.Body), "\n"); strings.TrimSpace(line) != "" {
			return strings.TrimSpace(line)
		}
		if m := mergeBranch.FindStringSubmatch(c.Subject); m != nil {
			return m[1]
		}
	}
	return strings.TrimSpace(squashSubject.ReplaceAllString(c.Subject, ""))
}
