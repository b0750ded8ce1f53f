package gitctx

import (
	"sort"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/fulmenhq/ion/pkg/ionerr"
	"github.com/fulmenhq/ion/pkg/versioning"
)

func (r *Repo) open() (*git.Repository, error) {
	repo, err := git.PlainOpenWithOptions(r.Dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, ionerr.Wrap(ionerr.GitError, err, "open repository at %s", r.Dir)
	}
	return repo, nil
}

// TreeSHA returns the hash of the tree recorded by rev. Registries key
// versions by this hash rather than by commit.
func (r *Repo) TreeSHA(rev string) (string, error) {
	repo, err := r.open()
	if err != nil {
		return "", err
	}
	hash, err := repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return "", ionerr.Wrap(ionerr.GitError, err, "resolve %s", rev)
	}
	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return "", ionerr.Wrap(ionerr.GitError, err, "read commit %s", hash)
	}
	return commit.TreeHash.String(), nil
}

// Tag is a tag whose name parses as a version.
type Tag struct {
	Name    string
	Version versioning.Version
}

// VersionTags lists tags of the form v<semver> or <semver>, oldest version
// first.
func (r *Repo) VersionTags() ([]Tag, error) {
	repo, err := r.open()
	if err != nil {
		return nil, err
	}
	iter, err := repo.Tags()
	if err != nil {
		return nil, ionerr.Wrap(ionerr.GitError, err, "list tags")
	}
	defer iter.Close()

	var tags []Tag
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()
		if v, perr := versioning.Parse(name); perr == nil {
			tags = append(tags, Tag{Name: name, Version: v})
		}
		return nil
	})
	if err != nil {
		return nil, ionerr.Wrap(ionerr.GitError, err, "list tags")
	}
	sort.SliceStable(tags, func(i, j int) bool { return tags[i].Version.LessThan(tags[j].Version) })
	return tags, nil
}

// LatestTag returns the highest version tag not above limit, or false when
// none exists. A nil limit means no bound.
func (r *Repo) LatestTag(limit *versioning.Version) (Tag, bool, error) {
	tags, err := r.VersionTags()
	if err != nil {
		return Tag{}, false, err
	}
	for i := len(tags) - 1; i >= 0; i-- {
		if limit == nil || !tags[i].Version.GreaterThan(*limit) {
			return tags[i], true, nil
		}
	}
	return Tag{}, false, nil
}
