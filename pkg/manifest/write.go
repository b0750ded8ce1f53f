package manifest

import (
	"maps"
	"path/filepath"
	"slices"

	"github.com/fulmenhq/ion/pkg/ionerr"
	"github.com/fulmenhq/ion/pkg/safeio"
)

// Encode renders the manifest. Projects that came from Read are patched in
// place; new projects are laid out in the conventional key order.
func (p *Project) Encode() []byte {
	if p.doc == nil {
		return p.encodeFresh()
	}

	doc := &document{lines: slices.Clone(p.doc.lines), eol: p.doc.eol}
	cur := p.fields()
	old := p.orig

	setOrDelete := func(key, was, now string) {
		switch {
		case was == now:
		case now == "":
			doc.deleteRoot(key)
		default:
			doc.setRoot(key, quote(now))
		}
	}
	setOrDelete("name", old.name, cur.name)
	setOrDelete("uuid", old.uuid, cur.uuid)
	if !slices.Equal(old.authors, cur.authors) {
		if len(cur.authors) == 0 {
			doc.deleteRoot("authors")
		} else {
			doc.setRoot("authors", quoteList(cur.authors))
		}
	}
	setOrDelete("version", old.version, cur.version)
	if !maps.Equal(old.deps, cur.deps) {
		doc.setTable("deps", cur.deps)
	}
	if !maps.Equal(old.compat, cur.compat) {
		doc.setTable("compat", cur.compat)
	}
	return doc.bytes()
}

func (p *Project) encodeFresh() []byte {
	f := p.fields()
	doc := &document{}
	if f.name != "" {
		doc.lines = append(doc.lines, "name = "+quote(f.name))
	}
	if f.uuid != "" {
		doc.lines = append(doc.lines, "uuid = "+quote(f.uuid))
	}
	if len(f.authors) > 0 {
		doc.lines = append(doc.lines, "authors = "+quoteList(f.authors))
	}
	if f.version != "" {
		doc.lines = append(doc.lines, "version = "+quote(f.version))
	}
	doc.setTable("deps", f.deps)
	doc.setTable("compat", f.compat)
	return doc.bytes()
}

// Write stores p at path atomically.
func Write(path string, p *Project) error {
	if err := safeio.WriteFileAtomic(path, p.Encode()); err != nil {
		return ionerr.Wrap(ionerr.ManifestError, err, "write %s", path)
	}
	return nil
}

// Save writes p back to the file it was read from.
func (p *Project) Save() error {
	if p.Path == "" {
		return ionerr.New(ionerr.ManifestError, "project %q has no path", p.Name)
	}
	return Write(p.Path, p)
}

// Create writes a new Project.toml into dir and returns its path.
func Create(dir string, p *Project) (string, error) {
	path := filepath.Join(dir, "Project.toml")
	if err := Write(path, p); err != nil {
		return "", err
	}
	return path, nil
}
