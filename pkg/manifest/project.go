// Package manifest reads and writes Julia package manifests (Project.toml).
//
// Writes rewrite only the fields that changed since Read. Unknown keys,
// comments, key order and line endings are left as they were in the file.
package manifest

import (
	"errors"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"

	"github.com/fulmenhq/ion/pkg/ionerr"
	"github.com/fulmenhq/ion/pkg/versioning"
)

// Manifest file names in lookup priority order.
var FileNames = []string{"JuliaProject.toml", "Project.toml"}

// Project is the decoded manifest plus enough of the source document to
// write it back without disturbing unrelated content.
type Project struct {
	Name    string
	UUID    uuid.UUID
	Version versioning.Version
	Authors []Author
	Deps    map[string]string
	Compat  map[string]string

	// Path is the file the project was read from, empty for new projects.
	Path string

	hasVersion bool
	doc        *document
	orig       fields
}

type rawProject struct {
	Name    string            `toml:"name"`
	UUID    string            `toml:"uuid"`
	Version string            `toml:"version"`
	Authors []string          `toml:"authors"`
	Deps    map[string]string `toml:"deps"`
	Compat  map[string]string `toml:"compat"`
}

// fields is the serialized form of the known keys, used to detect changes.
type fields struct {
	name, uuid, version string
	authors             []string
	deps, compat        map[string]string
}

func (p *Project) fields() fields {
	f := fields{name: p.Name, deps: p.Deps, compat: p.Compat}
	if p.UUID != uuid.Nil {
		f.uuid = p.UUID.String()
	}
	if p.hasVersion {
		f.version = p.Version.String()
	}
	for _, a := range p.Authors {
		f.authors = append(f.authors, a.String())
	}
	return f
}

// Read parses the manifest at path.
func Read(path string) (*Project, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- manifest path chosen by the user
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ionerr.Wrap(ionerr.ManifestNotFound, err, "%s", path)
		}
		return nil, ionerr.Wrap(ionerr.ManifestError, err, "read %s", path)
	}
	p, err := Decode(data)
	if err != nil {
		return nil, ionerr.Wrap(ionerr.ManifestError, err, "%s", path)
	}
	p.Path = path
	return p, nil
}

// Decode parses manifest contents.
func Decode(data []byte) (*Project, error) {
	var raw rawProject
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, ionerr.Wrap(ionerr.ParseError, err, "invalid TOML")
	}

	p := &Project{
		Name:   raw.Name,
		Deps:   raw.Deps,
		Compat: raw.Compat,
		doc:    parseDocument(data),
	}
	if raw.UUID != "" {
		id, err := uuid.Parse(raw.UUID)
		if err != nil {
			return nil, ionerr.Wrap(ionerr.ParseError, err, "invalid uuid %q", raw.UUID)
		}
		p.UUID = id
	}
	if raw.Version != "" {
		v, err := versioning.Parse(raw.Version)
		if err != nil {
			return nil, err
		}
		p.Version = v
		p.hasVersion = true
	}
	for _, a := range raw.Authors {
		p.Authors = append(p.Authors, ParseAuthor(a))
	}
	p.orig = p.fields()
	return p, nil
}

// New returns an empty manifest for a package that does not exist yet.
func New(name string, id uuid.UUID) *Project {
	return &Project{Name: name, UUID: id}
}

// Dir returns the package root the manifest was read from.
func (p *Project) Dir() string { return filepath.Dir(p.Path) }

// HasVersion reports whether the manifest declares a version.
func (p *Project) HasVersion() bool { return p.hasVersion }

// CurrentVersion returns the declared version or a ManifestError if absent.
func (p *Project) CurrentVersion() (versioning.Version, error) {
	if !p.hasVersion {
		return versioning.Version{}, ionerr.New(ionerr.ManifestError, "%s has no version field", p.displayPath())
	}
	return p.Version, nil
}

func (p *Project) displayPath() string {
	if p.Path == "" {
		return "manifest"
	}
	return p.Path
}

// Keys lists the manifest's top-level keys and tables in file order.
func (p *Project) Keys() []string {
	if p.doc == nil {
		return nil
	}
	return p.doc.topLevelKeys()
}

func (p *Project) clone() *Project {
	c := *p
	c.Authors = slices.Clone(p.Authors)
	c.Deps = maps.Clone(p.Deps)
	c.Compat = maps.Clone(p.Compat)
	return &c
}

// WithVersion returns a copy with the version set to v.
func (p *Project) WithVersion(v versioning.Version) *Project {
	c := p.clone()
	c.Version = v
	c.hasVersion = true
	return c
}

// WithAuthors returns a copy with the author list replaced.
func (p *Project) WithAuthors(authors []Author) *Project {
	c := p.clone()
	c.Authors = slices.Clone(authors)
	return c
}

// AddAuthor returns a copy with a appended, unless an identical author is
// already listed.
func (p *Project) AddAuthor(a Author) *Project {
	c := p.clone()
	for _, existing := range c.Authors {
		if existing.String() == a.String() {
			return c
		}
	}
	c.Authors = append(c.Authors, a)
	return c
}

// WithDep returns a copy with the dependency name → id recorded.
func (p *Project) WithDep(name string, id uuid.UUID) *Project {
	c := p.clone()
	if c.Deps == nil {
		c.Deps = map[string]string{}
	}
	c.Deps[name] = id.String()
	return c
}

// WithCompat returns a copy with a compat bound for name.
func (p *Project) WithCompat(name, bound string) *Project {
	c := p.clone()
	if c.Compat == nil {
		c.Compat = map[string]string{}
	}
	c.Compat[name] = bound
	return c
}
