// Package registry reads Julia package registries from the local depot.
// Registries are never fetched; the depot holds clones kept current by Pkg.
package registry

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"

	"github.com/fulmenhq/ion/pkg/ionerr"
	"github.com/fulmenhq/ion/pkg/versioning"
)

// Registry is a loaded registry index.
type Registry struct {
	Name string
	UUID string
	Repo string
	// Path is the registry directory, or the descriptor of a packed registry.
	Path string

	packages map[uuid.UUID]indexEntry
	byName   map[string][]uuid.UUID
	src      source
}

type indexEntry struct {
	Name string `toml:"name"`
	Path string `toml:"path"`
}

type registryFile struct {
	Name     string                `toml:"name"`
	UUID     string                `toml:"uuid"`
	Repo     string                `toml:"repo"`
	Packages map[string]indexEntry `toml:"packages"`
}

type packageFile struct {
	Name string `toml:"name"`
	UUID string `toml:"uuid"`
	Repo string `toml:"repo"`
}

type versionInfo struct {
	TreeSHA string `toml:"git-tree-sha1"`
	Yanked  bool   `toml:"yanked"`
}

// Entry is one package's registration record.
type Entry struct {
	Name string
	UUID uuid.UUID
	Repo string
	// Path is the package directory inside the registry, e.g. "E/Example".
	Path     string
	Versions []versioning.Version
	TreeSHA  map[string]string
	Yanked   map[string]bool
}

// Read loads the registry called name from depot. An empty depot uses
// DepotPath.
func Read(depot, name string) (*Registry, error) {
	if depot == "" {
		depot = DepotPath()
	}
	if name == "" {
		name = DefaultName
	}
	dir := Dir(depot, name)
	if st, err := os.Stat(dir); err == nil && st.IsDir() {
		return Load(dir)
	}
	descriptor := dir + ".toml"
	if _, err := os.Stat(descriptor); err == nil {
		src, err := openPacked(descriptor)
		if err != nil {
			return nil, ionerr.Wrap(ionerr.RegistryNotFound, err, "registry %s", name)
		}
		return load(descriptor, src)
	}
	return nil, ionerr.New(ionerr.RegistryNotFound, "registry %q not found under %s (run `using Pkg; Pkg.Registry.add(%q)`)", name, Dir(depot, ""), name)
}

// Load reads an unpacked registry directory.
func Load(dir string) (*Registry, error) {
	return load(dir, dirSource{fsys: os.DirFS(dir)})
}

func load(where string, src source) (*Registry, error) {
	data, err := src.ReadFile("Registry.toml")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ionerr.Wrap(ionerr.RegistryNotFound, err, "%s has no Registry.toml", where)
		}
		return nil, ionerr.Wrap(ionerr.RegistryNotFound, err, "read %s", where)
	}
	var rf registryFile
	if err := toml.Unmarshal(data, &rf); err != nil {
		return nil, ionerr.Wrap(ionerr.ManifestError, err, "%s/Registry.toml", where)
	}

	r := &Registry{
		Name:     rf.Name,
		UUID:     rf.UUID,
		Repo:     rf.Repo,
		Path:     where,
		packages: make(map[uuid.UUID]indexEntry, len(rf.Packages)),
		byName:   map[string][]uuid.UUID{},
		src:      src,
	}
	for key, e := range rf.Packages {
		id, err := uuid.Parse(key)
		if err != nil {
			return nil, ionerr.Wrap(ionerr.ManifestError, err, "%s/Registry.toml: package key %q", where, key)
		}
		r.packages[id] = e
		r.byName[e.Name] = append(r.byName[e.Name], id)
	}
	return r, nil
}

// Len returns the number of registered packages.
func (r *Registry) Len() int { return len(r.packages) }

// LookupByUUID returns the entry registered under id.
func (r *Registry) LookupByUUID(id uuid.UUID) (*Entry, error) {
	e, ok := r.packages[id]
	if !ok {
		return nil, ionerr.New(ionerr.PackageNotInRegistry, "%s is not registered in %s", id, r.Name)
	}
	return r.entry(id, e)
}

// LookupByName returns the entry registered as name. Names shared by more
// than one UUID are ambiguous and must be looked up by UUID.
func (r *Registry) LookupByName(name string) (*Entry, error) {
	ids := r.byName[name]
	switch len(ids) {
	case 0:
		return nil, ionerr.New(ionerr.PackageNotInRegistry, "%s is not registered in %s", name, r.Name)
	case 1:
		return r.entry(ids[0], r.packages[ids[0]])
	default:
		return nil, ionerr.New(ionerr.PackageNotInRegistry, "%s is ambiguous in %s (%d packages share the name)", name, r.Name, len(ids))
	}
}

func (r *Registry) entry(id uuid.UUID, ie indexEntry) (*Entry, error) {
	dir := path.Clean(strings.ReplaceAll(ie.Path, "\\", "/"))
	e := &Entry{Name: ie.Name, UUID: id, Path: dir, TreeSHA: map[string]string{}, Yanked: map[string]bool{}}

	if data, err := r.src.ReadFile(path.Join(dir, "Package.toml")); err == nil {
		var pf packageFile
		if err := toml.Unmarshal(data, &pf); err != nil {
			return nil, ionerr.Wrap(ionerr.ManifestError, err, "%s/Package.toml", dir)
		}
		e.Repo = pf.Repo
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, ionerr.Wrap(ionerr.ManifestError, err, "read %s/Package.toml", dir)
	}

	data, err := r.src.ReadFile(path.Join(dir, "Versions.toml"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return e, nil
		}
		return nil, ionerr.Wrap(ionerr.ManifestError, err, "read %s/Versions.toml", dir)
	}
	var versions map[string]versionInfo
	if err := toml.Unmarshal(data, &versions); err != nil {
		return nil, ionerr.Wrap(ionerr.ManifestError, err, "%s/Versions.toml", dir)
	}
	for raw, info := range versions {
		v, err := versioning.Parse(raw)
		if err != nil {
			continue
		}
		e.Versions = append(e.Versions, v)
		e.TreeSHA[v.String()] = info.TreeSHA
		if info.Yanked {
			e.Yanked[v.String()] = true
		}
	}
	sort.Slice(e.Versions, func(i, j int) bool { return e.Versions[i].LessThan(e.Versions[j]) })
	return e, nil
}

// LatestVersion returns the highest registered version, yanked versions
// included, or false if the package has none.
func (e *Entry) LatestVersion() (versioning.Version, bool) {
	return versioning.Max(e.Versions)
}

// HasVersion reports whether v is registered.
func (e *Entry) HasVersion(v versioning.Version) bool {
	_, ok := e.TreeSHA[v.String()]
	return ok
}
