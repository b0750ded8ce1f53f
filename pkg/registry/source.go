package registry

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// source reads registry files by slash-separated path relative to the
// registry root.
type source interface {
	ReadFile(name string) ([]byte, error)
}

type dirSource struct{ fsys fs.FS }

func (d dirSource) ReadFile(name string) ([]byte, error) {
	return fs.ReadFile(d.fsys, name)
}

// tarSource holds the registry files of a packed registry in memory.
type tarSource struct {
	files map[string][]byte
}

func (t *tarSource) ReadFile(name string) ([]byte, error) {
	if b, ok := t.files[name]; ok {
		return b, nil
	}
	return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrNotExist}
}

var registryFiles = map[string]bool{
	"Registry.toml": true,
	"Package.toml":  true,
	"Versions.toml": true,
}

// openTarball loads a Registry.tar.gz as written by Pkg for packed
// registries. Only the metadata files the reader needs are kept.
func openTarball(p string) (*tarSource, error) {
	f, err := os.Open(p) // #nosec G304 -- path from the depot's registry descriptor
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	defer func() { _ = gz.Close() }()

	src := &tarSource{files: map[string][]byte{}}
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		name := strings.TrimPrefix(path.Clean("/"+hdr.Name), "/")
		if !registryFiles[path.Base(name)] {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", p, name, err)
		}
		src.files[name] = data
	}
	return src, nil
}

// packedDescriptor is the <depot>/registries/<Name>.toml written next to a
// packed registry.
type packedDescriptor struct {
	Path string `toml:"path"`
}

func openPacked(descriptor string) (*tarSource, error) {
	data, err := os.ReadFile(descriptor) // #nosec G304 -- depot path
	if err != nil {
		return nil, err
	}
	var d packedDescriptor
	if err := toml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%s: %w", descriptor, err)
	}
	if d.Path == "" {
		return nil, fmt.Errorf("%s: missing path", descriptor)
	}
	tarball := d.Path
	if !filepath.IsAbs(tarball) {
		tarball = filepath.Join(filepath.Dir(descriptor), tarball)
	}
	return openTarball(tarball)
}
