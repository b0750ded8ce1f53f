package manifest

import (
	"os"
	"path/filepath"

	"github.com/fulmenhq/ion/pkg/ionerr"
)

// FindRoot ascends from start to the nearest directory holding a manifest
// and returns the manifest's path.
func FindRoot(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", ionerr.Wrap(ionerr.ManifestError, err, "resolve %s", start)
	}
	if st, err := os.Stat(abs); err == nil && !st.IsDir() {
		abs = filepath.Dir(abs)
	}

	for dir := abs; ; {
		for _, name := range FileNames {
			candidate := filepath.Join(dir, name)
			if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
				return candidate, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ionerr.New(ionerr.ManifestNotFound, "no Project.toml found in %s or any parent directory", abs)
		}
		dir = parent
	}
}

// RootProject reads the manifest governing start.
func RootProject(start string) (*Project, error) {
	path, err := FindRoot(start)
	if err != nil {
		return nil, err
	}
	return Read(path)
}
