package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulmenhq/ion/pkg/ionerr"
)

func TestFindRootAscends(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "Project.toml", "name = \"Up\"\nversion = \"1.0.0\"\n")
	deep := filepath.Join(root, "src", "sub", "deeper")
	require.NoError(t, os.MkdirAll(deep, 0o755))

	p, err := RootProject(deep)
	require.NoError(t, err)
	assert.Equal(t, "Up", p.Name)
	assert.Equal(t, root, p.Dir())
}

func TestFindRootPrefersJuliaProject(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "Project.toml", "name = \"Plain\"\n")
	writeManifest(t, root, "JuliaProject.toml", "name = \"Preferred\"\n")

	path, err := FindRoot(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "JuliaProject.toml"), path)
}

func TestFindRootFromFile(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "Project.toml", "name = \"F\"\n")
	file := writeManifest(t, root, "README.md", "# F\n")

	path, err := FindRoot(file)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "Project.toml"), path)
}

func TestFindRootNotFound(t *testing.T) {
	_, err := FindRoot(t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ionerr.ManifestNotFound))
}
