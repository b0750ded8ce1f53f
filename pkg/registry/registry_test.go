package registry

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulmenhq/ion/pkg/exitcode"
	"github.com/fulmenhq/ion/pkg/ionerr"
	"github.com/fulmenhq/ion/pkg/versioning"
)

const (
	exampleUUID = "7876af07-990d-54b4-ab0e-23690620f79a"
	jsonUUID    = "682c06a0-de6a-54ab-a142-c8b1cf79cde6"
)

var registryFixture = map[string]string{
	"Registry.toml": `name = "General"
uuid = "23338594-aafe-5451-b93e-139f81909106"
repo = "https://github.com/JuliaRegistries/General.git"

[packages]
` + exampleUUID + ` = { name = "Example", path = "E/Example" }
` + jsonUUID + ` = { name = "JSON", path = "J/JSON" }
`,
	"E/Example/Package.toml": `name = "Example"
uuid = "` + exampleUUID + `"
repo = "https://github.com/JuliaLang/Example.jl.git"
`,
	"E/Example/Versions.toml": `["0.1.0"]
git-tree-sha1 = "aaaa"

["0.10.0"]
git-tree-sha1 = "cccc"

["0.5.3"]
git-tree-sha1 = "bbbb"
yanked = true
`,
	"J/JSON/Package.toml": `name = "JSON"
uuid = "` + jsonUUID + `"
repo = "https://github.com/JuliaIO/JSON.jl.git"
`,
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func TestReadFromDepot(t *testing.T) {
	depot := t.TempDir()
	writeTree(t, Dir(depot, "General"), registryFixture)

	reg, err := Read(depot, "General")
	require.NoError(t, err)
	assert.Equal(t, "General", reg.Name)
	assert.Equal(t, 2, reg.Len())

	entry, err := reg.LookupByUUID(uuid.MustParse(exampleUUID))
	require.NoError(t, err)
	assert.Equal(t, "Example", entry.Name)
	assert.Equal(t, "https://github.com/JuliaLang/Example.jl.git", entry.Repo)
	assert.Equal(t, "E/Example", entry.Path)

	latest, ok := entry.LatestVersion()
	require.True(t, ok)
	assert.Equal(t, "0.10.0", latest.String(), "numeric ordering, not lexical")
	assert.Equal(t, "cccc", entry.TreeSHA["0.10.0"])
	assert.True(t, entry.Yanked["0.5.3"])
	assert.True(t, entry.HasVersion(versioning.MustParse("0.1.0")))
	assert.False(t, entry.HasVersion(versioning.MustParse("0.2.0")))
}

func TestLookupByName(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, registryFixture)
	reg, err := Load(dir)
	require.NoError(t, err)

	entry, err := reg.LookupByName("JSON")
	require.NoError(t, err)
	assert.Equal(t, jsonUUID, entry.UUID.String())
	_, ok := entry.LatestVersion()
	assert.False(t, ok, "no Versions.toml means no releases")

	_, err = reg.LookupByName("Missing")
	assert.True(t, errors.Is(err, ionerr.PackageNotInRegistry))

	_, err = reg.LookupByUUID(uuid.New())
	assert.True(t, errors.Is(err, ionerr.PackageNotInRegistry))
}

func TestReadMissingRegistry(t *testing.T) {
	_, err := Read(t.TempDir(), "Nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ionerr.RegistryNotFound))
}

func TestLoadMalformedIndex(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"Registry.toml": "[packages]\nnot-a-uuid = { name = \"X\", path = \"X/X\" }\n"})

	_, err := Load(dir)
	assert.True(t, errors.Is(err, ionerr.ManifestError))
	assert.Equal(t, exitcode.GeneralError, ionerr.ExitCode(err))
}

func TestCorruptRegistryFilesAreOperationalErrors(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
	}{
		{"Registry.toml", map[string]string{"Registry.toml": "name = \n"}},
		{"Package.toml", map[string]string{
			"Registry.toml":          "[packages]\n" + exampleUUID + " = { name = \"Example\", path = \"E/Example\" }\n",
			"E/Example/Package.toml": "repo = [\n",
		}},
		{"Versions.toml", map[string]string{
			"Registry.toml":           "[packages]\n" + exampleUUID + " = { name = \"Example\", path = \"E/Example\" }\n",
			"E/Example/Versions.toml": "[\"0.1.0\"\ngit-tree-sha1 = 1\n",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeTree(t, dir, tt.files)

			reg, err := Load(dir)
			if err == nil {
				_, err = reg.LookupByName("Example")
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ionerr.ManifestError), err.Error())
			assert.Contains(t, err.Error(), tt.name)
			assert.Equal(t, exitcode.GeneralError, ionerr.ExitCode(err))
		})
	}
}

func TestReadPackedRegistry(t *testing.T) {
	depot := t.TempDir()
	regDir := filepath.Join(depot, "registries")
	require.NoError(t, os.MkdirAll(regDir, 0o755))

	f, err := os.Create(filepath.Join(regDir, "General.tar.gz"))
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	for name, content := range registryFixture {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Mode: 0o644, Size: int64(len(content)), Typeflag: tar.TypeReg}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	require.NoError(t, os.WriteFile(filepath.Join(regDir, "General.toml"),
		[]byte("git-tree-sha1 = \"0000\"\nuuid = \"23338594-aafe-5451-b93e-139f81909106\"\npath = \"General.tar.gz\"\n"), 0o644))

	reg, err := Read(depot, "General")
	require.NoError(t, err)
	entry, err := reg.LookupByName("Example")
	require.NoError(t, err)
	latest, ok := entry.LatestVersion()
	require.True(t, ok)
	assert.Equal(t, "0.10.0", latest.String())
}

func TestDepotPath(t *testing.T) {
	t.Setenv("JULIA_DEPOT_PATH", string(os.PathListSeparator)+"/opt/depot"+string(os.PathListSeparator)+"/other")
	assert.Equal(t, "/opt/depot", DepotPath())

	t.Setenv("JULIA_DEPOT_PATH", "")
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".julia"), DepotPath())
}
