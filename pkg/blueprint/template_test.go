package blueprint

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulmenhq/ion/pkg/ionerr"
)

func writeTemplate(t *testing.T, root, name string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, name, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func componentNames(tpl *Template) []string {
	var out []string
	for _, c := range tpl.Components {
		out = append(out, c.Name())
	}
	return out
}

func TestLoadBuiltInDefault(t *testing.T) {
	tpl, err := NewLoader("").Load("Default")
	require.NoError(t, err)

	assert.Equal(t, "Default", tpl.Name)
	assert.NotEmpty(t, tpl.Description)
	assert.Equal(t, []string{"Project", "SrcDir", "Tests", "License", "Readme", "Repo"}, componentNames(tpl))
	assert.True(t, tpl.Has("Repo"))
	assert.False(t, tpl.Has("Citation"))

	repo := tpl.Components[5].(*Repo)
	assert.Equal(t, "main", repo.cfg.Branch)
}

func TestUserTemplateShadowsBuiltIn(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "Default", map[string]string{
		"template.toml": `name = "Default"
description = "house style"
components = ["Project", "SrcDir"]
`,
		"src/module.jl.hbs": "module {{name}} # house style\nend\n",
	})

	tpl, err := NewLoader(dir).Load("Default")
	require.NoError(t, err)
	assert.Equal(t, "house style", tpl.Description)
	assert.Equal(t, []string{"Project", "SrcDir"}, componentNames(tpl))

	data, err := tpl.ReadFile("src/module.jl.hbs")
	require.NoError(t, err)
	assert.Contains(t, string(data), "house style")

	data, err = tpl.ReadFile("licenses/MIT.hbs")
	require.NoError(t, err, "falls back to the built-in files")
	assert.Contains(t, string(data), "MIT License")
}

func TestListTemplates(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "Lab", map[string]string{
		"template.toml": "name = \"Lab\"\ndescription = \"lab package\"\ncomponents = [\"Project\"]\n",
	})
	writeTemplate(t, dir, "Default", map[string]string{
		"template.toml": "name = \"Default\"\ndescription = \"mine\"\ncomponents = []\n",
	})
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "not-a-template"), 0o755))

	list, err := NewLoader(dir).List()
	require.NoError(t, err)

	byName := map[string]Summary{}
	var names []string
	for _, s := range list {
		byName[s.Name] = s
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"Default", "Lab", "Package"}, names)
	assert.Equal(t, "mine", byName["Default"].Description)
	assert.False(t, byName["Default"].BuiltIn)
	assert.True(t, byName["Package"].BuiltIn)
}

func TestLoadNotFound(t *testing.T) {
	for _, name := range []string{"Nope", "", "../Default", "a/b"} {
		_, err := NewLoader(t.TempDir()).Load(name)
		require.Error(t, err, name)
		assert.True(t, errors.Is(err, ionerr.TemplateNotFound), name)
	}
}

func TestParseRejectsMalformedTemplates(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"syntax", "name = \n"},
		{"missing components", `name = "X"`},
		{"unknown component", `name = "X"
components = ["Project", "Telemetry"]`},
		{"duplicate component", `name = "X"
components = ["Project", "Project"]`},
		{"unknown option", `name = "X"
components = ["Repo"]
[Repo]
colour = "blue"`},
		{"wrong type", `name = "X"
components = ["Repo"]
[Repo]
ssh = "yes"`},
		{"bad version", `name = "X"
components = ["Project"]
[Project]
version = "one"`},
		{"unknown top-level key", `name = "X"
components = []
flavour = "mild"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.body), fstest.MapFS{}, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ionerr.MalformedConfig), err.Error())
		})
	}
}

func TestParseDecodesComponentOptions(t *testing.T) {
	tpl, err := Parse([]byte(`name = "X"
components = ["Project", "GitHubActions", "Repo"]

[Project]
authors = ["Jane Doe <jane@example.org>"]
version = "1.0.0"

[GitHubActions]
tagbot = false
versions = ["1.10"]

[Repo]
ssh = true
suffix = ""
`), fstest.MapFS{}, nil)
	require.NoError(t, err)

	proj := tpl.Components[0].(*Project)
	assert.Equal(t, []string{"Jane Doe <jane@example.org>"}, proj.cfg.Authors)
	assert.Equal(t, "1.0.0", proj.cfg.Version)

	gha := tpl.Components[1].(*GitHubActions)
	require.NotNil(t, gha.cfg.TagBot)
	assert.False(t, *gha.cfg.TagBot)
	assert.Nil(t, gha.cfg.CompatHelper)
	assert.Equal(t, []string{"1.10"}, gha.cfg.Versions)

	repo := tpl.Components[2].(*Repo)
	assert.True(t, repo.cfg.SSH)
	require.NotNil(t, repo.cfg.Suffix)
	assert.Equal(t, "", *repo.cfg.Suffix)
}

func TestTemplateGlobAndRender(t *testing.T) {
	fsys := fstest.MapFS{
		"docs/make.jl.hbs":      {Data: []byte("using {{name}}\n")},
		"docs/src/index.md.hbs": {Data: []byte("# {{name}} & co\n")},
		"other.hbs":             {Data: []byte("{{name}}")},
	}
	tpl := &Template{Name: "T", fsys: fsys}

	files, err := tpl.Glob("docs/**/*.hbs")
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/make.jl.hbs", "docs/src/index.md.hbs"}, files)

	c := &Context{Project: ProjectInfo{Name: "Pkg", Dir: t.TempDir()}}
	out, err := tpl.RenderTo("docs/make.jl.hbs", c, "docs/make.jl")
	require.NoError(t, err)
	assert.Equal(t, "using Pkg\n", out)
	assert.FileExists(t, filepath.Join(c.Project.Dir, "docs", "make.jl"))

	_, err = tpl.RenderTo("other.hbs", c, "../escape.txt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ionerr.RenderFailed))

	_, err = tpl.Render("missing.hbs", c)
	assert.True(t, errors.Is(err, ionerr.TemplateNotFound))
}
