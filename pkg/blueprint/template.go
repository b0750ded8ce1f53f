// Package blueprint scaffolds new packages from declarative templates.
package blueprint

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/aymerick/raymond"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/pelletier/go-toml/v2"
	"github.com/xeipuuv/gojsonschema"

	"github.com/fulmenhq/ion/internal/assets"
	"github.com/fulmenhq/ion/pkg/ionerr"
	"github.com/fulmenhq/ion/pkg/logger"
	"github.com/fulmenhq/ion/pkg/safeio"
)

// TemplateFile is the name of the definition file inside a template dir.
const TemplateFile = "template.toml"

// Template is a loaded template: its components in declared order and the
// file tree their templates are read from.
type Template struct {
	Name        string
	Description string
	Components  []Component

	fsys     fs.FS
	fallback fs.FS
}

// templateFile mirrors template.toml. Each component's options live in a
// table named after the component.
type templateFile struct {
	Name          string              `toml:"name"`
	Description   string              `toml:"description"`
	Components    []string            `toml:"components"`
	Project       ProjectConfig       `toml:"Project"`
	SrcDir        SrcDirConfig        `toml:"SrcDir"`
	Tests         TestsConfig         `toml:"Tests"`
	License       LicenseConfig       `toml:"License"`
	Readme        ReadmeConfig        `toml:"Readme"`
	Citation      CitationConfig      `toml:"Citation"`
	Codecov       CodecovConfig       `toml:"Codecov"`
	Documenter    DocumenterConfig    `toml:"Documenter"`
	GitHubActions GitHubActionsConfig `toml:"GitHubActions"`
	Repo          RepoConfig          `toml:"Repo"`
}

var templateSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(assets.TemplateSchema()))
})

// validate checks a decoded template.toml against the embedded schema.
func validate(raw map[string]interface{}) error {
	schema, err := templateSchema()
	if err != nil {
		return ionerr.Wrap(ionerr.MalformedConfig, err, "compile template schema")
	}
	doc, err := json.Marshal(raw)
	if err != nil {
		return ionerr.Wrap(ionerr.MalformedConfig, err, "encode template")
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return ionerr.Wrap(ionerr.MalformedConfig, err, "validate template")
	}
	if !result.Valid() {
		var msgs []string
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return ionerr.New(ionerr.MalformedConfig, "%s", strings.Join(msgs, "; "))
	}
	return nil
}

// Parse builds a template from template.toml contents. Files referenced by
// components are read from fsys, then from fallback.
func Parse(data []byte, fsys, fallback fs.FS) (*Template, error) {
	var raw map[string]interface{}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, ionerr.Wrap(ionerr.MalformedConfig, err, "parse %s", TemplateFile)
	}
	if err := validate(raw); err != nil {
		return nil, err
	}
	var file templateFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, ionerr.Wrap(ionerr.MalformedConfig, err, "decode %s", TemplateFile)
	}

	t := &Template{Name: file.Name, Description: file.Description, fsys: fsys, fallback: fallback}
	for _, name := range file.Components {
		c, err := newComponent(name, &file)
		if err != nil {
			return nil, err
		}
		t.Components = append(t.Components, c)
	}
	return t, nil
}

// Has reports whether the template lists a component.
func (t *Template) Has(name string) bool {
	for _, c := range t.Components {
		if c.Name() == name {
			return true
		}
	}
	return false
}

func (t *Template) roots() []fs.FS {
	var roots []fs.FS
	for _, r := range []fs.FS{t.fsys, t.fallback} {
		if r != nil {
			roots = append(roots, r)
		}
	}
	return roots
}

// ReadFile returns a file of the template, falling back to the built-in
// default template.
func (t *Template) ReadFile(name string) ([]byte, error) {
	for _, root := range t.roots() {
		data, err := fs.ReadFile(root, name)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, ionerr.Wrap(ionerr.RenderFailed, err, "read %s", name)
		}
	}
	return nil, ionerr.New(ionerr.TemplateNotFound, "template %s has no file %s", t.Name, name)
}

// Glob lists template files matching a doublestar pattern. Matches come
// from the template's own tree, or from the fallback when it has none.
func (t *Template) Glob(pattern string) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, root := range t.roots() {
		matches, err := doublestar.Glob(root, pattern)
		if err != nil {
			return nil, ionerr.Wrap(ionerr.MalformedConfig, err, "glob %s", pattern)
		}
		if len(matches) == 0 {
			continue
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
		break
	}
	sort.Strings(out)
	return out, nil
}

// Render expands a handlebars template file with the context data.
func (t *Template) Render(src string, c *Context) (string, error) {
	body, err := t.ReadFile(src)
	if err != nil {
		return "", err
	}
	out, err := raymond.Render(string(body), c.Data())
	if err != nil {
		return "", ionerr.Wrap(ionerr.RenderFailed, err, "render %s", src)
	}
	return out, nil
}

// RenderTo renders src and writes it to dst, relative to the package dir.
func (t *Template) RenderTo(src string, c *Context, dst string) (string, error) {
	text, err := t.Render(src, c)
	if err != nil {
		return "", err
	}
	target, err := safeio.JoinContained(c.Project.Dir, dst)
	if err != nil {
		return "", ionerr.Wrap(ionerr.RenderFailed, err, "output %s", dst)
	}
	if err := safeio.WriteFileMkdir(target, []byte(text), 0o644); err != nil {
		return "", ionerr.Wrap(ionerr.RenderFailed, err, "write %s", dst)
	}
	logger.Debug("rendered", logger.String("template", src), logger.String("file", dst))
	return text, nil
}

// Summary describes a discoverable template.
type Summary struct {
	Name        string
	Description string
	BuiltIn     bool
}

// Loader finds templates in a user directory first and then among the
// built-in templates.
type Loader struct {
	userDir  string
	embedded fs.FS
}

// NewLoader creates a loader over userDir, which may not exist.
func NewLoader(userDir string) *Loader {
	return &Loader{userDir: userDir, embedded: assets.GetTemplatesFS()}
}

type source struct {
	fsys    fs.FS
	builtIn bool
}

func (l *Loader) sources() []source {
	var out []source
	if l.userDir != "" {
		if info, err := os.Stat(l.userDir); err == nil && info.IsDir() {
			out = append(out, source{fsys: os.DirFS(l.userDir)})
		}
	}
	return append(out, source{fsys: l.embedded, builtIn: true})
}

func (l *Loader) fallback() fs.FS {
	sub, err := fs.Sub(l.embedded, assets.DefaultTemplate)
	if err != nil {
		return nil
	}
	return sub
}

// Load returns the first template called name.
func (l *Loader) Load(name string) (*Template, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return nil, ionerr.New(ionerr.TemplateNotFound, "invalid template name %q", name)
	}
	for _, src := range l.sources() {
		data, err := fs.ReadFile(src.fsys, path.Join(name, TemplateFile))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, ionerr.Wrap(ionerr.MalformedConfig, err, "read template %s", name)
		}
		sub, err := fs.Sub(src.fsys, name)
		if err != nil {
			return nil, ionerr.Wrap(ionerr.MalformedConfig, err, "open template %s", name)
		}
		t, err := Parse(data, sub, l.fallback())
		if err != nil {
			return nil, err
		}
		logger.Debug("loaded template", logger.String("name", name), logger.Bool("builtin", src.builtIn))
		return t, nil
	}
	where := "the built-in templates"
	if l.userDir != "" {
		where = l.userDir + " or " + where
	}
	return nil, ionerr.New(ionerr.TemplateNotFound, "no template %q in %s", name, where)
}

// List returns every discoverable template, sorted by name. A user template
// hides a built-in one of the same name.
func (l *Loader) List() ([]Summary, error) {
	seen := map[string]bool{}
	var out []Summary
	for _, src := range l.sources() {
		matches, err := doublestar.Glob(src.fsys, "*/"+TemplateFile)
		if err != nil {
			return nil, ionerr.Wrap(ionerr.MalformedConfig, err, "list templates")
		}
		for _, m := range matches {
			dir := path.Dir(m)
			if seen[dir] {
				continue
			}
			seen[dir] = true
			s := Summary{Name: dir, BuiltIn: src.builtIn}
			var head struct {
				Description string `toml:"description"`
			}
			if data, err := fs.ReadFile(src.fsys, m); err == nil {
				if err := toml.Unmarshal(data, &head); err != nil {
					logger.Warn("skipping malformed template", logger.String("template", dir), logger.Err(err))
					continue
				}
			}
			s.Description = head.Description
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
