package assets

import (
	"embed"
	"io/fs"
)

// Package templates shipped with the binary. The all: prefix keeps
// dotfiles such as .gitignore.hbs.
//
//go:embed all:embedded_templates
var Templates embed.FS

//go:embed embedded_schemas
var Schemas embed.FS

// DefaultTemplate is the template user templates fall back to for files
// they do not provide.
const DefaultTemplate = "Default"

func GetTemplatesFS() fs.FS {
	if sub, err := fs.Sub(Templates, "embedded_templates"); err == nil {
		return sub
	}
	return Templates
}

func GetSchemasFS() fs.FS {
	if sub, err := fs.Sub(Schemas, "embedded_schemas"); err == nil {
		return sub
	}
	return Schemas
}

// TemplateSchema returns the JSON schema template.toml files must satisfy.
func TemplateSchema() []byte {
	data, err := fs.ReadFile(GetSchemasFS(), Registry[0].Path)
	if err != nil {
		return nil
	}
	return data
}
