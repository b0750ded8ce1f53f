package assets

// Registry lists embedded schemas available at runtime.
// Update this when adding/removing curated assets.

type AssetInfo struct {
	Family  string // e.g., template
	Version string // e.g., v1
	Path    string // path within GetSchemasFS
}

var Registry = []AssetInfo{
	{
		Family:  "template",
		Version: "v1",
		Path:    "template.schema.json",
	},
}
