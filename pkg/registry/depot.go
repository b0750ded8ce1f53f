package registry

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultName is the registry used when none is configured.
const DefaultName = "General"

// DepotPath returns the first entry of JULIA_DEPOT_PATH, or ~/.julia.
func DepotPath() string {
	for _, p := range filepath.SplitList(os.Getenv("JULIA_DEPOT_PATH")) {
		if p = strings.TrimSpace(p); p != "" {
			return p
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".julia"
	}
	return filepath.Join(home, ".julia")
}

// Dir returns the conventional location of a registry inside depot.
func Dir(depot, name string) string {
	return filepath.Join(depot, "registries", name)
}
