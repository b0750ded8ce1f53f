package julia

import (
	"fmt"
	"strings"

	"github.com/fulmenhq/ion/pkg/ionerr"
)

// PackageSpec is a package argument of the form
// name[@version][#rev][:subdir]. A name that looks like a URL or path is
// stored in URL instead.
type PackageSpec struct {
	Name    string
	URL     string
	Version string
	Rev     string
	Subdir  string
}

func looksLikeURL(s string) bool {
	return strings.Contains(s, "/") || strings.HasSuffix(s, ".git") || strings.Contains(s, ".git:")
}

// ParsePackageSpec parses one package argument.
func ParsePackageSpec(s string) (PackageSpec, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return PackageSpec{}, fmt.Errorf("empty package spec")
	}
	empty := func(part string) (PackageSpec, error) {
		return PackageSpec{}, fmt.Errorf("package spec %q has an empty %s", s, part)
	}

	var spec PackageSpec
	base := s
	if i := strings.LastIndex(s, "#"); i >= 0 {
		base = s[:i]
		rev, sub, hasSub := strings.Cut(s[i+1:], ":")
		if rev == "" {
			return empty("rev")
		}
		if hasSub && sub == "" {
			return empty("subdir")
		}
		spec.Rev, spec.Subdir = rev, sub
	}

	if looksLikeURL(base) {
		if i := strings.LastIndex(base, ".git:"); i >= 0 && spec.Subdir == "" {
			spec.Subdir = base[i+len(".git:"):]
			base = base[:i+len(".git")]
			if spec.Subdir == "" {
				return empty("subdir")
			}
		}
		spec.URL = base
		return spec, nil
	}

	if name, sub, ok := strings.Cut(base, ":"); ok {
		if sub == "" {
			return empty("subdir")
		}
		base, spec.Subdir = name, sub
	}
	if name, version, ok := strings.Cut(base, "@"); ok {
		if version == "" {
			return empty("version")
		}
		base, spec.Version = name, version
	}
	if base == "" {
		return PackageSpec{}, fmt.Errorf("package spec %q has no name", s)
	}
	spec.Name = base
	return spec, nil
}

// ParsePackageSpecs parses every argument.
func ParsePackageSpecs(args []string) ([]PackageSpec, error) {
	specs := make([]PackageSpec, 0, len(args))
	for _, a := range args {
		spec, err := ParsePackageSpec(a)
		if err != nil {
			return nil, ionerr.Wrap(ionerr.ParseError, err, "invalid package argument")
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// Julia renders the spec as a Pkg.PackageSpec constructor call.
func (p PackageSpec) Julia() string {
	var kv []string
	add := func(k, v string) {
		if v != "" {
			kv = append(kv, k+"="+Quote(v))
		}
	}
	add("name", p.Name)
	add("url", p.URL)
	add("version", p.Version)
	add("rev", p.Rev)
	add("subdir", p.Subdir)
	return "Pkg.PackageSpec(" + strings.Join(kv, ", ") + ")"
}

// String renders the command-line form.
func (p PackageSpec) String() string {
	s := p.Name
	if p.URL != "" {
		s = p.URL
	}
	if p.Version != "" {
		s += "@" + p.Version
	}
	if p.Rev != "" {
		s += "#" + p.Rev
	}
	if p.Subdir != "" {
		s += ":" + p.Subdir
	}
	return s
}

// List joins specs into the comma-separated body of a Julia vector.
func List(specs []PackageSpec) string {
	parts := make([]string, len(specs))
	for i, s := range specs {
		parts[i] = s.Julia()
	}
	return strings.Join(parts, ", ")
}

// Quote renders s as a Julia string literal.
func Quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, `$`, `\$`, "\n", `\n`)
	return `"` + r.Replace(s) + `"`
}
