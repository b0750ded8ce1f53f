package versioning

import (
	"fmt"
	"strings"

	"github.com/fulmenhq/ion/pkg/ionerr"
)

// SpecKind selects how a Spec derives its target from the current version.
type SpecKind int

const (
	SpecLiteral SpecKind = iota
	SpecMajor
	SpecMinor
	SpecPatch
	SpecCurrent
)

func (k SpecKind) String() string {
	switch k {
	case SpecLiteral:
		return "literal"
	case SpecMajor:
		return "major"
	case SpecMinor:
		return "minor"
	case SpecPatch:
		return "patch"
	case SpecCurrent:
		return "current"
	default:
		return fmt.Sprintf("SpecKind(%d)", int(k))
	}
}

// Spec is a requested target version: a literal or a symbolic bump.
type Spec struct {
	Kind    SpecKind
	Literal Version
}

// Major, Minor, Patch and Current are the symbolic specs.
var (
	Major   = Spec{Kind: SpecMajor}
	Minor   = Spec{Kind: SpecMinor}
	Patch   = Spec{Kind: SpecPatch}
	Current = Spec{Kind: SpecCurrent}
)

// Literal returns a spec that always evaluates to v.
func Literal(v Version) Spec { return Spec{Kind: SpecLiteral, Literal: v} }

// ParseSpec accepts major, minor, patch or current in any case, or a SemVer
// literal with an optional leading v.
func ParseSpec(s string) (Spec, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "major":
		return Major, nil
	case "minor":
		return Minor, nil
	case "patch":
		return Patch, nil
	case "current":
		return Current, nil
	}
	v, err := parse(strings.TrimSpace(s))
	if err != nil {
		return Spec{}, ionerr.Wrap(ionerr.ParseError, err,
			"invalid version %q (expected major, minor, patch, current or a semantic version)", s)
	}
	return Literal(v), nil
}

// Apply evaluates the spec against current. Bumps drop prerelease and build
// metadata.
func (s Spec) Apply(current Version) Version {
	switch s.Kind {
	case SpecMajor:
		return current.BumpMajor()
	case SpecMinor:
		return current.BumpMinor()
	case SpecPatch:
		return current.BumpPatch()
	case SpecCurrent:
		return current
	default:
		return s.Literal
	}
}

// IsSymbolic reports whether the spec is one of the named bumps.
func (s Spec) IsSymbolic() bool { return s.Kind != SpecLiteral }

// String renders the canonical form: the lowercase keyword or the literal
// version without a v prefix.
func (s Spec) String() string {
	if s.Kind == SpecLiteral {
		return s.Literal.String()
	}
	return s.Kind.String()
}

// Set implements pflag.Value.
func (s *Spec) Set(v string) error {
	parsed, err := ParseSpec(v)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Type implements pflag.Value.
func (s *Spec) Type() string { return "version" }
