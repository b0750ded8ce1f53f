// Package versioning implements SemVer parsing and precedence plus the
// version expressions accepted by `ion bump`.
package versioning

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/fulmenhq/ion/pkg/ionerr"
)

// Comparison represents the outcome of comparing two versions.
type Comparison int

const (
	ComparisonLess Comparison = iota - 1
	ComparisonEqual
	ComparisonGreater
)

func (c Comparison) String() string {
	switch c {
	case ComparisonLess:
		return "less"
	case ComparisonEqual:
		return "equal"
	case ComparisonGreater:
		return "greater"
	default:
		return "unknown"
	}
}

var semverPattern = regexp.MustCompile(`^(?:[vV])?(\d+)\.(\d+)\.(\d+)(?:-([0-9A-Za-z.-]+))?(?:\+([0-9A-Za-z.-]+))?$`)

type identifier struct {
	raw     string
	numeric bool
	num     uint64
}

// Version is a parsed semantic version. The zero value is 0.0.0.
type Version struct {
	Major, Minor, Patch uint64
	pre                 []identifier
	build               string
}

// New returns the release version major.minor.patch.
func New(major, minor, patch uint64) Version {
	return Version{Major: major, Minor: minor, Patch: patch}
}

// Parse parses a SemVer 2.0 string. A leading v or V is stripped.
func Parse(input string) (Version, error) {
	v, err := parse(strings.TrimSpace(input))
	if err != nil {
		return Version{}, ionerr.Wrap(ionerr.ParseError, err, "invalid version %q", input)
	}
	return v, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(input string) Version {
	v, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return v
}

func parse(s string) (Version, error) {
	if s == "" {
		return Version{}, errors.New("empty version")
	}
	m := semverPattern.FindStringSubmatch(s)
	if m == nil {
		return Version{}, errors.New("invalid format")
	}

	var v Version
	var err error
	for i, dst := range []*uint64{&v.Major, &v.Minor, &v.Patch} {
		if *dst, err = parseSegment(m[i+1]); err != nil {
			return Version{}, err
		}
	}

	if m[4] != "" {
		for _, part := range strings.Split(m[4], ".") {
			id, err := parseIdentifier(part)
			if err != nil {
				return Version{}, fmt.Errorf("prerelease: %w", err)
			}
			v.pre = append(v.pre, id)
		}
	}
	if m[5] != "" {
		for _, part := range strings.Split(m[5], ".") {
			if part == "" {
				return Version{}, errors.New("build: empty identifier")
			}
		}
		v.build = m[5]
	}
	return v, nil
}

func parseSegment(s string) (uint64, error) {
	if len(s) > 1 && s[0] == '0' {
		return 0, fmt.Errorf("segment %q: leading zeros not allowed", s)
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("segment %q: %w", s, err)
	}
	return n, nil
}

func parseIdentifier(s string) (identifier, error) {
	if s == "" {
		return identifier{}, errors.New("empty identifier")
	}
	if !isNumeric(s) {
		return identifier{raw: s}, nil
	}
	n, err := parseSegment(s)
	if err != nil {
		return identifier{}, err
	}
	return identifier{raw: s, numeric: true, num: n}, nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Prerelease returns the dot-joined prerelease identifiers, if any.
func (v Version) Prerelease() string {
	parts := make([]string, len(v.pre))
	for i, id := range v.pre {
		parts[i] = id.raw
	}
	return strings.Join(parts, ".")
}

// Build returns the build metadata, if any.
func (v Version) Build() string { return v.build }

// IsRelease reports whether v carries no prerelease identifiers.
func (v Version) IsRelease() bool { return len(v.pre) == 0 }

// String renders the canonical form without a v prefix.
func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if len(v.pre) > 0 {
		s += "-" + v.Prerelease()
	}
	if v.build != "" {
		s += "+" + v.build
	}
	return s
}

// Tag renders the git tag form, v<version>.
func (v Version) Tag() string { return "v" + v.String() }

// BumpMajor increments the major version and resets minor and patch
func (v Version) BumpMajor() Version { return New(v.Major+1, 0, 0) }

// BumpMinor increments the minor version and resets patch
func (v Version) BumpMinor() Version { return New(v.Major, v.Minor+1, 0) }

// BumpPatch increments the patch version
func (v Version) BumpPatch() Version { return New(v.Major, v.Minor, v.Patch+1) }

// LessThan reports whether v precedes o.
func (v Version) LessThan(o Version) bool { return Compare(v, o) == ComparisonLess }

// GreaterThan reports whether v succeeds o.
func (v Version) GreaterThan(o Version) bool { return Compare(v, o) == ComparisonGreater }

// Equal reports SemVer equality. Build metadata is ignored.
func (v Version) Equal(o Version) bool { return Compare(v, o) == ComparisonEqual }

// Compare orders two versions by SemVer precedence.
func Compare(a, b Version) Comparison {
	if c := cmpUint(a.Major, b.Major); c != ComparisonEqual {
		return c
	}
	if c := cmpUint(a.Minor, b.Minor); c != ComparisonEqual {
		return c
	}
	if c := cmpUint(a.Patch, b.Patch); c != ComparisonEqual {
		return c
	}

	switch {
	case len(a.pre) == 0 && len(b.pre) == 0:
		return ComparisonEqual
	case len(a.pre) == 0:
		return ComparisonGreater
	case len(b.pre) == 0:
		return ComparisonLess
	}

	limit := min(len(a.pre), len(b.pre))
	for i := 0; i < limit; i++ {
		ai, bi := a.pre[i], b.pre[i]
		switch {
		case ai.numeric && bi.numeric:
			if c := cmpUint(ai.num, bi.num); c != ComparisonEqual {
				return c
			}
		case ai.numeric:
			return ComparisonLess
		case bi.numeric:
			return ComparisonGreater
		default:
			if c := strings.Compare(ai.raw, bi.raw); c != 0 {
				return Comparison(c)
			}
		}
	}
	return cmpUint(uint64(len(a.pre)), uint64(len(b.pre)))
}

func cmpUint(a, b uint64) Comparison {
	switch {
	case a < b:
		return ComparisonLess
	case a > b:
		return ComparisonGreater
	default:
		return ComparisonEqual
	}
}

// Max returns the greatest of vs, or false when vs is empty.
func Max(vs []Version) (Version, bool) {
	if len(vs) == 0 {
		return Version{}, false
	}
	best := vs[0]
	for _, v := range vs[1:] {
		if v.GreaterThan(best) {
			best = v
		}
	}
	return best, true
}
