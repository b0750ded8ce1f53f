package versioning

import (
	"errors"
	"testing"

	"github.com/fulmenhq/ion/pkg/ionerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"1.2.3", "1.2.3", false},
		{"v1.2.3", "1.2.3", false},
		{"V0.0.1", "0.0.1", false},
		{" 2.0.0 ", "2.0.0", false},
		{"1.0.0-alpha.1", "1.0.0-alpha.1", false},
		{"1.0.0-rc.1+build.5", "1.0.0-rc.1+build.5", false},
		{"1.0.0+20250101", "1.0.0+20250101", false},
		{"", "", true},
		{"1.2", "", true},
		{"01.2.3", "", true},
		{"1.02.3", "", true},
		{"1.2.3-01", "", true},
		{"1.2.3-", "", true},
		{"1.2.3-a..b", "", true},
		{"one.two.three", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, err := Parse(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ionerr.ParseError))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.String())
		})
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want Comparison
	}{
		{"1.0.0", "1.0.0", ComparisonEqual},
		{"1.0.0", "2.0.0", ComparisonLess},
		{"1.10.0", "1.9.0", ComparisonGreater},
		{"1.0.10", "1.0.9", ComparisonGreater},
		{"1.0.0-alpha", "1.0.0", ComparisonLess},
		{"1.0.0", "1.0.0-rc.1", ComparisonGreater},
		{"1.0.0-alpha", "1.0.0-alpha.1", ComparisonLess},
		{"1.0.0-alpha.1", "1.0.0-alpha.beta", ComparisonLess},
		{"1.0.0-alpha.beta", "1.0.0-beta", ComparisonLess},
		{"1.0.0-beta.2", "1.0.0-beta.11", ComparisonLess},
		{"1.0.0-beta.11", "1.0.0-rc.1", ComparisonLess},
		{"1.0.0+build.1", "1.0.0+build.2", ComparisonEqual},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			a, b := MustParse(tt.a), MustParse(tt.b)
			assert.Equal(t, tt.want, Compare(a, b))
			assert.Equal(t, -tt.want, Compare(b, a), "antisymmetric")
		})
	}
}

func TestBumpsDropMetadata(t *testing.T) {
	v := MustParse("1.2.3-rc.1+sha.abc")

	assert.Equal(t, "2.0.0", v.BumpMajor().String())
	assert.Equal(t, "1.3.0", v.BumpMinor().String())
	assert.Equal(t, "1.2.4", v.BumpPatch().String())
	assert.Equal(t, "v1.2.3-rc.1+sha.abc", v.Tag())
	assert.False(t, v.IsRelease())
	assert.Equal(t, "sha.abc", v.Build())
}

func TestMax(t *testing.T) {
	_, ok := Max(nil)
	assert.False(t, ok)

	best, ok := Max([]Version{MustParse("0.9.0"), MustParse("1.0.0-rc.1"), MustParse("1.0.0"), MustParse("0.10.2")})
	require.True(t, ok)
	assert.Equal(t, "1.0.0", best.String())
}
