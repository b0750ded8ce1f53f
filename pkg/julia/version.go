package julia

import (
	"bytes"
	"context"
	"strings"

	"github.com/fulmenhq/ion/pkg/ionerr"
	"github.com/fulmenhq/ion/pkg/versioning"
)

// Version reports the version of the julia binary.
func Version(ctx context.Context, r Runner, binary string) (versioning.Version, error) {
	var out, errOut bytes.Buffer
	cmd := NewCommand(binary, VersionScript).NoStartupFile()
	if err := cmd.Run(ctx, r, &out, &errOut); err != nil {
		return versioning.Version{}, err
	}
	return ParseVersionOutput(out.String())
}

// ParseVersionOutput accepts "1.10.2" or "julia version 1.10.2".
func ParseVersionOutput(out string) (versioning.Version, error) {
	s := strings.TrimSpace(out)
	s = strings.TrimPrefix(s, "julia version ")
	if fields := strings.Fields(s); len(fields) > 0 {
		s = fields[0]
	}
	v, err := versioning.Parse(s)
	if err != nil {
		return versioning.Version{}, ionerr.Wrap(ionerr.ParseError, err, "unexpected julia version output %q", out)
	}
	return v, nil
}
