// Package ionerr defines the error kinds shared by every ion command and maps
// them onto process exit codes.
package ionerr

import (
	"context"
	"errors"
	"fmt"

	"github.com/fulmenhq/ion/pkg/exitcode"
)

// Kind classifies a failure. A Kind is itself an error so callers can test
// for it with errors.Is(err, ionerr.WrongBranch).
type Kind string

func (k Kind) Error() string { return string(k) }

const (
	ParseError               Kind = "ParseError"
	UsageError               Kind = "UsageError"
	ManifestNotFound         Kind = "ManifestNotFound"
	ManifestError            Kind = "ManifestError"
	GitError                 Kind = "GitError"
	InvalidRemoteURL         Kind = "InvalidRemoteUrl"
	RegistryNotFound         Kind = "RegistryNotFound"
	PackageNotInRegistry     Kind = "PackageNotInRegistry"
	VersionRegressesRegistry Kind = "VersionRegressesRegistry"
	RegistrationError        Kind = "RegistrationError"
	WorkingTreeDirty         Kind = "WorkingTreeDirty"
	WrongBranch              Kind = "WrongBranch"
	NotAStrictIncrease       Kind = "NotAStrictIncrease"
	UserAborted              Kind = "UserAborted"
	NotInteractive           Kind = "NotInteractive"
	TemplateNotFound         Kind = "TemplateNotFound"
	MalformedConfig          Kind = "MalformedConfig"
	RenderFailed             Kind = "RenderFailed"
	ComponentFailed          Kind = "ComponentFailed"
	HostLanguageNotFound     Kind = "HostLanguageNotFound"
)

// Error is a classified failure with an optional underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the Kind of e.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// New creates a classified error with a formatted message.
func New(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind. It returns nil when err is nil.
func Wrap(kind Kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the outermost Kind found in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	return ""
}

// ExitCode maps an error onto the CLI exit code contract.
func ExitCode(err error) int {
	if err == nil {
		return exitcode.Success
	}
	if errors.Is(err, context.Canceled) {
		return exitcode.Aborted
	}
	switch KindOf(err) {
	case UserAborted:
		return exitcode.Aborted
	case UsageError, ParseError:
		return exitcode.UsageError
	default:
		return exitcode.GeneralError
	}
}
