package prompt

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulmenhq/ion/pkg/exitcode"
	"github.com/fulmenhq/ion/pkg/ionerr"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		defaultYes bool
		want       bool
	}{
		{"yes", "y\n", false, true},
		{"YES", "YES\n", false, true},
		{"no", "n\n", true, false},
		{"default yes", "\n", true, true},
		{"default no", "\n", false, false},
		{"retry", "maybe\ny\n", false, true},
		{"no trailing newline", "yes", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			term := NewTerminalWith(strings.NewReader(tt.input), &out, true)
			got, err := term.Confirm("Release?", tt.defaultYes)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "Release?")
		})
	}
}

func TestConfirmEOFAborts(t *testing.T) {
	term := NewTerminalWith(strings.NewReader(""), &bytes.Buffer{}, true)
	_, err := term.Confirm("Release?", true)
	assert.True(t, errors.Is(err, ionerr.UserAborted))
}

func TestNotInteractive(t *testing.T) {
	term := NewTerminalWith(strings.NewReader("y\n"), &bytes.Buffer{}, false)
	_, err := term.Confirm("Release?", true)
	assert.True(t, errors.Is(err, ionerr.NotInteractive))

	_, err = NonInteractive{}.Input("Name", "")
	assert.True(t, errors.Is(err, ionerr.NotInteractive))
}

func TestInputDefault(t *testing.T) {
	var out bytes.Buffer
	term := NewTerminalWith(strings.NewReader("\nAda\n"), &out, true)

	v, err := term.Input("License", "MIT")
	require.NoError(t, err)
	assert.Equal(t, "MIT", v)
	assert.Contains(t, out.String(), "License (MIT): ")

	v, err = term.Input("Name", "")
	require.NoError(t, err)
	assert.Equal(t, "Ada", v)
}

func TestRequireRepeats(t *testing.T) {
	s := NewScripted("", "  ", "Jane")
	v, err := Require(s, "First name", "")
	require.NoError(t, err)
	assert.Equal(t, "Jane", v)
	assert.Len(t, s.Questions, 3)
}

func TestScriptedRunsOut(t *testing.T) {
	s := NewScripted("y")
	ok, err := s.Confirm("one", false)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = s.Confirm("two", false)
	assert.True(t, errors.Is(err, ionerr.UserAborted))
}

func TestConfirmCancelledWhileWaiting(t *testing.T) {
	pr, pw := io.Pipe()
	defer func() { _ = pw.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	term := NewTerminalWith(pr, &bytes.Buffer{}, true).WithContext(ctx)

	done := make(chan error, 1)
	go func() {
		_, err := term.Confirm("Proceed?", false)
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, ionerr.UserAborted))
		assert.True(t, errors.Is(err, context.Canceled))
		assert.Equal(t, exitcode.Aborted, ionerr.ExitCode(err))
	case <-time.After(2 * time.Second):
		t.Fatal("Confirm did not return after cancellation")
	}
}

func TestRequireStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	term := NewTerminalWith(strings.NewReader("\n\n\n"), &bytes.Buffer{}, true).WithContext(ctx)

	_, err := Require(term, "firstname", "")
	assert.True(t, errors.Is(err, ionerr.UserAborted))
}

func TestPendingLineCarriesOver(t *testing.T) {
	pr, pw := io.Pipe()
	defer func() { _ = pw.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	term := NewTerminalWith(pr, &bytes.Buffer{}, true).WithContext(ctx)

	done := make(chan error, 1)
	go func() {
		_, err := term.Input("Name", "")
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	require.Error(t, <-done)

	term.WithContext(context.Background())
	go func() { _, _ = pw.Write([]byte("Ada\n")) }()
	v, err := term.Input("Name", "")
	require.NoError(t, err)
	assert.Equal(t, "Ada", v)
}
