/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelString(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{TraceLevel, "TRACE"},
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
		{Level(999), "UNKNOWN"}, // Invalid level
	}

	for _, test := range tests {
		if result := test.level.String(); result != test.expected {
			t.Errorf("Level.String() = %v, expected %v", result, test.expected)
		}
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{
		"trace": TraceLevel, "DEBUG": DebugLevel, "": InfoLevel, "warning": WarnLevel, "error": ErrorLevel,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestLoggerInitialization(t *testing.T) {
	err := Initialize(Config{Level: InfoLevel, Component: "test"})
	if err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}
	if defaultLogger == nil {
		t.Fatal("Initialize() did not set defaultLogger")
	}
	if defaultLogger.config.Component != "test" {
		t.Errorf("Initialize() did not set config correctly, got component: %s", defaultLogger.config.Component)
	}
}

func TestLoggerJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: InfoLevel, JSON: true, Component: "bump"}, &buf)

	l.Log(InfoLevel, "manifest updated", String("version", "0.2.4"), Int("step", 7), Bool("commit", false))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "manifest updated", entry["message"])
	assert.Equal(t, "bump", entry["component"])
	assert.Equal(t, "0.2.4", entry["version"])
	assert.Equal(t, float64(7), entry["step"])
	assert.Equal(t, false, entry["commit"])
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: WarnLevel, JSON: true}, &buf)

	l.Log(DebugLevel, "hidden")
	l.Log(InfoLevel, "hidden too")
	l.Log(ErrorLevel, "visible", Err(errors.New("boom")))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
	assert.Contains(t, out, "boom")
}

func TestLoggerConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: DebugLevel, UseColor: false}, &buf)

	l.Log(DebugLevel, "running git", Strings("argv", []string{"status"}))

	out := buf.String()
	assert.Contains(t, out, "running git")
	assert.Contains(t, out, "DBG")
	assert.False(t, strings.Contains(out, "\x1b["), "no ANSI escapes without color")
}

func TestSetOutputRedirectsDefaultLogger(t *testing.T) {
	require.NoError(t, Initialize(Config{Level: InfoLevel, JSON: true}))
	var buf bytes.Buffer
	SetOutput(&buf)

	Info("hello")
	Debug("quiet")

	assert.Contains(t, buf.String(), "hello")
	assert.NotContains(t, buf.String(), "quiet")
}

func TestTraceOnlyAtTraceLevel(t *testing.T) {
	require.NoError(t, Initialize(Config{Level: DebugLevel, JSON: true}))
	var buf bytes.Buffer
	SetOutput(&buf)
	Trace("git exited", Int("code", 1))
	assert.Empty(t, buf.String())

	require.NoError(t, Initialize(Config{Level: TraceLevel, JSON: true}))
	SetOutput(&buf)
	Trace("git exited", Int("code", 1))
	assert.Contains(t, buf.String(), `"code":1`)
	assert.Contains(t, buf.String(), `"level":"trace"`)
}
