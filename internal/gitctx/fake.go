package gitctx

import (
	"context"
	"strings"
	"sync"
)

// Call is one recorded invocation of a FakeRunner.
type Call struct {
	Dir  string
	Args []string
}

// FakeRunner is a Runner that replays canned results and records every call.
// Unmatched invocations succeed with empty output.
type FakeRunner struct {
	mu        sync.Mutex
	responses map[string]Result
	errs      map[string]error
	calls     []Call
}

// NewFakeRunner creates an empty FakeRunner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{responses: map[string]Result{}, errs: map[string]error{}}
}

func key(args []string) string { return strings.Join(args, "\x00") }

// On sets the result for an exact argument list.
func (f *FakeRunner) On(res Result, args ...string) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[key(args)] = res
	return f
}

// OnOutput sets a successful result with stdout for an argument list.
func (f *FakeRunner) OnOutput(stdout string, args ...string) *FakeRunner {
	return f.On(Result{Stdout: stdout}, args...)
}

// OnError makes an argument list fail to run.
func (f *FakeRunner) OnError(err error, args ...string) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[key(args)] = err
	return f
}

// Run implements Runner.
func (f *FakeRunner) Run(ctx context.Context, dir string, args ...string) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Dir: dir, Args: append([]string(nil), args...)})
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if err, ok := f.errs[key(args)]; ok {
		return Result{}, err
	}
	return f.responses[key(args)], nil
}

// Calls returns the recorded invocations in order.
func (f *FakeRunner) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Commands returns the recorded invocations rendered as "git ..." strings.
func (f *FakeRunner) Commands() []string {
	calls := f.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = describe(c.Args)
	}
	return out
}

// Called reports whether args were invoked at least once.
func (f *FakeRunner) Called(args ...string) bool {
	want := key(args)
	for _, c := range f.Calls() {
		if key(c.Args) == want {
			return true
		}
	}
	return false
}
