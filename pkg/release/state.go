package release

import (
	"fmt"
)

// State is the pipeline's progress through Write.
type State int

const (
	StateInit State = iota
	StateTargeted
	StateValidated
	StateConfirmed
	StateMutated
	StateCommitted
	StateRegistered
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateTargeted:
		return "targeted"
	case StateValidated:
		return "validated"
	case StateConfirmed:
		return "confirmed"
	case StateMutated:
		return "mutated"
	case StateCommitted:
		return "committed"
	case StateRegistered:
		return "registered"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Step numbers the stages of Write.
type Step int

const (
	StepResolve Step = iota + 1
	StepTarget
	StepRegistry
	StepWorkingTree
	StepBranch
	StepPrompt
	StepManifest
	StepReport
	StepCommit
	StepRegister
)

var stepNames = map[Step]string{
	StepResolve:     "resolve current version",
	StepTarget:      "compute target version",
	StepRegistry:    "check registry",
	StepWorkingTree: "check working tree",
	StepBranch:      "check branch",
	StepPrompt:      "confirm",
	StepManifest:    "update manifest",
	StepReport:      "generate report",
	StepCommit:      "commit and push",
	StepRegister:    "submit registration",
}

func (s Step) String() string {
	if n, ok := stepNames[s]; ok {
		return n
	}
	return fmt.Sprintf("step %d", int(s))
}

// StepError reports a failure after the manifest was modified, with the
// manual steps needed to finish or undo the release.
type StepError struct {
	Step     Step
	Recovery string
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
