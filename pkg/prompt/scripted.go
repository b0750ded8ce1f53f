package prompt

import (
	"strings"

	"github.com/fulmenhq/ion/pkg/ionerr"
)

// Scripted answers prompts from a fixed list, recording each question.
// Running out of answers aborts, like closing stdin.
type Scripted struct {
	Answers   []string
	Questions []string
}

// NewScripted creates a Scripted prompter.
func NewScripted(answers ...string) *Scripted {
	return &Scripted{Answers: answers}
}

func (s *Scripted) next(q string) (string, error) {
	s.Questions = append(s.Questions, q)
	if len(s.Answers) == 0 {
		return "", ionerr.New(ionerr.UserAborted, "no answer for %q", q)
	}
	a := s.Answers[0]
	s.Answers = s.Answers[1:]
	return strings.TrimSpace(a), nil
}

// Confirm implements Prompter.
func (s *Scripted) Confirm(question string, defaultYes bool) (bool, error) {
	a, err := s.next(question)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(a) {
	case "":
		return defaultYes, nil
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Input implements Prompter.
func (s *Scripted) Input(label, def string) (string, error) {
	a, err := s.next(label)
	if err != nil {
		return "", err
	}
	if a == "" {
		return def, nil
	}
	return a, nil
}

// NonInteractive fails every prompt with NotInteractive.
type NonInteractive struct{}

// Confirm implements Prompter.
func (NonInteractive) Confirm(string, bool) (bool, error) {
	return false, ionerr.New(ionerr.NotInteractive, "stdin is not a terminal; rerun with --no-prompt")
}

// Input implements Prompter.
func (NonInteractive) Input(label, _ string) (string, error) {
	return "", ionerr.New(ionerr.NotInteractive, "cannot ask for %s without a terminal", strings.ToLower(label))
}
