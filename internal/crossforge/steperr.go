package crossforge

import (
	"errors"
	"fmt"
	"os/exec"
)

// StepError records which tool and stage failed and the exit status of the
// underlying upstream command, so the orchestrator can report a precise
// failure point instead of relying on uncontrolled termination.
type StepError struct {
	Tool     string
	Stage    string
	ExitCode int
	Err      error
}

func (e *StepError) Error() string {
	if e.ExitCode > 0 {
		return fmt.Sprintf("%s: %s failed (exit status %d): %v", e.Tool, e.Stage, e.ExitCode, e.Err)
	}
	return fmt.Sprintf("%s: %s failed: %v", e.Tool, e.Stage, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// stepFailed wraps err with tool/stage context, pulling the exit status out
// of exec.ExitError when the failure came from a child process.
func stepFailed(tool, stage string, err error) *StepError {
	se := &StepError{Tool: tool, Stage: stage, Err: err}
	var xe *exec.ExitError
	if errors.As(err, &xe) {
		se.ExitCode = xe.ExitCode()
	}
	return se
}
