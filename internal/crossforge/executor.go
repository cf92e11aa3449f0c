package crossforge

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// Runner abstracts command execution so build steps can be exercised with a
// recording stand-in in tests.
type Runner interface {
	Run(cmd *exec.Cmd) error
}

// Executor runs upstream build commands. It wires up stdio, isolates the
// child in its own process group, and kills the whole group when the run
// context is cancelled so a Ctrl+C does not leave make/ninja workers behind.
type Executor struct {
	Context context.Context
	Quiet   bool // Quiet discards child stdout/stderr unless the command set its own
}

func NewExecutor(ctx context.Context) *Executor {
	return &Executor{Context: ctx}
}

func (e *Executor) Run(cmd *exec.Cmd) error {
	// --- Phase 0: wire up stdio ---
	if cmd.Stdin == nil {
		cmd.Stdin = os.Stdin
	}
	if cmd.Stdout == nil && !e.Quiet {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil && !e.Quiet {
		cmd.Stderr = os.Stderr
	}

	// --- Phase 1: rebuild under the run context ---
	finalCmd := exec.CommandContext(e.Context, cmd.Path, cmd.Args[1:]...)
	finalCmd.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		finalCmd.Env = cmd.Env
	} else {
		finalCmd.Env = os.Environ()
	}
	finalCmd.Stdin = cmd.Stdin
	finalCmd.Stdout = cmd.Stdout
	finalCmd.Stderr = cmd.Stderr

	// --- Phase 2: isolate process group for context-based cleanup ---
	finalCmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := finalCmd.Start(); err != nil {
		return fmt.Errorf("failed to start command: %w", err)
	}

	pgid := finalCmd.Process.Pid
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-e.Context.Done():
			syscall.Kill(-pgid, syscall.SIGKILL)
		case <-done:
		}
	}()

	if waitErr := finalCmd.Wait(); waitErr != nil {
		if e.Context.Err() != nil {
			time.Sleep(100 * time.Millisecond)
			return fmt.Errorf("command aborted: %v", e.Context.Err())
		}
		return waitErr
	}
	return nil
}
