// Package runnertest provides a scripted Runner for tests.
package runnertest

import (
	"context"
	"sync"

	"github.com/vietdv277/cirrus/internal/runner"
)

// Response is the scripted outcome of a step
type Response struct {
	ExitCode int
	Stdout   string
	Stderr   string
	// Err overrides the failure cause, e.g. runner.ErrTimeout
	Err error
	// Hook runs before the response is returned
	Hook func(cmd runner.Command)
}

// Fake records commands and answers them from a per-step script.
// Steps without a response succeed with exit code 0.
type Fake struct {
	mu        sync.Mutex
	responses map[string]Response
	calls     []runner.Command
}

// New creates an empty fake runner
func New() *Fake {
	return &Fake{responses: make(map[string]Response)}
}

// On scripts the response for a step
func (f *Fake) On(step string, resp Response) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[step] = resp
	return f
}

// Fail scripts a non-zero exit with the given stderr
func (f *Fake) Fail(step string, exitCode int, stderr string) *Fake {
	return f.On(step, Response{ExitCode: exitCode, Stderr: stderr})
}

// Calls returns the recorded commands in order
func (f *Fake) Calls() []runner.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]runner.Command, len(f.calls))
	copy(out, f.calls)
	return out
}

// Steps returns the recorded step names in order
func (f *Fake) Steps() []string {
	var steps []string
	for _, c := range f.Calls() {
		steps = append(steps, c.Step)
	}
	return steps
}

// Run implements runner.Runner
func (f *Fake) Run(ctx context.Context, cmd runner.Command) (*runner.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	resp := f.responses[cmd.Step]
	f.mu.Unlock()

	if resp.Hook != nil {
		resp.Hook(cmd)
	}

	res := &runner.Result{ExitCode: resp.ExitCode, Stdout: resp.Stdout, Stderr: resp.Stderr}
	if resp.Err != nil {
		return res, &runner.ExitError{Step: cmd.Step, Dir: cmd.Dir, Result: res, Err: resp.Err}
	}
	if resp.ExitCode != 0 {
		return res, &runner.ExitError{Step: cmd.Step, Dir: cmd.Dir, Result: res, Err: runner.ErrNonZeroExit}
	}
	if err := ctx.Err(); err != nil {
		return res, &runner.ExitError{Step: cmd.Step, Dir: cmd.Dir, Result: res, Err: err}
	}
	return res, nil
}
