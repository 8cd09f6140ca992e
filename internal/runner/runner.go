// Package runner invokes external provisioning and configuration tools as
// blocking subprocesses with an explicit working directory.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/vietdv277/cirrus/internal/logging"
)

var (
	// ErrTimeout is returned when a tool exceeds its deadline
	ErrTimeout = errors.New("tool execution timed out")
	// ErrNonZeroExit is returned when a tool exits with a non-zero status
	ErrNonZeroExit = errors.New("non-zero exit status")
)

// Command describes a single tool invocation
type Command struct {
	Step    string   // human readable step name, e.g. "terraform init"
	Name    string   // binary
	Args    []string // arguments, without the binary
	Dir     string   // working directory
	Env     []string // extra KEY=VALUE pairs appended to the process environment
	Timeout time.Duration
}

// String renders the command line
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Result holds the outcome of an invocation
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// ExitError reports a failed invocation together with its captured output.
// Err is ErrNonZeroExit, ErrTimeout, a context error or a launch error.
type ExitError struct {
	Step   string
	Dir    string
	Result *Result
	Err    error
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s failed", e.Step)
	if e.Result != nil && e.Result.ExitCode > 0 {
		msg += fmt.Sprintf(" (exit code %d)", e.Result.ExitCode)
	}
	msg += ": " + e.Err.Error()
	if out := e.Output(); out != "" {
		msg += "\n" + out
	}
	return msg
}

func (e *ExitError) Unwrap() error { return e.Err }

// Output returns the captured diagnostic stream, falling back to stdout
func (e *ExitError) Output() string {
	if e.Result == nil {
		return ""
	}
	if s := strings.TrimSpace(e.Result.Stderr); s != "" {
		return s
	}
	return strings.TrimSpace(e.Result.Stdout)
}

// Runner executes commands
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// Exec runs commands as local subprocesses
type Exec struct {
	Logger logging.Logger
}

// NewExec creates a subprocess runner
func NewExec(logger logging.Logger) *Exec {
	return &Exec{Logger: logger}
}

// Run executes cmd synchronously. A non-zero exit returns an *ExitError
// whose Result carries the captured streams.
func (e *Exec) Run(ctx context.Context, cmd Command) (*Result, error) {
	runCtx := ctx
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	c := exec.CommandContext(runCtx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	c.WaitDelay = 5 * time.Second

	var outBuf, errBuf bytes.Buffer
	c.Stdout = &outBuf
	c.Stderr = &errBuf

	if e.Logger != nil {
		e.Logger.WithFields(logging.Fields{
			"step": cmd.Step,
			"dir":  cmd.Dir,
			"cmd":  cmd.String(),
		}).Debug("Running tool")
	}

	start := time.Now()
	err := c.Run()
	res := &Result{
		Stdout:   outBuf.String(),
		Stderr:   errBuf.String(),
		Duration: time.Since(start),
	}
	if err == nil {
		return res, nil
	}

	failure := &ExitError{Step: cmd.Step, Dir: cmd.Dir, Result: res}
	var ee *exec.ExitError
	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		res.ExitCode = -1
		failure.Err = ErrTimeout
	case ctx.Err() != nil:
		res.ExitCode = -1
		failure.Err = ctx.Err()
	case errors.As(err, &ee):
		res.ExitCode = ee.ExitCode()
		failure.Err = ErrNonZeroExit
	default:
		// binary not found, bad working directory, ...
		res.ExitCode = -1
		failure.Err = fmt.Errorf("failed to start %s: %w", cmd.Name, err)
	}
	return res, failure
}
