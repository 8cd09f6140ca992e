package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/vietdv277/cirrus/internal/cluster"
	"github.com/vietdv277/cirrus/internal/readiness"
	"github.com/vietdv277/cirrus/internal/runner"
)

// Kind classifies a failed transition
type Kind string

const (
	KindPrecondition    Kind = "precondition"
	KindMaterialization Kind = "materialization"
	KindReadiness       Kind = "readiness"
	KindTool            Kind = "tool"
	KindTimeout         Kind = "timeout"
	KindConflict        Kind = "conflict"
)

// Precondition errors
var (
	ErrClusterExists    = cluster.ErrExists
	ErrClusterNotFound  = cluster.ErrNotFound
	ErrParamsNotFound   = cluster.ErrParamsNotFound
	ErrInvalidName      = cluster.ErrInvalidName
	ErrDuplicateEnvFile = cluster.ErrDuplicateEnvFile
	ErrRegionRequired   = errors.New("region is required")
	ErrTemplateMissing  = errors.New("cluster template directory missing")
	ErrUnknownPod       = errors.New("unknown pod")
	ErrInventoryMissing = errors.New("inventory file missing")
	ErrSecretsDisabled  = errors.New("secret reference found but no secret resolver is configured")
)

// Step names of the steps that are not tool invocations
const (
	StepValidate   = "validate"
	StepLock       = "lock"
	StepMkdir      = "create directory"
	StepCopy       = "copy template"
	StepSubstitute = "substitute placeholders"
	StepParams     = "write params"
	StepEnvFiles   = "write env files"
	StepReadiness  = "readiness"
	StepRemove     = "remove directory"
)

// Error reports a failed transition and the step it failed at
type Error struct {
	Op      string
	Cluster string
	Step    string
	Kind    Kind
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("failed to %s cluster %s", e.Op, e.Cluster)
	if e.Step != "" {
		msg += " at " + e.Step
	}
	return msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of a transition error, or "" for other errors
func KindOf(err error) Kind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return ""
}

// StepOf returns the failing step of a transition error
func StepOf(err error) string {
	var le *Error
	if errors.As(err, &le) {
		return le.Step
	}
	return ""
}

// Output returns the diagnostic output captured from a failed tool, if any
func Output(err error) string {
	var ee *runner.ExitError
	if errors.As(err, &ee) {
		return ee.Output()
	}
	return ""
}

func newError(op, name, step string, kind Kind, err error) *Error {
	return &Error{Op: op, Cluster: name, Step: step, Kind: kind, Err: err}
}

// toolError classifies a runner failure. The step comes from the runner,
// or is step when the tool never started.
func toolError(op, name, step string, err error) *Error {
	var ee *runner.ExitError
	if errors.As(err, &ee) {
		step = ee.Step
	}
	kind := KindTool
	if errors.Is(err, runner.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		kind = KindTimeout
	}
	return newError(op, name, step, kind, err)
}

// lockError classifies a failed lock acquisition
func lockError(op, name string, err error) *Error {
	kind := KindConflict
	if !errors.Is(err, cluster.ErrLocked) {
		kind = KindPrecondition
	}
	return newError(op, name, StepLock, kind, err)
}

func readinessError(op, name string, err error) *Error {
	kind := KindReadiness
	if !errors.Is(err, readiness.ErrNotReady) && errors.Is(err, context.DeadlineExceeded) {
		kind = KindTimeout
	}
	return newError(op, name, StepReadiness, kind, err)
}
