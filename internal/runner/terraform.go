package runner

import (
	"context"
	"time"
)

// Terraform step names
const (
	StepInit    = "terraform init"
	StepApply   = "terraform apply"
	StepDestroy = "terraform destroy"
)

// Terraform drives the provisioning tool
type Terraform struct {
	Runner  Runner
	Binary  string
	Timeout time.Duration
}

// NewTerraform creates a terraform driver; an empty binary means "terraform"
func NewTerraform(r Runner, binary string, timeout time.Duration) *Terraform {
	if binary == "" {
		binary = "terraform"
	}
	return &Terraform{Runner: r, Binary: binary, Timeout: timeout}
}

// Apply runs init followed by apply in dir. Apply is never attempted when
// init fails; the returned *ExitError names the failing step.
func (t *Terraform) Apply(ctx context.Context, dir string) error {
	if _, err := t.run(ctx, StepInit, dir, "init", "-input=false", "-no-color"); err != nil {
		return err
	}
	_, err := t.run(ctx, StepApply, dir, "apply", "-auto-approve", "-input=false", "-no-color")
	return err
}

// Destroy tears down the infrastructure described in dir
func (t *Terraform) Destroy(ctx context.Context, dir string) error {
	_, err := t.run(ctx, StepDestroy, dir, "destroy", "-auto-approve", "-input=false", "-no-color")
	return err
}

func (t *Terraform) run(ctx context.Context, step, dir string, args ...string) (*Result, error) {
	return t.Runner.Run(ctx, Command{
		Step:    step,
		Name:    t.Binary,
		Args:    args,
		Dir:     dir,
		Timeout: t.Timeout,
	})
}
