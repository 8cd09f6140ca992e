package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/apenella/go-ansible/v2/pkg/playbook"
)

// StepPlaybook is the step name of configuration runs
const StepPlaybook = "ansible-playbook"

// PlaybookRun describes a configuration step against an inventory
type PlaybookRun struct {
	Playbook  string
	Inventory string
	Dir       string
	ExtraVars map[string]interface{}
	Limit     string
}

// Ansible drives the configuration-management tool
type Ansible struct {
	Runner  Runner
	Binary  string
	Timeout time.Duration
}

// NewAnsible creates an ansible driver; an empty binary means "ansible-playbook"
func NewAnsible(r Runner, binary string, timeout time.Duration) *Ansible {
	if binary == "" {
		binary = "ansible-playbook"
	}
	return &Ansible{Runner: r, Binary: binary, Timeout: timeout}
}

// Command builds the ansible-playbook invocation for run
func (a *Ansible) Command(run PlaybookRun) (Command, error) {
	if run.Playbook == "" {
		return Command{}, errors.New("playbook is required")
	}

	pb := &playbook.AnsiblePlaybookCmd{
		Binary:    a.Binary,
		Playbooks: []string{run.Playbook},
		PlaybookOptions: &playbook.AnsiblePlaybookOptions{
			Inventory: run.Inventory,
			ExtraVars: run.ExtraVars,
			Limit:     run.Limit,
		},
	}

	argv, err := pb.Command()
	if err != nil {
		return Command{}, fmt.Errorf("failed to build ansible-playbook command: %w", err)
	}
	if len(argv) == 0 {
		return Command{}, errors.New("empty ansible-playbook command")
	}

	return Command{
		Step:    StepPlaybook,
		Name:    argv[0],
		Args:    argv[1:],
		Dir:     run.Dir,
		Timeout: a.Timeout,
	}, nil
}

// RunPlaybook executes run and returns its result
func (a *Ansible) RunPlaybook(ctx context.Context, run PlaybookRun) (*Result, error) {
	cmd, err := a.Command(run)
	if err != nil {
		return nil, err
	}
	return a.Runner.Run(ctx, cmd)
}
