// Package saga defines the ordered step registry used by the provisioning executor.
//
// A registry is static configuration built once at startup: a fixed sequence
// of named steps, each with an execute action and an optional best-effort
// compensate action. Ordering is significant; later steps assume earlier
// steps' postconditions hold.
package saga

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/miked5167/directory-wizard/internal/domain/model"
)

// StepResult is returned by a successful execute action.
type StepResult struct {
	// Refs is merged additively into the job's external refs.
	Refs model.RefMap
	// Compensation is merged additively into the job's compensation data.
	// Reserved for steps that need rollback hints; the reference steps
	// leave it empty.
	Compensation model.RefMap
}

// ExecuteFunc performs one unit of provisioning work for a job.
// Returning an error marks the step failed and triggers compensation of the
// steps that already completed.
type ExecuteFunc func(ctx context.Context, jobID, tenantID string) (StepResult, error)

// CompensateFunc attempts to undo a previously successful execute action.
// Failures are logged and swallowed by the executor.
type CompensateFunc func(ctx context.Context, jobID, tenantID string) error

// Step is one named unit of the provisioning sequence.
type Step struct {
	Name       string
	Execute    ExecuteFunc
	Compensate CompensateFunc // optional
}

// SettleFunc releases per-run scratch state for one job. Invoked by the
// executor exactly once per launched saga, after the run can no longer
// execute or compensate steps.
type SettleFunc func(jobID, tenantID string)

// Registry is an immutable ordered list of steps.
type Registry struct {
	steps  []Step
	settle SettleFunc
}

// NewRegistry validates and freezes the given step sequence.
func NewRegistry(steps ...Step) (*Registry, error) {
	if len(steps) == 0 {
		return nil, errors.New("registry requires at least one step")
	}

	seen := make(map[string]struct{}, len(steps))
	for i, s := range steps {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			return nil, fmt.Errorf("step %d has no name", i)
		}
		if s.Execute == nil {
			return nil, fmt.Errorf("step %q has no execute action", name)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate step name %q", name)
		}
		seen[name] = struct{}{}
	}

	frozen := make([]Step, len(steps))
	copy(frozen, steps)
	return &Registry{steps: frozen}, nil
}

// MustNewRegistry is NewRegistry for static wiring paths where a bad
// registry is a programming error.
func MustNewRegistry(steps ...Step) *Registry {
	r, err := NewRegistry(steps...)
	if err != nil {
		panic(err)
	}
	return r
}

// WithSettle returns a copy of the registry carrying a settle hook. Step
// sets that hold in-memory state between steps attach one so the executor
// releases that state when a run settles.
func (r *Registry) WithSettle(fn SettleFunc) *Registry {
	return &Registry{steps: r.steps, settle: fn}
}

// Settled invokes the settle hook, if any. Called once per launched saga
// after success, failure (compensation included) or cancellation.
func (r *Registry) Settled(jobID, tenantID string) {
	if r.settle != nil {
		r.settle(jobID, tenantID)
	}
}

// Len returns the number of registered steps.
func (r *Registry) Len() int {
	return len(r.steps)
}

// Steps returns a copy of the ordered step list.
func (r *Registry) Steps() []Step {
	out := make([]Step, len(r.steps))
	copy(out, r.steps)
	return out
}

// Names returns the ordered step names.
func (r *Registry) Names() []string {
	out := make([]string, len(r.steps))
	for i, s := range r.steps {
		out[i] = s.Name
	}
	return out
}
