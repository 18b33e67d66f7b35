// Package steps runs an ordered list of idempotent provisioning steps.
package steps

import (
	"context"
	"fmt"
	"log/slog"
)

// Step is a single named provisioning action. Skip is the idempotency guard:
// when it reports true the step's effect is already present and Run is not
// invoked. A nil Skip means the step always runs.
type Step struct {
	// Name identifies the step in logs and error messages.
	Name string
	// Skip reports whether the step can be skipped, with a reason for logs.
	Skip func(ctx context.Context) (bool, string, error)
	// Run performs the step's side effect.
	Run func(ctx context.Context) error
}

// Runner executes steps strictly in declared order, aborting on the first
// failure. Completed steps are never rolled back; re-running the pipeline is
// the supported recovery path, relying on each step's guard.
type Runner struct {
	logger *slog.Logger
}

// NewRunner constructs a Runner that reports progress through logger.
func NewRunner(logger *slog.Logger) *Runner {
	return &Runner{logger: logger}
}

// Run executes the steps in order. The returned error names the failed step.
func (r *Runner) Run(ctx context.Context, steps []Step) error {
	for _, step := range steps {
		if err := r.runStep(ctx, step); err != nil {
			return fmt.Errorf("step %q: %w", step.Name, err)
		}
	}
	return nil
}

func (r *Runner) runStep(ctx context.Context, step Step) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if step.Skip != nil {
		skip, reason, err := step.Skip(ctx)
		if err != nil {
			return fmt.Errorf("check precondition: %w", err)
		}
		if skip {
			r.logger.Info("step skipped", "step", step.Name, "reason", reason)
			return nil
		}
	}

	r.logger.Info("step running", "step", step.Name)
	if err := step.Run(ctx); err != nil {
		r.logger.Error("step failed", "step", step.Name, "error", err)
		return err
	}
	r.logger.Info("step done", "step", step.Name)
	return nil
}
