// Package saga runs a sequence of steps that each know how to undo
// themselves. When a step fails, the steps that already completed are
// compensated in reverse order before the failure is returned.
package saga

import (
	"context"
	"errors"
	"fmt"
)

// Step pairs an action with its undo. Compensate may be nil for steps that
// need no rollback.
type Step struct {
	Name       string
	Execute    func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

type Saga struct {
	name  string
	steps []Step
}

func New(name string) *Saga {
	return &Saga{name: name}
}

func (s *Saga) AddStep(step Step) *Saga {
	s.steps = append(s.steps, step)
	return s
}

// Execute runs the steps in order. On the first failure it rolls back the
// completed steps, last first, and returns the step error. A compensation
// error does not stop the rollback; it is joined onto the returned error.
func (s *Saga) Execute(ctx context.Context) error {
	for i, step := range s.steps {
		if err := step.Execute(ctx); err != nil {
			err = fmt.Errorf("saga %s: step %q failed: %w", s.name, step.Name, err)
			if compErr := s.rollback(ctx, i); compErr != nil {
				return errors.Join(err, compErr)
			}
			return err
		}
	}
	return nil
}

// rollback compensates steps[0:upTo] in reverse order.
func (s *Saga) rollback(ctx context.Context, upTo int) error {
	var errs []error
	for i := upTo - 1; i >= 0; i-- {
		step := s.steps[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			errs = append(errs, fmt.Errorf("compensate %q: %w", step.Name, err))
		}
	}
	return errors.Join(errs...)
}
