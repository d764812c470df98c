package worker

import (
	"context"

	"plangrade/internal/model"
)

// Decomposer is the slice of the pipeline a decompose job needs
type Decomposer interface {
	Decompose(ctx context.Context, assertion model.RawAssertion, scenarioContext string) ([]model.AtomicUnit, error)
}

// DecomposeJob decomposes one assertion inside the pool
type DecomposeJob struct {
	Assertion       model.RawAssertion
	ScenarioContext string
	Decomposer      Decomposer
	Limiter         *Limiter
	Model           string
}

// DecomposeResult is keyed by assertion id so completion order never
// affects correctness.
type DecomposeResult struct {
	AssertionID string
	Units       []model.AtomicUnit
	Err         error
}

// GetError returns the job error, if any
func (r *DecomposeResult) GetError() error {
	return r.Err
}

// Execute runs the decomposition, gated by the rate limiter
func (j *DecomposeJob) Execute(ctx context.Context) Result {
	if j.Limiter != nil {
		if err := j.Limiter.Wait(ctx, j.Model); err != nil {
			return &DecomposeResult{AssertionID: j.Assertion.ID, Err: err}
		}
	}

	units, err := j.Decomposer.Decompose(ctx, j.Assertion, j.ScenarioContext)
	return &DecomposeResult{
		AssertionID: j.Assertion.ID,
		Units:       units,
		Err:         err,
	}
}
