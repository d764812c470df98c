// Package decompose turns free-form assertions into atomic, taxonomy-typed
// units. The oracle proposes the decomposition; this package validates it,
// retries once with a corrective prompt on taxonomy violations, and falls
// back to the keyword heuristic so one bad assertion never stalls a batch.
// Given the same oracle response the output is byte-for-byte deterministic.
package decompose

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"plangrade/internal/classify"
	"plangrade/internal/llm"
	"plangrade/internal/model"
	"plangrade/internal/registry"
)

// Decomposer splits raw assertions into atomic units
type Decomposer struct {
	oracle     llm.Oracle
	registry   *registry.Registry
	classifier *classify.Classifier
	heuristic  *classify.Heuristic
	logger     *zap.Logger
}

// NewDecomposer creates a decomposer
func NewDecomposer(oracle llm.Oracle, reg *registry.Registry, logger *zap.Logger) *Decomposer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decomposer{
		oracle:     oracle,
		registry:   reg,
		classifier: classify.NewClassifier(reg),
		heuristic:  classify.NewHeuristic(reg),
		logger:     logger,
	}
}

// Decompose produces the atomic units for one assertion. Unit ids are stable
// and monotonic per assertion: the same input with the same registry version
// always yields the same ids.
func (d *Decomposer) Decompose(ctx context.Context, assertion model.RawAssertion, scenarioContext string) ([]model.AtomicUnit, error) {
	req := llm.ClassifyRequest{
		AssertionText:    assertion.Text,
		RegistrySnapshot: d.registry.Snapshot(),
		RegistryVersion:  d.registry.Version(),
		ScenarioContext:  scenarioContext,
	}

	resp, err := d.oracle.Classify(ctx, req)
	if err != nil {
		if errors.Is(err, llm.ErrOracleTimeout) {
			// Timeouts are the caller's signal to mark ORACLE_TIMEOUT and move on
			return nil, err
		}
		d.logger.Warn("oracle classify failed, using heuristic fallback",
			zap.String("assertion_id", assertion.ID), zap.Error(err))
		return d.fallback(assertion), nil
	}

	units, invalidID, err := d.validate(assertion, resp)
	if err == nil {
		return units, nil
	}

	// One corrective retry naming the offending id, then downgrade.
	var invErr *classify.InvalidDimensionError
	if !errors.As(err, &invErr) && invalidID == "" {
		d.logger.Warn("oracle produced unusable decomposition, using heuristic fallback",
			zap.String("assertion_id", assertion.ID), zap.Error(err))
		return d.fallback(assertion), nil
	}

	req.Corrective = fmt.Sprintf("you referenced %q, which is not a registered dimension id", invalidID)
	d.logger.Info("retrying with corrective prompt",
		zap.String("assertion_id", assertion.ID), zap.String("invalid_id", invalidID))

	resp, err = d.oracle.Classify(ctx, req)
	if err != nil {
		if errors.Is(err, llm.ErrOracleTimeout) {
			return nil, err
		}
		return d.fallback(assertion), nil
	}

	units, _, err = d.validate(assertion, resp)
	if err != nil {
		// Second strike: never silently accepted into scoring
		d.logger.Warn("corrective retry still invalid, downgrading to unclassified",
			zap.String("assertion_id", assertion.ID), zap.Error(err))
		return d.unclassified(assertion), nil
	}
	return units, nil
}

// validate runs every draft through the classifier and assigns ids. The
// first invalid dimension id aborts the whole response so the corrective
// retry covers all drafts consistently.
func (d *Decomposer) validate(assertion model.RawAssertion, resp *llm.ClassifyResponse) ([]model.AtomicUnit, string, error) {
	if resp == nil || len(resp.Units) == 0 {
		return nil, "", fmt.Errorf("oracle returned no units")
	}

	units := make([]model.AtomicUnit, 0, len(resp.Units))
	for i, draft := range resp.Units {
		result, err := d.classifier.Classify(draft)
		if err != nil {
			var invErr *classify.InvalidDimensionError
			if errors.As(err, &invErr) {
				return nil, invErr.ID, err
			}
			return nil, "", fmt.Errorf("draft %d: %w", i+1, err)
		}
		if len(result.Pruned) > 0 {
			d.logger.Debug("pruned unjustified grounding dims",
				zap.String("assertion_id", assertion.ID), zap.Strings("pruned", result.Pruned))
		}

		unit := result.Unit
		unit.AssertionID = assertion.ID
		unit.ID = model.UnitID(assertion.ID, len(units)+1)
		units = append(units, unit)
	}
	return units, "", nil
}

// fallback classifies via keywords at reduced confidence
func (d *Decomposer) fallback(assertion model.RawAssertion) []model.AtomicUnit {
	units := d.heuristic.Decompose(assertion)
	if len(units) == 0 {
		return d.unclassified(assertion)
	}
	return units
}

// unclassified emits a single flagged unit for human review. It carries no
// grounding slots (a grounding check without a structural parent is reserved
// for the meta dimension) and the scorer excludes it from pass/fail counts.
func (d *Decomposer) unclassified(assertion model.RawAssertion) []model.AtomicUnit {
	return []model.AtomicUnit{{
		ID:               model.UnitID(assertion.ID, 1),
		AssertionID:      assertion.ID,
		Level:            model.LevelAspirational,
		InstantiatedText: assertion.Text,
		Flags:            []model.UnitFlag{model.FlagUnclassified, model.FlagReview},
		RegistryVersion:  d.registry.Version(),
	}}
}
