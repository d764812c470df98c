// Package pipeline wires the registry, oracles, decomposer, verifier and
// scorer into the two entry points the CLI drives: decomposing assertions
// and evaluating an artifact.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"plangrade/internal/cache"
	"plangrade/internal/decompose"
	"plangrade/internal/llm"
	"plangrade/internal/model"
	"plangrade/internal/registry"
	"plangrade/internal/score"
	"plangrade/internal/verify"
)

// Pipeline holds the assembled evaluation chain
type Pipeline struct {
	Registry   *registry.Registry
	decomposer *decompose.Decomposer
	verifier   *verify.Verifier
	scorer     *score.Scorer
	logger     *zap.Logger
}

// NewPipeline assembles the chain from configuration. The oracle is wrapped
// with retry and (when enabled) response caching; requireOracle=false builds
// an offline pipeline that can evaluate pre-decomposed units.
func NewPipeline(cfg *model.Config, logger *zap.Logger, requireOracle bool) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var reg *registry.Registry
	var err error
	if cfg.Registry.Path != "" {
		reg, err = registry.Load(cfg.Registry.Path)
	} else {
		reg, err = registry.LoadDefault()
	}
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}

	var oracle llm.Oracle
	if requireOracle {
		oracle, err = llm.NewOracle(llm.ConfigFromModel(cfg.LLM))
		if err != nil {
			return nil, fmt.Errorf("create oracle: %w", err)
		}
		oracle = llm.NewRetryingOracle(oracle, cfg.LLM.MaxRetries)
		if cfg.Cache.Enabled {
			store := cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
			oracle = llm.NewCachedOracle(oracle, store)
		}
	}

	thresholds := score.Thresholds{
		Structural: cfg.Thresholds.Structural,
		Grounding:  cfg.Thresholds.Grounding,
	}

	return &Pipeline{
		Registry:   reg,
		decomposer: decompose.NewDecomposer(oracle, reg, logger),
		verifier:   verify.NewVerifier(reg, oracle, logger),
		scorer:     score.NewScorer(reg, thresholds),
		logger:     logger,
	}, nil
}

// Decompose splits one assertion into atomic units (satisfies worker.Decomposer)
func (p *Pipeline) Decompose(ctx context.Context, assertion model.RawAssertion, scenarioContext string) ([]model.AtomicUnit, error) {
	return p.decomposer.Decompose(ctx, assertion, scenarioContext)
}

// Evaluate verifies every unit against the artifact and scenario record and
// aggregates the results into a report.
func (p *Pipeline) Evaluate(ctx context.Context, units []model.AtomicUnit, art *model.ArtifactUnderTest, record *model.ScenarioRecord) (*model.EvaluationReport, []model.VerificationResult, error) {
	if art == nil || record == nil {
		return nil, nil, fmt.Errorf("artifact and scenario record are required")
	}

	var results []model.VerificationResult
	var metaUnits []model.AtomicUnit

	for _, unit := range units {
		if unit.HasFlag(model.FlagUnclassified) || unit.HasFlag(model.FlagOracleTimeout) {
			continue // Surfaced as unresolved by the scorer, not verified
		}
		if unit.IsMeta() {
			metaUnits = append(metaUnits, unit)
			continue
		}
		results = append(results, p.verifier.VerifyUnit(ctx, unit, art, record)...)
	}

	// The meta check is derived from the grounding results, so it runs last
	for _, unit := range metaUnits {
		results = append(results, p.verifier.MetaResult(unit, art, results))
	}

	report := p.scorer.Score(units, results, art.ID)
	p.logger.Info("artifact evaluated",
		zap.String("artifact_id", art.ID),
		zap.Float64("structural_score", report.StructuralScore),
		zap.Float64("grounding_score", report.GroundingScore),
		zap.String("verdict", string(report.Verdict)))

	return report, results, nil
}
