// Package orchestrator drives decomposition over many assertions in
// fixed-size stages. Each stage's output is persisted before the next stage
// starts, and the injected checkpoint store makes re-runs idempotent: a
// killed batch resumes by skipping already-processed assertion ids.
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"plangrade/internal/checkpoint"
	"plangrade/internal/llm"
	"plangrade/internal/model"
	"plangrade/internal/stage"
	"plangrade/internal/worker"
)

// Options configures a batch run
type Options struct {
	StageSize int
	Workers   int
	OutputDir string
	Model     string // For the per-model rate limiter
}

// Summary reports what a batch run did
type Summary struct {
	Total           int `json:"total"`
	Skipped         int `json:"skipped"` // Already in the checkpoint
	Processed       int `json:"processed"`
	TimedOut        int `json:"timed_out"`
	Failed          int `json:"failed"`
	StagesCompleted int `json:"stages_completed"`
	UnitsWritten    int `json:"units_written"`
}

// Orchestrator runs the staged batch pipeline
type Orchestrator struct {
	decomposer worker.Decomposer
	store      checkpoint.Store
	limiter    *worker.Limiter
	opts       Options
	logger     *zap.Logger
}

// New creates an orchestrator. The checkpoint store is injected; the
// orchestrator never touches ambient global state.
func New(decomposer worker.Decomposer, store checkpoint.Store, limiter *worker.Limiter, opts Options, logger *zap.Logger) *Orchestrator {
	if opts.StageSize <= 0 {
		opts.StageSize = 50
	}
	if opts.Workers <= 0 {
		opts.Workers = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		decomposer: decomposer,
		store:      store,
		limiter:    limiter,
		opts:       opts,
		logger:     logger,
	}
}

// Run processes all assertions not yet in the checkpoint. One bad assertion
// never aborts the batch: failures become flagged units and the run goes on.
func (o *Orchestrator) Run(ctx context.Context, assertions []model.RawAssertion, scenarioContext string) (*Summary, error) {
	if err := o.store.Load(); err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}

	summary := &Summary{Total: len(assertions)}

	var pending []model.RawAssertion
	for _, a := range assertions {
		if o.store.Contains(a.ID) {
			summary.Skipped++
			continue
		}
		pending = append(pending, a)
	}

	o.logger.Info("batch starting",
		zap.Int("total", summary.Total),
		zap.Int("pending", len(pending)),
		zap.Int("skipped", summary.Skipped),
		zap.Int("stage_size", o.opts.StageSize))

	stageNum := o.store.LastCompletedStage()
	for start := 0; start < len(pending); start += o.opts.StageSize {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		end := start + o.opts.StageSize
		if end > len(pending) {
			end = len(pending)
		}
		stageNum++

		if err := o.runStage(ctx, stageNum, pending[start:end], scenarioContext, summary); err != nil {
			return summary, fmt.Errorf("stage %d: %w", stageNum, err)
		}
		summary.StagesCompleted++
	}

	o.logger.Info("batch complete",
		zap.Int("processed", summary.Processed),
		zap.Int("timed_out", summary.TimedOut),
		zap.Int("failed", summary.Failed),
		zap.Int("stages", summary.StagesCompleted))
	return summary, nil
}

// runStage decomposes one stage's assertions concurrently, writes the stage
// file atomically, then records the checkpoint. Results are keyed by
// assertion id, so worker completion order never affects the output.
func (o *Orchestrator) runStage(ctx context.Context, stageNum int, batch []model.RawAssertion, scenarioContext string, summary *Summary) error {
	pool := worker.NewPool(ctx, o.opts.Workers)
	pool.Start()

	for _, a := range batch {
		pool.Submit(&worker.DecomposeJob{
			Assertion:       a,
			ScenarioContext: scenarioContext,
			Decomposer:      o.decomposer,
			Limiter:         o.limiter,
			Model:           o.opts.Model,
		})
	}

	byID := make(map[string]*worker.DecomposeResult, len(batch))
	for _, result := range pool.Wait() {
		dr := result.(*worker.DecomposeResult)
		byID[dr.AssertionID] = dr
	}

	// Assemble units in input order so stage files are deterministic.
	// Assertions the workers never processed (batch cancelled, context error)
	// are kept out of the checkpoint so a resumed run retries them.
	var units []model.AtomicUnit
	ids := make([]string, 0, len(batch))
	aborted := 0
	for _, a := range batch {
		dr, ok := byID[a.ID]
		if !ok || isCancellation(dr.Err) {
			aborted++
			continue
		}
		ids = append(ids, a.ID)

		switch {
		case dr.Err != nil && errors.Is(dr.Err, llm.ErrOracleTimeout):
			units = append(units, o.failedUnit(a, model.FlagOracleTimeout))
			summary.TimedOut++
			o.logger.Warn("oracle timed out", zap.String("assertion_id", a.ID))
		case dr.Err != nil:
			units = append(units, o.failedUnit(a, model.FlagUnclassified))
			summary.Failed++
			o.logger.Warn("assertion failed", zap.String("assertion_id", a.ID), zap.Error(dr.Err))
		default:
			units = append(units, dr.Units...)
			summary.Processed++
		}
	}

	if len(ids) > 0 {
		path := stage.Path(o.opts.OutputDir, stageNum)
		if err := stage.Write(path, units); err != nil {
			return err
		}
		if err := o.store.Append(stageNum, ids); err != nil {
			return err
		}
		summary.UnitsWritten += len(units)

		o.logger.Info("stage completed",
			zap.Int("stage", stageNum),
			zap.Int("assertions", len(ids)),
			zap.Int("units", len(units)),
			zap.String("file", path))
	}

	if aborted > 0 {
		o.logger.Warn("stage aborted",
			zap.Int("stage", stageNum),
			zap.Int("unprocessed", aborted))
		if err := ctx.Err(); err != nil {
			return err
		}
		return fmt.Errorf("%d assertions left unprocessed", aborted)
	}
	return nil
}

// isCancellation reports whether the error means the job never really ran
func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// failedUnit records a skippable failure so the batch continues and the
// final report can surface the assertion as unresolved.
func (o *Orchestrator) failedUnit(a model.RawAssertion, flag model.UnitFlag) model.AtomicUnit {
	return model.AtomicUnit{
		ID:               model.UnitID(a.ID, 1),
		AssertionID:      a.ID,
		Level:            model.LevelAspirational,
		InstantiatedText: a.Text,
		Flags:            []model.UnitFlag{flag, model.FlagReview},
	}
}
