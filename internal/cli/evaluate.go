package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"plangrade/internal/artifact"
	"plangrade/internal/model"
	"plangrade/internal/pipeline"
	"plangrade/internal/scenario"
	"plangrade/internal/stage"
)

var (
	evalUnits        string
	evalScenario     string
	evalOutput       string
	evalResults      string
	evalOffline      bool
	evalTimeout      time.Duration
	evalTStructural  float64
	evalTGrounding   float64
	evalRegistryPath string
)

// evaluateCmd represents the evaluate command
var evaluateCmd = &cobra.Command{
	Use:   "evaluate <plan-file>...",
	Short: "Grade generated plans against decomposed units and the scenario record",
	Long: `Evaluate one or more generated workback plans:
- Load atomic units from a stage file or directory of stages
- Verify each grounding slot against the scenario record, citing evidence
- Aggregate into weighted structural/grounding scores and a verdict

With several plan files, reports are ordered best to worst. Plans may be
markdown, plain text, or HTML (stripped to visible text).

Example:
  plangrade evaluate plan.md --units ./plangrade-stages --scenario meeting.yaml
  plangrade evaluate draft-*.md --units stage-0001.jsonl --scenario meeting.yaml --out reports.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVar(&evalUnits, "units", "./plangrade-stages", "stage file or directory of stage files")
	evaluateCmd.Flags().StringVar(&evalScenario, "scenario", "", "scenario record file (YAML/JSON)")
	evaluateCmd.Flags().StringVar(&evalOutput, "out", "", "write the JSON report here (default: stdout)")
	evaluateCmd.Flags().StringVar(&evalResults, "results", "", "also write per-check verification results here")
	evaluateCmd.Flags().BoolVar(&evalOffline, "offline", false, "skip oracle-backed non-contradiction checks")
	evaluateCmd.Flags().DurationVar(&evalTimeout, "timeout", 10*time.Minute, "total timeout for evaluation")
	evaluateCmd.Flags().Float64Var(&evalTStructural, "t-structural", 0, "structural score threshold (default from config: 0.75)")
	evaluateCmd.Flags().Float64Var(&evalTGrounding, "t-grounding", 0, "grounding score threshold (default from config: 0.75)")
	evaluateCmd.Flags().StringVar(&evalRegistryPath, "registry", "", "taxonomy registry file (default: embedded)")

	_ = evaluateCmd.MarkFlagRequired("scenario")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), evalTimeout)
	defer cancel()

	cfg := loadConfig()
	if evalTStructural > 0 {
		cfg.Thresholds.Structural = evalTStructural
	}
	if evalTGrounding > 0 {
		cfg.Thresholds.Grounding = evalTGrounding
	}
	if evalRegistryPath != "" {
		cfg.Registry.Path = evalRegistryPath
	}
	if !evalOffline {
		if err := resolveAPIKey(cfg); err != nil {
			return err
		}
	}

	logger := buildLogger()
	defer func() { _ = logger.Sync() }()

	record, err := scenario.Load(evalScenario)
	if err != nil {
		return err
	}
	units, err := loadUnits(evalUnits)
	if err != nil {
		return err
	}
	if len(units) == 0 {
		return fmt.Errorf("no units found in %s", evalUnits)
	}

	p, err := pipeline.NewPipeline(cfg, logger, !evalOffline)
	if err != nil {
		return err
	}

	var reports []*model.EvaluationReport
	var allResults []model.VerificationResult
	for _, planFile := range args {
		art, err := artifact.Load(planFile)
		if err != nil {
			return err
		}
		report, results, err := p.Evaluate(ctx, units, art, record)
		if err != nil {
			return fmt.Errorf("evaluate %s: %w", planFile, err)
		}
		reports = append(reports, report)
		allResults = append(allResults, results...)
	}
	model.SortReports(reports)

	if len(reports) == 1 {
		err = writeJSON(evalOutput, reports[0])
	} else {
		err = writeJSON(evalOutput, reports)
	}
	if err != nil {
		return err
	}
	if evalResults != "" {
		if err := writeJSON(evalResults, allResults); err != nil {
			return err
		}
	}

	for _, report := range reports {
		printReportSummary(report, len(reports) > 1)
	}
	return nil
}

// loadUnits reads units from a single stage file or a stage directory
func loadUnits(path string) ([]model.AtomicUnit, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat units: %w", err)
	}
	if info.IsDir() {
		return stage.ReadAll(path)
	}
	return stage.Read(path)
}

// writeJSON writes indented JSON to a file, or stdout when path is empty
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if path == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", path)
	}
	return nil
}

func printReportSummary(report *model.EvaluationReport, named bool) {
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	if named {
		fmt.Fprintf(os.Stderr, "  Plan: %s\n", report.ArtifactID)
	}
	fmt.Fprintf(os.Stderr, "  Verdict: %s (%s)\n", report.Verdict.Label(), report.Verdict)
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Structural score:  %.2f\n", report.StructuralScore)
	fmt.Fprintf(os.Stderr, "  Grounding score:   %.2f\n", report.GroundingScore)
	for _, f := range report.FailedStructural {
		fmt.Fprintf(os.Stderr, "  ✗ %s %s: %s\n", f.Dimension, f.Name, f.Rationale)
	}
	for _, f := range report.FailedGrounding {
		fmt.Fprintf(os.Stderr, "  ✗ %s %s: %s\n", f.Dimension, f.Name, f.Rationale)
	}
	if len(report.UnresolvedUnits) > 0 {
		fmt.Fprintf(os.Stderr, "  ⚠ %d unresolved unit(s) need review: %v\n",
			len(report.UnresolvedUnits), report.UnresolvedUnits)
	}
	fmt.Fprintf(os.Stderr, "\n")
}
