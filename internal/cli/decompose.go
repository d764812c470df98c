package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"plangrade/internal/checkpoint"
	"plangrade/internal/model"
	"plangrade/internal/orchestrator"
	"plangrade/internal/pipeline"
	"plangrade/internal/scenario"
	"plangrade/internal/stage"
	"plangrade/internal/worker"
)

var (
	decomposeOutputDir string
	decomposeScenario  string
	decomposeStageSize int
	decomposeWorkers   int
	decomposeTimeout   time.Duration
	llmProvider        string
	llmModel           string
	noCache            bool
	registryPath       string
)

// decomposeCmd represents the decompose command
var decomposeCmd = &cobra.Command{
	Use:   "decompose <assertions.jsonl>",
	Short: "Decompose raw assertions into atomic units in checkpointed stages",
	Long: `Decompose free-form quality assertions into atomic, taxonomy-typed units:
- Read assertions from a JSONL file (one {"id","meeting_id","text"} per line)
- Process in fixed-size stages with a bounded worker pool
- Persist each stage as a JSONL file before the next stage starts
- Resume after a crash by skipping assertions already in the checkpoint

Example:
  plangrade decompose assertions.jsonl --scenario meeting.yaml
  plangrade decompose assertions.jsonl --stage-size 50 --workers 5 --out ./stages`,
	Args: cobra.ExactArgs(1),
	RunE: runDecompose,
}

func init() {
	rootCmd.AddCommand(decomposeCmd)

	decomposeCmd.Flags().StringVar(&decomposeOutputDir, "out", "./plangrade-stages", "output directory for stage files and checkpoint")
	decomposeCmd.Flags().StringVar(&decomposeScenario, "scenario", "", "scenario record file (YAML/JSON) passed to the oracle as context")
	decomposeCmd.Flags().IntVar(&decomposeStageSize, "stage-size", 50, "assertions per stage")
	decomposeCmd.Flags().IntVar(&decomposeWorkers, "workers", 5, "concurrent oracle workers per stage")
	decomposeCmd.Flags().DurationVar(&decomposeTimeout, "timeout", 30*time.Minute, "total timeout for the batch")

	decomposeCmd.Flags().StringVar(&llmProvider, "llm-provider", "", "oracle provider (openai, ollama)")
	decomposeCmd.Flags().StringVar(&llmModel, "llm-model", "", "oracle model name")
	decomposeCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the oracle response cache")
	decomposeCmd.Flags().StringVar(&registryPath, "registry", "", "taxonomy registry file (default: embedded)")
}

func runDecompose(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), decomposeTimeout)
	defer cancel()

	cfg := loadConfig()
	cfg.Batch.StageSize = decomposeStageSize
	cfg.Batch.Workers = decomposeWorkers
	cfg.Batch.OutputDir = decomposeOutputDir
	if llmProvider != "" {
		cfg.LLM.Provider = llmProvider
	}
	if llmModel != "" {
		cfg.LLM.Model = llmModel
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if registryPath != "" {
		cfg.Registry.Path = registryPath
	}
	if err := resolveAPIKey(cfg); err != nil {
		return err
	}

	logger := buildLogger()
	defer func() { _ = logger.Sync() }()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Plangrade Decomposition\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Stage size:   %d\n", cfg.Batch.StageSize)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Batch.Workers)
	fmt.Fprintf(os.Stderr, "  Oracle:       %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", cfg.Batch.OutputDir)
	fmt.Fprintf(os.Stderr, "\n")

	assertions, err := stage.ReadAssertions(file)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "✓ Loaded %d assertions\n", len(assertions))

	var scenarioContext string
	if decomposeScenario != "" {
		record, err := scenario.Load(decomposeScenario)
		if err != nil {
			return err
		}
		scenarioContext = scenario.Facts(record)
		fmt.Fprintf(os.Stderr, "✓ Loaded scenario record for meeting %s\n", record.MeetingID)
	}

	p, err := pipeline.NewPipeline(cfg, logger, true)
	if err != nil {
		return err
	}

	store := checkpoint.NewFileStore(filepath.Join(cfg.Batch.OutputDir, "checkpoint.json"))
	limiter := worker.NewLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	orch := orchestrator.New(p, store, limiter, orchestrator.Options{
		StageSize: cfg.Batch.StageSize,
		Workers:   cfg.Batch.Workers,
		OutputDir: cfg.Batch.OutputDir,
		Model:     cfg.LLM.Model,
	}, logger)

	summary, err := orch.Run(ctx, assertions, scenarioContext)
	if summary != nil {
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
		fmt.Fprintf(os.Stderr, "  Decomposition Complete\n")
		fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "  Total:       %d assertions\n", summary.Total)
		fmt.Fprintf(os.Stderr, "  Processed:   %d\n", summary.Processed)
		fmt.Fprintf(os.Stderr, "  Skipped:     %d (already checkpointed)\n", summary.Skipped)
		fmt.Fprintf(os.Stderr, "  Timed out:   %d\n", summary.TimedOut)
		fmt.Fprintf(os.Stderr, "  Failed:      %d\n", summary.Failed)
		fmt.Fprintf(os.Stderr, "  Units:       %d across %d stages\n", summary.UnitsWritten, summary.StagesCompleted)
		fmt.Fprintf(os.Stderr, "  Output:      %s\n", cfg.Batch.OutputDir)
		fmt.Fprintf(os.Stderr, "\n")
	}
	return err
}

// resolveAPIKey pulls the provider credential from the environment
func resolveAPIKey(cfg *model.Config) error {
	switch cfg.LLM.Provider {
	case "openai":
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	case "ollama":
		if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
			cfg.LLM.BaseURL = baseURL
		}
	}
	return nil
}
