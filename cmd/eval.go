// -- cmd/eval.go --
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/openztcc/openzt-eval/api/schemas"
	"github.com/openztcc/openzt-eval/internal/config"
	"github.com/openztcc/openzt-eval/internal/evaluator"
	"github.com/openztcc/openzt-eval/internal/llm"
	"github.com/openztcc/openzt-eval/internal/observability"
	"github.com/openztcc/openzt-eval/internal/resultstore"
)

// newEvalCmd creates the `eval` command, which runs the full patch scoring
// pipeline over a file of cases.
func newEvalCmd() *cobra.Command {
	var (
		casesFile     string
		candidateFile string
		outputFile    string
	)

	evalCmd := &cobra.Command{
		Use:   "eval",
		Short: "Scores candidate patches against their repositories",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("eval.concurrency", cmd.Flags().Lookup("concurrency")); err != nil {
				return err
			}
			if err := viper.BindPFlag("scoring.use_clippy", cmd.Flags().Lookup("clippy")); err != nil {
				return err
			}
			if err := viper.BindPFlag("eval.keep_workspace_on_failure", cmd.Flags().Lookup("keep-failed")); err != nil {
				return err
			}
			return viper.BindPFlag("llm.model", cmd.Flags().Lookup("model"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}

			cases, err := loadCases(casesFile)
			if err != nil {
				return err
			}
			if len(cases) == 0 {
				return fmt.Errorf("no cases found in %s", casesFile)
			}

			generate, cleanup, err := candidateSource(ctx, cfg, candidateFile, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			pipeline := evaluator.NewPipeline(cfg, nil, logger)
			runner := evaluator.NewBatchRunner(pipeline, cfg.Eval.Concurrency, logger)
			results := runner.Run(ctx, cases, generate)

			if cfg.Results.Enabled {
				if err := persistResults(ctx, cfg, results, logger); err != nil {
					// Persistence is best effort; the run already happened.
					logger.Error("Failed to persist results.", zap.Error(err))
				}
			}

			if outputFile != "" {
				if err := writeResults(outputFile, results); err != nil {
					return err
				}
			}

			return printSummary(results)
		},
	}

	evalCmd.Flags().StringVarP(&casesFile, "cases", "f", "", "JSON file with the patch cases to evaluate")
	evalCmd.Flags().StringVar(&candidateFile, "candidate-file", "", "use this file's contents as the candidate for every case instead of generating")
	evalCmd.Flags().StringVarP(&outputFile, "output", "o", "", "write full results as JSON to this file")
	evalCmd.Flags().Int("concurrency", 4, "number of cases evaluated in parallel")
	evalCmd.Flags().Bool("clippy", true, "run cargo clippy after a successful build")
	evalCmd.Flags().Bool("keep-failed", false, "keep the workspace of failed evaluations on disk")
	evalCmd.Flags().String("model", "", "model used to generate candidates")
	_ = evalCmd.MarkFlagRequired("cases")

	return evalCmd
}

// loadCases reads and decodes a JSON array of patch cases.
func loadCases(path string) ([]schemas.PatchCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cases file: %w", err)
	}
	var cases []schemas.PatchCase
	if err := json.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("failed to decode cases file %s: %w", path, err)
	}
	for i, pc := range cases {
		if pc.Name == "" {
			return nil, fmt.Errorf("case %d has no name", i)
		}
		if pc.RepoURL == "" || pc.FilePath == "" || pc.ReplacementTarget == "" {
			return nil, fmt.Errorf("case %q is missing repo_url, file_path or replacement_target", pc.Name)
		}
	}
	return cases, nil
}

// candidateSource decides where candidate code comes from: a static file, or
// the configured model. The returned cleanup closes the model client.
func candidateSource(ctx context.Context, cfg *config.Config, candidateFile string, logger *zap.Logger) (evaluator.CandidateFunc, func(), error) {
	if candidateFile != "" {
		data, err := os.ReadFile(candidateFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read candidate file: %w", err)
		}
		return evaluator.StaticCandidate(string(data)), func() {}, nil
	}

	client, err := llm.NewGeminiClient(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, nil, err
	}
	gen := llm.NewCandidateGenerator(client, cfg.LLM.Temperature, cfg.LLM.MaxTokens)
	return gen.Generate, func() { _ = client.Close() }, nil
}

// persistResults connects to Postgres and saves the full batch.
func persistResults(ctx context.Context, cfg *config.Config, results []schemas.CaseResult, logger *zap.Logger) error {
	pool, err := pgxpool.New(ctx, cfg.Results.PostgresURL)
	if err != nil {
		return fmt.Errorf("failed to connect to results database: %w", err)
	}
	defer pool.Close()

	store := resultstore.New(pool, logger)
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	return store.SaveAll(ctx, results)
}

// writeResults dumps the batch results as indented JSON.
func writeResults(path string, results []schemas.CaseResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write results file: %w", err)
	}
	return nil
}

// printSummary writes the verdict table to stdout and returns an error when
// any case failed, so the process exit code reflects the batch outcome.
func printSummary(results []schemas.CaseResult) error {
	passed := 0
	for _, cr := range results {
		verdict := "FAIL"
		if cr.Result.Passed {
			verdict = "PASS"
			passed++
		}
		fmt.Printf("%-6s %-30s score=%.3f  %s\n", verdict, cr.Case.Name, cr.Result.Score, cr.Result.Reason)
	}
	fmt.Printf("%d/%d cases passed\n", passed, len(results))
	if passed != len(results) {
		return fmt.Errorf("%d of %d cases failed", len(results)-passed, len(results))
	}
	return nil
}
