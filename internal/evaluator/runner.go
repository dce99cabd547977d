// internal/evaluator/runner.go
package evaluator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/openztcc/openzt-eval/api/schemas"
)

// CandidateFunc obtains the candidate text for a patch case, e.g. from a
// model client or a file supplied on the command line.
type CandidateFunc func(ctx context.Context, pc schemas.PatchCase) (string, error)

// StaticCandidate returns a CandidateFunc that always yields the same text.
func StaticCandidate(code string) CandidateFunc {
	return func(context.Context, schemas.PatchCase) (string, error) {
		return code, nil
	}
}

// BatchRunner evaluates many patch cases concurrently. Evaluations are
// embarrassingly parallel: each one owns a private workspace, so the only
// bound is the configured concurrency limit.
type BatchRunner struct {
	pipeline    *Pipeline
	concurrency int
	logger      *zap.Logger
}

func NewBatchRunner(pipeline *Pipeline, concurrency int, logger *zap.Logger) *BatchRunner {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &BatchRunner{
		pipeline:    pipeline,
		concurrency: concurrency,
		logger:      logger.Named("batch"),
	}
}

// Run evaluates every case, generating each candidate through generate.
// Results come back in case order regardless of completion order. A failed
// candidate generation scores 0 for that case; it never aborts the batch.
func (r *BatchRunner) Run(ctx context.Context, cases []schemas.PatchCase, generate CandidateFunc) []schemas.CaseResult {
	results := make([]schemas.CaseResult, len(cases))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, pc := range cases {
		g.Go(func() error {
			start := time.Now()

			var res schemas.ScoreResult
			candidate, err := generate(ctx, pc)
			if err != nil {
				res = schemas.ScoreResult{
					Score:  0.0,
					Passed: false,
					Reason: fmt.Sprintf("candidate generation failed: %v", err),
				}
			} else {
				res = r.pipeline.Evaluate(ctx, pc, candidate)
			}

			results[i] = schemas.CaseResult{
				Case:        pc,
				Result:      res,
				Duration:    time.Since(start),
				EvaluatedAt: time.Now().UTC(),
			}

			verdict := "FAIL"
			if res.Passed {
				verdict = "PASS"
			}
			r.logger.Info("Case evaluated.",
				zap.String("case", pc.Name),
				zap.String("verdict", verdict),
				zap.Float64("score", res.Score),
				zap.Duration("duration", results[i].Duration))
			return nil
		})
	}
	_ = g.Wait()

	return results
}
