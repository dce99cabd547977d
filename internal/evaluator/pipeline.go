// internal/evaluator/pipeline.go
package evaluator

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/openztcc/openzt-eval/api/schemas"
	"github.com/openztcc/openzt-eval/internal/cargo"
	"github.com/openztcc/openzt-eval/internal/config"
)

// Pipeline drives one patch evaluation end to end:
// acquire source -> locate target -> substitute -> build -> (optional) lint -> score.
//
// Each evaluation runs strictly sequentially inside its own workspace; the
// workspace is the only exclusive resource and is released on every exit
// path. Failures of any stage are converted into a ScoreResult at the
// pipeline boundary and never escape to the caller as an error.
type Pipeline struct {
	cfg    *config.Config
	runner cargo.Runner
	logger *zap.Logger
}

// NewPipeline creates a Pipeline. A nil runner defaults to executing cargo
// through os/exec; tests inject a fake.
func NewPipeline(cfg *config.Config, runner cargo.Runner, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		runner: runner,
		logger: logger.Named("pipeline"),
	}
}

// Evaluate scores the candidate text against the patch case. It always
// returns a well-formed ScoreResult: internal failures (clone errors, missing
// target, toolchain launch failure, timeout) yield score 0, passed false, and
// an explanatory reason.
func (p *Pipeline) Evaluate(ctx context.Context, pc schemas.PatchCase, candidate string) schemas.ScoreResult {
	res, err := p.run(ctx, pc, candidate)
	if err != nil {
		p.logger.Warn("Evaluation failed before scoring.",
			zap.String("case", pc.Name),
			zap.Error(err))
		return schemas.ScoreResult{
			Score:  0.0,
			Passed: false,
			Reason: err.Error(),
		}
	}
	return res
}

func (p *Pipeline) run(ctx context.Context, pc schemas.PatchCase, candidate string) (result schemas.ScoreResult, runErr error) {
	ws, err := AcquireWorkspace(ctx, p.cfg.Eval, pc.RepoURL, pc.TagOrBranch, p.logger)
	if err != nil {
		return schemas.ScoreResult{}, fmt.Errorf("failed to acquire source: %w", err)
	}
	defer func() {
		failed := runErr != nil || !result.Passed
		if failed && p.cfg.Eval.KeepWorkspaceOnFailure {
			p.logger.Info("Keeping workspace of failed evaluation.", zap.String("dir", ws.Dir))
			return
		}
		if err := ws.Remove(); err != nil {
			p.logger.Warn("Failed to remove workspace.", zap.String("dir", ws.Dir), zap.Error(err))
		}
	}()

	occurrences, err := ws.Substitute(pc.FilePath, pc.ReplacementTarget, candidate)
	if err != nil {
		// Covers ErrTargetNotFound and unreadable files. No toolchain
		// invocation happens in either case.
		return schemas.ScoreResult{}, err
	}
	p.logger.Debug("Candidate injected.",
		zap.String("case", pc.Name),
		zap.String("file", pc.FilePath),
		zap.Int("occurrences", occurrences))

	builder := cargo.NewBuilder(p.cfg.Cargo, ws.Dir, p.runner, p.logger)
	// Scoring always consumes the structured stream; the human format exists
	// for interactive display only.
	opts := cargo.BuildOptions{Format: cargo.FormatJSON}

	build, err := p.invoke(ctx, func(c context.Context) schemas.BuildOutcome {
		return builder.Build(c, opts)
	})
	if err != nil {
		return p.timedOutResult(build, nil, err), nil
	}

	var lint *schemas.BuildOutcome
	if p.cfg.Scoring.UseClippy {
		lintOut, err := p.invoke(ctx, func(c context.Context) schemas.BuildOutcome {
			return builder.Clippy(c, opts)
		})
		if err != nil {
			return p.timedOutResult(build, &lintOut, err), nil
		}
		lint = &lintOut
	}

	return NewScorer(p.cfg.Scoring).Score(build, lint), nil
}

// invoke runs one toolchain invocation under the configured timeout. The
// returned error is non-nil only when the bound was exceeded or the caller
// canceled; the outcome still carries whatever output was captured first.
func (p *Pipeline) invoke(ctx context.Context, f func(context.Context) schemas.BuildOutcome) (schemas.BuildOutcome, error) {
	runCtx, cancel := context.WithTimeout(ctx, p.cfg.Cargo.Timeout)
	defer cancel()

	outcome := f(runCtx)
	if err := runCtx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return outcome, fmt.Errorf("cargo invocation timed out after %s", p.cfg.Cargo.Timeout)
		}
		return outcome, fmt.Errorf("cargo invocation canceled: %w", err)
	}
	return outcome, nil
}

// timedOutResult reports a timed-out (or canceled) invocation. The score is
// always 0 and the run never passes, but diagnostics parsed from output
// captured before the kill are surfaced through the metadata counts for
// auditability.
func (p *Pipeline) timedOutResult(build schemas.BuildOutcome, lint *schemas.BuildOutcome, cause error) schemas.ScoreResult {
	res := NewScorer(p.cfg.Scoring).Score(build, lint)
	res.Score = 0.0
	res.Passed = false
	res.Reason = cause.Error()
	res.Metadata["timed_out"] = true
	return res
}
