// internal/evaluator/scorer.go
package evaluator

import (
	"fmt"
	"strings"

	"github.com/openztcc/openzt-eval/api/schemas"
	"github.com/openztcc/openzt-eval/internal/config"
)

// clippyCodePrefix marks lint-tool findings among lint-run diagnostics.
const clippyCodePrefix = "clippy::"

// Scorer reduces build and lint outcomes into a single ScoreResult using a
// linear penalty formula. Scoring is a pure function of its inputs: repeated
// calls with the same outcomes yield the identical result.
type Scorer struct {
	cfg config.ScoringConfig
}

func NewScorer(cfg config.ScoringConfig) Scorer {
	return Scorer{cfg: cfg}
}

// Score applies the penalty formula. lint is nil when no lint run happened.
//
// Starting from 1.0 it subtracts the error penalty per error, the warning
// penalty per warning, and the clippy penalty per finding whose code carries
// the clippy:: namespace among the lint run's top-level diagnostics. A clippy
// finding usually arrives at warning severity, so it is double-penalized on
// purpose: once as a warning, once as a lint finding. The result is clamped
// to [0, 1].
func (s Scorer) Score(build schemas.BuildOutcome, lint *schemas.BuildOutcome) schemas.ScoreResult {
	buildErrors := build.CountLevel(schemas.LevelError)
	buildWarnings := build.CountLevel(schemas.LevelWarning)

	lintErrors, lintWarnings, clippyFindings := 0, 0, 0
	if lint != nil {
		lintErrors = lint.CountLevel(schemas.LevelError)
		lintWarnings = lint.CountLevel(schemas.LevelWarning)
		for _, d := range lint.Diagnostics {
			if strings.HasPrefix(d.Code, clippyCodePrefix) {
				clippyFindings++
			}
		}
	}

	score := 1.0
	score -= s.cfg.ErrorPenalty * float64(buildErrors+lintErrors)
	score -= s.cfg.WarningPenalty * float64(buildWarnings+lintWarnings)
	score -= s.cfg.ClippyPenalty * float64(clippyFindings)
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	totalWarnings := buildWarnings + lintWarnings
	lintSucceeded := lint == nil || lint.Success
	passed := build.Success && lintSucceeded && (s.cfg.AllowWarnings || totalWarnings == 0)

	metadata := map[string]any{
		"build_errors":          buildErrors,
		"build_warnings":        buildWarnings,
		"build_exit_code":       build.ExitCode,
		"build_skipped_records": build.SkippedRecords,
	}
	if lint != nil {
		metadata["lint_errors"] = lintErrors
		metadata["lint_warnings"] = lintWarnings
		metadata["lint_exit_code"] = lint.ExitCode
		metadata["lint_skipped_records"] = lint.SkippedRecords
		metadata["clippy_findings"] = clippyFindings
	}

	return schemas.ScoreResult{
		Score:    score,
		Passed:   passed,
		Reason:   s.reason(build, lint, totalWarnings, buildErrors+lintErrors, clippyFindings),
		Metadata: metadata,
	}
}

func (s Scorer) reason(build schemas.BuildOutcome, lint *schemas.BuildOutcome, warnings, errors, clippyFindings int) string {
	switch {
	case !build.Success:
		return fmt.Sprintf("build failed (exit %d): %d errors, %d warnings", build.ExitCode, errors, warnings)
	case lint != nil && !lint.Success:
		return fmt.Sprintf("clippy failed (exit %d): %d errors, %d warnings", lint.ExitCode, errors, warnings)
	case warnings > 0 && !s.cfg.AllowWarnings:
		return fmt.Sprintf("build succeeded but %d warnings are not allowed", warnings)
	case warnings > 0 || clippyFindings > 0:
		return fmt.Sprintf("build succeeded: %d warnings, %d clippy findings", warnings, clippyFindings)
	default:
		return "build succeeded with no diagnostics"
	}
}
