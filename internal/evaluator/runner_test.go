package evaluator

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openztcc/openzt-eval/api/schemas"
)

func TestStaticCandidate(t *testing.T) {
	fn := StaticCandidate("let x = 1;")
	out, err := fn(context.Background(), schemas.PatchCase{Name: "any"})
	require.NoError(t, err)
	assert.Equal(t, "let x = 1;", out)
}

func TestBatchRunnerRun(t *testing.T) {
	ctx := context.Background()

	t.Run("results come back in case order", func(t *testing.T) {
		cfg := testConfig(t)
		p := NewPipeline(cfg, &scriptedRunner{}, zap.NewNop())
		r := NewBatchRunner(p, 4, zap.NewNop())

		cases := make([]schemas.PatchCase, 6)
		for i := range cases {
			cases[i] = schemas.PatchCase{Name: fmt.Sprintf("case-%d", i)}
		}

		// Generation fails for every case, so no clone ever happens; the
		// point is ordering and per-case isolation.
		generate := func(_ context.Context, pc schemas.PatchCase) (string, error) {
			return "", errors.New("no model configured")
		}

		results := r.Run(ctx, cases, generate)
		require.Len(t, results, 6)
		for i, cr := range results {
			assert.Equal(t, fmt.Sprintf("case-%d", i), cr.Case.Name)
			assert.False(t, cr.Result.Passed)
			assert.Contains(t, cr.Result.Reason, "candidate generation failed")
			assert.False(t, cr.EvaluatedAt.IsZero())
		}
	})

	t.Run("a failed generation never aborts the batch", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Scoring.UseClippy = false
		p := NewPipeline(cfg, &scriptedRunner{runs: []cannedRun{{}}}, zap.NewNop())
		r := NewBatchRunner(p, 1, zap.NewNop())

		good := testCase(t)
		cases := []schemas.PatchCase{
			{Name: "broken"},
			good,
		}

		generate := func(_ context.Context, pc schemas.PatchCase) (string, error) {
			if pc.Name == "broken" {
				return "", errors.New("model unavailable")
			}
			return "42", nil
		}

		results := r.Run(ctx, cases, generate)
		require.Len(t, results, 2)
		assert.False(t, results[0].Result.Passed)
		assert.True(t, results[1].Result.Passed)
	})

	t.Run("zero concurrency is coerced to one", func(t *testing.T) {
		cfg := testConfig(t)
		p := NewPipeline(cfg, &scriptedRunner{}, zap.NewNop())
		r := NewBatchRunner(p, 0, zap.NewNop())

		results := r.Run(ctx, []schemas.PatchCase{{Name: "only"}}, func(context.Context, schemas.PatchCase) (string, error) {
			return "", errors.New("skip")
		})
		require.Len(t, results, 1)
	})

	t.Run("empty batch yields an empty result slice", func(t *testing.T) {
		cfg := testConfig(t)
		p := NewPipeline(cfg, &scriptedRunner{}, zap.NewNop())
		r := NewBatchRunner(p, 2, zap.NewNop())

		results := r.Run(ctx, nil, StaticCandidate("x"))
		assert.Empty(t, results)
	})
}
