// internal/resultstore/store.go
package resultstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/openztcc/openzt-eval/api/schemas"
)

// DBPool abstracts the pgxpool.Pool so tests can substitute a mock.
type DBPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

// Store persists evaluation results in Postgres for cross-run auditability.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a store over an existing connection pool.
func New(pool DBPool, logger *zap.Logger) *Store {
	return &Store{
		pool: pool,
		log:  logger.Named("resultstore"),
	}
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS eval_results (
    id         UUID PRIMARY KEY,
    case_name  TEXT NOT NULL,
    score      DOUBLE PRECISION NOT NULL,
    passed     BOOLEAN NOT NULL,
    reason     TEXT NOT NULL,
    metadata   JSONB NOT NULL DEFAULT '{}',
    duration_ms BIGINT NOT NULL,
    evaluated_at TIMESTAMPTZ NOT NULL
);`

const insertResultSQL = `
INSERT INTO eval_results (id, case_name, score, passed, reason, metadata, duration_ms, evaluated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`

// EnsureSchema creates the results table when it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create eval_results table: %w", err)
	}
	return nil
}

// SaveResult inserts one case result. Metadata is stored as JSONB; a nil map
// becomes an empty object so the column stays queryable.
func (s *Store) SaveResult(ctx context.Context, cr schemas.CaseResult) error {
	metadata, err := json.Marshal(cr.Result.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal result metadata: %w", err)
	}
	if len(metadata) == 0 || string(metadata) == "null" {
		metadata = []byte("{}")
	}

	_, err = s.pool.Exec(ctx, insertResultSQL,
		uuid.New(),
		cr.Case.Name,
		cr.Result.Score,
		cr.Result.Passed,
		cr.Result.Reason,
		metadata,
		cr.Duration.Milliseconds(),
		cr.EvaluatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert result for case %q: %w", cr.Case.Name, err)
	}

	s.log.Debug("Result persisted.", zap.String("case", cr.Case.Name), zap.Float64("score", cr.Result.Score))
	return nil
}

// SaveAll persists every result, stopping at the first failure.
func (s *Store) SaveAll(ctx context.Context, results []schemas.CaseResult) error {
	for _, cr := range results {
		if err := s.SaveResult(ctx, cr); err != nil {
			return err
		}
	}
	return nil
}
