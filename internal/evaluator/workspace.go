// internal/evaluator/workspace.go
package evaluator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openztcc/openzt-eval/internal/config"
)

// ErrTargetNotFound reports that the replacement target substring does not
// occur in the file under evaluation.
var ErrTargetNotFound = errors.New("replacement target not found")

// Workspace is one evaluation's private checkout. No two evaluations ever
// share a tree; the directory lives from AcquireWorkspace until Remove, which
// must run on every exit path.
type Workspace struct {
	Dir    string
	logger *zap.Logger
}

// AcquireWorkspace clones repoURL into a fresh uniquely named directory and
// checks out the requested revision (branch, tag, or commit hash). Local
// paths and file:// URLs work the same as remote URLs. On any failure the
// partially created directory is removed before returning.
func AcquireWorkspace(ctx context.Context, cfg config.EvalConfig, repoURL, revision string, logger *zap.Logger) (*Workspace, error) {
	parent := cfg.WorkDir
	if parent == "" {
		parent = os.TempDir()
	}
	dir := filepath.Join(parent, "openzt-eval-"+uuid.NewString())

	repo, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{URL: repoURL})
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to clone %s: %w", repoURL, err)
	}

	if revision != "" {
		hash, err := repo.ResolveRevision(plumbing.Revision(revision))
		if err != nil {
			_ = os.RemoveAll(dir)
			return nil, fmt.Errorf("failed to resolve revision %q in %s: %w", revision, repoURL, err)
		}
		wt, err := repo.Worktree()
		if err != nil {
			_ = os.RemoveAll(dir)
			return nil, fmt.Errorf("failed to open worktree: %w", err)
		}
		if err := wt.Checkout(&git.CheckoutOptions{Hash: *hash}); err != nil {
			_ = os.RemoveAll(dir)
			return nil, fmt.Errorf("failed to checkout %q: %w", revision, err)
		}
	}

	logger.Debug("Workspace acquired.", zap.String("dir", dir), zap.String("repo", repoURL), zap.String("revision", revision))
	return &Workspace{Dir: dir, logger: logger.Named("workspace")}, nil
}

// Substitute replaces every occurrence of target in the given file with
// replacement and writes the file back. It returns the number of occurrences
// replaced; zero occurrences is ErrTargetNotFound and leaves the file
// untouched.
func (w *Workspace) Substitute(relPath, target, replacement string) (int, error) {
	path := filepath.Join(w.Dir, filepath.FromSlash(relPath))
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", relPath, err)
	}

	content := string(data)
	n := strings.Count(content, target)
	if n == 0 {
		return 0, fmt.Errorf("%w: %q in %s", ErrTargetNotFound, truncateTarget(target), relPath)
	}

	if err := os.WriteFile(path, []byte(strings.ReplaceAll(content, target, replacement)), 0o644); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", relPath, err)
	}
	w.logger.Debug("Substitution applied.", zap.String("file", relPath), zap.Int("occurrences", n))
	return n, nil
}

// Remove deletes the workspace directory.
func (w *Workspace) Remove() error {
	return os.RemoveAll(w.Dir)
}

// truncateTarget keeps error messages readable when the target is a large
// code block.
func truncateTarget(s string) string {
	const maxLen = 80
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
