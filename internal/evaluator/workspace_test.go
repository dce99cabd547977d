package evaluator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openztcc/openzt-eval/internal/config"
)

// initRepo creates a local git repository with one commit containing the
// given files, tags it v1.0, and returns its path.
func initRepo(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(".")
	require.NoError(t, err)

	hash, err := wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	_, err = repo.CreateTag("v1.0", hash, nil)
	require.NoError(t, err)

	return dir
}

func testEvalConfig(t *testing.T) config.EvalConfig {
	return config.EvalConfig{Concurrency: 1, WorkDir: t.TempDir()}
}

func TestAcquireWorkspace(t *testing.T) {
	ctx := context.Background()

	t.Run("clones into a fresh private directory", func(t *testing.T) {
		repoDir := initRepo(t, map[string]string{"src/main.rs": "fn main() {}\n"})
		cfg := testEvalConfig(t)

		ws, err := AcquireWorkspace(ctx, cfg, repoDir, "", zap.NewNop())
		require.NoError(t, err)
		defer ws.Remove()

		assert.DirExists(t, ws.Dir)
		assert.FileExists(t, filepath.Join(ws.Dir, "src", "main.rs"))

		// A second acquisition of the same repo never shares the tree.
		ws2, err := AcquireWorkspace(ctx, cfg, repoDir, "", zap.NewNop())
		require.NoError(t, err)
		defer ws2.Remove()
		assert.NotEqual(t, ws.Dir, ws2.Dir)
	})

	t.Run("checks out a tag when a revision is given", func(t *testing.T) {
		repoDir := initRepo(t, map[string]string{"Cargo.toml": "[package]\nname = \"demo\"\n"})

		ws, err := AcquireWorkspace(ctx, testEvalConfig(t), repoDir, "v1.0", zap.NewNop())
		require.NoError(t, err)
		defer ws.Remove()
		assert.FileExists(t, filepath.Join(ws.Dir, "Cargo.toml"))
	})

	t.Run("unknown revision fails and leaves nothing behind", func(t *testing.T) {
		repoDir := initRepo(t, map[string]string{"a.txt": "a"})
		cfg := testEvalConfig(t)

		_, err := AcquireWorkspace(ctx, cfg, repoDir, "does-not-exist", zap.NewNop())
		require.Error(t, err)

		entries, readErr := os.ReadDir(cfg.WorkDir)
		require.NoError(t, readErr)
		assert.Empty(t, entries, "failed acquisition must clean up its directory")
	})

	t.Run("unreachable repository fails cleanly", func(t *testing.T) {
		cfg := testEvalConfig(t)
		_, err := AcquireWorkspace(ctx, cfg, filepath.Join(cfg.WorkDir, "nope"), "", zap.NewNop())
		require.Error(t, err)

		entries, readErr := os.ReadDir(cfg.WorkDir)
		require.NoError(t, readErr)
		assert.Empty(t, entries)
	})
}

func TestWorkspaceSubstitute(t *testing.T) {
	newWorkspace := func(t *testing.T, files map[string]string) *Workspace {
		t.Helper()
		dir := t.TempDir()
		for name, content := range files {
			path := filepath.Join(dir, filepath.FromSlash(name))
			require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		}
		return &Workspace{Dir: dir, logger: zap.NewNop()}
	}

	t.Run("replaces every occurrence", func(t *testing.T) {
		ws := newWorkspace(t, map[string]string{
			"src/lib.rs": "todo!()\nfn a() { todo!() }\n",
		})

		n, err := ws.Substitute("src/lib.rs", "todo!()", "42")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		data, err := os.ReadFile(filepath.Join(ws.Dir, "src", "lib.rs"))
		require.NoError(t, err)
		assert.Equal(t, "42\nfn a() { 42 }\n", string(data))
	})

	t.Run("missing target returns ErrTargetNotFound and leaves the file alone", func(t *testing.T) {
		original := "fn main() {}\n"
		ws := newWorkspace(t, map[string]string{"src/main.rs": original})

		_, err := ws.Substitute("src/main.rs", "unimplemented!()", "0")
		require.ErrorIs(t, err, ErrTargetNotFound)

		data, readErr := os.ReadFile(filepath.Join(ws.Dir, "src", "main.rs"))
		require.NoError(t, readErr)
		assert.Equal(t, original, string(data))
	})

	t.Run("missing file errors without ErrTargetNotFound", func(t *testing.T) {
		ws := newWorkspace(t, nil)
		_, err := ws.Substitute("src/absent.rs", "x", "y")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrTargetNotFound)
	})

	t.Run("long targets are truncated in the error message", func(t *testing.T) {
		ws := newWorkspace(t, map[string]string{"f.rs": "short\n"})

		longTarget := strings.Repeat("abcd", 40)
		_, err := ws.Substitute("f.rs", longTarget, "z")
		require.ErrorIs(t, err, ErrTargetNotFound)
		assert.Contains(t, err.Error(), "...")
		assert.Less(t, len(err.Error()), len(longTarget))
	})
}

func TestWorkspaceRemove(t *testing.T) {
	ws := &Workspace{Dir: t.TempDir(), logger: zap.NewNop()}
	require.NoError(t, ws.Remove())
	assert.NoDirExists(t, ws.Dir)

	// Removing twice is harmless.
	assert.NoError(t, ws.Remove())
}
