// internal/cargo/builder.go
package cargo

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/openztcc/openzt-eval/api/schemas"
	"github.com/openztcc/openzt-eval/internal/config"
)

// MessageFormat selects the cargo output mode and, with it, which parser
// consumes the captured output.
type MessageFormat string

const (
	// FormatJSON requests newline-delimited JSON records on stdout.
	FormatJSON MessageFormat = "json"
	// FormatHuman requests the standard terminal rendering on stderr.
	FormatHuman MessageFormat = "human"
)

// BuildOptions are the per-invocation knobs for one cargo run.
type BuildOptions struct {
	Features          []string
	AllFeatures       bool
	NoDefaultFeatures bool

	// Package selects one workspace member; Workspace selects all of them.
	// Package wins when both are set.
	Package   string
	Workspace bool

	Format    MessageFormat
	ExtraArgs []string

	// Clippy runs `cargo clippy` instead of `cargo build`.
	Clippy bool
}

// Builder translates a configuration into cargo invocations and turns their
// captured output into BuildOutcomes.
type Builder struct {
	cfg     config.CargoConfig
	rootDir string
	runner  Runner
	logger  *zap.Logger
}

// NewBuilder creates a Builder rooted at rootDir. A nil runner defaults to
// OSRunner.
func NewBuilder(cfg config.CargoConfig, rootDir string, runner Runner, logger *zap.Logger) *Builder {
	if runner == nil {
		runner = OSRunner{}
	}
	return &Builder{
		cfg:     cfg,
		rootDir: rootDir,
		runner:  runner,
		logger:  logger.Named("cargo"),
	}
}

// Build runs cargo build (or clippy when opts.Clippy is set) synchronously and
// returns the outcome. It never returns an error: process-level failures are
// folded into the BuildOutcome so callers always get a well-formed result.
//
// Success derives strictly from the exit code. A launch failure (cargo missing,
// workdir gone) yields success=false, exit code -1, empty diagnostics, and the
// failure reason in Stderr. On context timeout or cancellation whatever output
// was captured before the kill is still parsed, so partial diagnostics remain
// visible to the caller.
func (b *Builder) Build(ctx context.Context, opts BuildOptions) schemas.BuildOutcome {
	if opts.Format == "" {
		opts.Format = FormatJSON
	}
	spec := b.command(opts)
	b.logger.Debug("Running cargo.",
		zap.String("bin", spec.Name),
		zap.Strings("args", spec.Args),
		zap.String("dir", spec.Dir))

	var stdout, stderr bytes.Buffer
	exitCode, err := b.runner.Run(ctx, spec, &stdout, &stderr)

	outcome := schemas.BuildOutcome{
		Success:  err == nil && exitCode == 0,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
	}

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) && ctx.Err() == nil {
		// The process never started. Report the reason through the outcome
		// instead of propagating; there is no output to parse.
		b.logger.Warn("Cargo failed to launch.", zap.Error(err))
		outcome.ExitCode = -1
		if outcome.Stderr == "" {
			outcome.Stderr = err.Error()
		}
		return outcome
	}

	switch opts.Format {
	case FormatHuman:
		outcome.Diagnostics = ParseHumanOutput(outcome.Stderr)
	default:
		outcome.Diagnostics, outcome.SkippedRecords = ParseJSONOutput(outcome.Stdout)
	}

	b.logger.Debug("Cargo finished.",
		zap.Int("exit_code", outcome.ExitCode),
		zap.Bool("success", outcome.Success),
		zap.Int("diagnostics", len(outcome.Diagnostics)),
		zap.Int("skipped_records", outcome.SkippedRecords))
	return outcome
}

// Clippy runs cargo clippy with the given options. Convenience wrapper around
// Build with Clippy set.
func (b *Builder) Clippy(ctx context.Context, opts BuildOptions) schemas.BuildOutcome {
	opts.Clippy = true
	return b.Build(ctx, opts)
}

// command assembles the cargo argv for the given options.
func (b *Builder) command(opts BuildOptions) CommandSpec {
	args := make([]string, 0, 16)
	if b.cfg.Nightly {
		args = append(args, "+nightly")
	}
	if opts.Clippy {
		args = append(args, "clippy")
	} else {
		args = append(args, "build")
	}

	if b.cfg.ManifestPath != "" {
		args = append(args, "--manifest-path", b.cfg.ManifestPath)
	}
	if b.cfg.Target != "" {
		args = append(args, "--target", b.cfg.Target)
	}
	if b.cfg.Release {
		args = append(args, "--release")
	}

	if len(opts.Features) > 0 {
		args = append(args, "--features", strings.Join(opts.Features, ","))
	}
	if opts.AllFeatures {
		args = append(args, "--all-features")
	}
	if opts.NoDefaultFeatures {
		args = append(args, "--no-default-features")
	}

	if opts.Package != "" {
		args = append(args, "--package", opts.Package)
	} else if opts.Workspace {
		args = append(args, "--workspace")
	}

	args = append(args, "--message-format", string(opts.Format))
	args = append(args, opts.ExtraArgs...)

	return CommandSpec{Name: b.cfg.Bin, Args: args, Dir: b.rootDir}
}
