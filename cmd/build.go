// -- cmd/build.go --
package cmd

import (
	"fmt"
	"os"

	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/openztcc/openzt-eval/api/schemas"
	"github.com/openztcc/openzt-eval/internal/cargo"
	"github.com/openztcc/openzt-eval/internal/config"
	"github.com/openztcc/openzt-eval/internal/observability"
)

// newBuildCmd creates the `build` command, a one-off cargo run against a local
// checkout that prints the parsed diagnostics.
func newBuildCmd() *cobra.Command {
	var (
		dir               string
		clippy            bool
		format            string
		features          []string
		allFeatures       bool
		noDefaultFeatures bool
		pkg               string
		workspace         bool
		asJSON            bool
	)

	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Runs cargo build (or clippy) and reports the parsed diagnostics",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags so command-line values override the config file and
			// environment with the right precedence.
			if err := viper.BindPFlag("cargo.release", cmd.Flags().Lookup("release")); err != nil {
				return err
			}
			if err := viper.BindPFlag("cargo.nightly", cmd.Flags().Lookup("nightly")); err != nil {
				return err
			}
			if err := viper.BindPFlag("cargo.target", cmd.Flags().Lookup("target")); err != nil {
				return err
			}
			return viper.BindPFlag("cargo.manifest_path", cmd.Flags().Lookup("manifest-path"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}

			opts := cargo.BuildOptions{
				Features:          features,
				AllFeatures:       allFeatures,
				NoDefaultFeatures: noDefaultFeatures,
				Package:           pkg,
				Workspace:         workspace,
				Format:            cargo.MessageFormat(format),
				Clippy:            clippy,
			}

			builder := cargo.NewBuilder(cfg.Cargo, dir, nil, logger)
			outcome := builder.Build(ctx, opts)

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(outcome)
			}
			printOutcome(outcome)

			if !outcome.Success {
				logger.Warn("Build failed.", zap.Int("exit_code", outcome.ExitCode))
				return fmt.Errorf("cargo exited with code %d", outcome.ExitCode)
			}
			return nil
		},
	}

	buildCmd.Flags().StringVarP(&dir, "dir", "d", ".", "directory containing the cargo project")
	buildCmd.Flags().BoolVar(&clippy, "clippy", false, "run cargo clippy instead of cargo build")
	buildCmd.Flags().StringVar(&format, "format", "json", "cargo message format (json or human)")
	buildCmd.Flags().StringSliceVar(&features, "features", nil, "comma separated feature list")
	buildCmd.Flags().BoolVar(&allFeatures, "all-features", false, "activate all available features")
	buildCmd.Flags().BoolVar(&noDefaultFeatures, "no-default-features", false, "do not activate default features")
	buildCmd.Flags().StringVar(&pkg, "package", "", "build only this workspace member")
	buildCmd.Flags().BoolVar(&workspace, "workspace", false, "build every workspace member")
	buildCmd.Flags().BoolVar(&asJSON, "json", false, "print the full outcome as JSON")
	buildCmd.Flags().Bool("release", false, "build with the release profile")
	buildCmd.Flags().Bool("nightly", false, "run cargo through the nightly toolchain")
	buildCmd.Flags().String("target", "", "target triple to build for")
	buildCmd.Flags().String("manifest-path", "", "path to Cargo.toml")

	return buildCmd
}

// printOutcome writes a human oriented summary of the outcome to stdout.
func printOutcome(outcome schemas.BuildOutcome) {
	for _, d := range outcome.Diagnostics {
		loc := ""
		if len(d.Spans) > 0 {
			s := d.Spans[0]
			loc = fmt.Sprintf(" (%s:%d:%d)", s.FileName, s.LineStart, s.ColumnStart)
		}
		code := ""
		if d.Code != "" {
			code = fmt.Sprintf("[%s]", d.Code)
		}
		fmt.Printf("%s%s: %s%s\n", d.Level, code, d.Message, loc)
	}
	fmt.Printf("exit=%d errors=%d warnings=%d skipped=%d\n",
		outcome.ExitCode,
		outcome.CountLevel(schemas.LevelError),
		outcome.CountLevel(schemas.LevelWarning),
		outcome.SkippedRecords)
}
