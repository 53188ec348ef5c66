package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/fwcompat/internal/outputs"
)

// ValidateOutputsOptions holds flags for the validate-outputs command.
type ValidateOutputsOptions struct {
	*RootOptions
	SchemaDir  string
	InputsPath string
	MapPath    string
	Strategy   string
}

// NewValidateOutputsCommand creates the validate-outputs command.
func NewValidateOutputsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOutputsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate-outputs",
		Short: "Validate model outputs against their JSON Schemas",
		Long: `Validate a JSONL file of {"id", "output", "schema"?} records. Each
record's schema comes from its own "schema" field or, failing that, from the
--map file (an eval set with id and schema per line).

Strategies:
  full     CUE-backed JSON Schema validation
  minimal  top-level required and additionalProperties:false checks only
  auto     full when compiled in, otherwise minimal (default)

Example:
  fwcompat validate-outputs --schema-dir schemas --inputs outputs.jsonl --map evals/intents.jsonl`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidateOutputs(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.SchemaDir, "schema-dir", "", "directory schema references resolve against (default from config)")
	cmd.Flags().StringVar(&opts.InputsPath, "inputs", "", "path to outputs JSONL (required)")
	cmd.Flags().StringVar(&opts.MapPath, "map", "", "optional JSONL mapping id to schema")
	cmd.Flags().StringVar(&opts.Strategy, "strategy", "", "validation strategy: auto, full, minimal (default from config)")
	_ = cmd.MarkFlagRequired("inputs")

	return cmd
}

func runValidateOutputs(opts *ValidateOutputsOptions, cmd *cobra.Command) error {
	sess, err := newSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	schemaDir := stringFlag(cmd, "schema-dir", sess.cfg.SchemaDir)
	if schemaDir == "" {
		return sess.out.Fail(ExitCommandError, ErrCodeConfig, "--schema-dir is required", nil)
	}

	strategy, err := outputs.SelectStrategy(stringFlag(cmd, "strategy", sess.cfg.Outputs.Strategy))
	if err != nil {
		return sess.out.Fail(ExitCommandError, ErrCodeConfig, "failed to select strategy", err)
	}
	sess.out.VerboseLog("Using %s validation strategy", strategy.Name())

	validator, err := outputs.NewValidator(outputs.Options{
		SchemaDir: schemaDir,
		MapPath:   opts.MapPath,
		Strategy:  strategy,
		Logger:    sess.logger,
	})
	if err != nil {
		return sess.out.Fail(ExitCommandError, ErrCodeConfig, "failed to create validator", err)
	}

	report, err := validator.ValidateFile(opts.InputsPath)
	if err != nil {
		return failRead(sess, "outputs", err)
	}

	return reportFile(sess, report.Problems, report, fmt.Sprintf("OK: %s", report.Source))
}
