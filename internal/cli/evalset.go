package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/roach88/fwcompat/internal/evalset"
	"github.com/roach88/fwcompat/internal/jsonl"
)

// ValidateEvalSetOptions holds flags for the validate-eval-set command.
type ValidateEvalSetOptions struct {
	*RootOptions
	EvalPath  string
	SchemaDir string
}

// FileValidationResult is the JSON payload of the file validators.
type FileValidationResult struct {
	Valid    bool           `json:"valid"`
	Report   any            `json:"report"`
	Problems []ProblemEntry `json:"problems"`
}

// ProblemEntry is one reported problem in JSON output.
type ProblemEntry struct {
	Source  string `json:"source"`
	Line    int    `json:"line,omitempty"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}

func problemEntries(problems []jsonl.Problem) []ProblemEntry {
	entries := make([]ProblemEntry, 0, len(problems))
	for _, p := range problems {
		entries = append(entries, ProblemEntry{
			Source:  p.Source,
			Line:    p.Line,
			ID:      p.ID,
			Message: p.Message(),
		})
	}
	return entries
}

// NewValidateEvalSetCommand creates the validate-eval-set command.
func NewValidateEvalSetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateEvalSetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate-eval-set",
		Short: "Check an eval set JSONL file",
		Long: `Check that every line of an eval set is a JSON object with id,
task_class, prompt and schema, and that ids are unique. With --schema-dir,
every referenced schema file must exist.

All problems are reported; the command exits 1 if there were any.

Example:
  fwcompat validate-eval-set --eval evals/intents.jsonl --schema-dir schemas`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidateEvalSet(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.EvalPath, "eval", "", "path to eval JSONL (required)")
	cmd.Flags().StringVar(&opts.SchemaDir, "schema-dir", "", "verify referenced schemas exist under this directory (default from config)")
	_ = cmd.MarkFlagRequired("eval")

	return cmd
}

func runValidateEvalSet(opts *ValidateEvalSetOptions, cmd *cobra.Command) error {
	sess, err := newSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	report, err := evalset.ValidateFile(opts.EvalPath, evalset.Options{
		SchemaDir: stringFlag(cmd, "schema-dir", sess.cfg.SchemaDir),
		Logger:    sess.logger,
	})
	if err != nil {
		return failRead(sess, "eval set", err)
	}

	return reportFile(sess, report.Problems, report,
		fmt.Sprintf("OK: %s (%d cases)", report.Source, report.IDs))
}

// failRead maps a file validator's read error to a command error.
func failRead(sess *session, what string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return sess.out.Fail(ExitCommandError, ErrCodeNotFound, what+" not found", err)
	}
	return sess.out.Fail(ExitCommandError, ErrCodeInvalidInput, "failed to read "+what, err)
}

// reportFile prints a file validator's outcome: ok on success, one ERROR
// line per problem otherwise.
func reportFile(sess *session, problems []jsonl.Problem, report any, ok string) error {
	result := FileValidationResult{
		Valid:    len(problems) == 0,
		Report:   report,
		Problems: problemEntries(problems),
	}
	sess.logger.Info("file validated", "problems", len(problems))

	if len(problems) == 0 {
		if sess.out.IsJSON() {
			return sess.out.Success(result)
		}
		fmt.Fprintln(sess.out.Writer, ok)
		return nil
	}

	if sess.out.IsJSON() {
		if err := sess.out.Failure(ErrCodeValidationFailed, problems[0].String(), result); err != nil {
			return err
		}
	} else {
		for _, p := range problems {
			fmt.Fprintln(sess.out.Writer, p.String())
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d problem(s)", len(problems)))
}
