package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/fwcompat/internal/integrity"
)

// ValidateDBOptions holds flags for the validate-db command.
type ValidateDBOptions struct {
	*RootOptions
	Database string
}

// DBValidationResult is the JSON payload of validate-db.
type DBValidationResult struct {
	Valid    bool                    `json:"valid"`
	Checks   []integrity.CheckResult `json:"checks"`
	Problems []string                `json:"problems"`
}

// NewValidateDBCommand creates the validate-db command.
func NewValidateDBCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateDBOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate-db",
		Short: "Run schema, duplicate and integrity checks on the catalog",
		Long: `Run every quality check against an existing catalog database and report
all problems together:

  schema      required tables exist
  duplicates  device slugs, firmware releases and links are unique
  integrity   no dangling compatibility rows, every device has a link
  bounds      min bootloader version does not exceed max

Exits 1 if any check reports a problem. The database is never modified.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidateDB(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")

	return cmd
}

func runValidateDB(opts *ValidateDBOptions, cmd *cobra.Command) error {
	sess, err := newSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	path := stringFlag(cmd, "db", sess.cfg.DB)
	st, err := sess.openStore(path, false)
	if err != nil {
		return err
	}
	defer sess.closeStore(st)

	report, err := integrity.New(st.DB()).Run(cmd.Context())
	if err != nil {
		return sess.out.Fail(ExitCommandError, ErrCodeDatabase, "failed to run checks", err)
	}

	problems := report.Problems()
	result := DBValidationResult{Valid: report.OK(), Checks: report.Checks, Problems: problems}
	sess.logger.Info("database validated", "db", path, "problems", len(problems))

	if report.OK() {
		if sess.out.IsJSON() {
			return sess.out.Success(result)
		}
		fmt.Fprintln(sess.out.Writer, "VALIDATION OK")
		return nil
	}

	if sess.out.IsJSON() {
		if err := sess.out.Failure(ErrCodeValidationFailed, problems[0], result); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(sess.out.Writer, "VALIDATION FAILED")
		for _, p := range problems {
			fmt.Fprintf(sess.out.Writer, "- %s\n", p)
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d problem(s)", len(problems)))
}
