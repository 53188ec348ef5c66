package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	Database string
}

// InitResult is the JSON payload of a successful init.
type InitResult struct {
	Database      string `json:"database"`
	SchemaVersion int    `json:"schema_version"`
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the catalog database schema",
		Long: `Create the catalog database (and its parent directory) if needed and
apply the schema. Running init on an existing database is safe.

Example:
  fwcompat init --db data/fwcompat.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")

	return cmd
}

func runInit(opts *InitOptions, cmd *cobra.Command) error {
	sess, err := newSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	path := stringFlag(cmd, "db", sess.cfg.DB)
	st, err := sess.openStore(path, true)
	if err != nil {
		return err
	}
	defer sess.closeStore(st)

	ctx := cmd.Context()
	if err := st.InitSchema(ctx); err != nil {
		return sess.out.Fail(ExitCommandError, ErrCodeDatabase, "failed to initialize schema", err)
	}
	version, err := st.SchemaVersion(ctx)
	if err != nil {
		return sess.out.Fail(ExitCommandError, ErrCodeDatabase, "failed to read schema version", err)
	}

	if sess.out.IsJSON() {
		return sess.out.Success(InitResult{Database: path, SchemaVersion: version})
	}
	fmt.Fprintf(sess.out.Writer, "Initialized database: %s\n", path)
	return nil
}
