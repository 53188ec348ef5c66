package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/roach88/fwcompat/internal/catalog"
	"github.com/roach88/fwcompat/internal/seed"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	Database      string
	Devices       string
	Firmware      string
	Compatibility string
}

// SeedResult is the JSON payload of a successful seed.
type SeedResult struct {
	Database string       `json:"database"`
	Applied  seed.Summary `json:"applied"`
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load devices, firmware releases and compatibility mappings",
		Long: `Load the three seed files and upsert their records, devices and
firmware releases first, then compatibility mappings. Files may be JSON or
YAML (.yaml/.yml). The whole seed is one transaction: any bad record leaves
the database unchanged.

Example:
  fwcompat seed --db data/fwcompat.db \
    --devices data/devices.json \
    --firmware data/firmware_releases.json \
    --compat data/firmware_compatibility.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.Devices, "devices", "", "device seed file (default from config)")
	cmd.Flags().StringVar(&opts.Firmware, "firmware", "", "firmware release seed file (default from config)")
	cmd.Flags().StringVar(&opts.Compatibility, "compat", "", "compatibility mapping seed file (default from config)")

	return cmd
}

func runSeed(opts *SeedOptions, cmd *cobra.Command) error {
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

	files := seed.Files{
		Devices:       stringFlag(cmd, "devices", sess.cfg.Seed.Devices),
		Firmware:      stringFlag(cmd, "firmware", sess.cfg.Seed.Firmware),
		Compatibility: stringFlag(cmd, "compat", sess.cfg.Seed.Compatibility),
	}
	sess.out.VerboseLog("Seeding %s from %s, %s, %s", path, files.Devices, files.Firmware, files.Compatibility)

	summary, err := seed.Run(cmd.Context(), st, files, sess.logger)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return sess.out.Fail(ExitCommandError, ErrCodeNotFound, "seed file not found", err)
	case catalog.IsMissingField(err):
		return sess.out.Fail(ExitFailure, ErrCodeMissingField, "seed rejected", err)
	case catalog.IsUnresolvedReference(err):
		return sess.out.Fail(ExitFailure, ErrCodeUnresolvedReference, "seed rejected", err)
	case errors.Is(err, seed.ErrInvalidInput):
		return sess.out.Fail(ExitCommandError, ErrCodeInvalidInput, "failed to load seed files", err)
	case err != nil:
		return sess.out.Fail(ExitCommandError, ErrCodeGeneric, "seed failed", err)
	}

	if sess.out.IsJSON() {
		return sess.out.Success(SeedResult{Database: path, Applied: summary})
	}
	fmt.Fprintf(sess.out.Writer, "Seeded database: %s (%d devices, %d firmware releases, %d compatibility mappings)\n",
		path, summary.Devices, summary.Firmware, summary.Compatibility)
	return nil
}
