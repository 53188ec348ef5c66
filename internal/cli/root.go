package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/fwcompat/internal/config"
	"github.com/roach88/fwcompat/internal/logging"
	"github.com/roach88/fwcompat/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	// Now overrides the clock used for stored timestamps (for testing).
	// If nil, time.Now is used.
	Now func() time.Time
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the fwcompat CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

// newRootCommand builds the command tree around opts. Flag defaults overwrite
// the flag-backed fields; Now is left as given.
func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fwcompat",
		Short: "Firmware compatibility catalog",
		Long: `Maintain a local catalog of devices, firmware releases and the
compatibility links between them, and validate eval sets and model
outputs against JSON Schemas.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default ./fwcompat.{yaml,toml,json})")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewValidateDBCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewValidateEvalSetCommand(opts))
	cmd.AddCommand(NewValidateOutputsCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// session is the per-invocation state every command starts from.
type session struct {
	opts   *RootOptions
	cfg    *config.Config
	logger *slog.Logger
	runID  string
	out    *OutputFormatter

	logCloser io.Closer
}

// newSession loads configuration and builds the logger for one command run.
// Callers must Close the session.
func newSession(opts *RootOptions, cmd *cobra.Command) (*session, error) {
	runID := uuid.Must(uuid.NewV7()).String()
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
		TraceID:   runID,
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, out.Fail(ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}

	logger, closer, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		Verbose:    opts.Verbose,
		Stderr:     cmd.ErrOrStderr(),
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return nil, out.Fail(ExitCommandError, ErrCodeConfig, "failed to configure logging", err)
	}
	logger = logger.With("run_id", runID, "command", cmd.Name())

	return &session{
		opts:      opts,
		cfg:       cfg,
		logger:    logger,
		runID:     runID,
		out:       out,
		logCloser: closer,
	}, nil
}

// Close releases the log file.
func (s *session) Close() {
	if err := s.logCloser.Close(); err != nil {
		fmt.Fprintf(s.out.GetErrWriter(), "closing log file: %v\n", err)
	}
}

// openStore opens the catalog database. With create unset, a missing file is
// a command error rather than a new empty database, and the handle is
// read-only.
func (s *session) openStore(path string, create bool) (*store.Store, error) {
	if create {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, s.out.Fail(ExitCommandError, ErrCodeDatabase, "failed to create database directory", err)
		}
	} else if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, s.out.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("database not found: %s", path), nil)
		}
		return nil, s.out.Fail(ExitCommandError, ErrCodeDatabase, "failed to access database", err)
	}

	storeOpts := []store.Option{store.WithLogger(s.logger)}
	if !create {
		storeOpts = append(storeOpts, store.WithReadOnly())
	}
	if s.opts.Now != nil {
		storeOpts = append(storeOpts, store.WithClock(s.opts.Now))
	}
	st, err := store.Open(path, storeOpts...)
	if err != nil {
		return nil, s.out.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	s.logger.Debug("database opened", "path", path, "driver", store.DriverName)
	return st, nil
}

// closeStore closes st, logging rather than returning the error.
func (s *session) closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		s.logger.Error("error closing database", "error", err)
	}
}

// stringFlag returns the flag value if set on the command line, otherwise
// fallback from configuration.
func stringFlag(cmd *cobra.Command, name, fallback string) string {
	if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
		return f.Value.String()
	}
	return fallback
}
