// Package evalset validates evaluation case files.
//
// An eval set is a JSON Lines file with one case object per line. Each case
// must carry id, task_class, prompt and schema, and ids must be unique
// across the file.
package evalset

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/fwcompat/internal/catalog"
	"github.com/roach88/fwcompat/internal/jsonl"
)

// RequiredFields lists the members every eval case must have, in report order.
var RequiredFields = []string{"id", "task_class", "prompt", "schema"}

// DuplicateIDError reports an id already used by an earlier case.
type DuplicateIDError struct {
	ID        string
	FirstLine int
}

// Error implements the error interface.
func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate id '%s' (first seen on line %d)", e.ID, e.FirstLine)
}

// IsDuplicateID returns true if err is or wraps a *DuplicateIDError.
func IsDuplicateID(err error) bool {
	var d *DuplicateIDError
	return errors.As(err, &d)
}

// Options configures a validation run.
type Options struct {
	// SchemaDir, when set, makes every case's schema reference resolve to an
	// existing file under it.
	SchemaDir string

	// Logger receives per-run diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// Report is the outcome of validating one eval file.
type Report struct {
	Source   string          `json:"source"`
	Cases    int             `json:"cases"`
	IDs      int             `json:"unique_ids"`
	Problems []jsonl.Problem `json:"-"`
}

// OK reports whether no problems were found.
func (r Report) OK() bool {
	return len(r.Problems) == 0
}

// ValidateFile validates the eval file at path.
//
// The returned error is non-nil only when the file cannot be read; defects in
// its content are collected in Report.Problems.
func ValidateFile(path string, opts Options) (Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return Report{}, fmt.Errorf("open eval set: %w", err)
	}
	defer f.Close()
	return Validate(f, path, opts)
}

// Validate validates eval cases read from r. source names r in problems.
func Validate(r io.Reader, source string, opts Options) (Report, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	report := Report{Source: source, Problems: []jsonl.Problem{}}
	seen := make(map[string]int)

	err := jsonl.Scan(r, func(line jsonl.Line) error {
		report.Cases++
		problem := func(id string, err error) {
			report.Problems = append(report.Problems, jsonl.Problem{
				Source: source, Line: line.Number, ID: id, Err: err,
			})
		}

		obj, err := jsonl.DecodeObject(source, line.Number, line.Text)
		if err != nil {
			problem("", err)
			return nil
		}

		id, hasID := obj.Key("id")
		for _, field := range RequiredFields {
			if !obj.Has(field) {
				problem(id, &catalog.MissingFieldError{Entity: "eval case", Fields: []string{field}})
			}
		}

		if hasID {
			if first, dup := seen[id]; dup {
				problem(id, &DuplicateIDError{ID: id, FirstLine: first})
			} else {
				seen[id] = line.Number
			}
		}

		if opts.SchemaDir != "" {
			if ref, ok := obj.GetString("schema"); ok {
				path := filepath.Join(opts.SchemaDir, ref)
				if _, err := os.Stat(path); err != nil {
					problem(id, &jsonl.SchemaNotFoundError{Path: path})
				}
			}
		}
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("validate eval set: %w", err)
	}

	report.IDs = len(seen)
	logger.Debug("eval set validated",
		"source", source,
		"cases", report.Cases,
		"unique_ids", report.IDs,
		"problems", len(report.Problems),
	)
	return report, nil
}
