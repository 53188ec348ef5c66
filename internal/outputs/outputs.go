// Package outputs validates generated output records against per-case JSON
// Schemas.
//
// Input is JSON Lines of {"id", "output", "schema"?} records. The schema
// reference is a path relative to the schema directory, taken from the
// record itself or, failing that, from an optional id to schema mapping
// file (an eval set). Validation is delegated to a Strategy chosen once per
// run.
package outputs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/fwcompat/internal/catalog"
	"github.com/roach88/fwcompat/internal/jsonl"
)

// ErrNoSchema is reported for a record whose schema cannot be resolved.
var ErrNoSchema = errors.New("no schema specified")

// SchemaValidationError reports an output that failed its schema.
type SchemaValidationError struct {
	// Strategy names the validator that rejected the output.
	Strategy string

	// Messages lists each violation.
	Messages []string
}

// Error implements the error interface.
func (e *SchemaValidationError) Error() string {
	return "schema validation failed: " + strings.Join(e.Messages, "; ")
}

// IsSchemaValidation returns true if err is or wraps a *SchemaValidationError.
func IsSchemaValidation(err error) bool {
	var sv *SchemaValidationError
	return errors.As(err, &sv)
}

// Options configures a validation run.
type Options struct {
	// SchemaDir is the root schema references resolve against. Required.
	SchemaDir string

	// MapPath is an optional JSONL file of {"id", "schema"} records used for
	// outputs that do not name their schema.
	MapPath string

	// Strategy validates each output. Defaults to SelectStrategy("auto").
	Strategy Strategy

	// Logger receives per-run diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// Report is the outcome of validating one outputs file.
type Report struct {
	Source   string          `json:"source"`
	Strategy string          `json:"strategy"`
	Records  int             `json:"records"`
	Passed   int             `json:"passed"`
	Problems []jsonl.Problem `json:"-"`
}

// OK reports whether no problems were found.
func (r Report) OK() bool {
	return len(r.Problems) == 0
}

// Validator runs one output validation pass.
type Validator struct {
	opts    Options
	logger  *slog.Logger
	schemas map[string]schemaEntry
}

type schemaEntry struct {
	data []byte
	err  error
}

// NewValidator creates a validator, selecting the default strategy if none
// is set.
func NewValidator(opts Options) (*Validator, error) {
	if opts.SchemaDir == "" {
		return nil, fmt.Errorf("schema dir is required")
	}
	if opts.Strategy == nil {
		s, err := SelectStrategy(StrategyAuto)
		if err != nil {
			return nil, err
		}
		opts.Strategy = s
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{
		opts:    opts,
		logger:  logger,
		schemas: make(map[string]schemaEntry),
	}, nil
}

// ValidateFile validates every record in the outputs file at path.
//
// The returned error is non-nil only when an input file cannot be read;
// defects in content are collected in Report.Problems.
func (v *Validator) ValidateFile(path string) (Report, error) {
	report := Report{
		Source:   path,
		Strategy: v.opts.Strategy.Name(),
		Problems: []jsonl.Problem{},
	}

	mapping := map[string]string{}
	if v.opts.MapPath != "" {
		var err error
		mapping, err = v.loadMapping(&report)
		if err != nil {
			return report, err
		}
	}

	err := jsonl.ScanFile(path, func(line jsonl.Line) error {
		report.Records++
		if err := v.validateLine(path, line, mapping); err != nil {
			report.Problems = append(report.Problems, *err)
			return nil
		}
		report.Passed++
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("validate outputs: %w", err)
	}

	v.logger.Debug("outputs validated",
		"source", path,
		"strategy", report.Strategy,
		"records", report.Records,
		"problems", len(report.Problems),
	)
	return report, nil
}

func (v *Validator) validateLine(source string, line jsonl.Line, mapping map[string]string) *jsonl.Problem {
	fail := func(id string, err error) *jsonl.Problem {
		return &jsonl.Problem{Source: source, Line: line.Number, ID: id, Err: err}
	}

	row, err := jsonl.DecodeObject(source, line.Number, line.Text)
	if err != nil {
		return fail("", err)
	}

	id, _ := row.Key("id")
	var missing []string
	if id == "" {
		missing = append(missing, "id")
	}
	if out, ok := row["output"]; !ok || string(out) == "null" {
		missing = append(missing, "output")
	}
	if len(missing) > 0 {
		return fail(id, &catalog.MissingFieldError{Entity: "output record", Fields: missing})
	}

	ref, _ := row.GetString("schema")
	if ref == "" {
		ref = mapping[id]
	}
	if ref == "" {
		return fail(id, ErrNoSchema)
	}

	schema, err := v.loadSchema(filepath.Join(v.opts.SchemaDir, ref))
	if err != nil {
		return fail(id, err)
	}

	if msgs := v.opts.Strategy.Validate(schema, row["output"]); len(msgs) > 0 {
		return fail(id, &SchemaValidationError{Strategy: v.opts.Strategy.Name(), Messages: msgs})
	}
	return nil
}

// loadMapping reads the id to schema mapping file. Bad mapping lines are
// added to report; they do not stop the run.
func (v *Validator) loadMapping(report *Report) (map[string]string, error) {
	source := v.opts.MapPath
	mapping := make(map[string]string)

	err := jsonl.ScanFile(source, func(line jsonl.Line) error {
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
		ref, hasSchema := obj.GetString("schema")
		var missing []string
		if !hasID || id == "" {
			missing = append(missing, "id")
		}
		if !hasSchema || ref == "" {
			missing = append(missing, "schema")
		}
		if len(missing) > 0 {
			problem(id, &catalog.MissingFieldError{Entity: "schema mapping", Fields: missing})
			return nil
		}
		mapping[id] = ref
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load schema map: %w", err)
	}
	return mapping, nil
}

// loadSchema reads and memoizes a schema file.
func (v *Validator) loadSchema(path string) ([]byte, error) {
	if e, ok := v.schemas[path]; ok {
		return e.data, e.err
	}

	data, err := readSchema(path)
	v.schemas[path] = schemaEntry{data: data, err: err}
	return data, err
}

func readSchema(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &jsonl.SchemaNotFoundError{Path: path}
	}
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}
	if err := json.Unmarshal(data, new(any)); err != nil {
		return nil, &jsonl.MalformedInputError{Source: path, Err: err}
	}
	return data, nil
}
