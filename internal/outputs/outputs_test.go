package outputs

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fwcompat/internal/catalog"
	"github.com/roach88/fwcompat/internal/jsonl"
)

type fixture struct {
	dir       string
	schemaDir string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	schemaDir := filepath.Join(dir, "schemas")
	require.NoError(t, os.MkdirAll(schemaDir, 0o755))
	f := fixture{dir: dir, schemaDir: schemaDir}
	f.schema(t, "status.json", statusSchema)
	return f
}

func (f fixture) schema(t *testing.T, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.schemaDir, name), []byte(body), 0o644))
}

func (f fixture) file(t *testing.T, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(f.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func (f fixture) validator(t *testing.T, mapPath string) *Validator {
	t.Helper()
	v, err := NewValidator(Options{
		SchemaDir: f.schemaDir,
		MapPath:   mapPath,
		Strategy:  MinimalStrategy{},
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return v
}

func TestValidateFile_AllPass(t *testing.T) {
	f := newFixture(t)
	inputs := f.file(t, "outputs.jsonl",
		`{"id":"c1","schema":"status.json","output":{"status":"ok"}}`,
		``,
		`{"id":"c2","schema":"status.json","output":{"status":"degraded"}}`,
	)

	report, err := f.validator(t, "").ValidateFile(inputs)
	require.NoError(t, err)

	assert.True(t, report.OK())
	assert.Equal(t, 2, report.Records)
	assert.Equal(t, 2, report.Passed)
	assert.Equal(t, StrategyMinimal, report.Strategy)
}

func TestValidateFile_SchemaViolation(t *testing.T) {
	f := newFixture(t)
	inputs := f.file(t, "outputs.jsonl",
		`{"id":"c1","schema":"status.json","output":{"status":"ok","extra":1}}`,
	)

	report, err := f.validator(t, "").ValidateFile(inputs)
	require.NoError(t, err)
	require.Len(t, report.Problems, 1)

	p := report.Problems[0]
	assert.Equal(t, "c1", p.ID)
	var sv *SchemaValidationError
	require.True(t, errors.As(p.Err, &sv))
	assert.Equal(t, []string{"unexpected field 'extra'"}, sv.Messages)
	assert.Equal(t, StrategyMinimal, sv.Strategy)
	assert.Equal(t, "ERROR "+inputs+":1 id=c1: schema validation failed: unexpected field 'extra'", p.String())
}

func TestValidateFile_MapResolution(t *testing.T) {
	f := newFixture(t)
	f.schema(t, "closed.json", `{"additionalProperties":false,"properties":{}}`)

	mapPath := f.file(t, "eval.jsonl",
		`{"id":"c1","task_class":"t","prompt":"p","schema":"status.json"}`,
		`{"id":"c2","task_class":"t","prompt":"p","schema":"status.json"}`,
	)
	inputs := f.file(t, "outputs.jsonl",
		`{"id":"c1","output":{"status":"ok"}}`,
		// Explicit schema wins over the mapping.
		`{"id":"c2","schema":"closed.json","output":{"status":"ok"}}`,
		`{"id":"c3","output":{"status":"ok"}}`,
	)

	report, err := f.validator(t, mapPath).ValidateFile(inputs)
	require.NoError(t, err)

	require.Len(t, report.Problems, 2)
	assert.Equal(t, "c2", report.Problems[0].ID)
	assert.True(t, IsSchemaValidation(report.Problems[0].Err))

	assert.Equal(t, "c3", report.Problems[1].ID)
	assert.ErrorIs(t, report.Problems[1].Err, ErrNoSchema)
	assert.Equal(t, 1, report.Passed)
}

func TestValidateFile_RecordProblems(t *testing.T) {
	f := newFixture(t)
	f.schema(t, "broken.json", `{"required": [`)
	inputs := f.file(t, "outputs.jsonl",
		`not json`,
		`{"output":{"status":"ok"}}`,
		`{"id":"c3","output":null,"schema":"status.json"}`,
		`{"id":"c4","schema":"absent.json","output":{}}`,
		`{"id":"c5","schema":"broken.json","output":{}}`,
		`{"id":"c6","schema":"status.json","output":{"status":"ok"}}`,
	)

	report, err := f.validator(t, "").ValidateFile(inputs)
	require.NoError(t, err)
	require.Len(t, report.Problems, 5)

	assert.True(t, jsonl.IsMalformedInput(report.Problems[0].Err))

	var mf *catalog.MissingFieldError
	require.True(t, errors.As(report.Problems[1].Err, &mf))
	assert.Equal(t, []string{"id"}, mf.Fields)
	require.True(t, errors.As(report.Problems[2].Err, &mf))
	assert.Equal(t, []string{"output"}, mf.Fields)

	var snf *jsonl.SchemaNotFoundError
	require.True(t, errors.As(report.Problems[3].Err, &snf))
	assert.Equal(t, filepath.Join(f.schemaDir, "absent.json"), snf.Path)

	var mi *jsonl.MalformedInputError
	require.True(t, errors.As(report.Problems[4].Err, &mi))
	assert.Equal(t, filepath.Join(f.schemaDir, "broken.json"), mi.Source)

	assert.Equal(t, 6, report.Records)
	assert.Equal(t, 1, report.Passed)
}

func TestValidateFile_BadMappingLines(t *testing.T) {
	f := newFixture(t)
	mapPath := f.file(t, "map.jsonl",
		`{"id":"c1","schema":"status.json"}`,
		`{"id":"c2"}`,
		`{{`,
	)
	inputs := f.file(t, "outputs.jsonl", `{"id":"c1","output":{"status":"ok"}}`)

	report, err := f.validator(t, mapPath).ValidateFile(inputs)
	require.NoError(t, err)

	require.Len(t, report.Problems, 2)
	for _, p := range report.Problems {
		assert.Equal(t, mapPath, p.Source)
	}
	assert.Equal(t, 2, report.Problems[0].Line)
	assert.True(t, catalog.IsMissingField(report.Problems[0].Err))
	assert.True(t, jsonl.IsMalformedInput(report.Problems[1].Err))
	assert.Equal(t, 1, report.Passed)
}

func TestValidateFile_MissingInputs(t *testing.T) {
	f := newFixture(t)

	_, err := f.validator(t, "").ValidateFile(filepath.Join(f.dir, "none.jsonl"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = f.validator(t, filepath.Join(f.dir, "none-map.jsonl")).ValidateFile(filepath.Join(f.dir, "none.jsonl"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewValidator(t *testing.T) {
	_, err := NewValidator(Options{})
	assert.Error(t, err)

	v, err := NewValidator(Options{SchemaDir: "schemas"})
	require.NoError(t, err)
	assert.NotNil(t, v.opts.Strategy)
}

func TestSchemaValidationError(t *testing.T) {
	err := &SchemaValidationError{Messages: []string{"a", "b"}}
	assert.Equal(t, "schema validation failed: a; b", err.Error())
}
