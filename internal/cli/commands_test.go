package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fwcompat/internal/testutil"
)

const (
	seedDevices  = "testdata/seed/devices.json"
	seedFirmware = "testdata/seed/firmware_releases.json"
	seedCompat   = "testdata/seed/firmware_compatibility.json"
)

// execute runs the command tree with args and a fixed clock.
func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	clock := testutil.NewClock(time.Time{})
	cmd := newRootCommand(&RootOptions{Now: clock.Now})

	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

// seededDB creates a database loaded with the sample seed files.
func seededDB(t *testing.T) string {
	t.Helper()

	db := filepath.Join(t.TempDir(), "fwcompat.db")
	_, _, err := execute(t, "seed", "--db", db,
		"--devices", seedDevices, "--firmware", seedFirmware, "--compat", seedCompat)
	require.NoError(t, err)
	return db
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestInitCommand(t *testing.T) {
	db := filepath.Join(t.TempDir(), "nested", "dir", "fwcompat.db")

	stdout, _, err := execute(t, "init", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "Initialized database: "+db+"\n", stdout)
	assert.FileExists(t, db)

	// Re-running init is harmless.
	_, _, err = execute(t, "init", "--db", db)
	require.NoError(t, err)
}

func TestInitCommand_JSON(t *testing.T) {
	db := filepath.Join(t.TempDir(), "fwcompat.db")

	stdout, _, err := execute(t, "--format", "json", "init", "--db", db)
	require.NoError(t, err)

	var resp struct {
		Status  string     `json:"status"`
		Data    InitResult `json:"data"`
		TraceID string     `json:"trace_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, db, resp.Data.Database)
	assert.Equal(t, 1, resp.Data.SchemaVersion)
	assert.NotEmpty(t, resp.TraceID)
}

func TestSeedCommand(t *testing.T) {
	db := filepath.Join(t.TempDir(), "fwcompat.db")

	stdout, _, err := execute(t, "seed", "--db", db,
		"--devices", seedDevices, "--firmware", seedFirmware, "--compat", seedCompat)
	require.NoError(t, err)
	assert.Equal(t,
		"Seeded database: "+db+" (3 devices, 3 firmware releases, 4 compatibility mappings)\n",
		stdout)

	// Seeding again updates in place.
	stdout, _, err = execute(t, "--format", "json", "seed", "--db", db,
		"--devices", seedDevices, "--firmware", seedFirmware, "--compat", seedCompat)
	require.NoError(t, err)

	var resp struct {
		Data SeedResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, 3, resp.Data.Applied.Devices)
	assert.Equal(t, 4, resp.Data.Applied.Compatibility)

	stdout, _, err = execute(t, "query", "list-devices", "--db", db)
	require.NoError(t, err)
	var rows []DeviceRow
	require.NoError(t, json.Unmarshal([]byte(stdout), &rows))
	assert.Len(t, rows, 3)
}

func TestSeedCommand_UnknownFirmware(t *testing.T) {
	db := filepath.Join(t.TempDir(), "fwcompat.db")

	stdout, _, err := execute(t, "seed", "--db", db,
		"--devices", seedDevices, "--firmware", seedFirmware,
		"--compat", "testdata/seed/compatibility_unknown_firmware.json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "Error [E102]")
	assert.Contains(t, stdout, "infi-core@3.0.0/stable")

	// Nothing from the rejected seed was kept.
	stdout, _, err = execute(t, "query", "list-devices", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", stdout)
}

func TestSeedCommand_MissingFile(t *testing.T) {
	db := filepath.Join(t.TempDir(), "fwcompat.db")

	stdout, _, err := execute(t, "seed", "--db", db,
		"--devices", "testdata/seed/nope.json", "--firmware", seedFirmware, "--compat", seedCompat)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error [E002]")
}

func TestSeedCommand_InvalidMetadata(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "fwcompat.db")
	devices := filepath.Join(dir, "devices.json")
	require.NoError(t, os.WriteFile(devices, []byte(`[{
		"slug": "esp32-devkitc", "name": "ESP32 DevKitC", "manufacturer": "Espressif",
		"mcu_family": "esp32", "board": "devkitc-v4", "tier": "tier-1",
		"classification": "reference", "metadata_json": "not json"
	}]`), 0o644))

	stdout, _, err := execute(t, "seed", "--db", db,
		"--devices", devices, "--firmware", seedFirmware, "--compat", seedCompat)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error [E001]: seed failed: ")
	assert.Contains(t, stdout, "metadata string is not valid JSON")
}

func TestValidateDBCommand(t *testing.T) {
	db := seededDB(t)

	stdout, _, err := execute(t, "validate-db", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "VALIDATION OK\n", stdout)
}

func TestValidateDBCommand_Problems(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "fwcompat.db")
	emptyCompat := filepath.Join(dir, "compat.json")
	require.NoError(t, os.WriteFile(emptyCompat, []byte("[]\n"), 0o644))

	_, _, err := execute(t, "seed", "--db", db,
		"--devices", seedDevices, "--firmware", seedFirmware, "--compat", emptyCompat)
	require.NoError(t, err)

	stdout, _, err := execute(t, "validate-db", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t,
		"VALIDATION FAILED\n- devices with no compatibility rows: esp32-devkitc, nrf52840-dk, rp2040-pico\n",
		stdout)
}

func TestValidateDBCommand_MissingTables(t *testing.T) {
	db := filepath.Join(t.TempDir(), "empty.db")
	require.NoError(t, os.WriteFile(db, nil, 0o644))

	stdout, _, err := execute(t, "--format", "json", "validate-db", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string             `json:"status"`
		Data   DBValidationResult `json:"data"`
		Error  *CLIError          `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidationFailed, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "missing tables:")

	// Validation only reads: no journal mode switch, no WAL side files.
	assert.NoFileExists(t, db+"-wal")
	assert.NoFileExists(t, db+"-shm")
	info, err := os.Stat(db)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestValidateDBCommand_DatabaseNotFound(t *testing.T) {
	db := filepath.Join(t.TempDir(), "absent.db")

	stdout, _, err := execute(t, "validate-db", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "database not found: "+db)
	assert.NoFileExists(t, db)
}

func TestQueryCommands_Golden(t *testing.T) {
	db := seededDB(t)

	tests := []struct {
		name string
		args []string
	}{
		{"list_devices", []string{"query", "list-devices", "--db", db}},
		{"list_firmware", []string{"query", "list-firmware", "--db", db}},
		{"firmware_for_device", []string{"query", "firmware-for-device", "esp32-devkitc", "--db", db}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := execute(t, tt.args...)
			require.NoError(t, err)

			g := newGoldie(t)
			g.Assert(t, tt.name, []byte(stdout))
		})
	}
}

func TestQueryCommand_UnknownDevice(t *testing.T) {
	db := seededDB(t)

	stdout, _, err := execute(t, "query", "firmware-for-device", "stm32-nucleo", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", stdout)
}

func TestQueryCommand_JSONEnvelope(t *testing.T) {
	db := seededDB(t)

	stdout, _, err := execute(t, "--format", "json", "query", "list-firmware", "--db", db)
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   []FirmwareRow `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 3)
	assert.Equal(t, "2.0.0-beta.1", resp.Data[0].Version)
}

func TestQueryCommand_DatabaseNotFound(t *testing.T) {
	_, _, err := execute(t, "query", "list-devices", "--db", filepath.Join(t.TempDir(), "absent.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidateEvalSetCommand(t *testing.T) {
	stdout, _, err := execute(t, "validate-eval-set",
		"--eval", "testdata/evals/valid.jsonl", "--schema-dir", "testdata/schemas")
	require.NoError(t, err)
	assert.Equal(t, "OK: testdata/evals/valid.jsonl (3 cases)\n", stdout)
}

func TestValidateEvalSetCommand_Problems(t *testing.T) {
	stdout, _, err := execute(t, "validate-eval-set",
		"--eval", "testdata/evals/broken.jsonl", "--schema-dir", "testdata/schemas")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, stdout,
		"ERROR testdata/evals/broken.jsonl:2 id=intent-002: eval case: missing 'task_class'\n")
	assert.Contains(t, stdout,
		"ERROR testdata/evals/broken.jsonl:3 id=intent-001: duplicate id 'intent-001' (first seen on line 1)\n")
	assert.Contains(t, stdout, "schema not found: ")
	assert.NotContains(t, stdout, "OK:")
}

func TestValidateEvalSetCommand_SchemaDirFromConfig(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "fwcompat.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("schema_dir: testdata/schemas\n"), 0o644))

	stdout, _, err := execute(t, "--config", cfg, "validate-eval-set",
		"--eval", "testdata/evals/broken.jsonl")
	require.Error(t, err)
	assert.Contains(t, stdout, "ERROR testdata/evals/broken.jsonl:3 id=intent-001: schema not found: ")

	// An explicit flag still wins over the config.
	stdout, _, err = execute(t, "--config", cfg, "validate-eval-set",
		"--eval", "testdata/evals/valid.jsonl", "--schema-dir", "testdata/schemas")
	require.NoError(t, err)
	assert.Equal(t, "OK: testdata/evals/valid.jsonl (3 cases)\n", stdout)
}

func TestValidateEvalSetCommand_JSON(t *testing.T) {
	stdout, _, err := execute(t, "--format", "json", "validate-eval-set",
		"--eval", "testdata/evals/broken.jsonl")
	require.Error(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Valid    bool           `json:"valid"`
			Problems []ProblemEntry `json:"problems"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	// Without --schema-dir only the missing field and the duplicate remain.
	require.Len(t, resp.Data.Problems, 2)
	assert.Equal(t, 2, resp.Data.Problems[0].Line)
	assert.Equal(t, "intent-002", resp.Data.Problems[0].ID)
}

func TestValidateEvalSetCommand_MissingFile(t *testing.T) {
	stdout, _, err := execute(t, "validate-eval-set", "--eval", "testdata/evals/absent.jsonl")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error [E002]")
}

func TestValidateEvalSetCommand_RequiresEval(t *testing.T) {
	_, _, err := execute(t, "validate-eval-set")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"eval"`)
}

func TestValidateOutputsCommand(t *testing.T) {
	for _, strategy := range []string{"minimal", "auto"} {
		t.Run(strategy, func(t *testing.T) {
			stdout, _, err := execute(t, "validate-outputs",
				"--schema-dir", "testdata/schemas",
				"--inputs", "testdata/outputs/valid.jsonl",
				"--map", "testdata/evals/valid.jsonl",
				"--strategy", strategy)
			require.NoError(t, err)
			assert.Equal(t, "OK: testdata/outputs/valid.jsonl\n", stdout)
		})
	}
}

func TestValidateOutputsCommand_Problems(t *testing.T) {
	stdout, _, err := execute(t, "validate-outputs",
		"--schema-dir", "testdata/schemas",
		"--inputs", "testdata/outputs/invalid.jsonl",
		"--strategy", "minimal")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, stdout, "ERROR testdata/outputs/invalid.jsonl:1 id=status-001: ")
	assert.Contains(t, stdout, "unexpected field 'extra'")
	assert.Contains(t, stdout, "ERROR testdata/outputs/invalid.jsonl:2 id=unmapped: no schema specified\n")
}

func TestValidateOutputsCommand_WithoutMap(t *testing.T) {
	// intent records carry no schema of their own.
	stdout, _, err := execute(t, "validate-outputs",
		"--schema-dir", "testdata/schemas",
		"--inputs", "testdata/outputs/valid.jsonl",
		"--strategy", "minimal")
	require.Error(t, err)
	assert.Contains(t, stdout, "id=intent-001: no schema specified")
	assert.Contains(t, stdout, "id=intent-002: no schema specified")
	assert.NotContains(t, stdout, "status-001")
}

func TestValidateOutputsCommand_RequiresSchemaDir(t *testing.T) {
	stdout, _, err := execute(t, "validate-outputs", "--inputs", "testdata/outputs/valid.jsonl")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "--schema-dir is required")
}

func TestValidateOutputsCommand_UnknownStrategy(t *testing.T) {
	_, _, err := execute(t, "validate-outputs",
		"--schema-dir", "testdata/schemas",
		"--inputs", "testdata/outputs/valid.jsonl",
		"--strategy", "strict")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
