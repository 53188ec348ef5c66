// Package seed loads catalog seed files and applies them to a store.
//
// Seed files are JSON or YAML lists of records, chosen by file extension
// (.yaml and .yml are YAML, anything else is JSON). Records are applied in
// dependency order: devices, then firmware releases, then compatibility
// mappings, all in one transaction.
package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/fwcompat/internal/catalog"
	"github.com/roach88/fwcompat/internal/store"
)

// ErrInvalidInput marks seed files that are missing from Files or cannot be
// decoded.
var ErrInvalidInput = errors.New("invalid seed input")

// Files names the three seed inputs.
type Files struct {
	Devices       string
	Firmware      string
	Compatibility string
}

// Validate checks that every file is named.
func (f Files) Validate() error {
	var missing []string
	if f.Devices == "" {
		missing = append(missing, "devices")
	}
	if f.Firmware == "" {
		missing = append(missing, "firmware")
	}
	if f.Compatibility == "" {
		missing = append(missing, "compatibility")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: seed files not set: %s", ErrInvalidInput, strings.Join(missing, ", "))
	}
	return nil
}

// Data is a fully loaded seed set.
type Data struct {
	Devices       []catalog.DeviceRecord
	Firmware      []catalog.FirmwareRecord
	Compatibility []catalog.CompatibilityRecord
}

// Summary counts the records applied.
type Summary struct {
	Devices       int `json:"devices"`
	Firmware      int `json:"firmware"`
	Compatibility int `json:"compatibility"`
}

// Load reads all three seed files. Nothing is written.
func Load(files Files) (Data, error) {
	if err := files.Validate(); err != nil {
		return Data{}, err
	}

	var (
		data Data
		err  error
	)
	if data.Devices, err = LoadFile[catalog.DeviceRecord](files.Devices); err != nil {
		return Data{}, err
	}
	if data.Firmware, err = LoadFile[catalog.FirmwareRecord](files.Firmware); err != nil {
		return Data{}, err
	}
	if data.Compatibility, err = LoadFile[catalog.CompatibilityRecord](files.Compatibility); err != nil {
		return Data{}, err
	}
	return data, nil
}

// LoadFile decodes a list of records from a JSON or YAML file. JSON numbers
// are kept as json.Number so metadata survives without float rounding.
func LoadFile[T any](path string) ([]T, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var records []T
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &records)
	default:
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		err = dec.Decode(&records)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decode seed file %s: %v", ErrInvalidInput, path, err)
	}
	if records == nil {
		records = []T{}
	}
	return records, nil
}

// Run initializes the schema if needed and applies the seed files to st.
//
// All records commit together: a missing field or unresolved reference
// anywhere rolls back the whole seed.
func Run(ctx context.Context, st *store.Store, files Files, logger *slog.Logger) (Summary, error) {
	if logger == nil {
		logger = slog.Default()
	}

	data, err := Load(files)
	if err != nil {
		return Summary{}, err
	}

	if err := st.InitSchema(ctx); err != nil {
		return Summary{}, err
	}

	summary, err := Apply(ctx, st, data)
	if err != nil {
		return Summary{}, err
	}

	logger.Info("seed applied",
		"devices", summary.Devices,
		"firmware", summary.Firmware,
		"compatibility", summary.Compatibility,
	)
	return summary, nil
}

// Apply upserts data into st in one transaction. The schema must exist.
func Apply(ctx context.Context, st *store.Store, data Data) (Summary, error) {
	tx, err := st.Begin(ctx)
	if err != nil {
		return Summary{}, err
	}
	defer tx.Rollback() // No-op if committed

	for _, rec := range data.Devices {
		if _, err := tx.UpsertDevice(ctx, rec); err != nil {
			return Summary{}, fmt.Errorf("seed devices: %w", err)
		}
	}
	for _, rec := range data.Firmware {
		if _, err := tx.UpsertFirmware(ctx, rec); err != nil {
			return Summary{}, fmt.Errorf("seed firmware: %w", err)
		}
	}
	if err := tx.UpsertCompatibility(ctx, data.Compatibility); err != nil {
		return Summary{}, fmt.Errorf("seed compatibility: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Summary{}, err
	}
	return Summary{
		Devices:       len(data.Devices),
		Firmware:      len(data.Firmware),
		Compatibility: len(data.Compatibility),
	}, nil
}
