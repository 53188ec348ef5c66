package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/fwcompat/internal/catalog"
)

const deviceColumns = `id, slug, name, manufacturer, mcu_family, board, tier, classification,
	status_notes, metadata_json, created_at, updated_at`

const firmwareColumns = `id, firmware_name, version, channel, intent_schema_version,
	kb_manifest_version, release_notes, created_at, updated_at`

// ListDevices returns every device ordered by (classification, name).
//
// Returns an empty slice (not nil) if the table is empty.
func (s *Store) ListDevices(ctx context.Context) ([]catalog.Device, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+deviceColumns+`
		FROM devices
		ORDER BY classification, name
	`)
	if err != nil {
		return nil, fmt.Errorf("query devices: %w", err)
	}
	defer rows.Close()

	devices := []catalog.Device{}
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate devices: %w", err)
	}
	return devices, nil
}

// ListFirmware returns every firmware release ordered by (firmware_name,
// channel, version). Version order is lexicographic, so "1.10.0" sorts
// before "1.9.0".
func (s *Store) ListFirmware(ctx context.Context) ([]catalog.FirmwareRelease, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+firmwareColumns+`
		FROM firmware_releases
		ORDER BY firmware_name, channel, version
	`)
	if err != nil {
		return nil, fmt.Errorf("query firmware: %w", err)
	}
	defer rows.Close()

	releases := []catalog.FirmwareRelease{}
	for rows.Next() {
		fw, err := scanFirmware(rows)
		if err != nil {
			return nil, err
		}
		releases = append(releases, fw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate firmware: %w", err)
	}
	return releases, nil
}

// FirmwareForDevice returns the compatibility links of one device joined with
// their firmware releases, ordered by (firmware_name, version).
//
// An unknown slug yields an empty slice, not an error.
func (s *Store) FirmwareForDevice(ctx context.Context, slug string) ([]catalog.DeviceFirmware, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.slug, d.name,
		       f.firmware_name, f.version, f.channel,
		       c.support_level, c.min_bootloader_version,
		       c.max_bootloader_version, c.notes
		FROM firmware_device_compatibility c
		JOIN devices d ON d.id = c.device_id
		JOIN firmware_releases f ON f.id = c.firmware_id
		WHERE d.slug = ?
		ORDER BY f.firmware_name, f.version
	`, slug)
	if err != nil {
		return nil, fmt.Errorf("query firmware for device %q: %w", slug, err)
	}
	defer rows.Close()

	result := []catalog.DeviceFirmware{}
	for rows.Next() {
		var (
			df    catalog.DeviceFirmware
			minBL sql.NullString
			maxBL sql.NullString
			notes sql.NullString
		)
		if err := rows.Scan(
			&df.DeviceSlug, &df.DeviceName,
			&df.FirmwareName, &df.Version, &df.Channel,
			&df.SupportLevel, &minBL, &maxBL, &notes,
		); err != nil {
			return nil, fmt.Errorf("scan firmware for device: %w", err)
		}
		df.MinBootloaderVersion = optional(minBL)
		df.MaxBootloaderVersion = optional(maxBL)
		df.Notes = optional(notes)
		result = append(result, df)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate firmware for device: %w", err)
	}
	return result, nil
}

// GetDevice retrieves a device by slug.
// Returns ErrNotFound if absent.
func (s *Store) GetDevice(ctx context.Context, slug string) (catalog.Device, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+deviceColumns+` FROM devices WHERE slug = ?`, slug)
	d, err := scanDevice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Device{}, ErrNotFound
	}
	return d, err
}

// GetFirmware retrieves a firmware release by natural key.
// Returns ErrNotFound if absent.
func (s *Store) GetFirmware(ctx context.Context, name, version, channel string) (catalog.FirmwareRelease, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+firmwareColumns+`
		FROM firmware_releases
		WHERE firmware_name = ? AND version = ? AND channel = ?
	`, name, version, channel)
	fw, err := scanFirmware(row)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.FirmwareRelease{}, ErrNotFound
	}
	return fw, err
}

// ListCompatibility returns every compatibility link ordered by id.
func (s *Store) ListCompatibility(ctx context.Context) ([]catalog.CompatibilityLink, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, firmware_id, device_id, support_level, min_bootloader_version,
		       max_bootloader_version, notes, created_at, updated_at
		FROM firmware_device_compatibility
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query compatibility: %w", err)
	}
	defer rows.Close()

	links := []catalog.CompatibilityLink{}
	for rows.Next() {
		var (
			l                    catalog.CompatibilityLink
			minBL, maxBL, notes  sql.NullString
			createdAt, updatedAt string
		)
		if err := rows.Scan(&l.ID, &l.FirmwareID, &l.DeviceID, &l.SupportLevel,
			&minBL, &maxBL, &notes, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan compatibility: %w", err)
		}
		l.MinBootloaderVersion = optional(minBL)
		l.MaxBootloaderVersion = optional(maxBL)
		l.Notes = optional(notes)
		if l.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if l.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate compatibility: %w", err)
	}
	return links, nil
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(r rowScanner) (catalog.Device, error) {
	var (
		d                    catalog.Device
		statusNotes          sql.NullString
		metadata             string
		createdAt, updatedAt string
	)
	err := r.Scan(&d.ID, &d.Slug, &d.Name, &d.Manufacturer, &d.MCUFamily, &d.Board,
		&d.Tier, &d.Classification, &statusNotes, &metadata, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return d, err
	}
	if err != nil {
		return d, fmt.Errorf("scan device: %w", err)
	}
	d.StatusNotes = optional(statusNotes)
	if json.Valid([]byte(metadata)) {
		d.Metadata = json.RawMessage(metadata)
	} else {
		// Rows written outside this store may hold arbitrary text.
		quoted, _ := json.Marshal(metadata)
		d.Metadata = quoted
	}
	if d.CreatedAt, err = parseTime(createdAt); err != nil {
		return d, err
	}
	if d.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return d, err
	}
	return d, nil
}

func scanFirmware(r rowScanner) (catalog.FirmwareRelease, error) {
	var (
		fw                   catalog.FirmwareRelease
		releaseNotes         sql.NullString
		createdAt, updatedAt string
	)
	err := r.Scan(&fw.ID, &fw.FirmwareName, &fw.Version, &fw.Channel,
		&fw.IntentSchemaVersion, &fw.KBManifestVersion, &releaseNotes, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fw, err
	}
	if err != nil {
		return fw, fmt.Errorf("scan firmware: %w", err)
	}
	fw.ReleaseNotes = optional(releaseNotes)
	if fw.CreatedAt, err = parseTime(createdAt); err != nil {
		return fw, err
	}
	if fw.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return fw, err
	}
	return fw, nil
}
