package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/fwcompat/internal/catalog"
)

// querier is implemented by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Tx is one logical write batch. Every upsert made through a Tx commits or
// rolls back together.
type Tx struct {
	tx    *sql.Tx
	store *Store
}

// Begin starts a write batch. Callers must Commit or Rollback; Rollback after
// Commit is a no-op.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &Tx{tx: tx, store: s}, nil
}

// Commit commits the batch.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Rollback discards the batch.
func (t *Tx) Rollback() error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

// inTx runs fn inside a fresh batch, committing only if fn succeeds.
func (s *Store) inTx(ctx context.Context, fn func(*Tx) error) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback() // No-op if committed

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// UpsertDevice inserts a device or, if its slug already exists, rewrites its
// mutable fields and updated_at. Returns the device id.
func (s *Store) UpsertDevice(ctx context.Context, rec catalog.DeviceRecord) (int64, error) {
	var id int64
	err := s.inTx(ctx, func(tx *Tx) error {
		var err error
		id, err = tx.UpsertDevice(ctx, rec)
		return err
	})
	return id, err
}

// UpsertFirmware inserts a firmware release or, if its (firmware_name,
// version, channel) key already exists, rewrites its mutable fields and
// updated_at. Returns the release id.
func (s *Store) UpsertFirmware(ctx context.Context, rec catalog.FirmwareRecord) (int64, error) {
	var id int64
	err := s.inTx(ctx, func(tx *Tx) error {
		var err error
		id, err = tx.UpsertFirmware(ctx, rec)
		return err
	})
	return id, err
}

// UpsertCompatibility resolves and upserts every record in one transaction.
// The batch is all-or-nothing: the first failing record rolls back all
// earlier ones.
func (s *Store) UpsertCompatibility(ctx context.Context, recs []catalog.CompatibilityRecord) error {
	return s.inTx(ctx, func(tx *Tx) error {
		return tx.UpsertCompatibility(ctx, recs)
	})
}

// UpsertDevice is the batch form of Store.UpsertDevice.
func (t *Tx) UpsertDevice(ctx context.Context, rec catalog.DeviceRecord) (int64, error) {
	if err := rec.Validate(); err != nil {
		return 0, fmt.Errorf("upsert device: %w", err)
	}
	metadata, err := catalog.MarshalMetadata(rec.Metadata)
	if err != nil {
		return 0, fmt.Errorf("upsert device %q: %w", rec.Slug, err)
	}

	now := formatTime(t.store.timestamp())
	var id int64
	err = t.tx.QueryRowContext(ctx, `
		INSERT INTO devices (
			slug, name, manufacturer, mcu_family, board, tier, classification,
			status_notes, metadata_json, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			name = excluded.name,
			manufacturer = excluded.manufacturer,
			mcu_family = excluded.mcu_family,
			board = excluded.board,
			tier = excluded.tier,
			classification = excluded.classification,
			status_notes = excluded.status_notes,
			metadata_json = excluded.metadata_json,
			updated_at = excluded.updated_at
		RETURNING id
	`,
		rec.Slug,
		rec.Name,
		rec.Manufacturer,
		rec.MCUFamily,
		rec.Board,
		rec.Tier,
		rec.Classification,
		nullable(rec.StatusNotes),
		metadata,
		now,
		now,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert device %q: %w", rec.Slug, err)
	}

	t.store.logger.Debug("device upserted", "slug", rec.Slug, "id", id)
	return id, nil
}

// UpsertFirmware is the batch form of Store.UpsertFirmware.
func (t *Tx) UpsertFirmware(ctx context.Context, rec catalog.FirmwareRecord) (int64, error) {
	if err := rec.Validate(); err != nil {
		return 0, fmt.Errorf("upsert firmware: %w", err)
	}

	now := formatTime(t.store.timestamp())
	var id int64
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO firmware_releases (
			firmware_name, version, channel, intent_schema_version,
			kb_manifest_version, release_notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(firmware_name, version, channel) DO UPDATE SET
			intent_schema_version = excluded.intent_schema_version,
			kb_manifest_version = excluded.kb_manifest_version,
			release_notes = excluded.release_notes,
			updated_at = excluded.updated_at
		RETURNING id
	`,
		rec.FirmwareName,
		rec.Version,
		rec.Channel,
		rec.IntentSchemaVersion,
		rec.KBManifestVersion,
		nullable(rec.ReleaseNotes),
		now,
		now,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert firmware %s: %w", rec.Key(), err)
	}

	t.store.logger.Debug("firmware upserted", "firmware", rec.Key(), "id", id)
	return id, nil
}

// UpsertCompatibility resolves each record's device and firmware release and
// upserts the link keyed on (firmware_id, device_id). Stops at the first
// failure; the caller's Rollback then discards the whole batch.
func (t *Tx) UpsertCompatibility(ctx context.Context, recs []catalog.CompatibilityRecord) error {
	now := formatTime(t.store.timestamp())
	for _, rec := range recs {
		if err := rec.Validate(); err != nil {
			return fmt.Errorf("upsert compatibility: %w", err)
		}

		firmwareID, err := lookupFirmwareID(ctx, t.tx, rec.FirmwareName, rec.FirmwareVersion, rec.Channel)
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("upsert compatibility: %w", &catalog.UnresolvedReferenceError{
				Kind: "firmware", Ref: rec.FirmwareKey(), Record: rec,
			})
		}
		if err != nil {
			return fmt.Errorf("upsert compatibility %s: %w", rec, err)
		}

		deviceID, err := lookupDeviceID(ctx, t.tx, rec.DeviceSlug)
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("upsert compatibility: %w", &catalog.UnresolvedReferenceError{
				Kind: "device", Ref: rec.DeviceSlug, Record: rec,
			})
		}
		if err != nil {
			return fmt.Errorf("upsert compatibility %s: %w", rec, err)
		}

		_, err = t.tx.ExecContext(ctx, `
			INSERT INTO firmware_device_compatibility (
				firmware_id, device_id, support_level, min_bootloader_version,
				max_bootloader_version, notes, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(firmware_id, device_id) DO UPDATE SET
				support_level = excluded.support_level,
				min_bootloader_version = excluded.min_bootloader_version,
				max_bootloader_version = excluded.max_bootloader_version,
				notes = excluded.notes,
				updated_at = excluded.updated_at
		`,
			firmwareID,
			deviceID,
			rec.SupportLevel,
			nullable(rec.MinBootloaderVersion),
			nullable(rec.MaxBootloaderVersion),
			nullable(rec.Notes),
			now,
			now,
		)
		if err != nil {
			return fmt.Errorf("upsert compatibility %s: %w", rec, err)
		}
		t.store.logger.Debug("compatibility upserted", "firmware", rec.FirmwareKey(), "device", rec.DeviceSlug)
	}
	return nil
}

// lookupDeviceID resolves a device slug. Returns ErrNotFound if absent.
func lookupDeviceID(ctx context.Context, q querier, slug string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `SELECT id FROM devices WHERE slug = ?`, slug).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("lookup device %q: %w", slug, err)
	}
	return id, nil
}

// lookupFirmwareID resolves a firmware natural key. Returns ErrNotFound if absent.
func lookupFirmwareID(ctx context.Context, q querier, name, version, channel string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `
		SELECT id FROM firmware_releases
		WHERE firmware_name = ? AND version = ? AND channel = ?
	`, name, version, channel).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("lookup firmware %s: %w", catalog.FirmwareKey(name, version, channel), err)
	}
	return id, nil
}
