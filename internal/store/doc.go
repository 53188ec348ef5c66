// Package store provides SQLite-backed storage for the firmware compatibility
// catalog.
//
// The schema has three tables:
//   - devices: UNIQUE(slug)
//   - firmware_releases: UNIQUE(firmware_name, version, channel)
//   - firmware_device_compatibility: UNIQUE(firmware_id, device_id), with
//     foreign keys to both parents
//
// # Upserts
//
// Every write is an upsert keyed on a natural key. An absent key is inserted
// with created_at = updated_at = now; a present key has its mutable fields
// and updated_at rewritten while created_at is left untouched. The store uses
// SQLite's INSERT ... ON CONFLICT DO UPDATE so the look-up and the write are
// a single statement.
//
// Compatibility links name their parents by natural key. Both must resolve
// before the link is written, otherwise the call fails with a
// *catalog.UnresolvedReferenceError. UpsertCompatibility is all-or-nothing:
// one unresolved record rolls back the whole batch.
//
// # Database Configuration
//
//   - foreign_keys=ON: Enforce referential integrity
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - WAL mode
//
// Open does not create tables. Call InitSchema first on a new database.
//
// # Drivers
//
// The default build uses github.com/mattn/go-sqlite3 (cgo). Build with
// -tags purego to use modernc.org/sqlite instead.
package store
