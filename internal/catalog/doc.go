// Package catalog defines the firmware compatibility domain.
//
// Three entities are tracked:
//   - Device: an embedded board, keyed by its human-readable slug
//   - FirmwareRelease: a firmware build, keyed by (firmware_name, version, channel)
//   - CompatibilityLink: one row per (firmware, device) pair asserting support
//
// Seed inputs arrive as DeviceRecord, FirmwareRecord and CompatibilityRecord
// values. Their Validate methods report absent identity fields as a
// *MissingFieldError before anything touches the store.
//
// Free-form device metadata is persisted as canonical JSON (see
// MarshalCanonical) so that stored representations stay byte-stable across
// re-seeds.
package catalog
