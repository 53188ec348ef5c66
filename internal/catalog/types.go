package catalog

import (
	"encoding/json"
	"time"
)

// Device is a stored device row.
type Device struct {
	ID             int64           `json:"id"`
	Slug           string          `json:"slug"`
	Name           string          `json:"name"`
	Manufacturer   string          `json:"manufacturer"`
	MCUFamily      string          `json:"mcu_family"`
	Board          string          `json:"board"`
	Tier           string          `json:"tier"`
	Classification string          `json:"classification"`
	StatusNotes    *string         `json:"status_notes"`
	Metadata       json.RawMessage `json:"metadata"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// FirmwareRelease is a stored firmware release row.
type FirmwareRelease struct {
	ID                  int64     `json:"id"`
	FirmwareName        string    `json:"firmware_name"`
	Version             string    `json:"version"`
	Channel             string    `json:"channel"`
	IntentSchemaVersion string    `json:"intent_schema_version"`
	KBManifestVersion   string    `json:"kb_manifest_version"`
	ReleaseNotes        *string   `json:"release_notes"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// CompatibilityLink is a stored firmware_device_compatibility row.
type CompatibilityLink struct {
	ID                   int64     `json:"id"`
	FirmwareID           int64     `json:"firmware_id"`
	DeviceID             int64     `json:"device_id"`
	SupportLevel         string    `json:"support_level"`
	MinBootloaderVersion *string   `json:"min_bootloader_version"`
	MaxBootloaderVersion *string   `json:"max_bootloader_version"`
	Notes                *string   `json:"notes"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// DeviceFirmware is one compatibility link joined with its device and
// firmware release, as returned by the firmware-for-device query.
type DeviceFirmware struct {
	DeviceSlug           string  `json:"device_slug"`
	DeviceName           string  `json:"device_name"`
	FirmwareName         string  `json:"firmware_name"`
	Version              string  `json:"version"`
	Channel              string  `json:"channel"`
	SupportLevel         string  `json:"support_level"`
	MinBootloaderVersion *string `json:"min_bootloader_version"`
	MaxBootloaderVersion *string `json:"max_bootloader_version"`
	Notes                *string `json:"notes"`
}
