package catalog

import "fmt"

// DeviceRecord is the seed shape of a device.
//
// Metadata may be any JSON-compatible value. A string is taken to be
// already-serialized JSON and is stored verbatim.
type DeviceRecord struct {
	Slug           string  `json:"slug" yaml:"slug"`
	Name           string  `json:"name" yaml:"name"`
	Manufacturer   string  `json:"manufacturer" yaml:"manufacturer"`
	MCUFamily      string  `json:"mcu_family" yaml:"mcu_family"`
	Board          string  `json:"board" yaml:"board"`
	Tier           string  `json:"tier" yaml:"tier"`
	Classification string  `json:"classification" yaml:"classification"`
	StatusNotes    *string `json:"status_notes,omitempty" yaml:"status_notes,omitempty"`
	Metadata       any     `json:"metadata_json,omitempty" yaml:"metadata_json,omitempty"`
}

// Validate reports every absent identity field.
func (r DeviceRecord) Validate() error {
	return requireFields("device", r.Slug, []field{
		{"slug", r.Slug},
		{"name", r.Name},
		{"manufacturer", r.Manufacturer},
		{"mcu_family", r.MCUFamily},
		{"board", r.Board},
		{"tier", r.Tier},
		{"classification", r.Classification},
	})
}

// FirmwareRecord is the seed shape of a firmware release.
type FirmwareRecord struct {
	FirmwareName        string  `json:"firmware_name" yaml:"firmware_name"`
	Version             string  `json:"version" yaml:"version"`
	Channel             string  `json:"channel" yaml:"channel"`
	IntentSchemaVersion string  `json:"intent_schema_version" yaml:"intent_schema_version"`
	KBManifestVersion   string  `json:"kb_manifest_version" yaml:"kb_manifest_version"`
	ReleaseNotes        *string `json:"release_notes,omitempty" yaml:"release_notes,omitempty"`
}

// Key returns the composite natural key in name@version/channel form.
func (r FirmwareRecord) Key() string {
	return FirmwareKey(r.FirmwareName, r.Version, r.Channel)
}

// Validate reports every absent identity field.
func (r FirmwareRecord) Validate() error {
	return requireFields("firmware", r.Key(), []field{
		{"firmware_name", r.FirmwareName},
		{"version", r.Version},
		{"channel", r.Channel},
		{"intent_schema_version", r.IntentSchemaVersion},
		{"kb_manifest_version", r.KBManifestVersion},
	})
}

// CompatibilityRecord is the seed shape of a compatibility mapping. It names
// its device and firmware release by natural key; the store resolves both to
// row ids.
type CompatibilityRecord struct {
	DeviceSlug           string  `json:"device_slug" yaml:"device_slug"`
	FirmwareName         string  `json:"firmware_name" yaml:"firmware_name"`
	FirmwareVersion      string  `json:"firmware_version" yaml:"firmware_version"`
	Channel              string  `json:"channel" yaml:"channel"`
	SupportLevel         string  `json:"support_level" yaml:"support_level"`
	MinBootloaderVersion *string `json:"min_bootloader_version,omitempty" yaml:"min_bootloader_version,omitempty"`
	MaxBootloaderVersion *string `json:"max_bootloader_version,omitempty" yaml:"max_bootloader_version,omitempty"`
	Notes                *string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// FirmwareKey returns the referenced firmware key in name@version/channel form.
func (r CompatibilityRecord) FirmwareKey() string {
	return FirmwareKey(r.FirmwareName, r.FirmwareVersion, r.Channel)
}

// String identifies the record in error messages.
func (r CompatibilityRecord) String() string {
	return fmt.Sprintf("%s on %s", r.FirmwareKey(), r.DeviceSlug)
}

// Validate reports every absent reference or required field.
func (r CompatibilityRecord) Validate() error {
	return requireFields("compatibility", r.String(), []field{
		{"device_slug", r.DeviceSlug},
		{"firmware_name", r.FirmwareName},
		{"firmware_version", r.FirmwareVersion},
		{"channel", r.Channel},
		{"support_level", r.SupportLevel},
	})
}

// FirmwareKey formats a firmware natural key.
func FirmwareKey(name, version, channel string) string {
	return fmt.Sprintf("%s@%s/%s", name, version, channel)
}

type field struct {
	name  string
	value string
}

func requireFields(entity, key string, fields []field) error {
	var missing []string
	for _, f := range fields {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &MissingFieldError{Entity: entity, Key: key, Fields: missing}
}
