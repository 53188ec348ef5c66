package testutil

import "github.com/roach88/fwcompat/internal/catalog"

// Str returns a pointer to s, for optional record fields.
func Str(s string) *string {
	return &s
}

// SampleDevices returns a small, internally consistent device set.
func SampleDevices() []catalog.DeviceRecord {
	return []catalog.DeviceRecord{
		{
			Slug:           "esp32-devkitc",
			Name:           "ESP32 DevKitC",
			Manufacturer:   "Espressif",
			MCUFamily:      "esp32",
			Board:          "devkitc-v4",
			Tier:           "tier-1",
			Classification: "reference",
			Metadata:       map[string]any{"flash_mb": 4, "radios": []any{"wifi", "ble"}},
		},
		{
			Slug:           "nrf52840-dk",
			Name:           "nRF52840 DK",
			Manufacturer:   "Nordic Semiconductor",
			MCUFamily:      "nrf52",
			Board:          "pca10056",
			Tier:           "tier-2",
			Classification: "reference",
			StatusNotes:    Str("BLE only"),
		},
		{
			Slug:           "rp2040-pico",
			Name:           "Raspberry Pi Pico",
			Manufacturer:   "Raspberry Pi",
			MCUFamily:      "rp2040",
			Board:          "pico",
			Tier:           "tier-3",
			Classification: "community",
		},
	}
}

// SampleFirmware returns firmware releases referenced by SampleCompatibility.
func SampleFirmware() []catalog.FirmwareRecord {
	return []catalog.FirmwareRecord{
		{
			FirmwareName:        "infi-core",
			Version:             "1.9.0",
			Channel:             "stable",
			IntentSchemaVersion: "2",
			KBManifestVersion:   "2025.01",
		},
		{
			FirmwareName:        "infi-core",
			Version:             "1.10.0",
			Channel:             "stable",
			IntentSchemaVersion: "3",
			KBManifestVersion:   "2025.02",
			ReleaseNotes:        Str("intent schema v3"),
		},
		{
			FirmwareName:        "infi-core",
			Version:             "2.0.0-beta.1",
			Channel:             "beta",
			IntentSchemaVersion: "3",
			KBManifestVersion:   "2025.03",
		},
	}
}

// SampleCompatibility links every sample device to at least one release.
func SampleCompatibility() []catalog.CompatibilityRecord {
	return []catalog.CompatibilityRecord{
		{
			DeviceSlug:           "esp32-devkitc",
			FirmwareName:         "infi-core",
			FirmwareVersion:      "1.9.0",
			Channel:              "stable",
			SupportLevel:         "full",
			MinBootloaderVersion: Str("1.0.0"),
		},
		{
			DeviceSlug:           "esp32-devkitc",
			FirmwareName:         "infi-core",
			FirmwareVersion:      "1.10.0",
			Channel:              "stable",
			SupportLevel:         "full",
			MinBootloaderVersion: Str("1.2.0"),
			MaxBootloaderVersion: Str("2.0.0"),
		},
		{
			DeviceSlug:      "nrf52840-dk",
			FirmwareName:    "infi-core",
			FirmwareVersion: "1.10.0",
			Channel:         "stable",
			SupportLevel:    "partial",
			Notes:           Str("no wifi intents"),
		},
		{
			DeviceSlug:      "rp2040-pico",
			FirmwareName:    "infi-core",
			FirmwareVersion: "2.0.0-beta.1",
			Channel:         "beta",
			SupportLevel:    "experimental",
		},
	}
}
