package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/fwcompat/internal/catalog"
	"github.com/roach88/fwcompat/internal/store"
)

// QueryOptions holds flags shared by the query subcommands.
type QueryOptions struct {
	*RootOptions
	Database string
}

// DeviceRow is the list-devices projection.
type DeviceRow struct {
	Slug           string    `json:"slug"`
	Name           string    `json:"name"`
	Manufacturer   string    `json:"manufacturer"`
	MCUFamily      string    `json:"mcu_family"`
	Tier           string    `json:"tier"`
	Classification string    `json:"classification"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// FirmwareRow is the list-firmware projection.
type FirmwareRow struct {
	FirmwareName        string    `json:"firmware_name"`
	Version             string    `json:"version"`
	Channel             string    `json:"channel"`
	IntentSchemaVersion string    `json:"intent_schema_version"`
	KBManifestVersion   string    `json:"kb_manifest_version"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// NewQueryCommand creates the query command and its subcommands.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Print catalog contents as JSON",
		Long: `Read-only projections of the catalog. Each subcommand prints a JSON
array (an empty array when nothing matches).

Example:
  fwcompat query list-devices
  fwcompat query firmware-for-device esp32-devkitc --db data/fwcompat.db`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")

	cmd.AddCommand(&cobra.Command{
		Use:           "list-devices",
		Short:         "List devices ordered by classification and name",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, cmd, listDevices)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "list-firmware",
		Short:         "List firmware releases ordered by name, channel and version",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, cmd, listFirmware)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "firmware-for-device <slug>",
		Short:         "List the firmware releases compatible with a device",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			slug := args[0]
			return runQuery(opts, cmd, func(cmd *cobra.Command, st *store.Store) (any, error) {
				return st.FirmwareForDevice(cmd.Context(), slug)
			})
		},
	})

	return cmd
}

type queryFunc func(cmd *cobra.Command, st *store.Store) (any, error)

func runQuery(opts *QueryOptions, cmd *cobra.Command, query queryFunc) error {
	sess, err := newSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	path := stringFlag(cmd, "db", sess.cfg.DB)
	st, err := sess.openStore(path, false)
	if err != nil {
		return err
	}
	defer sess.closeStore(st)

	rows, err := query(cmd, st)
	if err != nil {
		return sess.out.Fail(ExitCommandError, ErrCodeDatabase, "query failed", err)
	}

	if sess.out.IsJSON() {
		return sess.out.Success(rows)
	}
	return sess.out.JSON(rows)
}

func listDevices(cmd *cobra.Command, st *store.Store) (any, error) {
	devices, err := st.ListDevices(cmd.Context())
	if err != nil {
		return nil, err
	}
	rows := make([]DeviceRow, 0, len(devices))
	for _, d := range devices {
		rows = append(rows, deviceRow(d))
	}
	return rows, nil
}

func listFirmware(cmd *cobra.Command, st *store.Store) (any, error) {
	releases, err := st.ListFirmware(cmd.Context())
	if err != nil {
		return nil, err
	}
	rows := make([]FirmwareRow, 0, len(releases))
	for _, fw := range releases {
		rows = append(rows, FirmwareRow{
			FirmwareName:        fw.FirmwareName,
			Version:             fw.Version,
			Channel:             fw.Channel,
			IntentSchemaVersion: fw.IntentSchemaVersion,
			KBManifestVersion:   fw.KBManifestVersion,
			UpdatedAt:           fw.UpdatedAt,
		})
	}
	return rows, nil
}

func deviceRow(d catalog.Device) DeviceRow {
	return DeviceRow{
		Slug:           d.Slug,
		Name:           d.Name,
		Manufacturer:   d.Manufacturer,
		MCUFamily:      d.MCUFamily,
		Tier:           d.Tier,
		Classification: d.Classification,
		UpdatedAt:      d.UpdatedAt,
	}
}
