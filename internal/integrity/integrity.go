// Package integrity runs quality checks over a catalog database.
//
// Checks read the database only, and work on any SQLite database with the
// catalog tables, including ones whose constraints were bypassed or never
// declared. Each check returns human-readable problems; a check that finds
// nothing returns an empty slice.
package integrity

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Catalog table names.
const (
	TableDevices       = "devices"
	TableFirmware      = "firmware_releases"
	TableCompatibility = "firmware_device_compatibility"
)

// RequiredTables lists the tables the schema check expects.
var RequiredTables = []string{TableDevices, TableFirmware, TableCompatibility}

// Querier is the read access the checks need. *sql.DB and *sql.Tx satisfy it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Validator runs the checks against one database.
type Validator struct {
	q      Querier
	tables map[string]bool
}

// New creates a validator over q.
func New(q Querier) *Validator {
	return &Validator{q: q}
}

// CheckResult is the outcome of one named check.
type CheckResult struct {
	Name     string   `json:"name"`
	Problems []string `json:"problems"`
}

// Report aggregates every check. Problems from all checks are kept; a
// failing check does not stop later ones.
type Report struct {
	Checks []CheckResult `json:"checks"`
}

// OK reports whether every check passed.
func (r Report) OK() bool {
	for _, c := range r.Checks {
		if len(c.Problems) > 0 {
			return false
		}
	}
	return true
}

// Problems returns all problems in check order.
func (r Report) Problems() []string {
	all := []string{}
	for _, c := range r.Checks {
		all = append(all, c.Problems...)
	}
	return all
}

// Run executes the schema, duplicate, integrity and bounds checks.
//
// The error is non-nil only when the database cannot be queried.
func (v *Validator) Run(ctx context.Context) (Report, error) {
	checks := []struct {
		name string
		fn   func(context.Context) ([]string, error)
	}{
		{"schema", v.CheckSchema},
		{"duplicates", v.CheckDuplicates},
		{"integrity", v.CheckIntegrity},
		{"bounds", v.CheckBounds},
	}

	report := Report{Checks: make([]CheckResult, 0, len(checks))}
	for _, c := range checks {
		problems, err := c.fn(ctx)
		if err != nil {
			return report, fmt.Errorf("%s check: %w", c.name, err)
		}
		report.Checks = append(report.Checks, CheckResult{Name: c.name, Problems: problems})
	}
	return report, nil
}

// CheckSchema reports which required tables are missing.
func (v *Validator) CheckSchema(ctx context.Context) ([]string, error) {
	tables, err := v.discover(ctx)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, name := range RequiredTables {
		if !tables[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return []string{}, nil
	}
	sort.Strings(missing)
	return []string{"missing tables: " + strings.Join(missing, ", ")}, nil
}

// CheckDuplicates reports natural keys held by more than one row: device
// slugs, firmware (name, version, channel) triples and (firmware_id,
// device_id) link pairs.
func (v *Validator) CheckDuplicates(ctx context.Context) ([]string, error) {
	tables, err := v.discover(ctx)
	if err != nil {
		return nil, err
	}

	checks := []struct {
		table string
		label string
		query string
	}{
		{TableDevices, "duplicate device slugs", `
			SELECT slug, COUNT(*) FROM devices
			GROUP BY slug HAVING COUNT(*) > 1
			ORDER BY slug`},
		{TableFirmware, "duplicate firmware releases", `
			SELECT IFNULL(firmware_name, 'NULL') || '@' || IFNULL(version, 'NULL') ||
			       '/' || IFNULL(channel, 'NULL'), COUNT(*)
			FROM firmware_releases
			GROUP BY firmware_name, version, channel HAVING COUNT(*) > 1
			ORDER BY firmware_name, version, channel`},
		{TableCompatibility, "duplicate compatibility links", `
			SELECT 'firmware_id=' || IFNULL(firmware_id, 'NULL') ||
			       ' device_id=' || IFNULL(device_id, 'NULL'), COUNT(*)
			FROM firmware_device_compatibility
			GROUP BY firmware_id, device_id HAVING COUNT(*) > 1
			ORDER BY firmware_id, device_id`},
	}

	problems := []string{}
	for _, c := range checks {
		if !tables[c.table] {
			continue
		}
		keys, err := v.duplicateKeys(ctx, c.query)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", c.label, err)
		}
		if len(keys) > 0 {
			problems = append(problems, fmt.Sprintf("%s: %s", c.label, strings.Join(keys, ", ")))
		}
	}
	return problems, nil
}

// CheckIntegrity reports compatibility rows whose device or firmware release
// does not exist, and devices with no compatibility rows.
func (v *Validator) CheckIntegrity(ctx context.Context) ([]string, error) {
	tables, err := v.discover(ctx)
	if err != nil {
		return nil, err
	}

	problems := []string{}
	if tables[TableDevices] && tables[TableFirmware] && tables[TableCompatibility] {
		ids, err := v.column(ctx, `
			SELECT c.id
			FROM firmware_device_compatibility c
			LEFT JOIN devices d ON d.id = c.device_id
			LEFT JOIN firmware_releases f ON f.id = c.firmware_id
			WHERE d.id IS NULL OR f.id IS NULL
			ORDER BY c.id
		`)
		if err != nil {
			return nil, fmt.Errorf("query dangling rows: %w", err)
		}
		if len(ids) > 0 {
			problems = append(problems, "dangling compatibility rows: "+strings.Join(ids, ", "))
		}
	}

	if tables[TableDevices] && tables[TableCompatibility] {
		slugs, err := v.column(ctx, `
			SELECT d.slug
			FROM devices d
			LEFT JOIN firmware_device_compatibility c ON c.device_id = d.id
			GROUP BY d.id
			HAVING COUNT(c.id) = 0
			ORDER BY d.slug
		`)
		if err != nil {
			return nil, fmt.Errorf("query unlinked devices: %w", err)
		}
		if len(slugs) > 0 {
			problems = append(problems, "devices with no compatibility rows: "+strings.Join(slugs, ", "))
		}
	}
	return problems, nil
}

// CheckBounds reports compatibility rows whose minimum bootloader version is
// greater than the maximum. Rows where either bound is absent or not a
// semantic version are skipped.
func (v *Validator) CheckBounds(ctx context.Context) ([]string, error) {
	tables, err := v.discover(ctx)
	if err != nil {
		return nil, err
	}
	if !tables[TableCompatibility] {
		return []string{}, nil
	}

	rows, err := v.q.QueryContext(ctx, `
		SELECT id, min_bootloader_version, max_bootloader_version
		FROM firmware_device_compatibility
		WHERE min_bootloader_version IS NOT NULL
		  AND max_bootloader_version IS NOT NULL
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query bootloader bounds: %w", err)
	}
	defer rows.Close()

	problems := []string{}
	for rows.Next() {
		var (
			id           int64
			lower, upper string
		)
		if err := rows.Scan(&id, &lower, &upper); err != nil {
			return nil, fmt.Errorf("scan bootloader bounds: %w", err)
		}
		lo, err := semver.NewVersion(lower)
		if err != nil {
			continue
		}
		hi, err := semver.NewVersion(upper)
		if err != nil {
			continue
		}
		if lo.GreaterThan(hi) {
			problems = append(problems, fmt.Sprintf(
				"compatibility row %d: min_bootloader_version %s is greater than max_bootloader_version %s",
				id, lower, upper))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bootloader bounds: %w", err)
	}
	return problems, nil
}

// discover loads the table set once per Validator.
func (v *Validator) discover(ctx context.Context) (map[string]bool, error) {
	if v.tables != nil {
		return v.tables, nil
	}
	names, err := v.column(ctx, `SELECT name FROM sqlite_master WHERE type = 'table'`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	tables := make(map[string]bool, len(names))
	for _, n := range names {
		tables[n] = true
	}
	v.tables = tables
	return tables, nil
}

func (v *Validator) duplicateKeys(ctx context.Context, query string) ([]string, error) {
	rows, err := v.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var (
			key   sql.NullString
			count int
		)
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		keys = append(keys, fmt.Sprintf("%s (%d rows)", text(key), count))
	}
	return keys, rows.Err()
}

// column runs a single-column query and returns its values as text, with
// NULL rendered as "NULL".
func (v *Validator) column(ctx context.Context, query string) ([]string, error) {
	rows, err := v.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s sql.NullString
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, text(s))
	}
	return out, rows.Err()
}

// text renders a scanned key column. Tables without constraints may hold
// NULL keys, which are reported rather than failing the check.
func text(ns sql.NullString) string {
	if !ns.Valid {
		return "NULL"
	}
	return ns.String
}
