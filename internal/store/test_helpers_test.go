package store

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/roach88/fwcompat/internal/testutil"
)

// createTestStore creates a new store with the schema applied, in a temp dir.
func createTestStore(t *testing.T) (*Store, *testutil.Clock) {
	t.Helper()
	clock := testutil.NewClock(testutil.DefaultStart)
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path,
		WithClock(clock.Now),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.InitSchema(context.Background()); err != nil {
		t.Fatalf("InitSchema() failed: %v", err)
	}
	return s, clock
}

// seedSamples loads the testutil sample catalog.
func seedSamples(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	for _, d := range testutil.SampleDevices() {
		if _, err := s.UpsertDevice(ctx, d); err != nil {
			t.Fatalf("UpsertDevice(%s) failed: %v", d.Slug, err)
		}
	}
	for _, fw := range testutil.SampleFirmware() {
		if _, err := s.UpsertFirmware(ctx, fw); err != nil {
			t.Fatalf("UpsertFirmware(%s) failed: %v", fw.Key(), err)
		}
	}
	if err := s.UpsertCompatibility(ctx, testutil.SampleCompatibility()); err != nil {
		t.Fatalf("UpsertCompatibility() failed: %v", err)
	}
}

func countRows(t *testing.T, s *Store, table string) int {
	t.Helper()
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}
