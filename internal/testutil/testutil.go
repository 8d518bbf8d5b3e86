// Package testutil provides shared fixtures for database and API tests.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/corrdash/corrdash/internal/db"
	"github.com/corrdash/corrdash/internal/signal"
)

// NewTestDB opens a fresh migrated sqlite database under the test's
// temp directory. It is closed automatically when the test ends.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.New(filepath.Join(t.TempDir(), "corrdash-test.db"))
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

// DriveTable builds a two-channel signal table with n samples at
// constant steering and speed, the minimal shape the path engine needs.
func DriveTable(t *testing.T, n int, angle, speed float64) *signal.Table {
	t.Helper()
	angles := make(signal.Series, n)
	speeds := make(signal.Series, n)
	for i := range angles {
		angles[i] = angle
		speeds[i] = speed
	}
	table := signal.NewTable()
	if err := table.AddColumn("wheel_angle", angles); err != nil {
		t.Fatalf("building fixture table: %v", err)
	}
	if err := table.AddColumn("speed", speeds); err != nil {
		t.Fatalf("building fixture table: %v", err)
	}
	return table
}
