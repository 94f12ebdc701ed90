package telemetry

import (
	"path/filepath"
	"testing"

	"github.com/cockroachdb/pebble"
)

func TestSnapshotPebbleMetricsFlattensNumericFields(t *testing.T) {
	dir := t.TempDir()
	db, err := pebble.Open(filepath.Join(dir, "store"), &pebble.Options{})
	if err != nil {
		t.Fatalf("pebble.Open() error: %v", err)
	}
	defer db.Close()

	if err := db.Set([]byte("k"), []byte("v"), pebble.Sync); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	snap := SnapshotPebbleMetrics(db.Metrics())
	if len(snap) == 0 {
		t.Fatal("expected at least one flattened metric")
	}
}

func TestSnapshotPebbleMetricsNilIsEmpty(t *testing.T) {
	snap := SnapshotPebbleMetrics(nil)
	if len(snap) != 0 {
		t.Fatalf("expected empty map for nil metrics, got %d entries", len(snap))
	}
}

func TestPebbleMetricsFindMatchesDottedKey(t *testing.T) {
	m := PebbleMetrics{"Compact.Count": 3, "Flush.Count": 1}
	if got := m.Find("Compact.Count"); got != 3 {
		t.Fatalf("Find() = %v, want 3", got)
	}
	if got := m.Find("Compact_Count"); got != 3 {
		t.Fatalf("Find() with underscored pattern = %v, want 3", got)
	}
	if got := m.Find("NoSuchMetric"); got != 0 {
		t.Fatalf("Find() for missing metric = %v, want 0", got)
	}
}
