package pipeline

import (
	"testing"
	"time"
)

func TestImportStats_Percentiles(t *testing.T) {
	stats := NewImportStats(time.Hour)
	for _, ms := range []int64{500, 100, 400, 200, 300} {
		stats.Record("md", time.Duration(ms)*time.Millisecond, false)
	}

	snap := stats.Snapshot()
	if snap.Count != 5 || snap.Failed != 0 {
		t.Fatalf("expected 5 ok imports, got %+v", snap)
	}
	if snap.MinMs != 100 || snap.MaxMs != 500 || snap.AvgMs != 300 {
		t.Fatalf("unexpected min/max/avg %+v", snap)
	}
	if snap.P50Ms != 300 || snap.P95Ms != 480 || snap.P99Ms != 496 {
		t.Fatalf("unexpected percentiles %+v", snap)
	}
}

func TestImportStats_FailuresAndFormats(t *testing.T) {
	stats := NewImportStats(time.Hour)
	stats.Record("pdf", 40*time.Millisecond, false)
	stats.Record("pdf", 9*time.Second, true)
	stats.Record("csv", 10*time.Millisecond, false)

	snap := stats.Snapshot()
	if snap.Count != 3 || snap.Failed != 1 {
		t.Fatalf("expected 3 imports with 1 failure, got %+v", snap)
	}
	if snap.ByFormat["pdf"] != 2 || snap.ByFormat["csv"] != 1 {
		t.Errorf("unexpected per-format counts %v", snap.ByFormat)
	}
	if snap.MaxMs != 40 {
		t.Errorf("failed import must not count toward latency, max=%d", snap.MaxMs)
	}
}

func TestImportStats_WindowPrunes(t *testing.T) {
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	stats := NewImportStats(time.Minute)
	stats.now = func() time.Time { return clock }

	stats.Record("md", 100*time.Millisecond, false)
	clock = clock.Add(2 * time.Minute)
	if snap := stats.Snapshot(); snap.Count != 0 {
		t.Fatalf("expected expired sample pruned, got %+v", snap)
	}

	stats.Record("md", -time.Second, false)
	snap := stats.Snapshot()
	if snap.Count != 1 || snap.MinMs != 0 || snap.MaxMs != 0 {
		t.Fatalf("expected one clamped sample, got %+v", snap)
	}
}
