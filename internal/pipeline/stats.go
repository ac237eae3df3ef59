package pipeline

import (
	"slices"
	"sync"
	"time"
)

type importSample struct {
	at     time.Time
	ms     int64
	format string
	failed bool
}

// StatsSnapshot summarises the imports seen in the rolling window. Latency
// figures cover successful imports only.
type StatsSnapshot struct {
	Count    int            `json:"count"`
	Failed   int            `json:"failed"`
	ByFormat map[string]int `json:"by_format"`
	MinMs    int64          `json:"min_ms"`
	MaxMs    int64          `json:"max_ms"`
	AvgMs    float64        `json:"avg_ms"`
	P50Ms    float64        `json:"p50_ms"`
	P95Ms    float64        `json:"p95_ms"`
	P99Ms    float64        `json:"p99_ms"`
}

// ImportStats keeps recent import outcomes for the stats endpoint.
type ImportStats struct {
	mu      sync.Mutex
	samples []importSample
	window  time.Duration
	now     func() time.Time
}

func NewImportStats(window time.Duration) *ImportStats {
	if window <= 0 {
		window = time.Hour
	}
	return &ImportStats{window: window, now: time.Now}
}

// Record adds one finished import.
func (s *ImportStats) Record(format string, d time.Duration, failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.pruneLocked(now)
	s.samples = append(s.samples, importSample{
		at:     now,
		ms:     max(d.Milliseconds(), 0),
		format: format,
		failed: failed,
	})
}

func (s *ImportStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(s.now())
	snap := StatsSnapshot{Count: len(s.samples), ByFormat: map[string]int{}}
	var ok []int64
	var sum int64
	for _, sm := range s.samples {
		snap.ByFormat[sm.format]++
		if sm.failed {
			snap.Failed++
			continue
		}
		ok = append(ok, sm.ms)
		sum += sm.ms
	}
	if len(ok) == 0 {
		return snap
	}
	slices.Sort(ok)
	snap.MinMs = ok[0]
	snap.MaxMs = ok[len(ok)-1]
	snap.AvgMs = float64(sum) / float64(len(ok))
	snap.P50Ms = percentile(ok, 50)
	snap.P95Ms = percentile(ok, 95)
	snap.P99Ms = percentile(ok, 99)
	return snap
}

func (s *ImportStats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.window)
	s.samples = slices.DeleteFunc(s.samples, func(sm importSample) bool {
		return sm.at.Before(cutoff)
	})
}

// percentile interpolates linearly between the closest ranks of sorted.
func percentile(sorted []int64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[len(sorted)-1])
	}
	rank := float64(len(sorted)-1) * pct / 100
	lo := int(rank)
	if lo+1 >= len(sorted) {
		return float64(sorted[lo])
	}
	frac := rank - float64(lo)
	return float64(sorted[lo]) + float64(sorted[lo+1]-sorted[lo])*frac
}
