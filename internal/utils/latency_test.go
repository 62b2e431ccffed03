package utils

import (
	"testing"
	"time"
)

func TestPredictionBatchPercentile(t *testing.T) {
	tracker := NewLatencyTracker(64)
	// A typical serving profile: most batches fast, one slow outlier.
	batches := []time.Duration{
		200 * time.Microsecond,
		250 * time.Microsecond,
		300 * time.Microsecond,
		350 * time.Microsecond,
		5 * time.Millisecond,
	}
	for _, d := range batches {
		tracker.Observe(d)
	}

	if tracker.Count() != len(batches) {
		t.Fatalf("expected count %d, got %d", len(batches), tracker.Count())
	}

	p95 := tracker.Percentile(95)
	if p95 < 350*time.Microsecond {
		t.Fatalf("p95 should land at the slow tail, got %v", p95)
	}
}

func TestPredictionBatchWindowBounded(t *testing.T) {
	tracker := NewLatencyTracker(3)
	for i := 0; i < 10; i++ {
		tracker.Observe(time.Duration(i) * time.Millisecond)
	}
	if tracker.Count() != 3 {
		t.Fatalf("expected window size 3, got %d", tracker.Count())
	}
	// Oldest batches are evicted, so the minimum is the third-newest.
	if min := tracker.Percentile(0); min != 7*time.Millisecond {
		t.Fatalf("expected oldest retained sample 7ms, got %v", min)
	}
}

func TestPercentileNoSamples(t *testing.T) {
	tracker := NewLatencyTracker(8)
	if p := tracker.Percentile(95); p != 0 {
		t.Fatalf("empty tracker should report zero, got %v", p)
	}
}
