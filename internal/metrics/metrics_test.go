package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func histogramSamples(t *testing.T) uint64 {
	t.Helper()
	var m dto.Metric
	if err := predictionBatchSeconds.Write(&m); err != nil {
		t.Fatalf("read histogram: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

func counterValue(t *testing.T, vec *prometheus.CounterVec, label string) float64 {
	t.Helper()
	var m dto.Metric
	if err := vec.WithLabelValues(label).Write(&m); err != nil {
		t.Fatalf("read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestObserveBatchRecordsLatencyAndLabels(t *testing.T) {
	samplesBefore := histogramSamples(t)
	successBefore := counterValue(t, predictionBatchesTotal, OutcomeSuccess)
	delayBefore := counterValue(t, predictionsTotal, "delay")
	onTimeBefore := counterValue(t, predictionsTotal, "no_delay")

	ObserveBatch(2*time.Millisecond, []int{1, 0, 0})

	if got := histogramSamples(t); got != samplesBefore+1 {
		t.Fatalf("expected one new latency sample, got %d -> %d", samplesBefore, got)
	}
	if got := counterValue(t, predictionBatchesTotal, OutcomeSuccess); got != successBefore+1 {
		t.Fatalf("success batches: got %v, want %v", got, successBefore+1)
	}
	if got := counterValue(t, predictionsTotal, "delay"); got != delayBefore+1 {
		t.Fatalf("delay predictions: got %v, want %v", got, delayBefore+1)
	}
	if got := counterValue(t, predictionsTotal, "no_delay"); got != onTimeBefore+2 {
		t.Fatalf("no_delay predictions: got %v, want %v", got, onTimeBefore+2)
	}
}

func TestObserveBatchRejectedSkipsLatency(t *testing.T) {
	samplesBefore := histogramSamples(t)
	rejectedBefore := counterValue(t, predictionBatchesTotal, OutcomeError)

	ObserveBatchRejected()
	ObserveBatchRejected()

	if got := histogramSamples(t); got != samplesBefore {
		t.Fatalf("rejected batches must not record latency samples: %d -> %d", samplesBefore, got)
	}
	if got := counterValue(t, predictionBatchesTotal, OutcomeError); got != rejectedBefore+2 {
		t.Fatalf("rejected batches: got %v, want %v", got, rejectedBefore+2)
	}
}
