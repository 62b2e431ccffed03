package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels prediction batches that completed.
	OutcomeSuccess = "success"
	// OutcomeError labels rejected or failed prediction batches.
	OutcomeError = "error"
)

var (
	predictionBatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "delay_engine",
			Name:      "prediction_batches_total",
			Help:      "Total number of prediction batches handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	predictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "delay_engine",
			Name:      "predictions_total",
			Help:      "Total individual flight predictions emitted, partitioned by label.",
		},
		[]string{"label"},
	)

	predictionBatchSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "delay_engine",
			Name:      "prediction_batch_seconds",
			Help:      "Prediction batch latency in seconds.",
			Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	modelTrained = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "delay_engine",
			Name:      "model_trained",
			Help:      "1 when a fitted classifier is loaded, 0 when serving the untrained default.",
		},
	)

	modelReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "delay_engine",
			Name:      "model_reloads_total",
			Help:      "Model reload attempts, partitioned by outcome.",
		},
		[]string{"outcome"},
	)
)

// Register attaches delay-engine collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		predictionBatchesTotal,
		predictionsTotal,
		predictionBatchSeconds,
		modelTrained,
		modelReloadsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveBatch records a completed prediction batch: its duration and the
// labels it emitted.
func ObserveBatch(duration time.Duration, labels []int) {
	predictionBatchesTotal.WithLabelValues(OutcomeSuccess).Inc()
	if duration < 0 {
		duration = 0
	}
	predictionBatchSeconds.Observe(duration.Seconds())

	var delayed, onTime float64
	for _, l := range labels {
		if l == 1 {
			delayed++
		} else {
			onTime++
		}
	}
	if delayed > 0 {
		predictionsTotal.WithLabelValues("delay").Add(delayed)
	}
	if onTime > 0 {
		predictionsTotal.WithLabelValues("no_delay").Add(onTime)
	}
}

// ObserveBatchRejected counts a batch rejected before prediction ran. No
// latency sample is recorded; the histogram only tracks batches that reached
// the model.
func ObserveBatchRejected() {
	predictionBatchesTotal.WithLabelValues(OutcomeError).Inc()
}

// SetModelTrained flips the trained-state gauge.
func SetModelTrained(trained bool) {
	if trained {
		modelTrained.Set(1)
		return
	}
	modelTrained.Set(0)
}

// ObserveReload counts a model reload attempt.
func ObserveReload(err error) {
	if err != nil {
		modelReloadsTotal.WithLabelValues(OutcomeError).Inc()
		return
	}
	modelReloadsTotal.WithLabelValues(OutcomeSuccess).Inc()
}
