package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/flightops/delay-engine/internal/metrics"
	"github.com/flightops/delay-engine/internal/model"
	"github.com/flightops/delay-engine/internal/registry"
	"github.com/flightops/delay-engine/internal/utils"
)

// ArtifactSource defines the registry operations the service needs to fetch
// a servable model.
type ArtifactSource interface {
	LatestVersion(ctx context.Context, name string) (registry.ModelVersion, error)
	FetchArtifact(ctx context.Context, name, version string) ([]byte, error)
}

// PredictionService owns the served DelayModel. The model handle is only
// replaced here, through explicit reloads, never from other call sites.
type PredictionService struct {
	logger    *slog.Logger
	model     *model.DelayModel
	source    ArtifactSource
	modelName string
	latencies *utils.LatencyTracker

	mu      sync.Mutex // serialises reloads; Predict never takes it
	version string
}

// NewPredictionService constructs the serving facade around an untrained model.
func NewPredictionService(logger *slog.Logger, source ArtifactSource, modelName string) *PredictionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PredictionService{
		logger:    logger,
		model:     model.New(),
		source:    source,
		modelName: modelName,
		latencies: utils.NewLatencyTracker(1024),
	}
}

// Predict preprocesses a batch of flight records and returns one 0/1 label
// per record. Safe for concurrent use; an untrained model yields all zeros.
func (s *PredictionService) Predict(records []model.FlightRecord) []int {
	start := time.Now()
	features := model.Preprocess(records)
	preds := s.model.Predict(features)
	duration := time.Since(start)

	s.latencies.Observe(duration)
	metrics.ObserveBatch(duration, preds)
	if count := s.latencies.Count(); count >= 100 && count%100 == 0 {
		s.logger.Info("prediction latency",
			slog.Duration("p95", s.latencies.Percentile(95)),
			slog.Int("samples", count))
	}
	return preds
}

// Reload fetches the latest registered model version and installs it,
// returning the installed version. The previously held classifier keeps
// serving until the new one is fully decoded.
func (s *PredictionService) Reload(ctx context.Context) (string, error) {
	if s.source == nil {
		err := fmt.Errorf("no model registry configured")
		metrics.ObserveReload(err)
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	version, err := s.source.LatestVersion(ctx, s.modelName)
	if err != nil {
		metrics.ObserveReload(err)
		return "", fmt.Errorf("resolve latest version: %w", err)
	}

	artifact, err := s.source.FetchArtifact(ctx, s.modelName, version.Version)
	if err != nil {
		metrics.ObserveReload(err)
		return "", fmt.Errorf("fetch artifact %s: %w", version.Version, err)
	}

	if err := s.model.Install(bytes.NewReader(artifact)); err != nil {
		metrics.ObserveReload(err)
		return "", fmt.Errorf("install %s: %w", version.Version, err)
	}

	s.version = version.Version
	metrics.ObserveReload(nil)
	metrics.SetModelTrained(true)
	s.logger.Info("model installed",
		slog.String("name", s.modelName),
		slog.String("version", version.Version))
	return version.Version, nil
}

// LoadLocal installs a model from a local artifact file. Used at startup
// when no registry is configured.
func (s *PredictionService) LoadLocal(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.model.LoadModel(path); err != nil {
		return err
	}
	s.version = "local:" + path
	metrics.SetModelTrained(true)
	s.logger.Info("model installed from file", slog.String("path", path))
	return nil
}

// Trained reports whether a fitted classifier is being served.
func (s *PredictionService) Trained() bool { return s.model.Trained() }

// Version returns the identifier of the installed model, empty when untrained.
func (s *PredictionService) Version() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}
