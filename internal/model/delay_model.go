package model

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrShapeMismatch reports a Fit call where the feature matrix and the
	// label vector disagree on row count.
	ErrShapeMismatch = errors.New("features and labels length mismatch")

	// ErrNoModel reports a SaveModel call on an untrained model.
	ErrNoModel = errors.New("no trained model")
)

// DelayModel predicts flight delays with a logistic regression over the
// TopFeatures schema. It holds zero or one fitted classifier; Fit, LoadModel
// and Install replace it wholesale through an atomic pointer, so concurrent
// Predict calls observe either the old or the new classifier, never a
// partial update.
type DelayModel struct {
	clf atomic.Pointer[coefficients]
}

// New returns an untrained DelayModel.
func New() *DelayModel { return &DelayModel{} }

// ClassWeights computes per-class loss multipliers from a label
// distribution: w1 = count(0)/n and w0 = count(1)/n, deliberately swapped
// so the rarer class carries the larger weight. A single-class batch gets
// uniform weights rather than a zero weight.
func ClassWeights(labels []int) (w0, w1 float64) {
	var n0, n1 int
	for _, label := range labels {
		if label == 1 {
			n1++
		} else {
			n0++
		}
	}
	if n0 == 0 || n1 == 0 {
		return 1, 1
	}
	total := float64(len(labels))
	return float64(n1) / total, float64(n0) / total
}

// Fit trains a new classifier on preprocessed features and installs it. The
// previously held classifier is untouched when training fails.
func (m *DelayModel) Fit(features *mat.Dense, labels []int) error {
	if rowCount(features) != len(labels) {
		return fmt.Errorf("%w: %d feature rows, %d labels",
			ErrShapeMismatch, rowCount(features), len(labels))
	}
	w0, w1 := ClassWeights(labels)
	clf, err := fitLogistic(features, labels, w0, w1)
	if err != nil {
		return fmt.Errorf("fit: %w", err)
	}
	m.clf.Store(clf)
	return nil
}

// Predict returns one 0/1 label per feature row. On an untrained model it
// returns all zeros of the correct length: a documented safe default, not a
// hidden failure, so serving callers never see an error for this case.
func (m *DelayModel) Predict(features *mat.Dense) []int {
	clf := m.clf.Load()
	if clf == nil {
		return make([]int, rowCount(features))
	}
	return clf.decide(features)
}

// Trained reports whether a fitted classifier is currently held.
func (m *DelayModel) Trained() bool { return m.clf.Load() != nil }

// SaveModel serializes the held classifier (weights and intercept only) to
// path, overwriting any existing file. Fails with ErrNoModel when untrained.
func (m *DelayModel) SaveModel(path string) error {
	clf := m.clf.Load()
	if clf == nil {
		return ErrNoModel
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create model dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create model file: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(clf); err != nil {
		f.Close()
		return fmt.Errorf("encode model: %w", err)
	}
	return f.Close()
}

// LoadModel reads a serialized classifier from path and installs it,
// replacing any prior one. A missing file surfaces as fs.ErrNotExist so the
// serving layer can fall back to the untrained state.
func (m *DelayModel) LoadModel(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open model file: %w", err)
	}
	defer f.Close()
	return m.Install(f)
}

// Install decodes a serialized classifier from r and installs it. Used by
// LoadModel and by registry-backed reloads that already hold the artifact
// bytes.
func (m *DelayModel) Install(r io.Reader) error {
	var clf coefficients
	if err := gob.NewDecoder(r).Decode(&clf); err != nil {
		return fmt.Errorf("decode model: %w", err)
	}
	if len(clf.Weights) == 0 {
		return fmt.Errorf("decode model: no coefficients")
	}
	m.clf.Store(&clf)
	return nil
}

// Coefficients returns a copy of the held weights and intercept, and false
// when untrained. Exposed for diagnostics and tests.
func (m *DelayModel) Coefficients() ([]float64, float64, bool) {
	clf := m.clf.Load()
	if clf == nil {
		return nil, 0, false
	}
	return append([]float64(nil), clf.Weights...), clf.Intercept, true
}

func rowCount(features *mat.Dense) int {
	if features == nil {
		return 0
	}
	rows, _ := features.Dims()
	return rows
}
