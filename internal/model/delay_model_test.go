package model

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sync"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// trainingBatch builds a separable batch: July flights are delayed, the
// rest are not.
func trainingBatch(perClass int) ([]FlightRecord, []int) {
	records := make([]FlightRecord, 0, perClass*2)
	labels := make([]int, 0, perClass*2)
	for i := 0; i < perClass; i++ {
		records = append(records, FlightRecord{Opera: "Grupo LATAM", TipoVuelo: "N", Mes: 7})
		labels = append(labels, 1)
		records = append(records, FlightRecord{Opera: "Grupo LATAM", TipoVuelo: "N", Mes: 3})
		labels = append(labels, 0)
	}
	return records, labels
}

func TestPredictUntrained(t *testing.T) {
	m := New()
	features := Preprocess([]FlightRecord{
		{Opera: "Grupo LATAM", TipoVuelo: "N", Mes: 3},
		{Opera: "Sky Airline", TipoVuelo: "I", Mes: 7},
	})

	preds := m.Predict(features)
	if len(preds) != 2 {
		t.Fatalf("expected 2 predictions, got %d", len(preds))
	}
	for i, p := range preds {
		if p != 0 {
			t.Fatalf("untrained prediction %d should be 0, got %d", i, p)
		}
	}
}

func TestFitAndPredict(t *testing.T) {
	records, labels := trainingBatch(20)
	features := Preprocess(records)

	m := New()
	if err := m.Fit(features, labels); err != nil {
		t.Fatalf("fit: %v", err)
	}
	if !m.Trained() {
		t.Fatalf("model should be trained after fit")
	}

	preds := m.Predict(features)
	for i, p := range preds {
		if p != labels[i] {
			t.Fatalf("prediction %d: got %d, want %d", i, p, labels[i])
		}
	}
}

func TestFitShapeMismatch(t *testing.T) {
	records, labels := trainingBatch(5)
	features := Preprocess(records)

	m := New()
	err := m.Fit(features, labels[:len(labels)-1])
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
	if m.Trained() {
		t.Fatalf("failed fit must not install a classifier")
	}
}

func TestFitKeepsPriorStateOnShapeMismatch(t *testing.T) {
	records, labels := trainingBatch(10)
	features := Preprocess(records)

	m := New()
	if err := m.Fit(features, labels); err != nil {
		t.Fatalf("fit: %v", err)
	}
	before := m.Predict(features)

	if err := m.Fit(features, labels[:1]); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}

	after := m.Predict(features)
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("prior classifier disturbed at row %d", i)
		}
	}
}

func TestClassWeights(t *testing.T) {
	labels := make([]int, 0, 100)
	for i := 0; i < 90; i++ {
		labels = append(labels, 0)
	}
	for i := 0; i < 10; i++ {
		labels = append(labels, 1)
	}

	w0, w1 := ClassWeights(labels)
	if w0 != 0.1 {
		t.Fatalf("w0: got %v, want 0.1", w0)
	}
	if w1 != 0.9 {
		t.Fatalf("w1: got %v, want 0.9", w1)
	}
}

func TestClassWeightsSingleClass(t *testing.T) {
	w0, w1 := ClassWeights([]int{0, 0, 0, 0})
	if w0 != 1 || w1 != 1 {
		t.Fatalf("single-class batch should fall back to uniform weights, got %v/%v", w0, w1)
	}
}

func TestFitSingleClassBatch(t *testing.T) {
	records := []FlightRecord{
		{Opera: "Grupo LATAM", TipoVuelo: "N", Mes: 3},
		{Opera: "Sky Airline", TipoVuelo: "N", Mes: 5},
		{Opera: "Copa Air", TipoVuelo: "I", Mes: 6},
	}
	features := Preprocess(records)

	m := New()
	if err := m.Fit(features, []int{0, 0, 0}); err != nil {
		t.Fatalf("single-class fit should succeed with uniform weights: %v", err)
	}
	for i, p := range m.Predict(features) {
		if p != 0 {
			t.Fatalf("row %d: expected 0 on an all-negative fit, got %d", i, p)
		}
	}
}

func TestFitDeterministic(t *testing.T) {
	records, labels := trainingBatch(15)
	features := Preprocess(records)

	a, b := New(), New()
	if err := a.Fit(features, labels); err != nil {
		t.Fatalf("fit a: %v", err)
	}
	if err := b.Fit(features, labels); err != nil {
		t.Fatalf("fit b: %v", err)
	}

	wa, ia, _ := a.Coefficients()
	wb, ib, _ := b.Coefficients()
	if ia != ib {
		t.Fatalf("intercepts differ: %v vs %v", ia, ib)
	}
	for j := range wa {
		if wa[j] != wb[j] {
			t.Fatalf("weight %d differs: %v vs %v", j, wa[j], wb[j])
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	records, labels := trainingBatch(12)
	features := Preprocess(records)

	m := New()
	if err := m.Fit(features, labels); err != nil {
		t.Fatalf("fit: %v", err)
	}
	before := m.Predict(features)
	wBefore, iBefore, _ := m.Coefficients()

	path := filepath.Join(t.TempDir(), "delay.model")
	if err := m.SaveModel(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	restored := New()
	if err := restored.LoadModel(path); err != nil {
		t.Fatalf("load: %v", err)
	}

	wAfter, iAfter, ok := restored.Coefficients()
	if !ok {
		t.Fatalf("restored model should be trained")
	}
	if iBefore != iAfter {
		t.Fatalf("intercept changed across round trip: %v vs %v", iBefore, iAfter)
	}
	for j := range wBefore {
		if wBefore[j] != wAfter[j] {
			t.Fatalf("weight %d changed across round trip: %v vs %v", j, wBefore[j], wAfter[j])
		}
	}

	after := restored.Predict(features)
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("prediction %d changed across round trip", i)
		}
	}
}

func TestSaveModelUntrained(t *testing.T) {
	m := New()
	err := m.SaveModel(filepath.Join(t.TempDir(), "delay.model"))
	if !errors.Is(err, ErrNoModel) {
		t.Fatalf("expected ErrNoModel, got %v", err)
	}
}

func TestLoadModelMissingFile(t *testing.T) {
	m := New()
	err := m.LoadModel(filepath.Join(t.TempDir(), "absent.model"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}
	if m.Trained() {
		t.Fatalf("failed load must leave the model untrained")
	}
}

func TestPredictDuringConcurrentRefits(t *testing.T) {
	records, labels := trainingBatch(10)
	features := Preprocess(records)

	m := New()
	if err := m.Fit(features, labels); err != nil {
		t.Fatalf("fit: %v", err)
	}

	// Every Predict must observe a whole classifier, old or new, while Fit
	// keeps swapping it underneath.
	done := make(chan struct{})
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				preds := m.Predict(features)
				if len(preds) != len(labels) {
					t.Errorf("expected %d predictions, got %d", len(labels), len(preds))
					return
				}
				for i, p := range preds {
					if p != labels[i] {
						t.Errorf("prediction %d: got %d, want %d", i, p, labels[i])
						return
					}
				}
			}
		}()
	}

	for i := 0; i < 20; i++ {
		if err := m.Fit(features, labels); err != nil {
			t.Errorf("refit %d: %v", i, err)
			break
		}
	}
	close(done)
	wg.Wait()
}

func TestPredictSingleUntrainedExample(t *testing.T) {
	// A lone Grupo LATAM domestic flight in March against a fresh model.
	features := Preprocess([]FlightRecord{{Opera: "Grupo LATAM", TipoVuelo: "N", Mes: 3}})
	preds := New().Predict(features)
	if len(preds) != 1 || preds[0] != 0 {
		t.Fatalf("expected [0], got %v", preds)
	}
}

func TestFitNilFeatures(t *testing.T) {
	m := New()
	if err := m.Fit(nil, []int{0}); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch for nil features, got %v", err)
	}
	var empty mat.Dense
	if err := m.Fit(&empty, nil); err == nil {
		t.Fatalf("expected error fitting an empty matrix")
	}
}
