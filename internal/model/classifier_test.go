package model

import (
	"testing"
)

// TestClassWeightingRescuesMinorityCell checks that the swapped class
// weights change the decision on a cell the unweighted fit would call 0.
// July flights here are delayed only 8 times out of 20, but delays are rare
// overall, so the delay class carries a weight of 0.92 against 0.08 and the
// weighted vote for July comes out positive.
func TestClassWeightingRescuesMinorityCell(t *testing.T) {
	var records []FlightRecord
	var labels []int
	for i := 0; i < 80; i++ {
		records = append(records, FlightRecord{Opera: "Sky Airline", TipoVuelo: "N", Mes: 3})
		labels = append(labels, 0)
	}
	for i := 0; i < 8; i++ {
		records = append(records, FlightRecord{Opera: "Sky Airline", TipoVuelo: "N", Mes: 7})
		labels = append(labels, 1)
	}
	for i := 0; i < 12; i++ {
		records = append(records, FlightRecord{Opera: "Sky Airline", TipoVuelo: "N", Mes: 7})
		labels = append(labels, 0)
	}

	m := New()
	if err := m.Fit(Preprocess(records), labels); err != nil {
		t.Fatalf("fit: %v", err)
	}

	july := Preprocess([]FlightRecord{{Opera: "Sky Airline", TipoVuelo: "N", Mes: 7}})
	if got := m.Predict(july)[0]; got != 1 {
		t.Fatalf("weighted fit should flag the July cell as delayed, got %d", got)
	}

	march := Preprocess([]FlightRecord{{Opera: "Sky Airline", TipoVuelo: "N", Mes: 3}})
	if got := m.Predict(march)[0]; got != 0 {
		t.Fatalf("March cell should stay non-delayed, got %d", got)
	}
}

func TestDecideThreshold(t *testing.T) {
	clf := &coefficients{Weights: []float64{2, 0, 0, 0, 0, 0, 0, 0, 0, -2}, Intercept: -1}

	// First schema column active: z = -1 + 2 = 1 -> sigmoid > 0.5 -> 1.
	pos := Preprocess([]FlightRecord{{Opera: "Latin American Wings", TipoVuelo: "N", Mes: 1}})
	// Last schema column active: z = -1 - 2 = -3 -> 0.
	neg := Preprocess([]FlightRecord{{Opera: "Copa Air", TipoVuelo: "N", Mes: 1}})

	if got := clf.decide(pos); got[0] != 1 {
		t.Fatalf("positive decision expected, got %d", got[0])
	}
	if got := clf.decide(neg); got[0] != 0 {
		t.Fatalf("negative decision expected, got %d", got[0])
	}
}

func TestFitLogisticEmptyMatrix(t *testing.T) {
	if _, err := fitLogistic(Preprocess(nil), nil, 1, 1); err == nil {
		t.Fatalf("expected error on empty feature matrix")
	}
}
