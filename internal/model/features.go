package model

import (
	"fmt"
	"strconv"
	"time"

	"gonum.org/v1/gonum/mat"
)

// TopFeatures is the fixed serving schema: the ten one-hot columns the
// classifier was designed against, in training order. Preprocess always
// emits exactly these columns regardless of which categories appear in a
// batch, so training-time and serving-time matrices line up column for
// column.
var TopFeatures = []string{
	"OPERA_Latin American Wings",
	"MES_7",
	"MES_10",
	"OPERA_Grupo LATAM",
	"MES_12",
	"TIPOVUELO_I",
	"MES_4",
	"MES_11",
	"OPERA_Sky Airline",
	"OPERA_Copa Air",
}

// ScheduleLayout is the timestamp layout used by the Fecha-I and Fecha-O
// columns of the historical dataset.
const ScheduleLayout = "2006-01-02 15:04:05"

// delayThreshold classifies a departure as delayed when the actual time is
// at least this far past the scheduled one.
const delayThreshold = 15 * time.Minute

// FlightRecord is one raw flight row. FechaI and FechaO are only consulted
// when labels are derived; they may be empty for serving traffic.
type FlightRecord struct {
	Opera     string // operating airline name
	TipoVuelo string // flight type code: "I" international, "N" national
	Mes       int    // month of operation, 1-12
	FechaI    string // scheduled departure, ScheduleLayout
	FechaO    string // actual departure, ScheduleLayout
}

// ParseError reports a flight timestamp that could not be parsed during
// label derivation. Invalid dates are never silently coerced.
type ParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Preprocess one-hot encodes OPERA, TIPOVUELO and MES, then projects the
// result onto the TopFeatures schema: categories outside the schema are
// dropped, schema columns absent from the batch come out as zero. The
// returned matrix is len(records) x len(TopFeatures). Pure transform, no
// side effects.
func Preprocess(records []FlightRecord) *mat.Dense {
	if len(records) == 0 {
		return &mat.Dense{}
	}
	out := mat.NewDense(len(records), len(TopFeatures), nil)
	for i, rec := range records {
		active := map[string]struct{}{
			"OPERA_" + rec.Opera:           {},
			"TIPOVUELO_" + rec.TipoVuelo:   {},
			"MES_" + strconv.Itoa(rec.Mes): {},
		}
		for j, col := range TopFeatures {
			if _, ok := active[col]; ok {
				out.Set(i, j, 1)
			}
		}
	}
	return out
}

// PreprocessLabeled is Preprocess plus target derivation for training data.
func PreprocessLabeled(records []FlightRecord) (*mat.Dense, []int, error) {
	labels, err := Labels(records)
	if err != nil {
		return nil, nil, err
	}
	return Preprocess(records), labels, nil
}

// Labels derives the binary delay target: 1 when the actual departure is
// 15 minutes or more after the scheduled one, 0 otherwise. The difference
// is signed, so early departures always come out 0.
func Labels(records []FlightRecord) ([]int, error) {
	labels := make([]int, len(records))
	for i, rec := range records {
		scheduled, err := time.Parse(ScheduleLayout, rec.FechaI)
		if err != nil {
			return nil, &ParseError{Field: "Fecha-I", Value: rec.FechaI, Err: err}
		}
		actual, err := time.Parse(ScheduleLayout, rec.FechaO)
		if err != nil {
			return nil, &ParseError{Field: "Fecha-O", Value: rec.FechaO, Err: err}
		}
		if actual.Sub(scheduled) >= delayThreshold {
			labels[i] = 1
		}
	}
	return labels, nil
}
