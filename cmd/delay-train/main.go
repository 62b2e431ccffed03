package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/flightops/delay-engine/internal/model"
	"github.com/flightops/delay-engine/internal/utils"
)

func main() {
	var (
		dataPath string
		outPath  string
		logLevel string
	)
	flag.StringVar(&dataPath, "data", "data/data.csv", "Path to the historical flights CSV")
	flag.StringVar(&outPath, "out", "model.bin", "Where to write the trained model artifact")
	flag.StringVar(&logLevel, "log-level", "info", "Log level")
	flag.Parse()

	logger := utils.NewLogger(logLevel, false)

	records, err := readFlights(dataPath)
	if err != nil {
		logger.Error("failed to read training data", slog.String("path", dataPath), slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("loaded training data", slog.String("path", dataPath), slog.Int("rows", len(records)))

	features, labels, err := model.PreprocessLabeled(records)
	if err != nil {
		logger.Error("preprocessing failed", slog.Any("error", err))
		os.Exit(1)
	}

	var delayed int
	for _, l := range labels {
		if l == 1 {
			delayed++
		}
	}
	w0, w1 := model.ClassWeights(labels)
	logger.Info("target distribution",
		slog.Int("delayed", delayed),
		slog.Int("on_time", len(labels)-delayed),
		slog.Float64("w0", w0),
		slog.Float64("w1", w1))

	m := model.New()
	if err := m.Fit(features, labels); err != nil {
		logger.Error("training failed", slog.Any("error", err))
		os.Exit(1)
	}

	if err := m.SaveModel(outPath); err != nil {
		logger.Error("failed to save model", slog.String("path", outPath), slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("model saved", slog.String("path", outPath))
}

// readFlights loads flight rows from a CSV with a header naming at least
// OPERA, TIPOVUELO, MES, Fecha-I and Fecha-O. Extra columns are ignored.
func readFlights(path string) ([]model.FlightRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}
	for _, required := range []string{"OPERA", "TIPOVUELO", "MES", "Fecha-I", "Fecha-O"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	var records []model.FlightRecord
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		mes, err := strconv.Atoi(field(row, cols["MES"]))
		if err != nil {
			return nil, fmt.Errorf("line %d: bad MES: %w", line, err)
		}

		records = append(records, model.FlightRecord{
			Opera:     field(row, cols["OPERA"]),
			TipoVuelo: field(row, cols["TIPOVUELO"]),
			Mes:       mes,
			FechaI:    field(row, cols["Fecha-I"]),
			FechaO:    field(row, cols["Fecha-O"]),
		})
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no data rows in %s", path)
	}
	return records, nil
}

func field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
