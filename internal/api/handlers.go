package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/flightops/delay-engine/internal/metrics"
	"github.com/flightops/delay-engine/internal/model"
)

// PredictionBackend defines the serving operations the HTTP layer exposes.
type PredictionBackend interface {
	Predict(records []model.FlightRecord) []int
	Reload(ctx context.Context) (string, error)
	Trained() bool
	Version() string
}

// validOperators are the airline names admitted on the prediction endpoint.
var validOperators = map[string]struct{}{
	"Aerolineas Argentinas": {},
	"Grupo LATAM":           {},
	"Sky Airline":           {},
	"Copa Air":              {},
	"Latin American Wings":  {},
}

// FlightPayload is one flight in a prediction request.
type FlightPayload struct {
	Opera     string `json:"OPERA"`
	TipoVuelo string `json:"TIPOVUELO"`
	Mes       int    `json:"MES"`
}

// PredictRequest is a batch of flights to classify.
type PredictRequest struct {
	Flights []FlightPayload `json:"flights"`
}

// PredictResponse carries one 0/1 label per submitted flight.
type PredictResponse struct {
	Predict []int `json:"predict"`
}

type handlers struct {
	backend PredictionBackend
	logger  *slog.Logger
}

// NewRouter wires the prediction API routes.
func NewRouter(backend PredictionBackend, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handlers{backend: backend, logger: logger}

	r := mux.NewRouter()
	r.HandleFunc("/predict", h.predict).Methods(http.MethodPost)
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.HandleFunc("/model/reload", h.reload).Methods(http.MethodPost)
	return r
}

func (h *handlers) predict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.ObserveBatchRejected()
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	records, err := validateFlights(req.Flights)
	if err != nil {
		metrics.ObserveBatchRejected()
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	preds := h.backend.Predict(records)
	writeJSON(w, http.StatusOK, PredictResponse{Predict: preds})
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (h *handlers) reload(w http.ResponseWriter, r *http.Request) {
	version, err := h.backend.Reload(r.Context())
	if err != nil {
		h.logger.Error("model reload failed", slog.Any("error", err))
		writeError(w, http.StatusBadGateway, "model reload failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"version": version})
}

func validateFlights(flights []FlightPayload) ([]model.FlightRecord, error) {
	if len(flights) == 0 {
		return nil, fmt.Errorf("flights list is required")
	}
	records := make([]model.FlightRecord, 0, len(flights))
	for i, f := range flights {
		if _, ok := validOperators[f.Opera]; !ok {
			return nil, fmt.Errorf("flight %d: unknown operator %q", i, f.Opera)
		}
		if f.TipoVuelo != "I" && f.TipoVuelo != "N" {
			return nil, fmt.Errorf("flight %d: TIPOVUELO must be I or N", i)
		}
		if f.Mes < 1 || f.Mes > 12 {
			return nil, fmt.Errorf("flight %d: MES must be between 1 and 12", i)
		}
		records = append(records, model.FlightRecord{
			Opera:     f.Opera,
			TipoVuelo: f.TipoVuelo,
			Mes:       f.Mes,
		})
	}
	return records, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
