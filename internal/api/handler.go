package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fleetpulse/fleetpulse/internal/config"
	"github.com/fleetpulse/fleetpulse/internal/ingest"
	"github.com/fleetpulse/fleetpulse/internal/scoring"
	"github.com/fleetpulse/fleetpulse/internal/storage"
)

// listLimit caps the alert and prediction list endpoints.
const listLimit = 200

// Handler is the HTTP handler for all /api/v1/* endpoints.
type Handler struct {
	cfg   *config.Config
	gw    *ingest.Gateway
	chain *scoring.Chain
	store *storage.Store
	mux   *http.ServeMux
}

// New creates a Handler and registers all routes.
func New(cfg *config.Config, gw *ingest.Gateway, chain *scoring.Chain, store *storage.Store) http.Handler {
	h := &Handler{cfg: cfg, gw: gw, chain: chain, store: store, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/config", h.config)
	h.mux.HandleFunc("/api/v1/readings", h.ingestOne)
	h.mux.HandleFunc("/api/v1/readings/batch", h.ingestBatch)
	h.mux.HandleFunc("/api/v1/whatif", h.whatIf)
	h.mux.HandleFunc("/api/v1/alerts", h.alerts)
	h.mux.HandleFunc("/api/v1/predictions", h.predictions)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, map[string]bool{"ok": true})
}

// config returns GET /api/v1/config — active provider order and thresholds.
func (h *Handler) config(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, ConfigResponse{
		Providers:            h.chain.Providers(),
		ProbabilityThreshold: h.cfg.Alerts.ProbabilityThreshold,
		TemperatureMax:       h.cfg.Alerts.TemperatureMax,
		MediumCut:            h.cfg.Alerts.MediumCut,
		HighCut:              h.cfg.Alerts.HighCut,
		WindowSize:           h.cfg.Ingest.WindowSize,
	})
}

// ingestOne handles POST /api/v1/readings — single-reading ingestion.
func (h *Handler) ingestOne(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var in ingest.ReadingInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		jsonErr(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	res, err := h.gw.Ingest(r.Context(), in)
	if err != nil {
		var verr *ingest.ValidationError
		if errors.As(err, &verr) {
			jsonErr(w, http.StatusUnprocessableEntity, verr.Error())
			return
		}
		jsonErr(w, http.StatusInternalServerError, "failed to persist reading")
		return
	}

	jsonResp(w, http.StatusCreated, IngestResponse{
		Reading:    res.Reading,
		Prediction: res.Prediction,
		Alerts:     res.Alerts,
	})
}

// ingestBatch handles POST /api/v1/readings/batch — per-item independent
// ingestion; the response reports every item's outcome.
func (h *Handler) ingestBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErr(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	res := h.gw.IngestBatch(r.Context(), req.Items)
	out := BatchResponse{
		Accepted: make([]IngestResponse, 0, len(res.Accepted)),
		Rejected: res.Rejected,
	}
	if out.Rejected == nil {
		out.Rejected = []ingest.BatchRejection{}
	}
	for _, a := range res.Accepted {
		out.Accepted = append(out.Accepted, IngestResponse{
			Reading:    a.Reading,
			Prediction: a.Prediction,
			Alerts:     a.Alerts,
		})
	}
	jsonResp(w, http.StatusOK, out)
}

// whatIf handles POST /api/v1/whatif — read-only hypothetical scoring.
func (h *Handler) whatIf(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req WhatIfRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErr(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if req.DeviceID == "" {
		jsonErr(w, http.StatusUnprocessableEntity, "device_id is required")
		return
	}

	pred, err := h.gw.WhatIf(r.Context(), req.DeviceID, req.Reading)
	if err != nil {
		var verr *ingest.ValidationError
		if errors.As(err, &verr) {
			jsonErr(w, http.StatusUnprocessableEntity, verr.Error())
			return
		}
		jsonErr(w, http.StatusInternalServerError, "what-if scoring failed")
		return
	}

	jsonResp(w, http.StatusOK, WhatIfResponse{
		DeviceID:    pred.DeviceID,
		Probability: pred.Probability,
		Provider:    pred.Provider,
	})
}

// alerts returns GET /api/v1/alerts — the latest alerts, newest first.
func (h *Handler) alerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	out, err := h.store.RecentAlerts(listLimit)
	if err != nil {
		jsonErr(w, http.StatusInternalServerError, "failed to list alerts")
		return
	}
	jsonResp(w, http.StatusOK, out)
}

// predictions returns GET /api/v1/predictions — the latest predictions,
// newest first.
func (h *Handler) predictions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	out, err := h.store.RecentPredictions(listLimit)
	if err != nil {
		jsonErr(w, http.StatusInternalServerError, "failed to list predictions")
		return
	}
	jsonResp(w, http.StatusOK, out)
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
