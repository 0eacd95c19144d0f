// Package httpapi exposes the scan engine's REST surface.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	app "github.com/voicebootix/CryptoUniverse-sub010/internal/app"
	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/domain/opportunity"
	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/domain/scan"
	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/metrics"
	scansvc "github.com/voicebootix/CryptoUniverse-sub010/internal/app/services/scan"
	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/storage"
)

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
}

// NewHandler returns a router exposing the scan REST API, health probe and
// Prometheus metrics, with HTTP instrumentation applied.
func NewHandler(application *app.Application) http.Handler {
	h := &handler{app: application}

	r := mux.NewRouter()
	r.HandleFunc("/scans", h.startScan).Methods(http.MethodPost)
	r.HandleFunc("/scans/{scan_id}", h.scanStatus).Methods(http.MethodGet)
	r.HandleFunc("/scans/{scan_id}/results", h.scanResults).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	return metrics.InstrumentHandler(r)
}

// startScan accepts a scan request and returns 202 immediately. The scan
// itself runs in the background; callers poll the returned scan_id.
func (h *handler) startScan(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		UserID        string   `json:"user_id"`
		Symbols       []string `json:"symbols"`
		Strategies    []string `json:"strategies"`
		Exchanges     []string `json:"exchanges"`
		RiskTolerance string   `json:"risk_tolerance"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	opts := scan.Options{
		Symbols:       payload.Symbols,
		Strategies:    payload.Strategies,
		Exchanges:     payload.Exchanges,
		RiskTolerance: opportunity.RiskLevel(payload.RiskTolerance),
	}
	session, err := h.app.Scans.StartScan(r.Context(), payload.UserID, opts)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, storage.ErrUnavailable) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, err)
		return
	}

	writeJSON(w, http.StatusAccepted, sessionEnvelope(session))
}

// scanStatus reports session progress, partial results included.
func (h *handler) scanStatus(w http.ResponseWriter, r *http.Request) {
	scanID := mux.Vars(r)["scan_id"]
	session, err := h.app.Scans.GetStatus(r.Context(), scanID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionEnvelope(session))
}

// scanResults returns the ranked opportunity list once the scan is
// terminal. While the scan is running it answers 202 so clients keep
// polling; an expired or unknown scan_id is a 404.
func (h *handler) scanResults(w http.ResponseWriter, r *http.Request) {
	scanID := mux.Vars(r)["scan_id"]
	session, err := h.app.Scans.GetResults(r.Context(), scanID)
	if err != nil {
		if errors.Is(err, scansvc.ErrNotReady) {
			writeJSON(w, http.StatusAccepted, sessionEnvelope(session))
			return
		}
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionEnvelope(session))
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	breakers := map[string]string{}
	for _, name := range h.app.Pool.Exchanges() {
		breakers[name] = h.app.Pool.BreakerState(name).String()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"breakers": breakers,
	})
}

// sessionEnvelope shapes a session for the wire, adding the derived
// estimated_completion_seconds while the scan is still running.
func sessionEnvelope(session scan.Session) map[string]interface{} {
	out := map[string]interface{}{
		"scan_id":              session.ID,
		"user_id":              session.UserID,
		"status":               session.Status,
		"strategies_total":     session.StrategiesTotal,
		"strategies_completed": session.StrategiesCompleted,
		"opportunities":        session.Opportunities,
		"total_opportunities":  len(session.Opportunities),
		"skipped":              session.Skipped,
		"started_at":           session.StartedAt,
	}
	if session.Terminal() {
		out["completed_at"] = session.CompletedAt
	} else {
		remaining := math.Ceil(time.Until(session.Deadline).Seconds())
		if remaining < 0 {
			remaining = 0
		}
		out["estimated_completion_seconds"] = int(remaining)
	}
	if session.Error != "" {
		out["error"] = session.Error
	}
	return out
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, errors.New("scan not found or expired"))
	case errors.Is(err, storage.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
