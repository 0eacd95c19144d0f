package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	app "github.com/voicebootix/CryptoUniverse-sub010/internal/app"
	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/services/exchange"
	"github.com/voicebootix/CryptoUniverse-sub010/internal/config"
)

// newTestApp builds an application whose only exchange is an httptest
// server, so scans never leave the process.
func newTestApp(t *testing.T) (*app.Application, http.Handler) {
	t.Helper()

	ticker := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"price":"67000.5","volume":"1200"}`))
	}))
	t.Cleanup(ticker.Close)

	cfg, err := config.Load("testdata/does-not-exist.yaml")
	require.NoError(t, err)
	cfg.Scan.BudgetSec = 5
	cfg.Exchanges = []exchange.EndpointConfig{{
		Name:              "testex",
		BaseURL:           ticker.URL,
		TickerPath:        "/ticker/{symbol}",
		PricePath:         "price",
		VolumePath:        "volume",
		RequestsPerMinute: 600,
		Burst:             20,
	}}

	application, err := app.New(cfg, app.Stores{}, nil)
	require.NoError(t, err)
	require.NoError(t, application.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = application.Stop(ctx)
	})

	return application, NewHandler(application)
}

func TestHandler_ScanFlow(t *testing.T) {
	_, handler := newTestApp(t)

	// Kick off a scan.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/scans",
		strings.NewReader(`{"user_id":"user-1"}`)))
	require.Equal(t, http.StatusAccepted, rec.Code)

	var started struct {
		ScanID    string `json:"scan_id"`
		Status    string `json:"status"`
		Estimated int    `json:"estimated_completion_seconds"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))
	require.NotEmpty(t, started.ScanID)
	require.Equal(t, "initiated", started.Status)
	require.Greater(t, started.Estimated, 0)

	// Status is always readable.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/scans/"+started.ScanID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	// Poll results until the scan concludes; 202 means keep polling.
	deadline := time.Now().Add(10 * time.Second)
	for {
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/scans/"+started.ScanID+"/results", nil))
		if rec.Code == http.StatusOK {
			break
		}
		require.Equal(t, http.StatusAccepted, rec.Code)
		require.True(t, time.Now().Before(deadline), "scan did not finish in time")
		time.Sleep(20 * time.Millisecond)
	}

	var results struct {
		Status             string          `json:"status"`
		Opportunities      json.RawMessage `json:"opportunities"`
		TotalOpportunities int             `json:"total_opportunities"`
		StrategiesTotal    int             `json:"strategies_total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Equal(t, "complete", results.Status)
	require.Equal(t, 4, results.StrategiesTotal)
}

func TestHandler_BadRequests(t *testing.T) {
	_, handler := newTestApp(t)

	// Malformed body.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/scans", strings.NewReader(`{`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown fields are rejected.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/scans",
		strings.NewReader(`{"user_id":"u","bogus":1}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Missing user.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/scans", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown strategy.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/scans",
		strings.NewReader(`{"user_id":"u","strategies":["nope"]}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_UnknownScan(t *testing.T) {
	_, handler := newTestApp(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/scans/unknown-id", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/scans/unknown-id/results", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_Health(t *testing.T) {
	_, handler := newTestApp(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var health struct {
		Status   string            `json:"status"`
		Breakers map[string]string `json:"breakers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	require.Equal(t, "ok", health.Status)
	require.Equal(t, "closed", health.Breakers["testex"])
}

func TestHandler_Metrics(t *testing.T) {
	_, handler := newTestApp(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "scanengine_")
}
