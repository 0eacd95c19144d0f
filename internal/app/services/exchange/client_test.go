package exchange

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_FetchTicker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/ticker/24hr" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("symbol"); got != "BTCUSDT" {
			t.Fatalf("expected native symbol BTCUSDT, got %q", got)
		}
		w.Write([]byte(`{"symbol":"BTCUSDT","lastPrice":"67250.10","quoteVolume":"1500000000"}`))
	}))
	defer server.Close()

	client := NewClient(EndpointConfig{
		Name:         "binance",
		BaseURL:      server.URL,
		TickerPath:   "/api/v3/ticker/24hr?symbol={symbol}",
		SymbolFormat: "{base}{quote}",
		PricePath:    "lastPrice",
		VolumePath:   "quoteVolume",
	}, server.Client(), nil)

	quote, err := client.FetchTicker(context.Background(), "BTC/USDT")
	if err != nil {
		t.Fatalf("fetch ticker: %v", err)
	}
	if quote.Exchange != "binance" || quote.Symbol != "BTC/USDT" {
		t.Fatalf("unexpected identity: %#v", quote)
	}
	if quote.Price != 67250.10 {
		t.Fatalf("expected price 67250.10, got %v", quote.Price)
	}
	if quote.Volume24h != 1500000000 {
		t.Fatalf("expected volume 1.5e9, got %v", quote.Volume24h)
	}
	if quote.FetchedAt.IsZero() {
		t.Fatalf("expected FetchedAt to be set")
	}
}

func TestClient_FetchTickerDashFormat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products/BTC-USDT/ticker" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"price":"67300.55","volume":"12345.6"}`))
	}))
	defer server.Close()

	client := NewClient(EndpointConfig{
		Name:         "coinbase",
		BaseURL:      server.URL,
		TickerPath:   "/products/{symbol}/ticker",
		SymbolFormat: "{base}-{quote}",
		PricePath:    "price",
		VolumePath:   "volume",
	}, server.Client(), nil)

	quote, err := client.FetchTicker(context.Background(), "BTC/USDT")
	if err != nil {
		t.Fatalf("fetch ticker: %v", err)
	}
	if quote.Price != 67300.55 {
		t.Fatalf("expected price 67300.55, got %v", quote.Price)
	}
}

func TestClient_FetchTickerErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr bool
	}{
		{"upstream error", http.StatusInternalServerError, `{}`, true},
		{"missing price", http.StatusOK, `{"volume":"1"}`, true},
		{"zero price", http.StatusOK, `{"price":"0"}`, true},
		{"valid", http.StatusOK, `{"price":"1.5"}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(EndpointConfig{
				Name:       "test",
				BaseURL:    server.URL,
				TickerPath: "/ticker/{symbol}",
				PricePath:  "price",
			}, server.Client(), nil)

			_, err := client.FetchTicker(context.Background(), "BTC/USDT")
			if tt.wantErr && err == nil {
				t.Fatalf("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
