package stocksApi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smolenkov/portfolio_tracker/config"
	"github.com/smolenkov/portfolio_tracker/internal/externalApi"
)

func newTestClient(serverURL string) *StocksApi {
	cfg := &config.Config{}
	cfg.API.Timeout = 5 * time.Second
	cfg.API.StocksApi.Url = serverURL
	return New(cfg)
}

func TestGetDailyClose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v8/finance/chart/AAPL" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"chart":{"result":[{"timestamp":[1767225600,1767312000],"indicators":{"quote":[{"close":[150.25,151.5]}]}}],"error":null}}`))
	}))
	defer srv.Close()

	api := newTestClient(srv.URL)

	price, err := api.GetDailyClose(context.Background(), "aapl")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !price.Equal(decimal.NewFromFloat(151.5)) {
		t.Fatalf("expected latest close 151.5, got %s", price)
	}
}

func TestGetDailyCloseSkipsTrailingNulls(t *testing.T) {
	// providers pad the current session with null closes
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":[{"timestamp":[1767225600,1767312000],"indicators":{"quote":[{"close":[150.25,null]}]}}],"error":null}}`))
	}))
	defer srv.Close()

	api := newTestClient(srv.URL)

	price, err := api.GetDailyClose(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !price.Equal(decimal.NewFromFloat(150.25)) {
		t.Fatalf("expected 150.25, got %s", price)
	}
}

func TestGetDailyCloseEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":[],"error":{"code":"Not Found"}}}`))
	}))
	defer srv.Close()

	api := newTestClient(srv.URL)

	_, err := api.GetDailyClose(context.Background(), "NOSUCH")
	if !errors.Is(err, externalApi.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetDailyCloseProvider404(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	api := newTestClient(srv.URL)

	_, err := api.GetDailyClose(context.Background(), "NOSUCH")
	if !errors.Is(err, externalApi.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetPriceHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("range"); got != "30d" {
			t.Errorf("unexpected range param %q", got)
		}
		if got := r.URL.Query().Get("interval"); got != "1d" {
			t.Errorf("unexpected interval param %q", got)
		}
		w.Write([]byte(`{"chart":{"result":[{"timestamp":[1767225600,1767312000,1767398400],"indicators":{"quote":[{"close":[150.256,null,151.5]}]}}],"error":null}}`))
	}))
	defer srv.Close()

	api := newTestClient(srv.URL)

	points, err := api.GetPriceHistory(context.Background(), "AAPL", 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// null closes are dropped from the series
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if points[0].Date != "2026-01-01" || points[0].Price.String() != "150.26" {
		t.Fatalf("unexpected first point: %+v", points[0])
	}
	if points[1].Date != "2026-01-03" || points[1].Price.String() != "151.5" {
		t.Fatalf("unexpected second point: %+v", points[1])
	}
}
