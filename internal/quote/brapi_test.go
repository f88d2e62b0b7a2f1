package quote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func newTestBrapi(baseURL string) *Brapi {
	return NewBrapi(BrapiOptions{
		BaseURL:   baseURL,
		Token:     "test-token",
		RangeDays: 5,
		Interval:  "30m",
		Timeout:   time.Second,
		UserAgent: "test",
	}, noopLogger())
}

func TestBrapiFetchSuccess(t *testing.T) {
	base := time.Date(2025, 11, 27, 10, 0, 0, 0, time.UTC).Unix()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("token"); got != "test-token" {
			t.Fatalf("token not forwarded, got %q", got)
		}
		if got := r.URL.Query().Get("range"); got != "5d" {
			t.Fatalf("range not forwarded, got %q", got)
		}
		if got := r.URL.Query().Get("interval"); got != "30m" {
			t.Fatalf("interval not forwarded, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		// candles deliberately out of order; the client sorts by timestamp
		fmt.Fprintf(w, `{"results":[{"symbol":"PETR4","historicalData":[
			{"date":%d,"open":32.10,"high":32.40,"low":32.05,"close":32.28,"volume":1200},
			{"date":%d,"open":32.00,"high":32.20,"low":31.90,"close":32.10,"volume":900}
		]}]}`, base+1800, base)
	}))
	defer srv.Close()

	series, err := newTestBrapi(srv.URL).FetchSeries(context.Background(), "PETR4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if series.Len() != 2 {
		t.Fatalf("expected 2 bars, got %d", series.Len())
	}
	if !series.Bars[0].Time.Before(series.Bars[1].Time) {
		t.Fatal("bars should be sorted by timestamp")
	}
	if want := decimal.RequireFromString("32.28"); !series.Last().Close.Equal(want) {
		t.Fatalf("expected last close %s, got %s", want, series.Last().Close)
	}
	if series.Last().Volume != 1200 {
		t.Fatalf("expected volume 1200, got %d", series.Last().Volume)
	}
}

func TestBrapiFetchRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestBrapi(srv.URL).FetchSeries(context.Background(), "PETR4")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestBrapiFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":true,"message":"ticker not found"}`)
	}))
	defer srv.Close()

	_, err := newTestBrapi(srv.URL).FetchSeries(context.Background(), "NOPE3")
	if err == nil {
		t.Fatal("HTTP 404 should produce an error")
	}
	if errors.Is(err, ErrRateLimited) {
		t.Fatal("404 must not be classified as rate limiting")
	}
}

func TestBrapiFetchEmptyHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":[{"symbol":"PETR4","historicalData":[]}]}`)
	}))
	defer srv.Close()

	_, err := newTestBrapi(srv.URL).FetchSeries(context.Background(), "PETR4")
	if !errors.Is(err, ErrBadPayload) {
		t.Fatalf("expected ErrBadPayload for empty history, got %v", err)
	}
}

func TestBrapiFetchMalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results": not json`)
	}))
	defer srv.Close()

	_, err := newTestBrapi(srv.URL).FetchSeries(context.Background(), "PETR4")
	if !errors.Is(err, ErrBadPayload) {
		t.Fatalf("expected ErrBadPayload for malformed body, got %v", err)
	}
}

func TestBrapiFetchDuplicateTimestamps(t *testing.T) {
	base := time.Date(2025, 11, 27, 10, 0, 0, 0, time.UTC).Unix()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"results":[{"symbol":"PETR4","historicalData":[
			{"date":%d,"open":1,"high":1,"low":1,"close":1,"volume":1},
			{"date":%d,"open":2,"high":2,"low":2,"close":2,"volume":2}
		]}]}`, base, base)
	}))
	defer srv.Close()

	_, err := newTestBrapi(srv.URL).FetchSeries(context.Background(), "PETR4")
	if !errors.Is(err, ErrBadPayload) {
		t.Fatalf("expected ErrBadPayload for duplicate timestamps, got %v", err)
	}
}

func TestBrapiFetchCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := newTestBrapi(srv.URL).FetchSeries(ctx, "PETR4"); err == nil {
		t.Fatal("cancelled context should abort the fetch")
	}
}
