package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// Two sessions for an IST-listed stock plus a null holiday row. Timestamps
// are 09:15 IST, i.e. 03:45 UTC.
const yahooBody = `{"chart":{"result":[{
  "meta":{"gmtoffset":19800,"exchangeTimezoneName":"Asia/Kolkata"},
  "timestamp":[1704080700,1704167100,1704253500],
  "indicators":{
    "quote":[{"open":[100,null,102],"high":[101,null,103],"low":[99,null,101],"close":[100.5,null,102.5],"volume":[1000,null,1200]}],
    "adjclose":[{"adjclose":[50.25,null,102.5]}]
  }}],"error":null}}`

func TestYahooFetcher_FetchDailyBars(t *testing.T) {
	var gotPath, gotInterval string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotInterval = r.URL.Query().Get("interval")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(yahooBody))
	}))
	defer srv.Close()

	f := NewYahooFetcher(srv.URL, "", 5*time.Second)
	bars, err := f.FetchDailyBars(context.Background(), "RELIANCE.NS",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/v8/finance/chart/RELIANCE.NS" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotInterval != "1d" {
		t.Errorf("expected daily interval, got %q", gotInterval)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars (null row skipped), got %d", len(bars))
	}
	if want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC); !bars[0].Time.Equal(want) {
		t.Errorf("expected first bar on %v, got %v", want, bars[0].Time)
	}
	if bars[0].Close != 50.25 {
		t.Errorf("expected adjusted close 50.25, got %v", bars[0].Close)
	}
	if bars[0].Open != 50 {
		t.Errorf("expected adjusted open 50, got %v", bars[0].Open)
	}
	if bars[1].Close != 102.5 {
		t.Errorf("expected close 102.5, got %v", bars[1].Close)
	}
}

func TestYahooFetcher_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	}))
	defer srv.Close()

	f := NewYahooFetcher(srv.URL, "", time.Second)
	_, err := f.FetchDailyBars(context.Background(), "GONE.NS", time.Now().AddDate(0, -1, 0), time.Now())
	if err == nil || !strings.Contains(err.Error(), "delisted") {
		t.Errorf("expected api error, got %v", err)
	}
}

func TestYahooFetcher_HTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f := NewYahooFetcher(srv.URL, "", time.Second)
	if _, err := f.FetchDailyBars(context.Background(), "A.NS", time.Now().AddDate(0, -1, 0), time.Now()); err == nil {
		t.Error("expected error on 429")
	}
}

func TestRESTFetcher_FetchDailyBars(t *testing.T) {
	var gotAuth, gotSymbol string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotSymbol = r.URL.Query().Get("symbol")
		w.Write([]byte(`[{"timestamp":1704240000,"close":11},{"timestamp":1704153600,"close":10}]`))
	}))
	defer srv.Close()

	f := NewRESTFetcher(srv.URL, "secret", "", time.Second)
	bars, err := f.FetchDailyBars(context.Background(), "TCS.NS",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("expected bearer auth, got %q", gotAuth)
	}
	if gotSymbol != "TCS.NS" {
		t.Errorf("expected symbol query, got %q", gotSymbol)
	}
	if len(bars) != 2 || bars[0].Close != 10 || bars[1].Close != 11 {
		t.Errorf("expected bars sorted by date, got %+v", bars)
	}
}

func TestYahooFetcher_IndexTickerPassesThrough(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(yahooBody))
	}))
	defer srv.Close()

	f := NewYahooFetcher(srv.URL, "", 5*time.Second)
	if _, err := f.FetchDailyBars(context.Background(), "^NSEI",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/v8/finance/chart/^NSEI" {
		t.Errorf("expected the ticker requested as given, got %q", gotPath)
	}
}
