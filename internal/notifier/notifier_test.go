package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"BreadthSentinel/internal/model"

	"go.uber.org/zap"
)

func TestTelegramNotifier_Send(t *testing.T) {
	var got map[string]string
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tn := newTelegramNotifier(srv.URL, "TOKEN", "42", "", zap.NewNop())
	if err := tn.Send(context.Background(), "<b>hi</b>"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if path != "/botTOKEN/sendMessage" {
		t.Errorf("unexpected path %q", path)
	}
	if got["chat_id"] != "42" || got["text"] != "<b>hi</b>" || got["parse_mode"] != "HTML" {
		t.Errorf("unexpected payload %v", got)
	}
}

func TestTelegramNotifier_SendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	tn := newTelegramNotifier(srv.URL, "TOKEN", "42", "", zap.NewNop())
	if err := tn.Send(context.Background(), "x"); err == nil {
		t.Error("expected error on 400")
	}
	if err := tn.SendWithRetry(context.Background(), "x", 0); err == nil {
		t.Error("expected retries to be exhausted")
	}
}

func TestTelegramNotifier_PollOnce(t *testing.T) {
	var replies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			if r.URL.Query().Get("offset") != "7" {
				t.Errorf("expected offset 7, got %s", r.URL.Query().Get("offset"))
			}
			w.Write([]byte(`{"ok":true,"result":[
				{"update_id":7,"message":{"text":" /breadth "}},
				{"update_id":8},
				{"update_id":9,"message":{"text":"/nothing"}}]}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			replies = append(replies, body["text"])
			w.Write([]byte(`{"ok":true}`))
		}
	}))
	defer srv.Close()

	tn := newTelegramNotifier(srv.URL, "T", "1", "", zap.NewNop())
	var commands []string
	next, err := tn.pollOnce(context.Background(), 7, func(cmd string) string {
		commands = append(commands, cmd)
		if cmd == "/breadth" {
			return "report"
		}
		return ""
	})
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if next != 10 {
		t.Errorf("expected next offset 10, got %d", next)
	}
	if len(commands) != 2 || commands[0] != "/breadth" {
		t.Errorf("unexpected commands %v", commands)
	}
	if len(replies) != 1 || replies[0] != "report" {
		t.Errorf("unexpected replies %v", replies)
	}
}

func TestTelegramNotifier_PollOnceAPIError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"ok":false,"error_code":401,"description":"Unauthorized"}`},
		{"conflict", http.StatusConflict, `{"ok":false,"error_code":409,"description":"Conflict: terminated by other getUpdates request"}`},
		{"ok false", http.StatusOK, `{"ok":false,"result":[{"update_id":9,"message":{"text":"/breadth"}}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			tn := newTelegramNotifier(srv.URL, "BAD", "1", "", zap.NewNop())
			called := false
			next, err := tn.pollOnce(context.Background(), 7, func(string) string {
				called = true
				return ""
			})
			if err == nil {
				t.Fatal("expected error")
			}
			if next != 7 {
				t.Errorf("expected offset to stay 7, got %d", next)
			}
			if called {
				t.Error("expected no commands dispatched")
			}
		})
	}
}

func TestFormatBreadthReport(t *testing.T) {
	day := time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC)
	prev := model.BreadthRecord{Date: day.AddDate(0, 0, -1), Percentage: 70}
	msg := FormatBreadthReport(day, []IndexSnapshot{
		{Name: "Nifty 500", Latest: model.BreadthRecord{Date: day, Percentage: 62.5, Above: 300, Below: 180, Total: 480}, Previous: &prev},
		{Name: "Metals & Mining", Err: errors.New("fetch <failed>")},
		{Name: "Empty"},
	})

	for _, want := range []string{
		"2024-06-04",
		"<b>Nifty 500</b>",
		"62.50% (-7.50) · neutral",
		"Above 300 | Below 180 | Total 480",
		"Metals &amp; Mining",
		"fetch &lt;failed&gt;",
		"<b>Empty</b>: no data",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected message to contain %q:\n%s", want, msg)
		}
	}
}

func TestZone(t *testing.T) {
	tests := []struct {
		pct  float64
		zone string
	}{
		{95, "overbought"},
		{80, "overbought"},
		{50, "neutral"},
		{20, "oversold"},
		{3, "oversold"},
	}
	for _, tt := range tests {
		if got := Zone(tt.pct); got != tt.zone {
			t.Errorf("Zone(%v): expected %q, got %q", tt.pct, tt.zone, got)
		}
	}
}
