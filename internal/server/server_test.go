package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/moorebrett0/climbcoach/internal/config"
)

type stubCoach struct {
	reply string
	err   error
	got   string
}

func (c *stubCoach) Ask(_ context.Context, q string) (string, error) {
	c.got = q
	return c.reply, c.err
}

func newTestServer(c Coach) http.Handler {
	cfg := config.ServerConfig{CORSOrigin: "http://localhost:5173", RequestTimeout: time.Second}
	return New(cfg, c, Status{Exercises: 12, SheetRows: 3, Ascents: 40}).Handler()
}

func post(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("response is not JSON: %v: %s", err, rec.Body.String())
	}
	return rec, out
}

func TestAnalyze_Success(t *testing.T) {
	c := &stubCoach{reply: "Rest tomorrow."}
	rec, out := post(t, newTestServer(c), `{"message":"should I train?"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if out["reply"] != "Rest tomorrow." || out["status"] != "success" {
		t.Errorf("unexpected body %v", out)
	}
	if c.got != "should I train?" {
		t.Errorf("coach got %q", c.got)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected a request ID header")
	}
}

func TestAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name   string
		coach  *stubCoach
		body   string
		status int
	}{
		{"empty message", &stubCoach{reply: "x"}, `{"message":"  "}`, http.StatusBadRequest},
		{"missing message", &stubCoach{reply: "x"}, `{}`, http.StatusBadRequest},
		{"bad json", &stubCoach{reply: "x"}, `{`, http.StatusBadRequest},
		{"coach error", &stubCoach{err: errors.New("AI API error: boom")}, `{"message":"hi"}`, http.StatusInternalServerError},
		{"empty reply", &stubCoach{}, `{"message":"hi"}`, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec, out := post(t, newTestServer(tc.coach), tc.body)
			if rec.Code != tc.status {
				t.Errorf("expected %d, got %d", tc.status, rec.Code)
			}
			if out["status"] != "error" || out["error"] == "" || out["error"] == nil {
				t.Errorf("unexpected body %v", out)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(&stubCoach{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out["status"] != "ok" || out["exercises"] != float64(12) || out["sheet_rows"] != float64(3) || out["ascents"] != float64(40) {
		t.Errorf("unexpected health %v", out)
	}
}

func TestCORSPreflight(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/analyze", nil)
	req.Header.Set("X-Request-ID", "abc")
	newTestServer(&stubCoach{}).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("unexpected origin %q", got)
	}
	if got := rec.Header().Get("X-Request-ID"); got != "abc" {
		t.Errorf("expected caller request ID echoed, got %q", got)
	}
}

func TestStatusWriter(t *testing.T) {
	inner := httptest.NewRecorder()
	w := &statusWriter{ResponseWriter: inner, status: http.StatusOK}
	w.WriteHeader(http.StatusTeapot)
	if w.status != http.StatusTeapot || inner.Code != http.StatusTeapot {
		t.Errorf("status not recorded: %d/%d", w.status, inner.Code)
	}
}
