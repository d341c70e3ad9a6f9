package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sweeney/pdswitch/internal/status"
)

func newTestServer() (*Server, *status.Tracker) {
	tracker := status.NewTracker(time.Now(), status.Config{HTTPPort: ":8080"})
	return New(":0", tracker), tracker
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func TestStatusEndpoint(t *testing.T) {
	s, tracker := newTestServer()
	tracker.SetPower("WORKING", "ENABLED", true, "NORMAL")

	for _, path := range []string{"/", "/status"} {
		rec := get(t, s, path)
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s: status %d", path, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("GET %s: content-type %q", path, ct)
		}
		var decoded status.StatusJSON
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("GET %s: invalid JSON: %v", path, err)
		}
		if decoded.Status.Mode != "WORKING" {
			t.Errorf("GET %s: mode = %s", path, decoded.Status.Mode)
		}
	}
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer()

	rec := get(t, s, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if rec.Body.String() != "ok\n" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestUnknownPathIs404(t *testing.T) {
	s, _ := newTestServer()

	if rec := get(t, s, "/nope"); rec.Code != http.StatusNotFound {
		t.Errorf("status %d; want 404", rec.Code)
	}
}
