package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerServesIndex(t *testing.T) {
	h := Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "chat-form") {
		t.Error("index page missing chat form")
	}
	if !strings.Contains(body, "/static/app.js") {
		t.Error("index page missing script reference")
	}
	if !strings.Contains(body, `id="health"`) {
		t.Error("index page missing health indicator")
	}
}

func TestClientCallsHealthAndThreadDelete(t *testing.T) {
	h := Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/static/app.js", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "fetch('/health')") {
		t.Error("client script missing health probe")
	}
	if !strings.Contains(body, "/api/v1/threads/") || !strings.Contains(body, "DELETE") {
		t.Error("client script missing server-side thread deletion")
	}
}

func TestHandlerServesAssets(t *testing.T) {
	h := Handler()

	for path, marker := range map[string]string{
		"/static/app.js":  "/api/v1/chat/stream",
		"/static/app.css": ".message",
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))

		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", path, rec.Code)
			continue
		}
		if !strings.Contains(rec.Body.String(), marker) {
			t.Errorf("%s: missing expected content %q", path, marker)
		}
	}
}

func TestHandlerUnknownPath(t *testing.T) {
	h := Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
