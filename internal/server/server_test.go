package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tankarena/arena/internal/handler/health"
)

func TestHealthzWiring(t *testing.T) {
	tests := []struct {
		name       string
		check      health.CheckerFunc
		wantStatus int
	}{
		{"healthy", func(context.Context) error { return nil }, http.StatusOK},
		{"failing", func(context.Context) error { return errors.New("down") }, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, func(d *Deps) {
				d.Checks = map[string]health.Checker{"sqlite": tt.check}
			})
			rec := env.do(t, http.MethodGet, "/healthz", nil)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if !strings.Contains(rec.Body.String(), `"sqlite"`) {
				t.Errorf("body = %s, missing sqlite result", rec.Body.String())
			}
		})
	}
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) {
		d.CORSOrigins = []string{"https://play.example.com"}
	})

	tests := []struct {
		origin string
		want   string
	}{
		{"https://play.example.com", "https://play.example.com"},
		{"https://evil.example.com", ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodOptions, "/api/ranking/top", nil)
		req.Header.Set("Origin", tt.origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
			t.Errorf("origin %s: allow-origin = %q, want %q", tt.origin, got, tt.want)
		}
	}
}

func TestSPAFallback(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>arena</html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644); err != nil {
		t.Fatal(err)
	}
	env := newTestEnv(t, func(d *Deps) { d.SPADir = dir })

	tests := []struct {
		path       string
		wantStatus int
		wantBody   string
	}{
		{"/", http.StatusOK, "arena"},
		{"/app.js", http.StatusOK, "console.log"},
		{"/leaderboard", http.StatusOK, "arena"},
		{"/api/nope", http.StatusNotFound, "not found"},
	}
	for _, tt := range tests {
		rec := env.do(t, http.MethodGet, tt.path, nil)
		if rec.Code != tt.wantStatus || !strings.Contains(rec.Body.String(), tt.wantBody) {
			t.Errorf("GET %s = %d %q, want %d containing %q", tt.path, rec.Code, rec.Body.String(), tt.wantStatus, tt.wantBody)
		}
	}
}
