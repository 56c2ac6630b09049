package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/newsbrief-ai/newsbrief/internal/config"
	"github.com/newsbrief-ai/newsbrief/internal/middleware"
	"github.com/newsbrief-ai/newsbrief/internal/store"
)

func newTestApp(t *testing.T) (*fiber.App, *store.Store) {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := &config.Config{Env: "test", AdminAPIKey: "secret"}
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	SetupRoutes(app, NewHandlers(cfg, st, nil), cfg.AdminAPIKey)
	return app, st
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	var out map[string]any
	data, _ := io.ReadAll(resp.Body)
	if len(data) > 0 {
		_ = json.Unmarshal(data, &out)
	}
	return resp, out
}

func TestHealthCheck(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/health", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v", body["status"])
	}
}

func TestSourceLifecycle(t *testing.T) {
	app, _ := newTestApp(t)

	resp, created := doJSON(t, app, http.MethodPost, "/api/v1/sources/",
		`{"name":"Hacker News","url":"https://news.ycombinator.com/rss"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	if created["enabled"] != true {
		t.Errorf("new source should default to enabled")
	}

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/sources/", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	if body["count"] != float64(1) {
		t.Errorf("count = %v, want 1", body["count"])
	}

	resp, _ = doJSON(t, app, http.MethodPut, "/api/v1/sources/1",
		`{"name":"HN","url":"https://news.ycombinator.com/rss","enabled":false}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d", resp.StatusCode)
	}

	resp, body = doJSON(t, app, http.MethodGet, "/api/v1/sources/?enabled=true", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("filtered list status = %d", resp.StatusCode)
	}
	if body["count"] != float64(0) {
		t.Errorf("enabled count = %v, want 0", body["count"])
	}

	resp, _ = doJSON(t, app, http.MethodDelete, "/api/v1/sources/1", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, app, http.MethodDelete, "/api/v1/sources/1", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second delete status = %d", resp.StatusCode)
	}
}

func TestCreateSourceValidation(t *testing.T) {
	app, _ := newTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/v1/sources/",
		`{"name":"Broken","url":"not-a-url"}`)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("invalid url status = %d, want 422", resp.StatusCode)
	}

	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/sources/", `{bad json`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", resp.StatusCode)
	}
}

func TestItemsStatusFilterRejected(t *testing.T) {
	app, _ := newTestApp(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/api/v1/items?status=bogus", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestAdminAuth(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/reports/1/publish", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("missing key status = %d, want 401", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/admin/reports/1/publish", nil)
	req.Header.Set("X-API-Key", "wrong")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("wrong key status = %d, want 403", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/admin/reports/99/publish", nil)
	req.Header.Set("X-API-Key", "secret")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("publish missing report status = %d, want 404", resp.StatusCode)
	}
}

func TestUnknownRoute(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/api/v2/nothing", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["error"] != "Route not found" {
		t.Errorf("error = %v", body["error"])
	}
}
