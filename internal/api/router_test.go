package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/ruslano69/tablemapper/pkg/adapters/sqlite"
	"github.com/ruslano69/tablemapper/pkg/mapper"
	"github.com/ruslano69/tablemapper/pkg/metrics"
)

// newTestServer создаёт роутер поверх sqlite :memory: с таблицей users.
// Валидатор отклоняет записи с пустым name.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()

	adapter, err := sqlite.NewAdapter(ctx, ":memory:")
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	t.Cleanup(func() { adapter.Close(ctx) })

	if err := adapter.Exec(ctx, "CREATE TABLE users (id INTEGER, name TEXT, score REAL)", nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	reg := prometheus.NewRegistry()
	users, err := mapper.New(ctx, adapter, "users",
		mapper.WithObserver(metrics.NewCollector(reg)),
		mapper.WithValidator(mapper.ValidatorFunc(func(rec mapper.Record) bool {
			return rec["name"] != ""
		})),
	)
	if err != nil {
		t.Fatalf("mapper.New: %v", err)
	}

	srv := httptest.NewServer(NewRouter(Deps{
		Mappers:  map[string]*mapper.TableMapper{"users": users},
		Ping:     adapter.Ping,
		Gatherer: reg,
	}))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, _ := do(t, http.MethodGet, srv.URL+path, nil)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: status %d", path, resp.StatusCode)
		}
	}
}

func TestReadyz_DatabaseDown(t *testing.T) {
	srv := httptest.NewServer(NewRouter(Deps{
		Ping: func(context.Context) error { return errors.New("connection refused") },
	}))
	defer srv.Close()

	resp, body := do(t, http.MethodGet, srv.URL+"/readyz", nil)
	if resp.StatusCode != http.StatusServiceUnavailable || !strings.Contains(string(body), "connection refused") {
		t.Errorf("status %d body %s", resp.StatusCode, body)
	}
}

func TestSchemaAndUnknownTable(t *testing.T) {
	srv := newTestServer(t)

	resp, body := do(t, http.MethodGet, srv.URL+"/api/tables/users/schema", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var s schemaResponse
	if err := json.Unmarshal(body, &s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.Table != "users" || len(s.Columns) != 3 || s.Columns[2] != (columnResponse{Name: "score", Type: "REAL"}) {
		t.Errorf("schema = %+v", s)
	}

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/tables/secrets/rows", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown table: status %d", resp.StatusCode)
	}

	resp, body = do(t, http.MethodGet, srv.URL+"/api/tables", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"users"`) {
		t.Errorf("list: status %d body %s", resp.StatusCode, body)
	}
}

func TestRowsLifecycle(t *testing.T) {
	srv := newTestServer(t)
	rows := srv.URL + "/api/tables/users/rows"

	// POST: приведение типов и экранирование
	resp, body := do(t, http.MethodPost, rows, map[string]any{"id": "1", "name": "<b>Al</b>", "score": 3.5})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status %d: %s", resp.StatusCode, body)
	}
	var created map[string]any
	json.Unmarshal(body, &created)
	if created["name"] != "&lt;b&gt;Al&lt;/b&gt;" || created["id"] != float64(1) {
		t.Errorf("created = %v", created)
	}

	// validation
	resp, _ = do(t, http.MethodPost, rows, map[string]any{"id": 2})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("invalid POST status %d", resp.StatusCode)
	}

	resp, _ = do(t, http.MethodPost, rows, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty body status %d", resp.StatusCode)
	}

	// GET by id
	resp, body = do(t, http.MethodGet, rows+"/1", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"score":3.5`) {
		t.Errorf("GET status %d body %s", resp.StatusCode, body)
	}

	// PUT: только переданные поля
	resp, body = do(t, http.MethodPut, rows+"/1", map[string]any{"score": "4", "id": 99})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT status %d: %s", resp.StatusCode, body)
	}
	var updated map[string]any
	json.Unmarshal(body, &updated)
	if updated["score"] != float64(4) || updated["id"] != float64(1) || updated["name"] != "&lt;b&gt;Al&lt;/b&gt;" {
		t.Errorf("updated = %v", updated)
	}

	// select with filter
	resp, body = do(t, http.MethodGet, rows+"?score=4", nil)
	var list rowsResponse
	json.Unmarshal(body, &list)
	if resp.StatusCode != http.StatusOK || list.Count != 1 {
		t.Errorf("filtered select: status %d body %s", resp.StatusCode, body)
	}

	// опечатка в колонке не должна вернуть всю таблицу
	resp, body = do(t, http.MethodGet, rows+"?scroe=4", nil)
	if resp.StatusCode != http.StatusBadRequest || !strings.Contains(string(body), "scroe") {
		t.Errorf("unknown column select: status %d body %s", resp.StatusCode, body)
	}

	// DELETE
	resp, _ = do(t, http.MethodDelete, rows+"/1", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("DELETE status %d", resp.StatusCode)
	}
	resp, _ = do(t, http.MethodGet, rows+"/1", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET after delete status %d", resp.StatusCode)
	}
	resp, _ = do(t, http.MethodPut, rows+"/1", map[string]any{"name": "x"})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("PUT after delete status %d", resp.StatusCode)
	}

	// metrics
	resp, body = do(t, http.MethodGet, srv.URL+"/metrics", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `tablemapper_operations_total{op="insert",status="success",table="users"} 1`) {
		t.Errorf("metrics: status %d body %s", resp.StatusCode, body)
	}
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	srv := httptest.NewServer(NewRouter(Deps{
		Mappers: map[string]*mapper.TableMapper{},
		Logger:  &logger,
	}))
	defer srv.Close()

	resp, _ := do(t, http.MethodGet, srv.URL+"/api/tables/ghost/schema", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d", resp.StatusCode)
	}
	reqID := resp.Header.Get("X-Request-Id")
	if reqID == "" {
		t.Error("response should carry X-Request-Id")
	}

	// Close ждет завершения обработчиков, после него строка лога записана
	srv.Close()

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("access log is not one JSON line: %v (%s)", err, buf.String())
	}

	want := map[string]any{
		"level":      "warn",
		"message":    "request",
		"method":     "GET",
		"path":       "/api/tables/ghost/schema",
		"table":      "ghost",
		"status":     float64(http.StatusNotFound),
		"request_id": reqID,
	}
	for k, v := range want {
		if line[k] != v {
			t.Errorf("%s = %v, want %v", k, line[k], v)
		}
	}
}
