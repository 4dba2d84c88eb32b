package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/oedatamodel/internal/config"
	"github.com/JonMunkholm/oedatamodel/internal/core"
	"github.com/JonMunkholm/oedatamodel/internal/mapping"
	"github.com/JonMunkholm/oedatamodel/internal/metrics"
)

const rawBody = `{
	"description": [
		["scenario_id", "id"], ["scenario", "text"],
		["id", "id"], ["value", "num"],
		["id", "id"], ["series", "json"],
		["id", "id"], ["region", "text"]
	],
	"data": [
		["S1", "base", 1, 10, null, null, 1, "east"],
		["S1", "base", 2, 20, 2, [1, 2], null, null]
	]
}`

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Port: 8080, RequestTimeout: 5 * time.Second, ShutdownTimeout: time.Second},
		Request: config.RequestConfig{MaxBodyBytes: 1 << 16},
		Logging: config.LoggingConfig{Level: "error", Format: "text"},
		Mapping: config.MappingConfig{Dir: "unused"},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	loader := mapping.NewFSLoader(fstest.MapFS{
		"east.json":       {Data: []byte(`{"base_mapping": "concrete", "mapping": {"east": "oed_scalars[?region=='east'].value"}}`)},
		"normalized.json": {Data: []byte(`{"base_mapping": "concrete", "mapping": "@"}`)},
	})
	s := NewServer(cfg, mapping.New(loader), loader, metrics.New())
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return s
}

func do(t *testing.T, s *Server, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestHandleFormat_JSON(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := do(t, s, http.MethodPost, "/api/format/json_concrete", rawBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	want := `{"oed_scenario":{"scenario_id":"S1","scenario":"base"},` +
		`"oed_scalars":[{"id":1,"value":10,"region":"east"}],` +
		`"oed_timeseries":[{"id":2,"value":20,"series":[1,2]}]}`
	assert.JSONEq(t, want, rec.Body.String())
}

func TestHandleFormat_RawEchoesInput(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := do(t, s, http.MethodPost, "/api/format/raw", rawBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, rawBody, rec.Body.String())

	body := `{"description": [["id","id"],["meta","json"]], "data": [["a", {"b": 1, "a": 2}]], "rowcount": 1}`
	rec = do(t, s, http.MethodPost, "/api/format/raw", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"description":[["id","id"],["meta","json"]],"data":[["a",{"b":1,"a":2}]],"rowcount":1}`+"\n", rec.Body.String())
}

func TestHandleFormat_Archive(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := do(t, s, http.MethodPost, "/api/format/csv_normalized", rawBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))

	exportID := rec.Header().Get("X-Export-ID")
	require.NotEmpty(t, exportID)
	assert.Equal(t,
		`attachment; filename="oedatamodel_csv_normalized_`+exportID+`.zip"`,
		rec.Header().Get("Content-Disposition"))

	tables, err := core.ReadArchive(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Len(t, tables, 4)
	assert.Equal(t, []map[string]string{{"scenario_id": "S1", "scenario": "base"}}, tables["oed_scenario"])
	assert.Len(t, tables["oed_data"], 2)
}

func TestHandleFormat_Errors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"unknown format", "/api/format/xlsx", rawBody, http.StatusBadRequest, "REQ001"},
		{"invalid json", "/api/format/raw", `{"description":`, http.StatusBadRequest, "REQ002"},
		{"too few id columns", "/api/format/json_normalized", `{"description":[["id","id"]],"data":[["a"]]}`, http.StatusUnprocessableEntity, "OED001"},
		{"empty dataset", "/api/format/json_normalized", `{"description":[["a","id"],["b","id"],["c","id"],["d","id"]],"data":[]}`, http.StatusUnprocessableEntity, "OED002"},
		{"unmatched id", "/api/format/json_concrete", `{"description":[["s","id"],["id","id"],["id","id"],["id","id"]],"data":[["S", 1, 2, 3]]}`, http.StatusUnprocessableEntity, "OED003"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, testConfig())

			rec := do(t, s, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, rec).Code)
		})
	}
}

func TestHandleFormat_BodyTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Request.MaxBodyBytes = 16
	s := newTestServer(t, cfg)

	rec := do(t, s, http.MethodPost, "/api/format/raw", rawBody)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "REQ003", decodeError(t, rec).Code)
}

func TestHandleListFormats(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := do(t, s, http.MethodGet, "/api/formats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []FormatInfo
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, []FormatInfo{
		{Name: "raw"},
		{Name: "json_normalized"},
		{Name: "json_concrete"},
		{Name: "csv_normalized", Archive: true},
		{Name: "csv_concrete", Archive: true},
	}, got)
}

func TestHandleMapping(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := do(t, s, http.MethodPost, "/api/mapping/east", rawBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"east":[10]}`, rec.Body.String())

	rec = do(t, s, http.MethodPost, "/api/mapping/normalized", rawBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"oed_data"`, "default mappings ignore files of the same name")

	rec = do(t, s, http.MethodPost, "/api/mapping/missing", rawBody)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "MAP001", decodeError(t, rec).Code)
}

func TestHandleListMappings(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := do(t, s, http.MethodGet, "/api/mappings", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got MappingsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, []string{"normalized", "concrete"}, got.Defaults)
	assert.Equal(t, []string{"east"}, got.Custom)
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Security = config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"secret"}}
	s := newTestServer(t, cfg)

	assert.Equal(t, http.StatusUnauthorized, do(t, s, http.MethodGet, "/api/formats", "").Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/formats", "", "X-API-Key", "secret").Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/healthz", "").Code, "health checks bypass auth")
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2}
	s := newTestServer(t, cfg)

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/healthz", "").Code)
	}
	rec := do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestSecurityHeadersAndMetrics(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := do(t, s, http.MethodPost, "/api/format/json_normalized", rawBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, bytes.Contains(body, []byte(`oedatamodel_conversions_total{format="json_normalized",outcome="ok"} 1`)), string(body))
}
