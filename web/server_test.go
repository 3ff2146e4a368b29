package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrpv/neeytele/log2"
	"github.com/hrpv/neeytele/tele"
)

func newTestServer(t *testing.T) *Server {
	return NewServer(log2.NewTest(t, log2.LDebug), ":0", tele.Config{Broker: "tcp://127.0.0.1:1883"})
}

func TestDataEmpty(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/data", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var resp dataResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Stale)
	assert.NotNil(t, resp.Cells)
	assert.Empty(t, resp.Cells)
	// the page checks device.model to decide "waiting"
	assert.Empty(t, resp.Device.Model)
}

func TestDataAfterReport(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	s.store([]byte(`{
		"timestamp": "2026-08-25T10:00:00Z",
		"device": {"model": "GW-24S4EB", "hw_version": "HW-2.8.0", "sw_version": "ZH-1.2.9"},
		"battery": {"total_voltage": 13.25, "average_cell_voltage": 3.312, "cell_count": 4, "balancing": true, "status": "Balancing"},
		"cells": [{"cell": 1, "voltage": 3.31, "resistance": 0.15}]
	}`))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/data", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp dataResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Stale)
	assert.Equal(t, "GW-24S4EB", resp.Device.Model)
	assert.Equal(t, 13.25, resp.Battery.TotalVoltage)
	require.Len(t, resp.Cells, 1)
	assert.Equal(t, tele.CellReport{Cell: 1, Voltage: 3.31, Resistance: 0.15}, resp.Cells[0])
}

func TestDataDropsMalformed(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	s.store([]byte(`{not json`))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/data", nil))
	var resp dataResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Stale)
}

func TestDataPreflight(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/data", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "GET, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestIndex(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.True(t, strings.Contains(rec.Body.String(), "NEEY Balancer Monitor"))
}

func TestNotFound(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
