package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"protein-log/internal/diary"
	"protein-log/internal/models"
	"protein-log/internal/storage"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	stor, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { stor.Close() })

	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	d := diary.New(stor, diary.WithClock(func() time.Time { return now }))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return newServer(d, &Config{}, logger).Handler()
}

// callTool posts a tools/call request and decodes the JSON text content of
// the result into out when the call succeeds.
func callTool(t *testing.T, h http.Handler, name string, args map[string]any, out any) int {
	t.Helper()
	body, err := json.Marshal(map[string]any{"name": name, "arguments": args})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body)))
	if rec.Code != http.StatusOK || out == nil {
		return rec.Code
	}

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.Content, 1)
	assert.Equal(t, "text", result.Content[0].Type)
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), out))
	return rec.Code
}

func TestEstimateTool(t *testing.T) {
	h := newTestHandler(t)

	var got estimateResponse
	code := callTool(t, h, "estimate_protein", map[string]any{"text": "120 גרם טונה"}, &got)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 31, got.Grams)
	assert.Equal(t, "tuna", got.Rule)
	assert.Contains(t, got.Hint, "31")

	var miss estimateResponse
	code = callTool(t, h, "estimate_protein", map[string]any{"text": "שולחן"}, &miss)
	require.Equal(t, http.StatusOK, code)
	assert.Zero(t, miss.Grams)
	assert.Empty(t, miss.Rule)
	assert.NotEmpty(t, miss.Hint)
}

func TestEntryLifecycle(t *testing.T) {
	h := newTestHandler(t)

	var added models.Entry
	code := callTool(t, h, "add_entry", map[string]any{"name": "ביצה שתיים"}, &added)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 12, added.Grams)
	assert.Equal(t, "2026-03-14", added.Date)

	var quick models.Entry
	code = callTool(t, h, "quick_add", map[string]any{"grams": 20}, &quick)
	require.Equal(t, http.StatusOK, code)

	var edited models.Entry
	code = callTool(t, h, "edit_entry", map[string]any{"id": added.ID, "grams": 14}, &edited)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 14, edited.Grams)

	var day models.DaySummary
	code = callTool(t, h, "get_day", nil, &day)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 34, day.Total)
	assert.Equal(t, 86, day.Remaining)
	assert.Len(t, day.Entries, 2)

	code = callTool(t, h, "remove_entry", map[string]any{"id": quick.ID}, nil)
	require.Equal(t, http.StatusOK, code)
	code = callTool(t, h, "remove_entry", map[string]any{"id": quick.ID}, nil)
	assert.Equal(t, http.StatusNotFound, code)

	var history []models.DayPoint
	code = callTool(t, h, "get_history", map[string]any{}, &history)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, history, diary.HistoryDays)
	assert.Equal(t, 14, history[len(history)-1].Total)
}

func TestToolErrors(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		name string
		tool string
		args map[string]any
		want int
	}{
		{"unknown tool", "nope", nil, http.StatusNotFound},
		{"unrecognised food", "add_entry", map[string]any{"name": "שולחן"}, http.StatusBadRequest},
		{"bad date", "get_day", map[string]any{"date": "yesterday"}, http.StatusBadRequest},
		{"bad argument type", "quick_add", map[string]any{"grams": "many"}, http.StatusBadRequest},
		{"missing id", "edit_entry", map[string]any{"grams": 5}, http.StatusBadRequest},
		{"zero quick add", "quick_add", map[string]any{"grams": 0}, http.StatusBadRequest},
		{"missing entry", "edit_entry", map[string]any{"id": "x", "grams": 5}, http.StatusNotFound},
		{"bad unit", "update_settings", map[string]any{"unit": "stone"}, http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, callTool(t, h, tc.tool, tc.args, nil))
		})
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettingsTools(t *testing.T) {
	h := newTestHandler(t)

	var got settingsResponse
	code := callTool(t, h, "get_settings", nil, &got)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.DefaultSettings(), got.Settings)
	assert.Equal(t, 120, got.Target)
	assert.Equal(t, diary.QuickAmounts, got.QuickAmounts)

	code = callTool(t, h, "update_settings", map[string]any{"weight": 90, "grams_per_kg": 2}, &got)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 90.0, got.Settings.Weight)
	assert.Equal(t, models.Kilograms, got.Settings.Unit, "untouched fields are kept")
	assert.Equal(t, 180, got.Target)

	code = callTool(t, h, "update_settings", map[string]any{"auto_calc_from_name": false}, &got)
	require.Equal(t, http.StatusOK, code)
	code = callTool(t, h, "add_entry", map[string]any{"name": "ביצה"}, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status string   `json:"status"`
		Tools  []string `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Contains(t, body.Tools, "estimate_protein")
	assert.Len(t, body.Tools, 9)
}
