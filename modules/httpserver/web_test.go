package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/majordome-go/majordome"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		code        string
		status      int
	}{
		{name: "valid", contentType: "application/json; charset=utf-8", body: `{"name":"a","count":2}`},
		{name: "missing content type", body: `{}`, code: "errors.generic.bad_request.json.missing_content_type", status: 415},
		{name: "syntax", contentType: "application/json", body: `{"name":`, code: "errors.generic.bad_request.json.syntax_error", status: 400},
		{name: "data", contentType: "application/json", body: `{"count":"two"}`, code: "errors.generic.bad_request.json.data_error", status: 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			if tt.contentType != "" {
				r.Header.Set("Content-Type", tt.contentType)
			}

			var p payload
			err := DecodeJSON(r, &p)
			if tt.code == "" {
				require.NoError(t, err)
				assert.Equal(t, payload{Name: "a", Count: 2}, p)
				return
			}

			var coded *majordome.Error
			require.True(t, errors.As(err, &coded))
			assert.Equal(t, tt.code, coded.Code)
			assert.Equal(t, tt.status, coded.Status)
		})
	}
}

func TestDecodeJSON_RejectsOversizedBody(t *testing.T) {
	limit := MaxBodyBytes
	MaxBodyBytes = 16
	t.Cleanup(func() { MaxBodyBytes = limit })

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"`+strings.Repeat("a", 64)+`"}`))
	r.Header.Set("Content-Type", "application/json")

	var p payload
	err := DecodeJSON(r, &p)

	var coded *majordome.Error
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, "errors.generic.bad_request.json.payload_too_large", coded.Code)
	assert.Equal(t, http.StatusRequestEntityTooLarge, coded.Status)
	assert.Equal(t, []string{"16"}, coded.Values)
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, majordome.NewError("errors.user.not_found", "user not found", http.StatusNotFound, "42"), discardLogger())

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"errors.user.not_found","message":"user not found","values":["42"]}`, w.Body.String())
}

func TestWriteError_HidesInternalErrors(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, errors.New("password=hunter2 rejected"), discardLogger())

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "hunter2")

	var body struct {
		Error  string   `json:"error"`
		Values []string `json:"values"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "errors.generic.internal", body.Error)
	assert.Len(t, body.Values, 1, "the error id is returned")
}

func TestRecoverer(t *testing.T) {
	s := New(Config{}, discardLogger())
	s.Router().Get("/panic", func(http.ResponseWriter, *http.Request) { panic("boom") })

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
