package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoelCooperPhD/sessionctl/internal/logging"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestLocalhostFilterRejectsNonLocalPeer(t *testing.T) {
	h := localhostFilter(logging.NewTestLogger("api-test"))(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	var body envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ACCESS_DENIED", body.Error.Code)
}

func TestLocalhostFilterAllowsAllowlistedPeers(t *testing.T) {
	h := localhostFilter(logging.NewTestLogger("api-test"))(okHandler())

	for _, addr := range []string{"127.0.0.1:5555", "[::1]:5555", "[::ffff:127.0.0.1]:5555"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "addr %s should be allowed", addr)
	}
}

func TestErrorEnvelopeRecoversPanic(t *testing.T) {
	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	h := errorEnvelope(logging.NewTestLogger("api-test"), false)(panicking)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/whatever", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
	assert.Nil(t, body.Error.Details)
}

func TestErrorEnvelopeIncludesDetailsInDebugMode(t *testing.T) {
	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	h := errorEnvelope(logging.NewTestLogger("api-test"), true)(panicking)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/whatever", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotNil(t, body.Error.Details)
}

func TestMapErrorMapsKnownErrorTypes(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, mapError(&ValidationError{Msg: "bad"}).Status)
	assert.Equal(t, "VALIDATION_ERROR", mapError(&ValidationError{Msg: "bad"}).Code)

	assert.Equal(t, http.StatusBadRequest, mapError(&MissingFieldError{Field: "name"}).Status)
	assert.Equal(t, "MISSING_FIELD", mapError(&MissingFieldError{Field: "name"}).Code)

	custom := NewError(http.StatusNotFound, "MODULE_NOT_FOUND", "no such module")
	assert.Same(t, custom, mapError(custom))
}
