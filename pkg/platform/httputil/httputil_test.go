package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donorhub/pkg/platform/sentinel"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, New(CodeInternal, "redis exploded"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		body := decode(t, w)
		assert.Equal(t, "internal_error", body["error"])
		assert.NotContains(t, body, "error_description")
	})

	t.Run("bad request includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, New(CodeBadRequest, "identity_id is required"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := decode(t, w)
		assert.Equal(t, "bad_request", body["error"])
		assert.Equal(t, "identity_id is required", body["error_description"])
	})

	t.Run("wrapped sentinel maps to its code", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, fmt.Errorf("grant administrator: %w", sentinel.ErrUnavailable))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "unavailable", decode(t, w)["error"])
	})

	t.Run("unknown error is internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, errors.New("surprise"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, decode(t, w), "error_description")
	})
}

func TestError_Unwrap(t *testing.T) {
	err := Wrap(sentinel.ErrNotFound, CodeNotFound, "no such donor")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	assert.Equal(t, "no such donor: not found", err.Error())
}
