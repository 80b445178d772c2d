package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h *Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	h.Register(r)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestLiveness(t *testing.T) {
	w := serve(t, New("test"), "/health/live")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"alive"}`, w.Body.String())
}

func TestStatus(t *testing.T) {
	w := serve(t, New("staging"), "/health")

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "staging", resp.Environment)
}

func TestReadiness(t *testing.T) {
	t.Run("all checks up", func(t *testing.T) {
		h := New("test")
		h.RegisterCheck("store", func(context.Context) error { return nil })

		w := serve(t, h, "/health/ready")

		assert.Equal(t, http.StatusOK, w.Code)
		var resp ReadinessResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "up", resp.Checks["store"])
	})

	t.Run("one check down", func(t *testing.T) {
		h := New("test")
		h.RegisterCheck("store", func(context.Context) error { return nil })
		h.RegisterCheck("ledger", func(context.Context) error { return errors.New("connection refused") })

		w := serve(t, h, "/health/ready")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		var resp ReadinessResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "not_ready", resp.Status)
		assert.Equal(t, "down: connection refused", resp.Checks["ledger"])
	})

	t.Run("checks receive a deadline", func(t *testing.T) {
		h := New("test")
		var hadDeadline bool
		h.RegisterCheck("redis", func(ctx context.Context) error {
			_, hadDeadline = ctx.Deadline()
			return nil
		})

		serve(t, h, "/health/ready")

		assert.True(t, hadDeadline)
	})
}
