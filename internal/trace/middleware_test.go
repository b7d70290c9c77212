package trace_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"hatchery-backend/internal/trace"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestMiddleware_RecoverMiddleware(t *testing.T) {
	testCases := []struct {
		name           string
		handler        http.HandlerFunc
		expectedStatus int
	}{
		{
			name: "Should pass through a healthy handler",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			},
			expectedStatus: http.StatusNoContent,
		},
		{
			name: "Should turn a panic into an internal server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				panic("boom")
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := trace.NewMiddleware(zaptest.NewLogger(t), false)
			wrapped := m.RecoverMiddleware(tc.handler)

			r := httptest.NewRequest(http.MethodGet, "/api/partitions", nil)
			w := httptest.NewRecorder()
			assert.NotPanics(t, func() {
				wrapped(w, r)
			})
			assert.Equal(t, tc.expectedStatus, w.Code)
		})
	}
}

func TestMiddleware_TraceMiddleWare(t *testing.T) {
	m := trace.NewMiddleware(zaptest.NewLogger(t), false)

	called := false
	wrapped := m.TraceMiddleWare(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	r := httptest.NewRequest(http.MethodGet, "/api/partitions", nil)
	r.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	w := httptest.NewRecorder()
	wrapped(w, r)

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, w.Code)
}
