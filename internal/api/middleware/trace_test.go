package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/kotoba-api/internal/api/shared"
	"github.com/phrazzld/kotoba-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
)

func TestTraceMiddleware(t *testing.T) {
	log, buf := logger.GetTestLogger(t)

	var traceID, requestID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = shared.GetTraceID(r.Context())
		requestID = logger.RequestIDFromContext(r.Context())
		logger.FromContext(r.Context()).Info("inside handler")
	})

	rr := httptest.NewRecorder()
	NewTraceMiddleware(log)(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/lessons/next", nil))

	assert.Len(t, traceID, 32)
	assert.Equal(t, traceID, requestID)
	assert.Equal(t, traceID, rr.Header().Get(TraceHeader))
	logger.AssertLogField(t, buf, "msg", "request started")
	logger.AssertLogField(t, buf, "trace_id", traceID)
	logger.AssertLogField(t, buf, "request_id", traceID)
}

func TestTraceMiddleware_DistinctIDs(t *testing.T) {
	handler := NewTraceMiddleware(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.NotEqual(t, first.Header().Get(TraceHeader), second.Header().Get(TraceHeader))
}
