package http

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestLoggerAttachesLoggerToContext(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	var sawLogger bool
	handler := RequestLogger(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawLogger = LoggerFromContext(r.Context()) != nil
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/tour", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !sawLogger {
		t.Fatalf("expected the request scoped logger in the handler context")
	}
	logged := buf.String()
	if !strings.Contains(logged, "request started") || !strings.Contains(logged, "request completed") {
		t.Fatalf("expected start and completion log lines, got %q", logged)
	}
	if !strings.Contains(logged, "path=/tour") {
		t.Fatalf("expected the request path in the log output, got %q", logged)
	}
}

func TestRequestLoggerAssignsDistinctRequestIDs(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	handler := RequestLogger(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/customers", nil)
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	logged := buf.String()
	if !strings.Contains(logged, "request_id=1") || !strings.Contains(logged, "request_id=2") {
		t.Fatalf("expected sequential request ids, got %q", logged)
	}
}
