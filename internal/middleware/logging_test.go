package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func jsonTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// TestLoggingCapturesStatusAndSize: the wrapped writer records what the
// handler actually sent.
func TestLoggingCapturesStatusAndSize(t *testing.T) {
	var buf bytes.Buffer
	handler := Logging(jsonTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("hello"))
	}))

	r := httptest.NewRequest(http.MethodPost, "/get-suggested-posts", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to decode log entry %q: %v", buf.String(), err)
	}

	if entry["status"] != float64(http.StatusCreated) {
		t.Errorf("status = %v, want 201", entry["status"])
	}
	if entry["size"] != float64(5) {
		t.Errorf("size = %v, want 5", entry["size"])
	}
	if entry["method"] != "POST" {
		t.Errorf("method = %v, want POST", entry["method"])
	}
	if entry["path"] != "/get-suggested-posts" {
		t.Errorf("path = %v, want /get-suggested-posts", entry["path"])
	}
}

// TestLoggingErrorCodeFromLateContext: error codes set inside the
// handler (after the middleware captured the context) still get logged.
func TestLoggingErrorCodeFromLateContext(t *testing.T) {
	var buf bytes.Buffer
	handler := Logging(jsonTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := SetErrorCode(r.Context(), "validation_error")
		UpdateResponseContext(w, ctx)
		w.WriteHeader(http.StatusBadRequest)
	}))

	r := httptest.NewRequest(http.MethodPost, "/get-suggested-posts", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to decode log entry: %v", err)
	}

	if entry["error_code"] != "validation_error" {
		t.Errorf("error_code = %v, want validation_error", entry["error_code"])
	}
	if entry["level"] != "WARN" {
		t.Errorf("level = %v, want WARN for 4xx", entry["level"])
	}
}

// TestLoggingLevelByStatus: 2xx info, 5xx error.
func TestLoggingLevelByStatus(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{name: "success", status: http.StatusOK, wantLevel: "INFO"},
		{name: "client error", status: http.StatusNotFound, wantLevel: "WARN"},
		{name: "server error", status: http.StatusBadGateway, wantLevel: "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			handler := Logging(jsonTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			r := httptest.NewRequest(http.MethodGet, "/", nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			if !strings.Contains(buf.String(), `"level":"`+tt.wantLevel+`"`) {
				t.Errorf("log entry %q missing level %s", buf.String(), tt.wantLevel)
			}
		})
	}
}

// TestUpdateResponseContextNonUpdater is a no-op on plain writers.
func TestUpdateResponseContextNonUpdater(t *testing.T) {
	w := httptest.NewRecorder()
	// Must not panic.
	UpdateResponseContext(w, context.Background())
}

// TestResponseWriterDoubleWriteHeader keeps the first status.
func TestResponseWriterDoubleWriteHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec, context.Background())

	rw.WriteHeader(http.StatusTeapot)
	rw.WriteHeader(http.StatusOK)

	if rw.statusCode != http.StatusTeapot {
		t.Errorf("statusCode = %d, want 418", rw.statusCode)
	}
}
