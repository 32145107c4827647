package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// responseWriter wraps http.ResponseWriter to capture status code,
// response size, and a late-bound context (handlers attach error codes
// after the middleware chain has already captured r.Context()).
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	size        int
	wroteHeader bool
	ctx         context.Context
}

// WriteHeader captures the status code before writing it. Only the first
// call sets the status code, matching http.ResponseWriter behavior.
func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.statusCode = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

// Write captures the response size and writes the data.
func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

// UpdateContext stores an updated request context on the writer so the
// logging middleware can read values the handler set mid-request.
func (rw *responseWriter) UpdateContext(ctx context.Context) {
	rw.ctx = ctx
}

func newResponseWriter(w http.ResponseWriter, ctx context.Context) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
		ctx:            ctx,
	}
}

// contextUpdater is implemented by response writers that accept a
// late-bound context.
type contextUpdater interface {
	UpdateContext(ctx context.Context)
}

// UpdateResponseContext propagates an updated context to the logging
// middleware through the response writer, if it supports that. Handlers
// call this (via the api error helper) so error codes set after routing
// still reach the request log.
func UpdateResponseContext(w http.ResponseWriter, ctx context.Context) {
	if u, ok := w.(contextUpdater); ok {
		u.UpdateContext(ctx)
	}
}

// NewLogger creates an slog.Logger based on the environment.
// In production it returns a JSON handler; otherwise a text handler for
// development.
func NewLogger(env string) *slog.Logger {
	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}
	return slog.New(handler)
}

// Logging is a middleware that logs HTTP requests with structured
// fields: method, path, status, latency (ms), response size, request ID,
// viewer id (if authenticated), and error_code for 4xx/5xx responses.
//
// If a handler panics the log entry is not written; place a recovery
// middleware outside of the logging middleware.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := newResponseWriter(w, r.Context())

			next.ServeHTTP(rw, r)

			latency := time.Since(start).Milliseconds()

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rw.statusCode),
				slog.Int64("latency_ms", latency),
				slog.Int("size", rw.size),
			}

			if requestID := GetRequestID(r.Context()); requestID != "" {
				attrs = append(attrs, slog.String("request_id", requestID))
			}

			if viewerID := GetViewerID(rw.ctx); viewerID != "" {
				attrs = append(attrs, slog.String("viewer_id", viewerID))
			}

			if rw.statusCode >= 400 {
				if errorCode := GetErrorCode(rw.ctx); errorCode != "" {
					attrs = append(attrs, slog.String("error_code", errorCode))
				}
			}

			switch {
			case rw.statusCode >= 500:
				logger.LogAttrs(r.Context(), slog.LevelError, "request completed", attrs...)
			case rw.statusCode >= 400:
				logger.LogAttrs(r.Context(), slog.LevelWarn, "request completed", attrs...)
			default:
				logger.LogAttrs(r.Context(), slog.LevelInfo, "request completed", attrs...)
			}
		})
	}
}
