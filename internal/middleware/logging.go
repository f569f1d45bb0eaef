package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// statusRecorder captures the status code and, at debug level, the response body
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written bool
	body    *bytes.Buffer
}

func (rw *statusRecorder) WriteHeader(status int) {
	if rw.written {
		return
	}
	rw.status = status
	rw.written = true
	rw.ResponseWriter.WriteHeader(status)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	if rw.body != nil {
		rw.body.Write(b)
	}
	return rw.ResponseWriter.Write(b)
}

// LoggingMiddleware logs every request. Completed requests are logged at INFO,
// 4xx at WARN and 5xx at ERROR. Request and response bodies are added at DEBUG.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		debug := slog.Default().Enabled(r.Context(), slog.LevelDebug)

		var requestBody []byte
		if debug && r.Body != nil {
			requestBody, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(requestBody))
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		if debug {
			rec.body = &bytes.Buffer{}
		}

		next.ServeHTTP(rec, r)

		attrs := []any{
			"remote_ip", r.RemoteAddr,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if debug {
			if q := r.URL.RawQuery; q != "" {
				attrs = append(attrs, "query", q)
			}
			if len(requestBody) > 0 {
				attrs = append(attrs, "request_body", string(requestBody))
			}
			if rec.body.Len() > 0 {
				attrs = append(attrs, "response_body", rec.body.String())
			}
		}

		switch {
		case rec.status >= 500:
			slog.Error("Request failed with error", attrs...)
		case rec.status >= 400:
			slog.Warn("Request failed", attrs...)
		default:
			slog.Info("Request completed", attrs...)
		}
	})
}
