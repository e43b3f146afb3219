package middleware

import (
	"context"
	"net/http"

	"github.com/ayo6706/trading-backoffice/internal/api/problem"
	"github.com/google/uuid"
)

const maxTraceIDLen = 128

// TraceMiddleware tags each request with a trace id, taken from X-Trace-ID or
// X-Request-ID when the caller sent a usable one. The id is echoed in
// X-Trace-ID and copied into problem documents.
func TraceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := inboundTraceID(r)
		if traceID == "" {
			traceID = uuid.NewString()
		}
		r.Header.Set(problem.TraceHeader, traceID)
		w.Header().Set(problem.TraceHeader, traceID)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), traceContextKey, traceID)))
	})
}

func inboundTraceID(r *http.Request) string {
	for _, name := range []string{problem.TraceHeader, "X-Request-ID"} {
		if id := r.Header.Get(name); isLoggable(id) {
			return id
		}
	}
	return ""
}

// isLoggable rejects ids that would break a log line or bloat every entry.
func isLoggable(id string) bool {
	if id == "" || len(id) > maxTraceIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
