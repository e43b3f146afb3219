package middleware

import (
	"net/http"

	"github.com/ayo6706/trading-backoffice/internal/api/problem"
	"go.uber.org/zap"
)

// RecoverMiddleware turns a panic into a 500 problem document.
func RecoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error("panic recovered",
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("trace_id", TraceIDFromContext(r.Context())),
					zap.Stack("stack"),
				)
				problem.Write(w, r, http.StatusInternalServerError, problem.Type("server/internal-error"), "", "unexpected server error")
			}()
			next.ServeHTTP(w, r)
		})
	}
}
