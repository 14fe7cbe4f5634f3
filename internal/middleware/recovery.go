package middleware

import (
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"lookgen-gateway/internal/apperr"
	"lookgen-gateway/pkg/logging/logging"
)

// Recoverer logs a panic with its stack and answers 500 INTERNAL_ERROR.
func Recoverer() func(http.Handler) http.Handler {
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
				logging.L(r.Context()).Error("panic recovered",
					zap.Any("error", rec),
					zap.ByteString("stack", debug.Stack()),
				)
				writeError(w, apperr.Internal("internal server error", nil))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
