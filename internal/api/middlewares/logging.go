package middlewares

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/insurezeal/backoffice/internal/utils/logger"
)

// Logging injects the service logger into the request context and
// writes one access line per handled request.
func Logging(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		logFunc := func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			start := time.Now()
			rWithLog := r.WithContext(logger.WithContext(r.Context(), log))
			next.ServeHTTP(ww, rWithLog)

			log.LogAttrs(r.Context(),
				slog.LevelInfo,
				"request handled",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
			)
		}
		return http.HandlerFunc(logFunc)
	}
}
