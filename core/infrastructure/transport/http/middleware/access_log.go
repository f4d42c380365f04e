package middleware

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/semlayer/semlayer/core/infrastructure/logging"
)

// AccessLog writes one line per request through the "http" logger: server
// errors at error level, client errors at warn, the rest at debug
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		log := logging.New("http").WithContext(r.Context())
		const line = "%s %s %d %dB %s"
		args := []any{r.Method, r.URL.Path, status, ww.BytesWritten(), time.Since(start).Round(time.Microsecond)}
		switch {
		case status >= http.StatusInternalServerError:
			log.Errorf(line, args...)
		case status >= http.StatusBadRequest:
			log.Warnf(line, args...)
		default:
			log.Debugf(line, args...)
		}
	})
}
