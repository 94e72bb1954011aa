package logger

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Middleware logs one line per request with the chi request id, status,
// response size and duration. Server errors log at Error, client errors at
// Warn and everything else at Debug.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		log := Debug
		switch {
		case status >= 500:
			log = Error
		case status >= 400:
			log = Warn
		}
		log("%s %s -> %d (%dB, %s) req=%s",
			r.Method, r.URL.Path, status, ww.BytesWritten(),
			time.Since(start).Round(time.Microsecond), chimiddleware.GetReqID(r.Context()))
	})
}
