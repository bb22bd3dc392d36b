package api

import (
	"net/http"
	"strconv"
	"time"

	"option-scout/observability"

	"github.com/go-chi/chi/v5"
)

// statusRecorder captures the status code and payload size a handler writes.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	n, err := rec.ResponseWriter.Write(b)
	rec.bytes += n
	return n, err
}

// MetricsMiddleware records request counts, latency, and response size per
// route pattern. Patterns come from chi so path parameters do not explode
// the label space; unrouted paths fall back to the raw URL.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := newStatusRecorder(w)

		next.ServeHTTP(rec, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}

		observability.GetMetrics().RecordHTTPRequest(
			r.Method, route, strconv.Itoa(rec.status), time.Since(start), rec.bytes)
	})
}
