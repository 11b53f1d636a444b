package httphandler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// slowRequest is the latency above which a read request is logged at Warn.
	slowRequest = 2 * time.Second
	// slowGeneration applies to POST /api/v1/reports, which waits on the
	// tracker and GitHub.
	slowGeneration = 2 * time.Minute
)

// statusWriter records the response status and whether headers were sent.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (sw *statusWriter) WriteHeader(status int) {
	if !sw.wroteHeader {
		sw.status = status
		sw.wroteHeader = true
	}
	sw.ResponseWriter.WriteHeader(status)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	sw.wroteHeader = true
	return sw.ResponseWriter.Write(b)
}

// loggingMiddleware logs one line per request with the matched route pattern.
// Server errors log at Error and slow requests at Warn; report generations
// also carry the created report location.
func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		elapsed := time.Since(start)
		attrs := []any{
			"method", r.Method,
			"route", routeOf(r),
			"status", sw.status,
			"duration", elapsed.Round(time.Microsecond),
		}
		if loc := sw.Header().Get("Location"); loc != "" {
			attrs = append(attrs, "report", loc)
		}

		switch {
		case sw.status >= http.StatusInternalServerError:
			logger.Error("http request failed", attrs...)
		case elapsed > slowThreshold(r):
			logger.Warn("slow http request", attrs...)
		default:
			logger.Info("http request", attrs...)
		}
	})
}

// routeOf prefers the ServeMux pattern so report ids do not fan out the
// logged routes. Unmatched requests fall back to the raw path.
func routeOf(r *http.Request) string {
	if r.Pattern != "" {
		return r.Pattern
	}
	return r.URL.Path
}

func slowThreshold(r *http.Request) time.Duration {
	if r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/api/v1/reports") {
		return slowGeneration
	}
	return slowRequest
}

// recoveryMiddleware turns a handler panic into a 500 unless the response has
// already started.
func recoveryMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw, ok := w.(*statusWriter)
		if !ok {
			sw = &statusWriter{ResponseWriter: w, status: http.StatusOK}
		}

		defer func() {
			if v := recover(); v != nil {
				logger.Error("panic recovered",
					"panic", v,
					"route", routeOf(r),
				)
				if !sw.wroteHeader {
					writeError(sw, http.StatusInternalServerError, "internal server error")
				}
			}
		}()

		next.ServeHTTP(sw, r)
	})
}
