package api

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JoelCooperPhD/sessionctl/internal/logging"
	"github.com/JoelCooperPhD/sessionctl/internal/metrics"
)

// localhostAllowlist is the peer-address allowlist:
// anything else gets a 403, regardless of route.
var localhostAllowlist = map[string]bool{
	"127.0.0.1":        true,
	"::1":              true,
	"::ffff:127.0.0.1": true,
}

// localhostFilter rejects any request whose peer address is not in
// localhostAllowlist. This is the outermost middleware: it must run before request logging or error
// handling ever sees the request.
func localhostFilter(log *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}
			if !localhostAllowlist[host] {
				log.WithFields(logging.Fields{"remote_addr": r.RemoteAddr}).Warn("api: rejected non-localhost peer")
				writeError(w, NewError(http.StatusForbidden, "ACCESS_DENIED", "localhost only"), false, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogger logs each request's method/path/status/duration, but
// only when debug is enabled.
func requestLogger(log *logging.Logger, debug bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !debug {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			log.WithFields(logging.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   sw.status,
				"duration": time.Since(start).String(),
			}).Debug("api: request")
		})
	}
}

// errorEnvelope is the innermost middleware: it recovers a panicking
// handler and converts it to the 500 INTERNAL_ERROR envelope rather
// than letting net/http's default recovery close the connection.
// Handlers that want a specific status/code return an *Error from an
// apiHandlerFunc instead of panicking; this middleware only catches
// what a handler didn't anticipate.
func errorEnvelope(log *logging.Logger, debug bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.WithFields(logging.Fields{"path": r.URL.Path, "panic": fmt.Sprint(rec)}).Error("api: handler panic")
					meta := map[string]string{"method": r.Method, "path": r.URL.Path}
					writeError(w, fmt.Errorf("internal error: %v", rec), debug, meta)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

// requestMetrics records request count and latency per chi route
// pattern (not the raw path, so /modules/{name}/start stays one
// series regardless of module name).
func requestMetrics(met *metrics.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
			}
			met.RESTRequestsTotal.WithLabelValues(route, strconv.Itoa(sw.status)).Inc()
			met.RESTRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		})
	}
}
