package httpserver

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/and161185/bucketlist/internal/errs"
	"github.com/and161185/bucketlist/internal/service"
)

const requestIDHeader = "X-Request-ID"

// statusWriter captures the response status for logging and metrics.
type statusWriter struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wrote {
		w.status = code
		w.wrote = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wrote {
		w.status = http.StatusOK
		w.wrote = true
	}
	return w.ResponseWriter.Write(b)
}

func wrap(w http.ResponseWriter) *statusWriter {
	if sw, ok := w.(*statusWriter); ok {
		return sw
	}
	return &statusWriter{ResponseWriter: w, status: http.StatusOK}
}

func routeOf(r *http.Request) string {
	if rt := mux.CurrentRoute(r); rt != nil {
		if tpl, err := rt.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// RequestID assigns every request an id, honoring a well-formed incoming X-Request-ID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.FromString(id); err != nil {
			id = uuid.Must(uuid.NewV4()).String()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), id)))
	})
}

// Logging writes one structured line per request.
func Logging(log *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := wrap(w)
			reqLog := log.With(zap.String("request_id", RequestIDFromCtx(r.Context())))
			next.ServeHTTP(sw, r.WithContext(withLogger(r.Context(), reqLog)))

			// metadata only: bodies and credentials are never logged
			reqLog.Info("http",
				zap.String("method", r.Method),
				zap.String("route", routeOf(r)),
				zap.Int("status", sw.status),
				zap.Duration("dur", time.Since(start)),
				zap.String("peer", r.RemoteAddr),
			)
		})
	}
}

// Recover turns handler panics into 500 responses.
func Recover(log *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := wrap(w)
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("panic",
						zap.Any("reason", rec),
						zap.ByteString("stack", debug.Stack()),
						zap.String("route", routeOf(r)),
						zap.String("request_id", RequestIDFromCtx(r.Context())),
					)
					if !sw.wrote {
						writeJSON(sw, http.StatusInternalServerError, errorBody("internal"))
					}
				}
			}()
			next.ServeHTTP(sw, r)
		})
	}
}

// Instrument records request counts and latency per route template.
func Instrument(m *Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := wrap(w)
			next.ServeHTTP(sw, r)

			route := routeOf(r)
			m.RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).Inc()
			m.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// Authenticate resolves the request token to a live user and stores it in context.
// Requests without a usable token are answered with 401.
func Authenticate(auth service.AuthService, m *Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, ok := tokenFromRequest(r)
			if !ok {
				m.authFailure("missing")
				w.Header().Set("WWW-Authenticate", authChallenge)
				writeJSON(w, http.StatusUnauthorized, errorBody("authentication token required"))
				return
			}
			u, err := auth.Authenticate(r.Context(), tok)
			if err != nil {
				if errors.Is(err, errs.ErrUnauthorized) {
					m.authFailure("invalid")
					err = fmt.Errorf("%w: invalid or expired token", errs.ErrUnauthorized)
				}
				writeError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

// tokenFromRequest extracts the token from "Basic base64(token:ignored)" or "Bearer token".
func tokenFromRequest(r *http.Request) (string, bool) {
	if user, _, ok := r.BasicAuth(); ok {
		user = strings.TrimSpace(user)
		return user, user != ""
	}
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) >= 7 && strings.EqualFold(v[:7], "bearer ") {
		t := strings.TrimSpace(v[7:])
		if t != "" {
			return t, true
		}
	}
	return "", false
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
