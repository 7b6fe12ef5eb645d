package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/and161185/bucketlist/internal/convert"
	"github.com/and161185/bucketlist/internal/errs"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

func errorBody(msg string) convert.Error { return convert.Error{Error: msg} }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusOf maps an error kind to its HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, errs.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, errs.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// authChallenge accompanies every 401.
const authChallenge = `Basic realm="bucketlist"`

// writeError answers with the status for err's kind. Internal errors are logged
// and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	msg := err.Error()
	switch status {
	case http.StatusUnauthorized:
		w.Header().Set("WWW-Authenticate", authChallenge)
	case http.StatusInternalServerError:
		loggerFrom(r).Error("request failed", zap.Error(err), zap.String("route", routeOf(r)))
		msg = "internal"
	}
	writeJSON(w, status, errorBody(msg))
}

// decodeJSON reads a JSON object body into dst. Unknown fields are ignored.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: request body is empty", errs.ErrValidation)
		case errors.As(err, &tooBig):
			return fmt.Errorf("%w: request body exceeds %d bytes", errs.ErrValidation, tooBig.Limit)
		default:
			return fmt.Errorf("%w: malformed JSON: %s", errs.ErrValidation, strings.TrimPrefix(err.Error(), "json: "))
		}
	}
	return nil
}
