package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/ahems/SportsLeague/pkg/auth"
	sserr "github.com/ahems/SportsLeague/pkg/errors"
)

const msgNotFound = "Not found"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, msg)
}

// writeError maps err to its HTTP status. Server-side failures are logged
// and answered with a generic message; client errors echo the message.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	e := sserr.FromError(err)
	status := e.HTTPStatus()
	switch {
	case status == http.StatusNotFound:
		writeText(w, status, msgNotFound)
	case status >= 500:
		attrs := []any{"path", r.URL.Path, "code", string(e.Code), "error", err}
		if id, ok := auth.TraceIDFromContext(r.Context()); ok {
			attrs = append(attrs, "trace_id", id)
		}
		logger.ErrorContext(r.Context(), "request failed", attrs...)
		if status == http.StatusServiceUnavailable || status == http.StatusGatewayTimeout {
			w.Header().Set("Retry-After", "5")
		}
		writeText(w, status, http.StatusText(status))
	default:
		writeText(w, status, e.Message)
	}
}

// decodeBody reads a JSON body of at most maxBodyBytes into out. It
// reports io.EOF for an empty body.
func decodeBody(w http.ResponseWriter, r *http.Request, out any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return sserr.Wrap(err, sserr.CodeValidationFormat, "Invalid request body")
	}
	return nil
}
