package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/moltcourt/moltcourt/internal/arena"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response", "error", err)
	}
}

// statusFor maps an arena error kind to its HTTP status.
func statusFor(kind arena.Kind) int {
	switch kind {
	case arena.KindValidation:
		return http.StatusBadRequest
	case arena.KindNotFound:
		return http.StatusNotFound
	case arena.KindConflict:
		return http.StatusConflict
	case arena.KindAuthorization:
		return http.StatusForbidden
	case arena.KindOracleUnavailable:
		return http.StatusServiceUnavailable
	case arena.KindOracleFormat:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := arena.KindOf(err)
	status := statusFor(kind)
	body := map[string]any{"error": arena.ReasonOf(err)}
	if arena.IsRetryable(err) {
		body["retryable"] = true
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, body)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return arena.NewError(arena.KindValidation, "invalid JSON body", err)
	}
	return nil
}
