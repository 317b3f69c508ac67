package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/PREETHAM1590/waste-wise/internal/lib/apperr"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

var statusByKind = map[string]int{
	apperr.KindNotFound:                  http.StatusNotFound,
	apperr.KindInvalidInput:              http.StatusBadRequest,
	apperr.KindClassificationUnavailable: http.StatusServiceUnavailable,
	apperr.KindStorageFailure:            http.StatusInternalServerError,
	apperr.KindInsufficientPoints:        http.StatusPaymentRequired,
	apperr.KindUnauthorized:              http.StatusUnauthorized,
	apperr.KindInternal:                  http.StatusInternalServerError,
}

func statusFor(err error) int {
	return statusByKind[apperr.Kind(err)]
}

// writeError answers with the stable kind and message of err. The error
// text itself is only logged.
func (s *APIServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", slog.String("method", r.Method), slog.String("path", r.URL.Path), "error", err)
	}

	writeJSON(w, status, errorResponse{Error: apperr.Kind(err), Message: apperr.Message(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Invalid("malformed JSON body")
	}
	return nil
}
