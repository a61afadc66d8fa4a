package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/heartmarshall/wardsync/internal/domain"
	"github.com/heartmarshall/wardsync/pkg/ctxutil"
)

// maxBodyBytes caps request bodies on the local API.
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error     string              `json:"error"`
	Fields    []domain.FieldError `json:"fields,omitempty"`
	RequestID string              `json:"request_id,omitempty"`
}

func handleError(log *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	requestID := ctxutil.RequestIDFromCtx(r.Context())

	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Error(), Fields: verr.Errors, RequestID: requestID})
	case errors.Is(err, domain.ErrValidation):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrConstraintViolation):
		writeError(w, r, http.StatusConflict, "already exists")
	case errors.Is(err, domain.ErrStorageUnavailable):
		log.ErrorContext(r.Context(), "storage unavailable", slog.String("error", err.Error()))
		writeError(w, r, http.StatusServiceUnavailable, "local storage unavailable")
	case errors.Is(err, domain.ErrRemoteWrite):
		writeError(w, r, http.StatusBadGateway, "remote API unavailable")
	default:
		log.ErrorContext(r.Context(), "internal error", slog.String("error", err.Error()))
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message, RequestID: ctxutil.RequestIDFromCtx(r.Context())})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

// decodeJSON reads a single JSON object from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return domain.NewValidationError("body", "invalid JSON")
	}
	return nil
}
