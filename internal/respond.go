package internal

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"itam-api/internal/auth"
	"itam-api/internal/inventory"
)

const maxJSONBody = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) error {
	if r.Body == nil {
		return errors.New("request body required")
	}
	defer r.Body.Close()

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// sendErrorResponse writes the standard {"error","code"} body.
func sendErrorResponse(w http.ResponseWriter, message, code string, status int) {
	writeJSON(w, status, auth.ErrorResponse{Error: message, Code: code})
}

func badRequest(w http.ResponseWriter, message string) {
	sendErrorResponse(w, message, "BAD_REQUEST", http.StatusBadRequest)
}

// writeServiceError maps inventory error classes onto HTTP statuses. Anything
// unclassified is logged with the request id and reported as a bare 500.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, inventory.ErrValidation):
		sendErrorResponse(w, inventory.PublicMessage(err), "VALIDATION_FAILED", http.StatusBadRequest)
	case errors.Is(err, inventory.ErrNotFound):
		sendErrorResponse(w, inventory.PublicMessage(err), "NOT_FOUND", http.StatusNotFound)
	case errors.Is(err, inventory.ErrConflict):
		sendErrorResponse(w, inventory.PublicMessage(err), "CONFLICT", http.StatusConflict)
	default:
		s.log.Error().Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		sendErrorResponse(w, "internal server error", "INTERNAL", http.StatusInternalServerError)
	}
}

// idParam reads a positive int64 path parameter.
func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
