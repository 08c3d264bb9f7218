package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/achildrenmile/qslcardgenerator/internal/common"
	"github.com/achildrenmile/qslcardgenerator/internal/server/storage"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

func notFound(w http.ResponseWriter) {
	respondError(w, http.StatusNotFound, "not found")
}

// respondServiceError maps the service-layer sentinels onto HTTP statuses.
// Anything unrecognized is logged and answered with a generic 500 so
// internal detail never reaches the client.
func (s *Server) respondServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrWeakPassword):
		respondError(w, http.StatusBadRequest, "password must be at least 8 characters")
	case errors.Is(err, common.ErrValidation):
		respondError(w, http.StatusBadRequest, "invalid input")
	case errors.Is(err, common.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, "invalid username or password")
	case errors.Is(err, common.ErrAdminRequired):
		respondError(w, http.StatusForbidden, "admin required")
	case errors.Is(err, storage.ErrBadName):
		respondError(w, http.StatusBadRequest, "invalid filename")
	case errors.Is(err, common.ErrNotFound):
		notFound(w)
	case errors.Is(err, common.ErrCallsignTaken):
		respondError(w, http.StatusConflict, "callsign is already assigned")
	case errors.Is(err, common.ErrAlreadyExists):
		respondError(w, http.StatusConflict, "already exists")
	default:
		s.logger.Error(ctx, "request failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON reads a JSON request body into v. The body is capped well below
// the upload limit since every JSON payload here is small.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "malformed JSON body")
		return false
	}
	return true
}
