package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Sotatek-TuNguyen6/yolo-sub000/internal/domain"
)

// ErrorDetail is the body of every error response:
// {"error":{"code":"...","message":"..."}}.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps ErrorDetail.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// notFound responds 404. The caller supplies the message because the handler
// is the layer that knows what was being looked up.
func notFound(w http.ResponseWriter, message string) {
	respondError(w, http.StatusNotFound, "not_found", message)
}

// invalidRequest responds 422 for input rejected before reaching a service
// (e.g. a missing or malformed body).
func invalidRequest(w http.ResponseWriter, message string) {
	respondError(w, http.StatusUnprocessableEntity, "validation_error", message)
}

// respondServiceError maps a service error onto a status code.
func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error, what string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		respondError(w, http.StatusUnprocessableEntity, "validation_error", unwrapMessage(err))
	case errors.Is(err, domain.ErrNotFound):
		notFound(w, what+" not found")
	case errors.Is(err, domain.ErrUnauthorized):
		s.clearToken(w)
		respondError(w, http.StatusUnauthorized, "unauthorized", "session expired, please log in again")
	case errors.Is(err, domain.ErrUpstream):
		s.log.WarnContext(r.Context(), "backend call failed", "path", r.URL.Path, "error", err)
		respondError(w, http.StatusBadGateway, "upstream_error", "backend request failed")
	default:
		s.log.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// clearToken expires the backend token cookie.
func (s *Server) clearToken(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.opts.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// unwrapMessage extracts the human-readable part of a wrapped validation
// error, e.g. "service.BasketService.Add: line 0: validation error: invalid
// line item: productId is required" → "invalid line item: productId is required".
func unwrapMessage(err error) string {
	msg := err.Error()
	marker := domain.ErrValidation.Error() + ": "
	if i := strings.LastIndex(msg, marker); i >= 0 && len(msg) > i+len(marker) {
		return msg[i+len(marker):]
	}
	return msg
}
