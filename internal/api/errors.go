package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"warden/internal/domain"
)

// httpStatusFromDomainError maps domain errors to HTTP status codes. 401 is
// reserved for login-time credential failures; everything the authorization
// layer rejects is 403.
func httpStatusFromDomainError(err error) int {
	var notFound *domain.NotFoundError
	var unauthorized *domain.UnauthorizedError
	var accessDenied *domain.AccessDeniedError
	var validation *domain.ValidationError
	var conflict *domain.ConflictError

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &unauthorized):
		return http.StatusUnauthorized
	case errors.As(err, &accessDenied):
		return http.StatusForbidden
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &conflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders a failure as {"errors": [...]} with the mapped status.
// Internal faults never leak their message to the client.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatusFromDomainError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		message = "internal server error"
	}
	writeJSON(w, status, map[string]any{"errors": []string{message}})
}

// writeDenied renders the uniform authorization refusal.
func (h *Handler) writeDenied(w http.ResponseWriter) {
	writeJSON(w, http.StatusForbidden, map[string]any{
		"errors": []string{"you are not permitted to perform this action"},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// decodeJSON decodes the request body, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.ErrValidation("invalid request body: %v", err)
	}
	return nil
}

// noErrors is the empty errors list carried by every success payload.
var noErrors = []string{}
