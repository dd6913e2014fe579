package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"ticksim/internal/domain"
)

// WriteJSON writes a JSON response with the given status code and data.
// Sets Content-Type to application/json before writing the status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data) // Write error intentionally ignored in response helper
}

// errorResponse is the standard error response format.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a standard error response with the given status code,
// error code, and human-readable message.
func WriteError(w http.ResponseWriter, status int, errorCode, message string) {
	WriteJSON(w, status, errorResponse{
		Error:   errorCode,
		Message: message,
	})
}

// WriteDomainError maps domain errors to HTTP status codes and writes the
// standard error response.
func WriteDomainError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		WriteError(w, http.StatusBadRequest, "validation_error", ve.Message)
	case errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrUnknownInstrument),
		errors.Is(err, domain.ErrListenerNotFound):
		WriteError(w, http.StatusNotFound, sentinelCode(err), err.Error())
	case errors.Is(err, domain.ErrDuplicateOrderRef),
		errors.Is(err, domain.ErrInvalidOrderStatus),
		errors.Is(err, domain.ErrDuplicateInstrument),
		errors.Is(err, domain.ErrDuplicateSubscriber):
		WriteError(w, http.StatusConflict, sentinelCode(err), err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

// sentinelCode extracts the stable error code from a wrapped sentinel.
func sentinelCode(err error) string {
	for _, sentinel := range []error{
		domain.ErrDuplicateOrderRef,
		domain.ErrOrderNotFound,
		domain.ErrInvalidOrderStatus,
		domain.ErrDuplicateInstrument,
		domain.ErrUnknownInstrument,
		domain.ErrDuplicateSubscriber,
		domain.ErrListenerNotFound,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "internal_error"
}

// ParseJSON decodes the request body as JSON into v, rejecting unknown
// fields and non-JSON content types.
func ParseJSON(r *http.Request, v any) error {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(ct, "application/json") {
		return fmt.Errorf("request body must be valid JSON with Content-Type: application/json")
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("request body must be valid JSON with Content-Type: application/json")
	}

	return nil
}
