package apierr

import (
	"errors"
	"net/http"

	svcerrors "github.com/pierdell/mediaforge-backend/internal/platform/errors"
)

// FromService maps a sentinel from platform/errors (or an error wrapping one)
// to the HTTP status and machine-readable code the handlers serialize. Errors
// that match nothing known fall through as a 500 with code "internal".
func FromService(err error) *Error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	switch {
	case errors.Is(err, svcerrors.ErrInputInvalid):
		return New(http.StatusUnprocessableEntity, "input_invalid", err)
	case errors.Is(err, svcerrors.ErrAuthMissing):
		return New(http.StatusUnauthorized, "auth_missing", err)
	case errors.Is(err, svcerrors.ErrAuthInvalid):
		return New(http.StatusUnauthorized, "auth_invalid", err)
	case errors.Is(err, svcerrors.ErrForbidden):
		return New(http.StatusForbidden, "forbidden", err)
	case errors.Is(err, svcerrors.ErrNotFound):
		return New(http.StatusNotFound, "not_found", err)
	case errors.Is(err, svcerrors.ErrConflict):
		return New(http.StatusConflict, "conflict", err)
	case errors.Is(err, svcerrors.ErrPayloadTooLarge):
		return New(http.StatusRequestEntityTooLarge, "payload_too_large", err)
	case errors.Is(err, svcerrors.ErrRateLimited):
		return New(http.StatusTooManyRequests, "rate_limited", err)
	case errors.Is(err, svcerrors.ErrTransient):
		return New(http.StatusServiceUnavailable, "transient", err)
	default:
		return New(http.StatusInternalServerError, "internal", err)
	}
}

// FieldError is one entry of the optional "errors" array the API includes
// alongside a 422 response body to point at the offending field (spec.md
// §7 "errors[] with field, message, type").
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Body is the JSON shape every error response serializes to: {detail,
// errors?}. Errors is omitted unless the caller attaches field-level detail.
type Body struct {
	Detail string       `json:"detail"`
	Errors []FieldError `json:"errors,omitempty"`
}
