// Package response is the HTTP boundary's single serialization seam:
// every handler answers through RespondOK/RespondError so the wire
// shape (spec.md §7 "{detail, errors?}") never drifts handler to
// handler. Grounded on the teacher's internal/http/response package,
// adapted from its {error:{message,code}} envelope to this module's
// {detail, errors?} contract.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pierdell/mediaforge-backend/internal/platform/apierr"
)

// RespondOK writes a 200 JSON payload.
func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondCreated writes a 201 JSON payload.
func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

// RespondError translates err through apierr.FromService and writes the
// {detail, errors?} body at the mapped status, aborting the chain.
func RespondError(c *gin.Context, err error) {
	apiErr := apierr.FromService(err)
	c.AbortWithStatusJSON(apiErr.Status, apierr.Body{Detail: apiErr.Error()})
}

// RespondFieldErrors writes a 422 with per-field detail (spec.md §7
// "errors[] with field, message, type"), used by request-binding
// failures that can name the offending field.
func RespondFieldErrors(c *gin.Context, detail string, fields []apierr.FieldError) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, apierr.Body{Detail: detail, Errors: fields})
}
