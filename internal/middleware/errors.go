package middleware

import (
	"errors"
	"net/http"

	"github.com/fekuna/flowershop-service/internal/model"
	"github.com/gin-gonic/gin"
)

// StatusFor maps a domain error to the HTTP status it is reported with.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInsufficientStock),
		errors.Is(err, model.ErrConflict),
		errors.Is(err, model.ErrOrderLocked),
		errors.Is(err, model.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, model.ErrBusy):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// AbortWithError writes err as a JSON body. Store and unknown errors are not
// echoed to the client.
func AbortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	status := StatusFor(err)

	body := gin.H{"error": err.Error()}
	if status == http.StatusInternalServerError {
		body["error"] = "internal error"
	}

	var invalid *model.InvalidInputError
	if errors.As(err, &invalid) {
		body["field"] = invalid.Field
	}
	var insufficient *model.InsufficientStockError
	if errors.As(err, &insufficient) {
		body["item_id"] = insufficient.ItemID
		body["available"] = insufficient.Available
		body["requested"] = insufficient.Requested
	}

	c.AbortWithStatusJSON(status, body)
}
