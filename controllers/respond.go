// controllers/respond.go
package controllers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/avishkar-club/treasury_backend/models"
	"github.com/avishkar-club/treasury_backend/services"
)

// respondServiceError maps the workflow error taxonomy onto HTTP statuses.
// Every handler funnels service failures through here so the mapping never
// drifts between endpoints.
func respondServiceError(c echo.Context, err error) error {
	switch {
	case services.IsValidation(err), errors.Is(err, services.ErrMalformedReference):
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
		})
	case errors.Is(err, services.ErrForbidden):
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "You are not allowed to perform this operation",
		})
	case errors.Is(err, services.ErrNotFound):
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Request not found",
		})
	case services.IsInvalidTransition(err), services.IsDuplicateActive(err):
		return c.JSON(http.StatusConflict, models.Response{
			Status:  http.StatusConflict,
			Message: err.Error(),
		})
	case errors.Is(err, services.ErrReferenceExhausted):
		return c.JSON(http.StatusServiceUnavailable, models.Response{
			Status:  http.StatusServiceUnavailable,
			Message: "Could not allocate a reference code, please retry",
		})
	}
	return c.JSON(http.StatusInternalServerError, models.Response{
		Status:  http.StatusInternalServerError,
		Message: "Internal server error",
	})
}
