// controllers/credential_reset_controller.go
package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/avishkar-club/treasury_backend/middleware"
	"github.com/avishkar-club/treasury_backend/models"
	"github.com/avishkar-club/treasury_backend/services"
)

// CredentialResetController exposes the password reset approval workflow
type CredentialResetController struct {
	Resets *services.CredentialService
}

// NewCredentialResetController creates a new credential reset controller
func NewCredentialResetController(resets *services.CredentialService) *CredentialResetController {
	return &CredentialResetController{Resets: resets}
}

type submitResetRequest struct {
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}

// Submit requests a password reset. Submitting again while one is pending
// returns the existing request.
func (cc *CredentialResetController) Submit(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	actor, err := middleware.ExtractActor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication failed",
		})
	}

	var body submitResetRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "New password must be at least 8 characters",
		})
	}

	req, err := cc.Resets.Submit(ctx, actor, body.NewPassword)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Password reset requested",
		Data:    req,
	})
}

// Delete hides the caller's own pending or rejected reset request
func (cc *CredentialResetController) Delete(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	actor, err := middleware.ExtractActor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication failed",
		})
	}
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request ID format",
		})
	}

	if err := cc.Resets.Delete(ctx, actor, id); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Reset request deleted successfully",
	})
}

// Review approves or rejects a pending reset (treasurer only)
func (cc *CredentialResetController) Review(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	actor, err := middleware.ExtractActor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication failed",
		})
	}
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request ID format",
		})
	}

	var body reviewRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Decision must be 'approved' or 'rejected'",
		})
	}

	req, err := cc.Resets.Review(ctx, actor, id, body.Decision == "approved", body.Reason)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Reset request " + body.Decision + " successfully",
		Data:    req,
	})
}

// PendingQueue returns undecided reset requests for the treasurer
func (cc *CredentialResetController) PendingQueue(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	actor, err := middleware.ExtractActor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication failed",
		})
	}

	requests, err := cc.Resets.PendingQueue(ctx, actor)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Pending reset requests retrieved successfully",
		Data:    requests,
	})
}
