// controllers/reimbursement_controller.go
package controllers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/avishkar-club/treasury_backend/middleware"
	"github.com/avishkar-club/treasury_backend/models"
	"github.com/avishkar-club/treasury_backend/services"
	"github.com/avishkar-club/treasury_backend/utils"
)

// ReimbursementController exposes the expense claim workflow
type ReimbursementController struct {
	Claims *services.ReimbursementService
}

// NewReimbursementController creates a new reimbursement controller
func NewReimbursementController(claims *services.ReimbursementService) *ReimbursementController {
	return &ReimbursementController{Claims: claims}
}

type reviewRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approved rejected"`
	Reason   string `json:"reason"`
}

// Submit creates a new claim; the bill proof arrives as multipart form data
// alongside description, amount and contact number.
func (rc *ReimbursementController) Submit(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	actor, err := middleware.ExtractActor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication failed",
		})
	}

	amount, err := strconv.ParseFloat(c.FormValue("amount"), 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid amount",
		})
	}

	file, err := c.FormFile("billProof")
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "A bill proof is required",
		})
	}
	billRef, err := saveUpload(file, "bills")
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
		})
	}

	contact, err := utils.SanitizePhone(c.FormValue("contactNumber"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
		})
	}

	req, err := rc.Claims.Submit(ctx, actor, services.SubmitReimbursementInput{
		Description:   utils.SanitizeInput(c.FormValue("description")),
		Amount:        amount,
		ContactNumber: contact,
		BillProofRef:  billRef,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Reimbursement claim submitted successfully",
		Data:    req,
	})
}

// Review approves or rejects a pending claim (treasurer only)
func (rc *ReimbursementController) Review(c echo.Context) error {
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

	req, err := rc.Claims.Review(ctx, actor, id, body.Decision == "approved", body.Reason)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Claim " + body.Decision + " successfully",
		Data:    req,
	})
}

// MarkPaid settles an approved claim; requires a settlement message and a
// transfer proof file.
func (rc *ReimbursementController) MarkPaid(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
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

	file, err := c.FormFile("proof")
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Transfer proof is required",
		})
	}
	proofRef, err := saveUpload(file, "settlements")
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
		})
	}

	req, err := rc.Claims.MarkPaid(ctx, actor, id, utils.SanitizeInput(c.FormValue("message")), proofRef)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Claim marked as paid",
		Data:    req,
	})
}

// ConfirmReceipt closes the claim after the member confirms the money arrived
func (rc *ReimbursementController) ConfirmReceipt(c echo.Context) error {
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

	req, err := rc.Claims.ConfirmReceipt(ctx, actor, id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Receipt confirmed, claim closed",
		Data:    req,
	})
}

// Delete removes or archives the member's own claim depending on its state
func (rc *ReimbursementController) Delete(c echo.Context) error {
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

	if err := rc.Claims.Delete(ctx, actor, id); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Claim deleted successfully",
	})
}

// List returns the member's own claims
func (rc *ReimbursementController) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	actor, err := middleware.ExtractActor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication failed",
		})
	}

	includeArchived := c.QueryParam("includeArchived") == "true"
	requests, err := rc.Claims.List(ctx, actor, includeArchived)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Claims retrieved successfully",
		Data:    requests,
	})
}

// PendingQueue returns unreviewed claims for the treasurer
func (rc *ReimbursementController) PendingQueue(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	actor, err := middleware.ExtractActor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication failed",
		})
	}

	requests, err := rc.Claims.PendingQueue(ctx, actor)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Pending claims retrieved successfully",
		Data:    requests,
	})
}
