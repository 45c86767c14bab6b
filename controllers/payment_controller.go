// controllers/payment_controller.go
package controllers

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/avishkar-club/treasury_backend/middleware"
	"github.com/avishkar-club/treasury_backend/models"
	"github.com/avishkar-club/treasury_backend/services"
	"github.com/avishkar-club/treasury_backend/utils"
)

// PaymentController exposes the monthly dues workflow
type PaymentController struct {
	Payments *services.PaymentService
}

// NewPaymentController creates a new payment controller
func NewPaymentController(payments *services.PaymentService) *PaymentController {
	return &PaymentController{Payments: payments}
}

type generateQRRequest struct {
	Period string `json:"period" validate:"required"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// GenerateQR starts or resumes the dues payment for a period and returns the
// UPI deep link plus its QR code. Calling it twice for the same period returns
// the same request.
func (pc *PaymentController) GenerateQR(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	actor, err := middleware.ExtractActor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication failed",
		})
	}

	var req generateQRRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Period is required",
		})
	}

	data, err := pc.Payments.GenerateQR(ctx, actor, req.Period)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Payment QR generated successfully",
		Data:    data,
	})
}

// ConfirmPayment records the member's attestation that the transfer was made
func (pc *PaymentController) ConfirmPayment(c echo.Context) error {
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

	req, err := pc.Payments.ConfirmPayment(ctx, actor, id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Payment confirmed, awaiting verification",
		Data:    req,
	})
}

// Verify marks a confirmed payment as received (treasurer only)
func (pc *PaymentController) Verify(c echo.Context) error {
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

	req, err := pc.Payments.Verify(ctx, actor, id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Payment verified successfully",
		Data:    req,
	})
}

// RejectVerification fails a confirmed payment with a mandatory reason
func (pc *PaymentController) RejectVerification(c echo.Context) error {
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

	var body rejectRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	req, err := pc.Payments.RejectVerification(ctx, actor, id, body.Reason)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Payment verification rejected",
		Data:    req,
	})
}

// Resubmit retries a failed payment with a transfer screenshot and optional
// note, uploaded as multipart form data.
func (pc *PaymentController) Resubmit(c echo.Context) error {
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

	file, err := c.FormFile("photo")
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "A payment screenshot is required",
		})
	}
	photoRef, err := saveUpload(file, "payments")
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
		})
	}
	note := utils.SanitizeInput(c.FormValue("note"))

	req, err := pc.Payments.Resubmit(ctx, actor, id, photoRef, note)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Payment resubmitted, awaiting verification",
		Data:    req,
	})
}

// Delete removes or archives the member's own request depending on its state
func (pc *PaymentController) Delete(c echo.Context) error {
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

	if err := pc.Payments.Delete(ctx, actor, id); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Request deleted successfully",
	})
}

// History lists the member's own payment requests with confirmed references
// masked for display.
func (pc *PaymentController) History(c echo.Context) error {
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
	requests, err := pc.Payments.History(ctx, actor, includeArchived)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Payment history retrieved successfully",
		Data:    requests,
	})
}

// saveUpload reads a multipart file and stores it under uploads/<subDir>,
// returning the URL the request document keeps.
func saveUpload(file *multipart.FileHeader, subDir string) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return "", err
	}
	return utils.SaveProofFile(data, file.Filename, subDir)
}
