// controllers/reconciliation_controller.go
package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avishkar-club/treasury_backend/middleware"
	"github.com/avishkar-club/treasury_backend/models"
	"github.com/avishkar-club/treasury_backend/services"
)

// ReconciliationController exposes the treasurer verification queue
type ReconciliationController struct {
	Reconciliation *services.ReconciliationService
}

// NewReconciliationController creates a new reconciliation controller
func NewReconciliationController(recon *services.ReconciliationService) *ReconciliationController {
	return &ReconciliationController{Reconciliation: recon}
}

// PendingQueue returns payments awaiting verification grouped by amount,
// with groups sharing an amount flagged for careful reference matching.
func (rc *ReconciliationController) PendingQueue(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	actor, err := middleware.ExtractActor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication failed",
		})
	}

	groups, err := rc.Reconciliation.PendingQueue(ctx, actor)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Verification queue retrieved successfully",
		Data:    groups,
	})
}
