// controllers/settings_controller.go
package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avishkar-club/treasury_backend/middleware"
	"github.com/avishkar-club/treasury_backend/models"
	"github.com/avishkar-club/treasury_backend/repositories"
)

// SettingsController exposes the treasury configuration document
type SettingsController struct {
	Settings *repositories.SettingsRepository
}

// NewSettingsController creates a new settings controller
func NewSettingsController(settings *repositories.SettingsRepository) *SettingsController {
	return &SettingsController{Settings: settings}
}

// Get returns the current treasury settings (treasurer only)
func (sc *SettingsController) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	actor, err := middleware.ExtractActor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication failed",
		})
	}
	if actor.Role != models.RoleTreasurer {
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Only the treasurer can view treasury settings",
		})
	}

	settings, err := sc.Settings.Get(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to retrieve treasury settings",
		})
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Treasury settings retrieved successfully",
		Data:    settings,
	})
}
