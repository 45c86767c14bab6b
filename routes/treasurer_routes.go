package routes

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/avishkar-club/treasury_backend/config"
	"github.com/avishkar-club/treasury_backend/controllers"
	"github.com/avishkar-club/treasury_backend/middleware"
	"github.com/avishkar-club/treasury_backend/repositories"
)

// RegisterTreasurerRoutes sets up the reconciliation queue and treasury
// settings routes, plus the per-user notification routes.
func RegisterTreasurerRoutes(e *echo.Echo, db *mongo.Client, reconciliationController *controllers.ReconciliationController) {
	settingsController := controllers.NewSettingsController(
		repositories.NewSettingsRepository(db.Database(config.DatabaseName())))
	notificationController := controllers.NewNotificationController(db)

	r := e.Group("/api")
	r.Use(middleware.JWTMiddleware())

	r.GET("/reconciliation/pending", reconciliationController.PendingQueue)
	r.GET("/treasury/settings", settingsController.Get)

	r.GET("/notifications", notificationController.List)
	r.PUT("/notifications/:id/read", notificationController.MarkRead)
}
