package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/avishkar-club/treasury_backend/controllers"
	"github.com/avishkar-club/treasury_backend/middleware"
)

// RegisterCredentialResetRoutes sets up the password reset approval routes
func RegisterCredentialResetRoutes(e *echo.Echo, resetController *controllers.CredentialResetController) {
	r := e.Group("/api/credential-resets")
	r.Use(middleware.JWTMiddleware())

	// Member routes
	r.POST("", resetController.Submit)
	r.DELETE("/:id", resetController.Delete)

	// Treasurer routes
	r.GET("/pending", resetController.PendingQueue)
	r.POST("/:id/review", resetController.Review)
}
