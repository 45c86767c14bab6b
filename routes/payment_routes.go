package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/avishkar-club/treasury_backend/controllers"
	"github.com/avishkar-club/treasury_backend/middleware"
)

// RegisterPaymentRoutes sets up the monthly dues payment routes
func RegisterPaymentRoutes(e *echo.Echo, paymentController *controllers.PaymentController) {
	r := e.Group("/api/payments")
	r.Use(middleware.JWTMiddleware())

	// Member routes
	r.POST("/qr", paymentController.GenerateQR)
	r.POST("/:id/confirm", paymentController.ConfirmPayment)
	r.POST("/:id/resubmit", paymentController.Resubmit)
	r.DELETE("/:id", paymentController.Delete)
	r.GET("/history", paymentController.History)

	// Treasurer routes
	r.POST("/:id/verify", paymentController.Verify)
	r.POST("/:id/reject", paymentController.RejectVerification)
}
