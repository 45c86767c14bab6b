package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/avishkar-club/treasury_backend/controllers"
	"github.com/avishkar-club/treasury_backend/middleware"
)

// RegisterReimbursementRoutes sets up the expense reimbursement routes
func RegisterReimbursementRoutes(e *echo.Echo, reimbursementController *controllers.ReimbursementController) {
	r := e.Group("/api/reimbursements")
	r.Use(middleware.JWTMiddleware())

	// Member routes
	r.POST("", reimbursementController.Submit)
	r.GET("", reimbursementController.List)
	r.POST("/:id/received", reimbursementController.ConfirmReceipt)
	r.DELETE("/:id", reimbursementController.Delete)

	// Treasurer routes
	r.GET("/pending", reimbursementController.PendingQueue)
	r.POST("/:id/review", reimbursementController.Review)
	r.POST("/:id/paid", reimbursementController.MarkPaid)
}
