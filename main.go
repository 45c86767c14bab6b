package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/avishkar-club/treasury_backend/config"
	"github.com/avishkar-club/treasury_backend/controllers"
	"github.com/avishkar-club/treasury_backend/middleware"
	"github.com/avishkar-club/treasury_backend/repositories"
	"github.com/avishkar-club/treasury_backend/routes"
	"github.com/avishkar-club/treasury_backend/services"
	"github.com/avishkar-club/treasury_backend/utils"
)

// CustomValidator is a custom validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates the request body
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func main() {
	// Load .env file
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found")
	}

	// Connect to Redis
	config.ConnectRedis()
	defer config.CloseRedis()

	// Connect to database
	client := config.ConnectDB()
	treasuryDB := client.Database(config.DatabaseName())

	// Create a new Echo instance
	e := echo.New()

	// Initialize custom validator
	customValidator := &CustomValidator{validator: validator.New()}
	e.Validator = customValidator

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter()

	// Middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.Secure())
	e.Use(rateLimiter.RateLimit())

	e.Match([]string{"GET", "HEAD"}, "/", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":  "OK",
			"message": "Treasury Backend is running",
			"version": "1.0",
		})
	})

	e.Match([]string{"GET", "HEAD"}, "/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":   "healthy",
			"database": "connected",
		})
	})

	// Initialize repositories
	paymentRepo := repositories.NewFundPaymentRepository(treasuryDB)
	reimbursementRepo := repositories.NewReimbursementRepository(treasuryDB)
	resetRepo := repositories.NewCredentialResetRepository(treasuryDB)
	userRepo := repositories.NewUserRepository(treasuryDB)
	settingsRepo := repositories.NewSettingsRepository(treasuryDB)

	// Initialize services
	notifier := utils.NewDecisionNotifier(client)
	refGenerator := services.NewReferenceCodeGenerator(paymentRepo, config.GetRedisClient())
	paymentService := services.NewPaymentService(paymentRepo, userRepo, settingsRepo, refGenerator, notifier)
	reimbursementService := services.NewReimbursementService(reimbursementRepo, notifier)
	credentialService := services.NewCredentialService(resetRepo, userRepo, notifier)
	reconciliationService := services.NewReconciliationService(paymentRepo)

	// Initialize controllers
	paymentController := controllers.NewPaymentController(paymentService)
	reimbursementController := controllers.NewReimbursementController(reimbursementService)
	resetController := controllers.NewCredentialResetController(credentialService)
	reconciliationController := controllers.NewReconciliationController(reconciliationService)

	// Register routes
	routes.RegisterAuthRoutes(e, client)
	routes.RegisterPaymentRoutes(e, paymentController)
	routes.RegisterReimbursementRoutes(e, reimbursementController)
	routes.RegisterCredentialResetRoutes(e, resetController)
	routes.RegisterTreasurerRoutes(e, client, reconciliationController)

	// Initialize upload storage and serve proof files
	if err := utils.InitializeStorage(); err != nil {
		log.Fatalf("Failed to initialize upload storage: %v", err)
	}
	e.Static("/uploads", "uploads")

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Starting server on port %s", port)
	e.Logger.Fatal(e.Start(":" + port))
}
