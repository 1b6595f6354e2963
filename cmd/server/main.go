package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"eventreg_app/internal/handlers"
	appMiddleware "eventreg_app/internal/middleware"
	"eventreg_app/internal/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	// Initialize Firebase
	credPath := os.Getenv("FIREBASE_CREDENTIALS_PATH")
	if credPath == "" {
		credPath = "./firebase-service-account.json"
	}

	authClient, err := services.InitFirebase(credPath)
	if err != nil {
		log.Printf("Warning: Firebase initialization failed: %v", err)
		log.Println("Auth features will not work until valid credentials are provided")
	}

	// Initialize Database
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	db, err := services.InitDB(databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run auto-migration
	if err := services.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Redis is optional: analytics fall back to the database and realtime
	// notification fan-out is skipped without it
	var cache *services.RedisCache
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cache, err = services.NewRedisCache(redisURL)
		if err != nil {
			log.Printf("Warning: Redis initialization failed: %v", err)
			cache = nil
		}
	} else {
		log.Println("Warning: REDIS_URL not set, caching and realtime notifications disabled")
	}

	// Initialize services
	notifier := services.NewNotifier(db, cache)
	planService := services.NewPlanService(db)
	billingService := services.NewBillingService(db, notifier)
	lateFeeService := services.NewLateFeeService(db, notifier)
	analyticsService := services.NewAnalyticsService(db, cache)
	pixService := services.NewPIXService(db, billingService)
	cardService := services.NewCardService(db, billingService)

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.Validator = handlers.NewValidator()
	e.HTTPErrorHandler = appMiddleware.CustomErrorHandler

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(db, authClient)
	eventHandler := handlers.NewEventHandler(db)
	groupHandler := handlers.NewGroupHandler(db)
	planHandler := handlers.NewPlanHandler(db, planService)
	registrationHandler := handlers.NewRegistrationHandler(db, planService)
	installmentHandler := handlers.NewInstallmentHandler(db, billingService, lateFeeService)
	analyticsHandler := handlers.NewAnalyticsHandler(db, analyticsService)
	pixHandler := handlers.NewPIXHandler(pixService)
	cardHandler := handlers.NewCardHandler(cardService)
	notificationHandler := handlers.NewNotificationHandler(db)

	// Public routes
	e.POST("/api/auth/login", authHandler.HandleLogin)
	e.POST("/api/auth/logout", authHandler.HandleLogout)

	// Gateway webhooks are authenticated by the provider, not by a session
	e.POST("/api/webhooks/pix", pixHandler.Webhook)
	e.POST("/api/webhooks/card", cardHandler.Webhook)

	// Protected API
	api := e.Group("/api")
	api.Use(appMiddleware.RequireAuth(authClient))

	api.GET("/auth/me", authHandler.Me)

	// Events
	api.POST("/events", eventHandler.Create)
	api.GET("/events", eventHandler.List)
	api.GET("/events/:id", eventHandler.Get)

	// Groups
	api.POST("/events/:id/groups", groupHandler.Create)
	api.GET("/events/:id/groups", groupHandler.List)
	api.PUT("/groups/:id/manager", groupHandler.AssignManager)

	// Payment plans
	api.POST("/events/:id/payment-plans", planHandler.Create)
	api.GET("/events/:id/payment-plans", planHandler.List)
	api.PUT("/payment-plans/:id", planHandler.Update)
	api.POST("/payment-plans/:id/deactivate", planHandler.Deactivate)

	// Registrations and installments
	api.POST("/events/:id/registrations", registrationHandler.Create)
	api.GET("/registrations/:id", registrationHandler.Get)
	api.GET("/registrations/:id/installments", installmentHandler.ListByRegistration)

	api.POST("/installments/:id/payment", installmentHandler.ProcessPayment)
	api.POST("/installments/:id/discount", installmentHandler.ApplyDiscount)
	api.POST("/installments/:id/late-fee", installmentHandler.ApplyLateFee)
	api.POST("/installments/:id/waive", installmentHandler.Waive)
	api.POST("/installments/:id/cancel", installmentHandler.Cancel)

	api.GET("/overdue-installments", installmentHandler.ListOverdue)
	api.POST("/recalculate-late-fees", installmentHandler.RecalculateLateFees)

	// Analytics
	api.GET("/events/:id/payment-analytics", analyticsHandler.EventAnalytics)
	api.GET("/events/:id/payment-report", analyticsHandler.EventReport)
	api.GET("/groups/:id/payment-analytics", analyticsHandler.GroupAnalytics)
	api.GET("/registrations/:id/payment-analytics", analyticsHandler.RegistrationAnalytics)

	// PIX charges
	api.POST("/installments/:id/pix", pixHandler.CreateCharge)
	api.GET("/pix/:txid", pixHandler.GetCharge)
	api.POST("/pix/:txid/simulate-pay", pixHandler.SimulatePay)

	// Card intents
	api.POST("/installments/:id/card-intent", cardHandler.CreateIntent)

	// Notifications
	api.GET("/notifications", notificationHandler.List)
	api.POST("/notifications/:id/read", notificationHandler.MarkRead)
	api.GET("/notifications/preference", notificationHandler.GetPreference)
	api.PUT("/notifications/preference", notificationHandler.UpdatePreference)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	e.Logger.Fatal(e.Start(":" + port))
}
