package main

import (
	"context"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"kingsbalfx_app/internal/config"
	"kingsbalfx_app/internal/handlers"
	"kingsbalfx_app/internal/logger"
	appMiddleware "kingsbalfx_app/internal/middleware"
	"kingsbalfx_app/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger.Init("server", cfg.Debug)

	// Firebase: auth endpoints degrade gracefully without it, webhooks
	// and the admin key surface keep working
	authClient, err := services.InitFirebase(context.Background(), cfg.FirebaseCredentialsPath)
	if err != nil {
		log.Warn().Err(err).Msg("firebase initialization failed, auth endpoints disabled")
	}

	db, err := services.InitDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := services.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to run database migrations")
	}

	cache, err := services.NewRedisCache(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer cache.Close()

	store := services.NewGormStore(db)
	emailSvc := services.NewEmailService(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password, cfg.SMTP.From)
	paystackSvc := services.NewPaystackService(cfg.Paystack.BaseURL, cfg.Paystack.SecretKey)
	paymentSvc := services.NewPaymentService(store, emailSvc, cfg.SMTP.OpsEmail)
	syncSvc := services.NewSyncService(store)

	authHandler := handlers.NewAuthHandler(authClient, store, cfg.Env == "production")
	webhookHandler := handlers.NewWebhookHandler(paymentSvc, cfg.Paystack.SecretKey)
	paymentHandler := handlers.NewPaymentHandler(paystackSvc, paymentSvc, cfg.SiteURL)
	adminHandler := handlers.NewAdminHandler(store, syncSvc, cache)
	userHandler := handlers.NewUserHandler(store, cache)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = appMiddleware.CustomErrorHandler
	e.Use(echoMiddleware.Recover())

	// Gateway callbacks, no session
	e.POST("/api/paystack/webhook", webhookHandler.HandlePaystackWebhook)
	e.GET("/api/paystack/verify", paymentHandler.VerifyPayment)

	// Session auth
	e.POST("/auth/login", authHandler.HandleLogin)
	e.POST("/auth/logout", authHandler.HandleLogout)

	protected := e.Group("/api")
	protected.Use(appMiddleware.RequireAuth(authClient))
	protected.POST("/paystack/init", paymentHandler.InitializePayment)
	protected.GET("/get-role", userHandler.GetRole)
	protected.POST("/admin/toggle-lifetime", adminHandler.ToggleLifetime)

	// Tier table is public; the checkout page reads it too
	e.GET("/api/bot/pricing-sync", adminHandler.GetPricing)

	// Machine-to-machine surface for the trading bot and ops tooling
	bot := e.Group("")
	bot.Use(appMiddleware.RequireAdminKey(cfg.AdminAPIKey))
	bot.POST("/api/admin/bot-control", adminHandler.BotControl)
	bot.POST("/api/bot/pricing-sync", adminHandler.PostPricingSync)

	log.Info().Str("port", cfg.Port).Msg("server starting")
	if err := e.Start(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
