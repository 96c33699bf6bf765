package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/example/barbershop/internal/config"
	"github.com/example/barbershop/internal/database"
	"github.com/example/barbershop/internal/logging"
	"github.com/example/barbershop/internal/routes"
	"github.com/example/barbershop/internal/services"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.IsDevelopment(), cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger setup failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("database setup failed", zap.Error(err))
	}

	if admin, err := database.SeedAdmin(db, cfg.AdminName, cfg.AdminPhone, cfg.AdminPassword); err != nil {
		logger.Fatal("admin seed failed", zap.Error(err))
	} else if admin != nil {
		logger.Info("admin account ready", zap.String("phone", admin.Phone))
	}

	deps := routes.Dependencies{
		DB:        db,
		Config:    cfg,
		Log:       logger,
		Notifier:  services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat, logger).WithLocation(cfg.Location()),
		Uploader:  services.NewUploadService(cfg.MediaUploadURL, cfg.MediaUploadPreset, cfg.UploadTimeout, logger),
		Location:  cfg.Location(),
		AccessLog: true,
	}

	if cfg.GeminiAPIKey != "" {
		model, err := services.NewGeminiModel(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Fatal("gemini client setup failed", zap.Error(err))
		}
		defer model.Close()
		deps.ChatModel = model
	} else {
		logger.Warn("GEMINI_API_KEY is not set, chat endpoints are disabled")
	}

	app := routes.NewApp(deps)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("starting server", zap.String("port", cfg.AppPort))
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		logger.Fatal("fiber.Listen error", zap.Error(err))
	}
}
