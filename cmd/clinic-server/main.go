package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/medrex/clinic-backend/internal/clinical"
	"github.com/medrex/clinic-backend/internal/iam"
	"github.com/medrex/clinic-backend/internal/notifications"
	"github.com/medrex/clinic-backend/internal/scheduling"
	"github.com/medrex/clinic-backend/internal/server"
	"github.com/medrex/clinic-backend/pkg/config"
	"github.com/medrex/clinic-backend/pkg/database"
	"github.com/medrex/clinic-backend/pkg/logger"
	"github.com/medrex/clinic-backend/pkg/monitoring"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.LogLevel)
	log.Info("Starting clinic backend")

	// Initialize database connection
	db, err := database.NewConnection(&cfg.Database, log)
	if err != nil {
		log.WithError(err).Error("Failed to connect to database")
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.CreateSchema(ctx); err != nil {
		cancel()
		log.WithError(err).Error("Failed to create database schema")
		os.Exit(1)
	}
	cancel()

	// Monitoring
	var metrics *monitoring.MetricsCollector
	if cfg.Monitoring.Enabled {
		metrics = monitoring.NewMetricsCollector("clinic-backend")
	}

	health := monitoring.NewHealthManager("clinic-backend", "1.0.0")
	health.RegisterChecker("database", monitoring.NewDatabaseHealthChecker(db.DB))

	// Repositories
	userRepo := iam.NewUserRepository(db, log)
	appointmentRepo := scheduling.NewAppointmentRepository(db, log)
	prescriptionRepo := clinical.NewPrescriptionRepository(db, log)
	reportRepo := clinical.NewReportRepository(db, log)
	notificationRepo := notifications.NewNotificationRepository(db, log)

	// Services
	notificationService := notifications.NewService(cfg, log, notificationRepo, userRepo, metrics)
	iamService := iam.NewService(cfg, log, userRepo)
	schedulingService := scheduling.NewService(cfg, log, appointmentRepo, userRepo, notificationService)
	clinicalService := clinical.NewService(cfg, log, prescriptionRepo, reportRepo, appointmentRepo, notificationService)

	// HTTP server
	audit := server.NewAuditRecorder(db, log)
	srv := server.New(cfg, log, metrics, health, audit,
		iamService,
		schedulingService,
		clinicalService,
		notificationService,
	)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("HTTP server failed")
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
		os.Exit(1)
	}

	log.Info("Server stopped")
}
