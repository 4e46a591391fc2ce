package main

import (
	"github.com/robfig/cron/v3"

	"github.com/ladybug-tracker/backend/internal/config"
	"github.com/ladybug-tracker/backend/internal/handlers"
	"github.com/ladybug-tracker/backend/internal/models"
	"github.com/ladybug-tracker/backend/internal/services"
	"github.com/ladybug-tracker/backend/internal/utils"
	"github.com/ladybug-tracker/backend/pkg/logger"
)

// appServices holds the initialized handlers and background schedulers.
type appServices struct {
	authHandler       *handlers.AuthHandler
	projectHandler    *handlers.ProjectHandler
	bugHandler        *handlers.BugHandler
	assignmentHandler *handlers.AssignmentHandler
	activityHandler   *handlers.ActivityHandler
	healthHandler     *handlers.HealthHandler
	tokenCleanup      *cron.Cron
}

// bootstrap wires the database, handlers and schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	db := models.GetDB()

	authService := services.NewAuthService(db, &cfg.JWT, &cfg.Auth)
	tokenCleanup := authService.StartRefreshTokenCleanup()

	return &appServices{
		authHandler:       handlers.NewAuthHandler(db, &cfg.JWT, &cfg.Auth),
		projectHandler:    handlers.NewProjectHandler(db),
		bugHandler:        handlers.NewBugHandler(db),
		assignmentHandler: handlers.NewAssignmentHandler(db),
		activityHandler:   handlers.NewActivityHandler(db),
		healthHandler:     handlers.NewHealthHandler(),
		tokenCleanup:      tokenCleanup,
	}
}

// shutdown stops the background schedulers.
func (s *appServices) shutdown() {
	if s.tokenCleanup != nil {
		s.tokenCleanup.Stop()
	}
	logger.Info().Msg("schedulers stopped")
}
