package main

import (
	"github.com/gin-gonic/gin"

	"github.com/ladybug-tracker/backend/internal/config"
	"github.com/ladybug-tracker/backend/internal/middleware"
	"github.com/ladybug-tracker/backend/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, cfg *config.Config, svc *appServices) {
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	// Credential endpoints share one per-IP limiter.
	authLimiter := middleware.NewRateLimiter(cfg.Auth.RateLimitRPS, cfg.Auth.RateLimitBurst)

	r.GET("/health", svc.healthHandler.CheckHealth)

	api := r.Group("/api")
	{
		// Public auth routes
		auth := api.Group("/auth", authLimiter.Middleware())
		{
			auth.POST("/register", svc.authHandler.Register)
			auth.POST("/login", svc.authHandler.Login)
			auth.POST("/refresh", svc.authHandler.Refresh)
		}

		// Project list answers differently for members, so auth is optional.
		api.GET("/projects", middleware.OptionalAuth(), svc.projectHandler.List)

		protected := api.Group("")
		protected.Use(middleware.AuthRequired())
		{
			// Auth
			protected.GET("/auth/me", svc.authHandler.Me)
			protected.PUT("/auth/me", svc.authHandler.UpdateProfile)
			protected.PUT("/auth/password", svc.authHandler.ChangePassword)
			protected.POST("/auth/logout", svc.authHandler.Logout)

			// Projects
			protected.POST("/projects", svc.projectHandler.Create)
			protected.GET("/projects/:id", svc.projectHandler.Get)
			protected.PUT("/projects/:id", svc.projectHandler.Update)
			protected.DELETE("/projects/:id", svc.projectHandler.Delete)
			protected.POST("/projects/:id/members", svc.projectHandler.AddMember)
			protected.DELETE("/projects/:id/members/:memberId", svc.projectHandler.RemoveMember)
			protected.POST("/projects/:id/join", svc.projectHandler.Join)
			protected.GET("/projects/:id/dashboard", svc.projectHandler.Dashboard)
			protected.GET("/projects/:id/activities", svc.activityHandler.ProjectFeed)

			// Bugs
			protected.GET("/bugs", svc.bugHandler.List)
			protected.POST("/bugs", svc.bugHandler.Create)
			protected.GET("/bugs/:id", svc.bugHandler.Get)
			protected.PUT("/bugs/:id", svc.bugHandler.Update)
			protected.DELETE("/bugs/:id", svc.bugHandler.Delete)
			protected.POST("/bugs/:id/assign", svc.bugHandler.Assign)
			protected.POST("/bugs/:id/self-assign", svc.bugHandler.SelfAssign)
			protected.PUT("/bugs/:id/status", svc.bugHandler.UpdateStatus)
			protected.POST("/bugs/:id/resolve", svc.bugHandler.Resolve)
			protected.POST("/bugs/:id/close", svc.bugHandler.Close)
			protected.GET("/bugs/:id/assignments", svc.assignmentHandler.History)

			// Assignments
			protected.GET("/assignments/my", svc.assignmentHandler.ListMine)
			protected.GET("/assignments/pending", svc.assignmentHandler.ListPending)
			protected.POST("/assignments/:id/accept", svc.assignmentHandler.Accept)
			protected.POST("/assignments/:id/reject", svc.assignmentHandler.Reject)

			// Activities
			protected.GET("/activities/my", svc.activityHandler.MyFeed)
			protected.GET("/activities/my/stats", svc.activityHandler.MyStats)
		}
	}
}
