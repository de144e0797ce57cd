package main

import (
	"context"

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/issue-tracker-api/internal/config"
	"github.com/yukikurage/issue-tracker-api/internal/constants"
	"github.com/yukikurage/issue-tracker-api/internal/database"
	"github.com/yukikurage/issue-tracker-api/internal/handlers"
	"github.com/yukikurage/issue-tracker-api/internal/middleware"
	"github.com/yukikurage/issue-tracker-api/internal/repository"
	"github.com/yukikurage/issue-tracker-api/internal/respond"
	"github.com/yukikurage/issue-tracker-api/internal/services"
	"github.com/yukikurage/issue-tracker-api/internal/storage"
	"github.com/yukikurage/issue-tracker-api/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	logger.Init(cfg.LogLevel)

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	// Object storage for attachments
	store, err := storage.NewMinioStore(context.Background(), cfg)
	if err != nil {
		logger.Fatalf("Failed to connect to object storage: %v", err)
	}

	// Initialize Gin router
	r := gin.New()
	r.Use(logger.GinLogger(), logger.GinRecovery())

	// Setup session middleware with Redis
	redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
	sessionStore, err := redisStore.NewStore(
		10,        // Redis pool size
		"tcp",     // network type
		redisAddr, // Redis address from config
		"",        // username (empty for default user)
		"",        // password (empty = no password)
		[]byte(cfg.SessionSecret), // authentication key
	)
	if err != nil {
		logger.Fatalf("Failed to create Redis store: %v", err)
	}
	// Configure session options based on environment
	isProduction := cfg.GinMode == "release"
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   isProduction, // true in production (HTTPS), false in development
		SameSite: 2,            // SameSite=Lax (1=Strict, 2=Lax, 3=None)
	})
	r.Use(sessions.Sessions(constants.SessionCookieName, sessionStore))

	// Non-POST requests to mutating routes get the fixed invalid-method body.
	r.HandleMethodNotAllowed = true
	r.NoMethod(respond.InvalidMethod)

	// Repositories
	db := database.GetDB()
	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	deliverableRepo := repository.NewDeliverableRepository(db)
	ticketRepo := repository.NewTicketRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	attachmentRepo := repository.NewAttachmentRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	// Services
	activityService := services.NewActivityService(activityRepo)
	mailer := services.NewSMTPMailer(cfg)
	authService := services.NewAuthService(userRepo)
	projectService := services.NewProjectService(projectRepo, userRepo, store, activityService)
	deliverableService := services.NewDeliverableService(deliverableRepo, projectRepo, store, activityService)
	ticketService := services.NewTicketService(ticketRepo, deliverableRepo, projectRepo, userRepo, store, mailer, activityService)
	commentService := services.NewCommentService(commentRepo, ticketRepo, projectRepo, store, activityService)
	attachmentService := services.NewAttachmentService(attachmentRepo, commentRepo, ticketRepo, projectRepo, store, activityService, cfg)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	projectHandler := handlers.NewProjectHandler(projectService, deliverableService, activityService)
	deliverableHandler := handlers.NewDeliverableHandler(deliverableService, ticketService)
	ticketHandler := handlers.NewTicketHandler(ticketService, attachmentService)
	commentHandler := handlers.NewCommentHandler(commentService)
	attachmentHandler := handlers.NewAttachmentHandler(attachmentService)

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Issue Tracker API is running",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", middleware.RequireAuth(), authHandler.GetCurrentUser)
			auth.POST("/profile", middleware.RequireAuth(), authHandler.UpdateProfile)
			auth.GET("/messages", authHandler.Messages)
		}

		// Project routes (protected)
		projects := api.Group("/projects")
		projects.Use(middleware.RequireAuth())
		{
			projects.GET("", projectHandler.ListProjects)
			projects.POST("", projectHandler.CreateProject)
			projects.GET("/:id", middleware.RequireProjectAccess(), projectHandler.GetProject)
			projects.POST("/:id/update", middleware.RequireProjectAccess(), projectHandler.UpdateProject)
			projects.POST("/:id/delete", middleware.RequireProjectAccess(), projectHandler.DeleteProject)
			projects.GET("/:id/members", middleware.RequireProjectAccess(), projectHandler.ListMembers)
			projects.POST("/:id/members/add", middleware.RequireProjectAccess(), projectHandler.AddMember)
			projects.POST("/:id/members/remove", middleware.RequireProjectAccess(), projectHandler.RemoveMember)
			projects.POST("/:id/members/role", middleware.RequireProjectAccess(), projectHandler.ChangeMemberRole)
			projects.GET("/:id/activity", middleware.RequireProjectAccess(), projectHandler.Activity)
		}

		// Deliverable routes (protected; membership enforced in services)
		deliverables := api.Group("/deliverables")
		deliverables.Use(middleware.RequireAuth())
		{
			deliverables.POST("", deliverableHandler.CreateDeliverable)
			deliverables.GET("/:id", deliverableHandler.GetDeliverable)
			deliverables.POST("/:id/update", deliverableHandler.UpdateDeliverable)
			deliverables.POST("/:id/delete", deliverableHandler.DeleteDeliverable)
			deliverables.POST("/reorder", deliverableHandler.ReorderDeliverables)
		}

		// Ticket routes (protected)
		tickets := api.Group("/tickets")
		tickets.Use(middleware.RequireAuth())
		{
			tickets.POST("", ticketHandler.CreateTicket)
			tickets.POST("/reorder", ticketHandler.ReorderTickets)
			tickets.GET("/:id", middleware.RequireTicketAccess(), ticketHandler.GetTicket)
			tickets.POST("/:id/update", middleware.RequireTicketAccess(), ticketHandler.UpdateTicket)
			tickets.POST("/:id/status", middleware.RequireTicketAccess(), ticketHandler.ChangeStatus)
			tickets.POST("/:id/assign", middleware.RequireTicketAccess(), ticketHandler.AssignTicket)
			tickets.POST("/:id/move", middleware.RequireTicketAccess(), ticketHandler.MoveTicket)
			tickets.POST("/:id/delete", middleware.RequireTicketAccess(), ticketHandler.DeleteTicket)
			tickets.GET("/:id/comments", middleware.RequireTicketAccess(), commentHandler.ListComments)
		}

		// Comment routes (protected)
		comments := api.Group("/comments")
		comments.Use(middleware.RequireAuth())
		{
			comments.POST("", commentHandler.CreateComment)
			comments.POST("/:id/delete", commentHandler.DeleteComment)
		}

		// Attachment routes (protected)
		attachments := api.Group("/attachments")
		attachments.Use(middleware.RequireAuth())
		{
			attachments.POST("", attachmentHandler.Upload)
			attachments.GET("/:id", attachmentHandler.Download)
			attachments.POST("/:id/delete", attachmentHandler.Delete)
		}
	}

	// Start server
	logger.Info().Msg("Server starting on :8080")
	if err := r.Run(":8080"); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
