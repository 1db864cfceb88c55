package router

import (
	"log"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/moyeo-app/moyeo/backend/internal/blocking"
	"github.com/moyeo-app/moyeo/backend/internal/chat"
	"github.com/moyeo-app/moyeo/backend/internal/handlers"
	"github.com/moyeo-app/moyeo/backend/internal/middleware"
	"github.com/moyeo-app/moyeo/backend/internal/models"
	"github.com/moyeo-app/moyeo/backend/internal/notifications"
	"github.com/moyeo-app/moyeo/backend/internal/repositories"
	"github.com/moyeo-app/moyeo/backend/internal/security"
	"github.com/moyeo-app/moyeo/backend/pkg/config"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.Logger())
	e.Use(eMiddleware.CORS())
	log.Println("Global middleware configured.")
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, cfg *config.Config, pgdb *gorm.DB, mgClient *mongo.Client, firebaseAuthClient *auth.Client) {
	// AutoMigrate PostgreSQL models
	err := pgdb.AutoMigrate(
		&models.User{},
		&models.BlockEdge{},
		&models.Notification{},
		&models.LoginActivity{},
	)
	if err != nil {
		log.Fatalf("Failed to auto migrate models: %v", err)
	}
	log.Println("PostgreSQL auto-migrations completed for all models.")

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	mongoDB := mgClient.Database("moyeo")

	// --- Initialize Repositories ---
	userRepo := repositories.NewPostgresUserRepository(pgdb)
	blockRepo := repositories.NewPostgresBlockRepository(pgdb)
	notificationRepo := repositories.NewPostgresNotificationRepository(pgdb)
	activityRepo := repositories.NewPostgresLoginActivityRepository(pgdb)
	roomRepo := repositories.NewMongoRoomRepository(mongoDB)
	messageRepo := repositories.NewMongoMessageRepository(mongoDB)
	reportRepo := repositories.NewMongoReportRepository(mongoDB)

	// --- Core services ---
	resolver := blocking.NewResolver(blockRepo)
	hub := chat.NewHub()
	registry := chat.NewRegistry(roomRepo, userRepo, resolver, cfg.RoomMemberLimit)
	pipeline := chat.NewPipeline(registry, roomRepo, messageRepo, userRepo, hub, cfg.ChatHistoryLimit)
	sessions := chat.NewSessionManager(hub, registry, pipeline)

	notificationSvc := notifications.NewService(notificationRepo, hub)
	notificationSvc.BindReplySender(pipeline)
	pipeline.BindNotifier(notificationSvc)

	securitySvc := security.NewService(activityRepo, notificationSvc)

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/api/v1/auth")
	authHandler := handlers.NewAuthHandler(userRepo, firebaseAuthClient, securitySvc)
	authHandler.RegisterAuthRoutes(authGroup)
	log.Println("Auth routes configured.")

	// Live channel; the handshake carries its own credential
	wsHandler := handlers.NewWSHandler(hub, sessions)
	e.GET("/ws", wsHandler.Serve)
	log.Println("Websocket route configured.")

	// --- Protected routes (require JWT authentication) ---
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware())
	log.Println("JWT authentication middleware applied to /api/v1 group.")

	// User routes
	userHandler := handlers.NewUserHandler(userRepo, blockRepo, resolver, securitySvc)
	userHandler.RegisterUserRoutes(api.Group("/users"))
	log.Println("User routes configured.")

	// Chat routes
	chatHandler := handlers.NewChatHandler(registry, pipeline, userRepo, messageRepo, reportRepo, resolver)
	chatHandler.RegisterChatRoutes(api.Group("/chat"))
	log.Println("Chat routes configured.")

	// Notification routes
	notificationHandler := handlers.NewNotificationHandler(notificationSvc)
	notificationHandler.RegisterNotificationRoutes(api.Group("/notifications"))
	log.Println("Notification routes configured.")

	log.Println("All routes configured.")
}
