package main

import (
	"context"
	"log"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"github.com/moyeo-app/moyeo/backend/internal/router"
	"github.com/moyeo-app/moyeo/backend/pkg/config"
	"github.com/moyeo-app/moyeo/backend/pkg/firebase"
	"github.com/moyeo-app/moyeo/backend/pkg/metrics"
	"github.com/moyeo-app/moyeo/backend/validators"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database connections
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize databases: %v", err)
	}
	defer db.CloseDB() // Ensure database connections are closed when main exits

	// Initialize Firebase; optional, local JWT auth works without it
	ctx := context.Background()
	firebaseApp, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}
	var authClient *auth.Client
	if firebaseApp != nil {
		authClient = firebaseApp.AuthClient
	}

	// Create Echo instance
	e := echo.New()

	// Setup global middleware
	router.SetupMiddleware(e)

	// Setup routes and dependencies
	router.SetupRoutes(e, cfg, db.Postgres, db.Mongo, authClient)

	// Validator
	e.Validator = validators.NewValidator()

	// Prometheus endpoint on its own port
	go metrics.Serve(cfg.MetricsPort)

	// Start server
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
