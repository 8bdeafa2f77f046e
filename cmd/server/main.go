package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dragbox/file-manager/internal/api"
	"dragbox/file-manager/internal/config"
	"dragbox/file-manager/internal/repository/mongo"
	"dragbox/file-manager/internal/service"
	"dragbox/file-manager/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spf13/pflag"
)

// @title Dragbox File Manager API
// @version 1.0
// @description Per-user file storage: signed upload URLs, listing, single-file lookup and batch delete.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	configPath := pflag.String("config", ".", "directory containing config.yaml")
	pflag.Parse()

	log.Println("Starting Dragbox server...")

	// --- Configuration ---
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}
	log.Println("Configuration loaded.")

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to MongoDB: %v", err)
	}
	defer func() {
		log.Println("Disconnecting MongoDB...")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.Printf("ERROR: Failed to disconnect MongoDB: %v", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	log.Println("Database connection established.")

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		mongo.EnsureUserIndexes(ctx, appDB.Collection(mongo.UserCollectionName))
		log.Println("Index creation process completed.")
	}()

	// --- Initialize Storage ---
	log.Printf("Initializing %s file storage...", cfg.Storage.Backend)
	var (
		fileStorage storage.FileStorage
		blobs       api.BlobServer
	)
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		secret := cfg.Storage.SigningSecret
		if secret == "" {
			secret = uuid.NewString()
			log.Println("WARN: storage.signing_secret not set; signed URLs will not survive a restart")
		}
		mem := storage.NewMemoryStorage(cfg.Storage.PublicURL, secret, cfg.Storage.PageSize)
		fileStorage, blobs = mem, mem
		log.Println("WARN: Using in-memory storage; files are lost on shutdown")
	default:
		initCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		fileStorage, err = storage.NewS3Storage(initCtx, cfg.S3, cfg.Storage.PageSize)
		cancel()
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize S3 storage: %v", err)
		}
	}
	gateway := storage.NewGateway(fileStorage, cfg.Storage.RootPrefix, cfg.Storage.UploadURLExpiry)

	// --- Initialize Services ---
	log.Println("Initializing services...")
	userRepo := mongo.NewMongoUserRepository(appDB)
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	fileService := service.NewFileService(gateway)

	router := gin.Default() // Includes Logger and Recovery middleware

	// --- Setup Routes ---
	api.SetupRoutes(router, authService, fileService, blobs, cfg.Server.CookieSecure)

	// --- Start HTTP Server ---
	server := newHTTPServer(cfg.Server.Address, router, blobs != nil)

	log.Printf("Server starting on %s", cfg.Server.Address)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: ListenAndServe Error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("FATAL: Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}
