package api

import (
	"net/http"
	"strings"

	"dragbox/file-manager/internal/service"
	"dragbox/file-manager/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// BlobServer answers requests made with a locally signed storage URL. Only the
// in-memory storage backend needs one; pass nil for S3.
type BlobServer interface {
	ServeBlob(w http.ResponseWriter, r *http.Request, objectKey string)
}

func SetupRoutes(
	router *gin.Engine,
	authService service.AuthService,
	fileService service.FileService,
	blobs BlobServer,
	cookieSecure bool,
) {
	authHandler := NewAuthHandler(authService, cookieSecure)
	fileHandler := NewFileHandler(fileService)

	router.Use(RequestIDMiddleware(), MetricsMiddleware(), SessionMiddleware(authService))

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/logout", authHandler.Logout)
	}

	// Signed URLs carry their own authorisation.
	if blobs != nil {
		serveBlob := func(c *gin.Context) {
			blobs.ServeBlob(c.Writer, c.Request, strings.TrimPrefix(c.Param("key"), "/"))
		}
		router.PUT(storage.BlobPathPrefix+"/*key", serveBlob)
		router.GET(storage.BlobPathPrefix+"/*key", serveBlob)
	}

	publicOnly := router.Group("")
	publicOnly.Use(PublicOnly())
	{
		publicOnly.GET("/", page("index.html"))
		publicOnly.GET(SignInPath, page("sign-in.html"))
		publicOnly.GET("/sign-up", page("sign-up.html"))
	}

	protected := router.Group("")
	protected.Use(RequireSession())
	{
		protected.GET(DashboardPath, page("dashboard.html"))

		protected.GET("/me", func(c *gin.Context) {
			userID, _ := getUserIDFromContext(c)
			c.JSON(http.StatusOK, gin.H{"userId": userID})
		})

		protected.GET("/files", fileHandler.ListFiles)
		protected.DELETE("/files", fileHandler.DeleteFiles)
		protected.GET("/file", fileHandler.GetFile)
		protected.POST("/upload-url", fileHandler.RequestUploadURL)
	}
}
