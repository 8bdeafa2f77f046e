package api

import (
	"errors"
	"log"
	"net/http"

	"dragbox/file-manager/internal/domain"
	"dragbox/file-manager/internal/service"

	"github.com/gin-gonic/gin"
)

// FileHandler serves the four file endpoints.
type FileHandler struct {
	fileService service.FileService
}

// NewFileHandler creates a new FileHandler.
func NewFileHandler(fileService service.FileService) *FileHandler {
	return &FileHandler{fileService: fileService}
}

// --- Request/Response Structs ---

type ListFilesResponse struct {
	Files []domain.FileRecord `json:"files"`
}

type UploadURLRequest struct {
	FileName string `json:"fileName" binding:"required"`
	FileType string `json:"fileType"`
}

type DeleteFilesRequest struct {
	FileKeys []string `json:"fileKeys"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// --- Handler Methods ---

// ListFiles godoc
// @Summary List my files
// @Description Lists every file under the caller's prefix, newest first, with signed read URLs.
// @Tags Files
// @Produce json
// @Success 200 {object} ListFilesResponse
// @Failure 500 {object} gin.H "Error listing files"
// @Router /files [get]
func (h *FileHandler) ListFiles(c *gin.Context) {
	userID, _ := getUserIDFromContext(c)

	files, err := h.fileService.ListFiles(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, "Error listing files", err)
		return
	}
	c.JSON(http.StatusOK, ListFilesResponse{Files: files})
}

// RequestUploadURL godoc
// @Summary Get a signed upload URL
// @Description Signs a PUT for uploads/{userId}/{fileName}. The client must send the same Content-Type.
// @Tags Files
// @Accept json
// @Produce json
// @Param body body UploadURLRequest true "File name and MIME type"
// @Success 200 {object} service.UploadURLResponse
// @Failure 400 {object} gin.H "Invalid file name"
// @Failure 500 {object} gin.H "Error generating upload URL"
// @Router /upload-url [post]
func (h *FileHandler) RequestUploadURL(c *gin.Context) {
	userID, _ := getUserIDFromContext(c)

	var req UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "File name is required")
		return
	}

	resp, err := h.fileService.RequestUploadURL(c.Request.Context(), userID, req.FileName, req.FileType)
	if err != nil {
		h.fail(c, "Error generating upload URL", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetFile godoc
// @Summary Describe one file
// @Tags Files
// @Produce json
// @Param fileKey query string true "Full object key"
// @Success 200 {object} domain.FileRecord
// @Failure 400 {object} gin.H "File key is required"
// @Failure 500 {object} gin.H "Error getting file details"
// @Router /file [get]
func (h *FileHandler) GetFile(c *gin.Context) {
	userID, _ := getUserIDFromContext(c)

	fileKey := c.Query("fileKey")
	if fileKey == "" {
		abortWithError(c, http.StatusBadRequest, "File key is required")
		return
	}

	rec, err := h.fileService.GetFile(c.Request.Context(), userID, fileKey)
	if err != nil {
		h.fail(c, "Error getting file details", err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// DeleteFiles godoc
// @Summary Delete files in one batch
// @Tags Files
// @Accept json
// @Produce json
// @Param body body DeleteFilesRequest true "Keys to delete"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} gin.H "No file keys"
// @Failure 500 {object} gin.H "Error deleting files"
// @Router /files [delete]
func (h *FileHandler) DeleteFiles(c *gin.Context) {
	userID, _ := getUserIDFromContext(c)

	var req DeleteFilesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.fileService.DeleteFiles(c.Request.Context(), userID, req.FileKeys); err != nil {
		h.fail(c, "Error deleting files", err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Files deleted successfully"})
}

// fail logs the cause and answers with a fixed message: 400 for bad input, 500 otherwise.
func (h *FileHandler) fail(c *gin.Context, message string, err error) {
	requestID := c.GetString(ContextRequestIDKey)
	if errors.Is(err, service.ErrInvalidRequest) {
		log.Printf("WARN: [%s] %s %s: %v", requestID, c.Request.Method, c.FullPath(), err)
		abortWithError(c, http.StatusBadRequest, message)
		return
	}
	log.Printf("ERROR: [%s] %s %s: %v", requestID, c.Request.Method, c.FullPath(), err)
	abortWithError(c, http.StatusInternalServerError, message)
}
