package api

import (
	"embed"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed web/*.html
var pageFS embed.FS

// page serves one of the embedded entry pages. The pages are thin shells around the
// JSON API; rendering is not this service's concern.
func page(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := pageFS.ReadFile("web/" + name)
		if err != nil {
			abortWithError(c, http.StatusNotFound, "Page not found")
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", data)
	}
}
