package apidocs

import (
	_ "embed"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed docs.html
var docsHTML []byte

//go:embed openapi.json
var openAPI []byte

// RegisterRoutes serves the reference page and the OpenAPI document. Neither touches any
// dependency, so /api/docs doubles as the container health probe.
func RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/docs", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", docsHTML)
	})
	rg.HEAD("/docs", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	rg.GET("/openapi.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", openAPI)
	})
}
