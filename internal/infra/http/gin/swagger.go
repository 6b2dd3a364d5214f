package ginserver

import (
	_ "embed"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"
)

//go:embed swagger/openapi.json
var openAPIDoc []byte

//go:embed swagger/index.html
var swaggerPage string

const openAPIPath = "/swagger/doc.json"

// registerSwaggerRoutes serves the OpenAPI document and a Swagger UI page reading it.
func registerSwaggerRoutes(router gin.IRoutes) {
	router.GET(openAPIPath, func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", openAPIDoc)
	})
	router.GET("/swagger", func(c *gin.Context) {
		page := strings.ReplaceAll(swaggerPage, "{{SPEC_URL}}", openAPIPath)
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
	})
}
