package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"stockreport/internal/apperror"

	"github.com/gin-gonic/gin"
)

// pages maps front-end routes onto the HTML files under the static directory.
var pages = map[string]string{
	"/":                        "index.html",
	"/index.html":              "index.html",
	"/register":                "register.html",
	"/register.html":           "register.html",
	"/official-entry":          "official-entry.html",
	"/official-entry.html":     "official-entry.html",
	"/reports-view":            "reports-view.html",
	"/reports-view.html":       "reports-view.html",
	"/forgot-password":         "forgot-password.html",
	"/forgot-password.html":    "forgot-password.html",
	"/reset-password.html":     "reset-password.html",
	"/product-management":      "product-management.html",
	"/product-management.html": "product-management.html",
}

// PageHandler serves the bundled front-end from a directory on disk.
type PageHandler struct {
	dir string
}

func NewPageHandler(dir string) *PageHandler {
	return &PageHandler{dir: dir}
}

func (h *PageHandler) RegisterRoutes(router *gin.RouterGroup) {
	for route, file := range pages {
		router.GET(route, h.serve(file))
	}
	router.Static("/assets", filepath.Join(h.dir, "assets"))
}

func (h *PageHandler) serve(file string) gin.HandlerFunc {
	path := filepath.Join(h.dir, file)
	return func(c *gin.Context) {
		c.File(path)
	}
}

// NotFound answers unknown API paths with the JSON envelope and anything else
// with the index page and a 404 status.
func (h *PageHandler) NotFound(c *gin.Context) {
	if h.dir == "" || strings.HasPrefix(c.Request.URL.Path, "/api/") {
		writeError(c, apperror.NotFound("Route not found"))
		return
	}
	body, err := os.ReadFile(filepath.Join(h.dir, "index.html"))
	if err != nil {
		writeError(c, apperror.NotFound("Page not found"))
		return
	}
	c.Data(http.StatusNotFound, "text/html; charset=utf-8", body)
}
