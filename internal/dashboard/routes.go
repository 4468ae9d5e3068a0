package dashboard

import (
	"errors"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nbousseta/atelier/internal/workflow"
	"gorm.io/gorm"
)

// registerRoutes sets up all dashboard routes on the Gin router.
func registerRoutes(router *gin.Engine, db *gorm.DB) {
	// Embedded static assets (served from assets/ subdir of the embed.FS).
	staticFS, _ := fs.Sub(assetsFS, "assets")
	router.StaticFS("/static", http.FS(staticFS))

	// Pages.
	router.GET("/", handleIndex(db))
	router.GET("/workflows", handleWorkflowList(db))
	router.GET("/workflows/:id", handleWorkflowDetail(db))
	router.GET("/templates", handleTemplateList(db))
	router.GET("/resources", handleResourceList(db))

	// SSE endpoint.
	router.GET("/api/events", handleSSE(db))
}

func handleIndex(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := Overview(db)
		if err != nil {
			c.HTML(http.StatusInternalServerError, "layout.html", gin.H{
				"page": "error", "error": err.Error(),
			})
			return
		}
		c.HTML(http.StatusOK, "layout.html", gin.H{
			"page":  "dashboard",
			"stats": stats,
		})
	}
}

func handleWorkflowList(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		result := WorkflowList(db, c.Query("status"), c.Query("priority"))
		c.HTML(http.StatusOK, "layout.html", gin.H{
			"page":     "workflows",
			"result":   result,
			"status":   c.Query("status"),
			"priority": c.Query("priority"),
		})
	}
}

func handleWorkflowDetail(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		detail, err := GetWorkflowDetail(db, c.Param("id"))
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, workflow.ErrNotFound) {
				status = http.StatusNotFound
			}
			c.HTML(status, "layout.html", gin.H{
				"page": "error", "error": err.Error(),
			})
			return
		}
		c.HTML(http.StatusOK, "layout.html", gin.H{
			"page":     "workflow-detail",
			"workflow": detail,
		})
	}
}

func handleTemplateList(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		templates, err := TemplateList(db)
		if err != nil {
			c.HTML(http.StatusInternalServerError, "layout.html", gin.H{
				"page": "error", "error": err.Error(),
			})
			return
		}
		c.HTML(http.StatusOK, "layout.html", gin.H{
			"page":      "templates",
			"templates": templates,
		})
	}
}

func handleResourceList(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		resources, err := ResourceList(db, c.Query("type"))
		if err != nil {
			c.HTML(http.StatusInternalServerError, "layout.html", gin.H{
				"page": "error", "error": err.Error(),
			})
			return
		}
		c.HTML(http.StatusOK, "layout.html", gin.H{
			"page":      "resources",
			"resources": resources,
			"type":      c.Query("type"),
		})
	}
}
