package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kalpovskii/nervetask/internal/app/models"
	"github.com/kalpovskii/nervetask/internal/app/repositories"
	"github.com/kalpovskii/nervetask/internal/app/services"
	"github.com/kalpovskii/nervetask/internal/app/views"
	"github.com/kalpovskii/nervetask/internal/logging"
)

const (
	viewerKey = "nervetask.viewer"
	storeKey  = "nervetask.store"

	// TokenCookie carries the viewer token for browser requests.
	TokenCookie = "nervetask_token"
)

type ViewerParser interface {
	ParseViewer(token string) (*models.Viewer, error)
}

type Handler struct {
	plugin        *services.Plugin
	tenants       repositories.TenantDirectory
	connector     repositories.TenantConnector
	viewers       ViewerParser
	defaultDomain string
}

func New(
	plugin *services.Plugin,
	tenants repositories.TenantDirectory,
	connector repositories.TenantConnector,
	viewers ViewerParser,
	defaultDomain string,
) *Handler {
	return &Handler{
		plugin:        plugin,
		tenants:       tenants,
		connector:     connector,
		viewers:       viewers,
		defaultDomain: defaultDomain,
	}
}

// Router builds the gin engine with every route registered.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.SetHTMLTemplate(views.Templates())
	h.Register(r)
	return r
}

func (h *Handler) Register(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.Use(h.Viewer())

	network := r.Group("/api/network")
	network.POST("/tenants", h.createTenant)
	network.PATCH("/tenants/:id", h.updateTenant)

	site := r.Group("/", h.Tenant())
	site.POST("/nervetask", h.submitForm)

	pages := site.Group("/tasks", h.Gate())
	pages.GET("/:id", h.taskPage)
	pages.GET("/:id/tag-editor", h.tagEditor)

	api := site.Group("/api")
	api.GET("/tasks", h.Gate(), h.listTasks)
	api.POST("/tasks", h.createTask)
	api.GET("/tasks/:id", h.Gate(), h.getTask)
	api.PUT("/tasks/:id", h.updateTask)
	api.DELETE("/tasks/:id", h.deleteTask)
	api.GET("/tasks/:id/revisions", h.Gate(), h.listRevisions)
	api.GET("/tasks/:id/terms/:axis", h.Gate(), h.getTerms)
	api.PUT("/tasks/:id/terms/:axis", h.setTerms)
	api.PUT("/tasks/:id/responsible", h.setResponsible)
	api.PUT("/settings/walled-garden", h.setWalledGarden)
}

func viewerFrom(c *gin.Context) *models.Viewer {
	if v, ok := c.Get(viewerKey); ok {
		if viewer, ok := v.(*models.Viewer); ok {
			return viewer
		}
	}
	return nil
}

func storeFrom(c *gin.Context) repositories.ContentStore {
	return c.MustGet(storeKey).(repositories.ContentStore)
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ID"})
		return 0, false
	}
	return id, true
}

// writeError maps service errors onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrInvalidToken), errors.Is(err, services.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrUnknownTaxonomy):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrRelationUnavailable), errors.Is(err, repositories.ErrTenantExists):
		status = http.StatusConflict
	case errors.Is(err, repositories.ErrNotProvisioned):
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		logging.Logger.Errorf("Event ID: HTTP_HANDLER_FAILED, Description: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
