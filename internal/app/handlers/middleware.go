package handlers

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kalpovskii/nervetask/internal/app/models"
	"github.com/kalpovskii/nervetask/internal/app/repositories"
	"github.com/kalpovskii/nervetask/internal/app/services"
	"github.com/kalpovskii/nervetask/internal/logging"
)

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logging.Logger.Infof("Event ID: HTTP_REQUEST, Description: %s %s %d %s",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// Viewer resolves the caller from a bearer token or the token cookie. A
// missing or invalid token leaves the request anonymous.
func (h *Handler) Viewer() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ""
		if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			token = strings.TrimPrefix(auth, "Bearer ")
		} else if cookie, err := c.Cookie(TokenCookie); err == nil {
			token = cookie
		}

		if token != "" {
			viewer, err := h.viewers.ParseViewer(token)
			if err != nil {
				logging.Logger.Debugf("Event ID: VIEWER_TOKEN_REJECTED, Description: %v", err)
			} else {
				c.Set(viewerKey, viewer)
			}
		}
		c.Next()
	}
}

// Tenant binds the request to the tenant serving its host and releases the
// handle once the rest of the chain returns.
func (h *Handler) Tenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenant, err := h.resolveTenant(c)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown site"})
				return
			}
			writeError(c, err)
			return
		}
		if !tenant.Active() {
			c.AbortWithStatusJSON(http.StatusGone, gin.H{"error": "site is not active"})
			return
		}

		handle, err := h.connector.Acquire(c.Request.Context(), tenant.ID)
		if err != nil {
			writeError(c, err)
			return
		}
		defer func() {
			if err := handle.Release(); err != nil {
				logging.Logger.Warnf("Event ID: TENANT_RELEASE_FAILED, Description: tenant %d: %v", tenant.ID, err)
			}
		}()

		c.Set(storeKey, repositories.ContentStore(handle))
		c.Next()
	}
}

func (h *Handler) resolveTenant(c *gin.Context) (*models.Tenant, error) {
	host := c.Request.Host
	if hostname, _, err := net.SplitHostPort(host); err == nil {
		host = hostname
	}

	tenant, err := h.tenants.TenantByDomain(c.Request.Context(), host)
	if errors.Is(err, repositories.ErrNotFound) && host != h.defaultDomain {
		return h.tenants.TenantByDomain(c.Request.Context(), h.defaultDomain)
	}
	return tenant, err
}

// Gate runs the walled-garden check before any content is rendered.
func (h *Handler) Gate() gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := h.plugin.Handle(c.Request.Context(), services.BeforeRenderEvent{
			Store:  storeFrom(c),
			Viewer: viewerFrom(c),
			URL:    c.Request.URL.RequestURI(),
		})
		if err != nil {
			writeError(c, err)
			return
		}
		if out.Decision.Redirect {
			c.Redirect(http.StatusFound, out.Decision.Location)
			c.Abort()
			return
		}
		c.Next()
	}
}
