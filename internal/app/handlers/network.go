package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kalpovskii/nervetask/internal/app/models"
	"github.com/kalpovskii/nervetask/internal/app/services"
	"github.com/kalpovskii/nervetask/internal/logging"
)

func (h *Handler) createTenant(c *gin.Context) {
	if !viewerFrom(c).IsAdministrator() {
		writeError(c, services.ErrForbidden)
		return
	}
	var req struct {
		Domain string `json:"domain" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	tenant, err := h.tenants.CreateTenant(ctx, strings.ToLower(strings.TrimSpace(req.Domain)))
	if err != nil {
		writeError(c, err)
		return
	}

	if _, err := h.plugin.Handle(ctx, services.NewTenantEvent{TenantID: tenant.ID}); err != nil {
		logging.Logger.Errorf("Event ID: NEW_TENANT_PROVISION_FAILED, Description: tenant %d: %v", tenant.ID, err)
		c.JSON(http.StatusAccepted, gin.H{"tenant": tenant, "error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"tenant": tenant})
}

func (h *Handler) updateTenant(c *gin.Context) {
	if !viewerFrom(c).IsAdministrator() {
		writeError(c, services.ErrForbidden)
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ID"})
		return
	}
	var flags models.TenantFlags
	if err := c.ShouldBindJSON(&flags); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tenant, err := h.tenants.UpdateTenantFlags(c.Request.Context(), id, flags)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tenant": tenant})
}
