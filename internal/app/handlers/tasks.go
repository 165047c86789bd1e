package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kalpovskii/nervetask/internal/app/services"
)

func (h *Handler) listTasks(c *gin.Context) {
	tasks, err := h.plugin.Tasks.List(c.Request.Context(), storeFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *Handler) createTask(c *gin.Context) {
	var req services.TaskInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	task, err := h.plugin.Tasks.Create(c.Request.Context(), storeFrom(c), viewerFrom(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *Handler) getTask(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	task, err := h.plugin.Tasks.Get(c.Request.Context(), storeFrom(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *Handler) updateTask(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req services.TaskInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	task, err := h.plugin.Tasks.Update(c.Request.Context(), storeFrom(c), viewerFrom(c), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *Handler) deleteTask(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.plugin.Tasks.Delete(c.Request.Context(), storeFrom(c), viewerFrom(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) listRevisions(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	revisions, err := h.plugin.Tasks.Revisions(c.Request.Context(), storeFrom(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, revisions)
}

func (h *Handler) getTerms(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	terms, err := h.plugin.Tasks.Terms(c.Request.Context(), storeFrom(c), id, c.Param("axis"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, terms)
}

func (h *Handler) setTerms(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req struct {
		Names []string `json:"names"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	terms, err := h.plugin.Tasks.SetTerms(c.Request.Context(), storeFrom(c), viewerFrom(c), id, c.Param("axis"), req.Names)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, terms)
}

func (h *Handler) setResponsible(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req struct {
		UserID *int64 `json:"user_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	task, err := h.plugin.Tasks.SetResponsible(c.Request.Context(), storeFrom(c), viewerFrom(c), id, req.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *Handler) setWalledGarden(c *gin.Context) {
	var req struct {
		Enabled *bool `json:"enabled" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.plugin.Gate.SetWalledGarden(c.Request.Context(), storeFrom(c), viewerFrom(c), *req.Enabled); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"walled_garden": *req.Enabled})
}
