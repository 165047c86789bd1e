package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kalpovskii/nervetask/internal/app/models"
	"github.com/kalpovskii/nervetask/internal/app/services"
	"github.com/kalpovskii/nervetask/internal/app/views"
)

// FormAction is the fixed action name the tag form posts.
const FormAction = "nervetask"

func (h *Handler) taskPage(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	store := storeFrom(c)
	viewer := viewerFrom(c)

	task, err := h.plugin.Tasks.Get(ctx, store, id)
	if err != nil {
		writeError(c, err)
		return
	}
	classes, err := services.PresentationTags(ctx, store, task, []string{models.TaskType, "type-" + models.TaskType})
	if err != nil {
		writeError(c, err)
		return
	}
	editor, err := h.plugin.Tags.Editor(ctx, store, id, viewer)
	if err != nil {
		writeError(c, err)
		return
	}

	c.HTML(http.StatusOK, views.TaskPageTemplate, views.NewTaskPage(task, classes, editor))
}

func (h *Handler) tagEditor(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	editor, err := h.plugin.Tags.Editor(c.Request.Context(), storeFrom(c), id, viewerFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.HTML(http.StatusOK, views.TagEditorTemplate, editor)
}

func (h *Handler) submitForm(c *gin.Context) {
	if c.PostForm("action") != FormAction || c.PostForm("controller") != services.UpdateTagsAction {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown form"})
		return
	}
	id, err := strconv.ParseInt(c.PostForm("post_id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ID"})
		return
	}

	_, err = h.plugin.Tags.Submit(
		c.Request.Context(),
		storeFrom(c),
		viewerFrom(c),
		id,
		c.PostFormArray("tags[]"),
		c.PostForm("security"),
	)
	if err != nil {
		writeError(c, err)
		return
	}

	if c.GetHeader("X-Requested-With") == "XMLHttpRequest" {
		c.Status(http.StatusNoContent)
		return
	}
	c.Redirect(http.StatusSeeOther, fmt.Sprintf("/tasks/%d", id))
}
