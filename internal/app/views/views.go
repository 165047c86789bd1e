package views

import (
	"embed"
	"html/template"
	"io"
	"strings"

	"github.com/kalpovskii/nervetask/internal/app/models"
	"github.com/kalpovskii/nervetask/internal/app/services"
)

// Version is appended to asset URLs for cache busting.
const Version = "0.1.0"

const (
	TaskPageTemplate  = "task_page"
	TagEditorTemplate = "tag_editor"
)

//go:embed templates/*.html
var files embed.FS

// tagToggle is one label in the tag list. Editors get it wrapped in the
// link that opens the tag select.
type tagToggle struct {
	CanEdit bool
	Label   string
}

var funcs = template.FuncMap{
	"join": strings.Join,
	"toggle": func(canEdit bool, label string) tagToggle {
		return tagToggle{CanEdit: canEdit, Label: label}
	},
}

// Templates parses every page and fragment. The result is ready for
// gin.Engine.SetHTMLTemplate.
func Templates() *template.Template {
	return template.Must(template.New("").Funcs(funcs).ParseFS(files, "templates/*.html"))
}

type TaskPage struct {
	Task    *models.Task
	Classes []string
	Editor  *services.TagEditor
	Version string
}

func NewTaskPage(task *models.Task, classes []string, editor *services.TagEditor) TaskPage {
	return TaskPage{Task: task, Classes: classes, Editor: editor, Version: Version}
}

func RenderTagEditor(w io.Writer, editor *services.TagEditor) error {
	return Templates().ExecuteTemplate(w, TagEditorTemplate, editor)
}

func RenderTaskPage(w io.Writer, page TaskPage) error {
	return Templates().ExecuteTemplate(w, TaskPageTemplate, page)
}
