package services

import (
	"context"
	"fmt"

	"github.com/kalpovskii/nervetask/internal/app/models"
	"github.com/kalpovskii/nervetask/internal/app/repositories"
	"github.com/kalpovskii/nervetask/internal/logging"
)

// Event is one of the lifecycle callbacks the host layer invokes directly.
// The set is closed: InitEvent, NewTenantEvent and BeforeRenderEvent.
type Event interface {
	lifecycleEvent()
}

// InitEvent runs once per process start.
type InitEvent struct{}

// NewTenantEvent fires when a tenant is added to a running network.
type NewTenantEvent struct {
	TenantID int64
}

// BeforeRenderEvent runs before task content is rendered. Task may be nil
// when the page does not show a single task.
type BeforeRenderEvent struct {
	Store   repositories.ContentStore
	Viewer  *models.Viewer
	URL     string
	Task    *models.Task
	Classes []string
}

func (InitEvent) lifecycleEvent()         {}
func (NewTenantEvent) lifecycleEvent()    {}
func (BeforeRenderEvent) lifecycleEvent() {}

// Outcome is what a BeforeRenderEvent produced. Other events leave it empty.
type Outcome struct {
	Decision Decision
	Classes  []string
}

// Plugin bundles the services the host layer needs. Build one with NewPlugin
// and hand it to the transport.
type Plugin struct {
	Provisioner *Provisioner
	Gate        *AccessGate
	Tags        *TagService
	Tasks       *TaskService
}

func NewPlugin(provisioner *Provisioner, gate *AccessGate, tags *TagService, tasks *TaskService) *Plugin {
	return &Plugin{
		Provisioner: provisioner,
		Gate:        gate,
		Tags:        tags,
		Tasks:       tasks,
	}
}

func (p *Plugin) Handle(ctx context.Context, ev Event) (Outcome, error) {
	switch e := ev.(type) {
	case InitEvent:
		if err := models.ValidateDefinitions(); err != nil {
			return Outcome{}, fmt.Errorf("definitions: %w", err)
		}
		logging.Logger.Infof("Event ID: PLUGIN_INIT, Description: entity %s with %d taxonomies", models.TaskType, len(models.Taxonomies()))
		return Outcome{}, nil

	case NewTenantEvent:
		return Outcome{}, p.Provisioner.OnNewTenant(ctx, e.TenantID)

	case BeforeRenderEvent:
		decision, err := p.Gate.Enforce(ctx, e.Store, e.Viewer, e.URL)
		if err != nil {
			return Outcome{}, err
		}
		if decision.Redirect {
			return Outcome{Decision: decision}, nil
		}
		classes, err := PresentationTags(ctx, e.Store, e.Task, e.Classes)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Decision: decision, Classes: classes}, nil
	}
	return Outcome{}, fmt.Errorf("unsupported lifecycle event %T", ev)
}
