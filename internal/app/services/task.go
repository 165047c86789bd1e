package services

import (
	"context"
	"fmt"
	"time"

	"github.com/kalpovskii/nervetask/internal/app/models"
	"github.com/kalpovskii/nervetask/internal/app/repositories"
	"github.com/kalpovskii/nervetask/internal/kafka"
)

const (
	taskListTTL = 15 * time.Second
)

type TaskInput struct {
	Title     string            `json:"title" binding:"required"`
	Content   string            `json:"content"`
	Excerpt   string            `json:"excerpt"`
	DueDate   *time.Time        `json:"due_date"`
	Meta      map[string]string `json:"meta"`
	MenuOrder int               `json:"menu_order"`
}

type TaskService struct {
	cache     repositories.Cache
	events    EventPublisher
	relations RelationManager
}

func NewTaskService(cache repositories.Cache, events EventPublisher, relations RelationManager) *TaskService {
	return &TaskService{
		cache:     cache,
		events:    publisherOrNop(events),
		relations: relations,
	}
}

func (s *TaskService) Create(ctx context.Context, store repositories.ContentStore, author *models.Viewer, in TaskInput) (*models.Task, error) {
	if !author.CanEditTasks() {
		return nil, ErrForbidden
	}

	task := &models.Task{
		Title:     in.Title,
		Content:   in.Content,
		Excerpt:   in.Excerpt,
		AuthorID:  author.ID(),
		DueDate:   in.DueDate,
		Meta:      in.Meta,
		MenuOrder: in.MenuOrder,
	}
	if err := store.CreateTask(ctx, task); err != nil {
		return nil, err
	}

	_ = s.cache.DeleteTaskList(ctx, store.TenantID())
	return task, nil
}

func (s *TaskService) List(ctx context.Context, store repositories.ContentStore) ([]models.Task, error) {
	tenantID := store.TenantID()
	if tasks, err := s.cache.GetTaskList(ctx, tenantID); err == nil && tasks != nil {
		return tasks, nil
	}

	tasks, err := store.ListTasks(ctx)
	if err != nil {
		return nil, err
	}

	_ = s.cache.SetTaskList(ctx, tenantID, tasks, taskListTTL)
	return tasks, nil
}

func (s *TaskService) Get(ctx context.Context, store repositories.ContentStore, id int64) (*models.Task, error) {
	return store.GetTask(ctx, id)
}

// Update overwrites the editable fields. The store keeps the previous version
// as a revision.
func (s *TaskService) Update(ctx context.Context, store repositories.ContentStore, viewer *models.Viewer, id int64, in TaskInput) (*models.Task, error) {
	if !viewer.CanEditTasks() {
		return nil, ErrForbidden
	}

	task, err := store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	task.Title = in.Title
	task.Content = in.Content
	task.Excerpt = in.Excerpt
	task.DueDate = in.DueDate
	task.Meta = in.Meta
	task.MenuOrder = in.MenuOrder

	if err := store.UpdateTask(ctx, task); err != nil {
		return nil, err
	}

	_ = s.cache.DeleteTaskList(ctx, store.TenantID())
	return task, nil
}

func (s *TaskService) Delete(ctx context.Context, store repositories.ContentStore, viewer *models.Viewer, id int64) error {
	if !viewer.CanEditTasks() {
		return ErrForbidden
	}
	if err := store.DeleteTask(ctx, id); err != nil {
		return err
	}

	_ = s.cache.DeleteTaskList(ctx, store.TenantID())
	return nil
}

func (s *TaskService) Revisions(ctx context.Context, store repositories.ContentStore, id int64) ([]models.Revision, error) {
	if _, err := store.GetTask(ctx, id); err != nil {
		return nil, err
	}
	return store.Revisions(ctx, id)
}

func (s *TaskService) Terms(ctx context.Context, store repositories.ContentStore, id int64, axis string) ([]models.Term, error) {
	tax, ok := models.TaxonomyByAxis(axis)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTaxonomy, axis)
	}
	return store.TaskTerms(ctx, id, tax.Name)
}

// SetTerms replaces the task's terms on one axis with names.
func (s *TaskService) SetTerms(ctx context.Context, store repositories.ContentStore, viewer *models.Viewer, id int64, axis string, names []string) ([]models.Term, error) {
	if !viewer.CanEditTasks() {
		return nil, ErrForbidden
	}
	tax, ok := models.TaxonomyByAxis(axis)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTaxonomy, axis)
	}

	terms, err := store.AssignTermsByName(ctx, id, tax.Name, names)
	if err != nil {
		return nil, err
	}
	_ = s.cache.DeleteTerms(ctx, store.TenantID(), tax.Name)

	event := kafka.NewEvent(kafka.EventTaskTermsUpdated, store.TenantID())
	event.TaskID = id
	event.Detail = tax.Axis + ": " + termNames(terms)
	s.events.Publish(ctx, event)
	return terms, nil
}

func (s *TaskService) SetResponsible(ctx context.Context, store repositories.ContentStore, viewer *models.Viewer, id int64, userID *int64) (*models.Task, error) {
	if !viewer.CanEditTasks() {
		return nil, ErrForbidden
	}
	if s.relations == nil {
		return nil, ErrRelationUnavailable
	}

	if err := s.relations.Connect(ctx, store, models.ResponsibleRelation(), id, userID); err != nil {
		return nil, err
	}
	_ = s.cache.DeleteTaskList(ctx, store.TenantID())
	return store.GetTask(ctx, id)
}
