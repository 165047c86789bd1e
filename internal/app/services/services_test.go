package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/kalpovskii/nervetask/internal/app/models"
	"github.com/kalpovskii/nervetask/internal/app/repositories"
	"github.com/kalpovskii/nervetask/internal/kafka"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []kafka.Event
}

func (r *recordingPublisher) Publish(ctx context.Context, event kafka.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingPublisher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

// provisionedStore returns a handle on a freshly provisioned tenant.
func provisionedStore(t *testing.T, n *repositories.MemoryNetwork, tenantID int64) repositories.TenantHandle {
	t.Helper()
	ctx := context.Background()

	p := NewProvisioner(n, n, repositories.NewMemoryCache(), nil, StoreRelations{})
	h, err := n.Acquire(ctx, tenantID)
	require.NoError(t, err)
	require.NoError(t, p.ProvisionTenant(ctx, h))
	t.Cleanup(func() { h.Release() })
	return h
}

func createTask(t *testing.T, store repositories.ContentStore, title string) *models.Task {
	t.Helper()
	task := &models.Task{Title: title, AuthorID: 7}
	require.NoError(t, store.CreateTask(context.Background(), task))
	return task
}

func termNameSet(terms []models.Term) []string {
	out := make([]string, len(terms))
	for i, t := range terms {
		out[i] = t.Name
	}
	return out
}

var errBoom = errors.New("boom")

var (
	editor = &models.Viewer{UserID: 7, Email: "ed@example.com", Role: models.RoleEditor}
	reader = &models.Viewer{UserID: 8, Email: "sub@example.com", Role: models.RoleSubscriber}
	admin  = &models.Viewer{UserID: 1, Email: "root@example.com", Role: models.RoleAdministrator}
)
