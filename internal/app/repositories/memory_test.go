package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kalpovskii/nervetask/internal/app/models"
)

func acquireProvisioned(t *testing.T, n *MemoryNetwork, tenantID int64) TenantHandle {
	t.Helper()
	h, err := n.Acquire(context.Background(), tenantID)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := h.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	t.Cleanup(func() { h.Release() })
	return h
}

func TestMemoryStoreRequiresSchema(t *testing.T) {
	n := NewMemoryNetwork()
	h, _ := n.Acquire(context.Background(), 1)
	defer h.Release()

	if _, err := h.ListTasks(context.Background()); !errors.Is(err, ErrNotProvisioned) {
		t.Fatalf("expected ErrNotProvisioned, got %v", err)
	}
}

func TestMemoryNetworkHandles(t *testing.T) {
	n := NewMemoryNetwork()
	h, _ := n.Acquire(context.Background(), 1)
	if n.OpenHandles() != 1 {
		t.Fatalf("expected 1 open handle, got %d", n.OpenHandles())
	}
	h.Release()
	h.Release()
	if n.OpenHandles() != 0 {
		t.Fatalf("expected 0 open handles, got %d", n.OpenHandles())
	}
}

func TestMemoryNetworkActiveTenants(t *testing.T) {
	ctx := context.Background()
	n := NewMemoryNetwork()
	a, _ := n.CreateTenant(ctx, "a.example")
	b, _ := n.CreateTenant(ctx, "b.example")
	n.CreateTenant(ctx, "c.example")

	if _, err := n.CreateTenant(ctx, "a.example"); !errors.Is(err, ErrTenantExists) {
		t.Fatalf("expected ErrTenantExists, got %v", err)
	}

	yes := true
	n.UpdateTenantFlags(ctx, b.ID, models.TenantFlags{Archived: &yes})

	active, _ := n.ActiveTenants(ctx)
	if len(active) != 2 || active[0].ID != a.ID || active[1].Domain != "c.example" {
		t.Fatalf("unexpected active tenants: %+v", active)
	}

	again, _ := n.EnsureTenant(ctx, "a.example")
	if again.ID != a.ID {
		t.Fatalf("EnsureTenant created a duplicate: %d != %d", again.ID, a.ID)
	}
}

func TestMemoryStoreAssignTermsReplacesSet(t *testing.T) {
	ctx := context.Background()
	n := NewMemoryNetwork()
	s := acquireProvisioned(t, n, 1)

	task := &models.Task{Title: "write docs", AuthorID: 1}
	if err := s.CreateTask(ctx, task); err != nil {
		t.Fatalf("create: %v", err)
	}

	s.AssignTermsByName(ctx, task.ID, models.TaxonomyTags, []string{"old", "stale"})
	s.AssignTermsByName(ctx, task.ID, models.TaxonomyStatus, []string{"Done"})

	terms, err := s.AssignTermsByName(ctx, task.ID, models.TaxonomyTags, []string{"alpha", " beta ", "Alpha", ""})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if len(terms) != 2 {
		t.Fatalf("expected 2 terms, got %+v", terms)
	}

	tags, _ := s.TaskTerms(ctx, task.ID, models.TaxonomyTags)
	if len(tags) != 2 || tags[0].Name != "alpha" || tags[1].Name != "beta" {
		t.Fatalf("unexpected tags: %+v", tags)
	}

	status, _ := s.TaskTerms(ctx, task.ID, models.TaxonomyStatus)
	if len(status) != 1 || status[0].Slug != "done" {
		t.Fatalf("status assignment touched: %+v", status)
	}

	vocabulary, _ := s.Terms(ctx, models.TaxonomyTags)
	if len(vocabulary) != 4 || vocabulary[0].Slug != "alpha" || vocabulary[3].Slug != "stale" {
		t.Fatalf("orphan terms must persist in slug order: %+v", vocabulary)
	}

	if _, err := s.AssignTermsByName(ctx, 999, models.TaxonomyTags, []string{"x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreRevisions(t *testing.T) {
	ctx := context.Background()
	s := acquireProvisioned(t, NewMemoryNetwork(), 1)

	task := &models.Task{Title: "v1", Content: "first", AuthorID: 7}
	s.CreateTask(ctx, task)

	task.Title = "v2"
	task.AuthorID = 99
	if err := s.UpdateTask(ctx, task); err != nil {
		t.Fatalf("update: %v", err)
	}

	revisions, _ := s.Revisions(ctx, task.ID)
	if len(revisions) != 1 || revisions[0].Title != "v1" {
		t.Fatalf("unexpected revisions: %+v", revisions)
	}

	got, _ := s.GetTask(ctx, task.ID)
	if got.Title != "v2" || got.AuthorID != 7 {
		t.Fatalf("unexpected task after update: %+v", got)
	}
}

func TestMemoryCacheClaim(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	now := time.Now()
	c.now = func() time.Time { return now }

	first, _ := c.Claim(ctx, "k", time.Minute)
	second, _ := c.Claim(ctx, "k", time.Minute)
	if !first || second {
		t.Fatalf("claim must succeed once: %v %v", first, second)
	}

	now = now.Add(2 * time.Minute)
	third, _ := c.Claim(ctx, "k", time.Minute)
	if !third {
		t.Fatal("claim must be available after expiry")
	}

	if err := c.Release(ctx, "k"); err != nil {
		t.Fatalf("release: %v", err)
	}
	fourth, _ := c.Claim(ctx, "k", time.Minute)
	if !fourth {
		t.Fatal("claim must be available after release")
	}
}

func TestMemoryCacheDistinguishesMissFromEmpty(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	miss, _ := c.GetTerms(ctx, 1, models.TaxonomyTags)
	if miss != nil {
		t.Fatal("expected nil on miss")
	}

	c.SetTerms(ctx, 1, models.TaxonomyTags, nil, time.Minute)
	hit, _ := c.GetTerms(ctx, 1, models.TaxonomyTags)
	if hit == nil || len(hit) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", hit)
	}
}

func TestSchemaName(t *testing.T) {
	if got := SchemaName(12); got != "tenant_12" {
		t.Fatalf("unexpected schema name %q", got)
	}
}
