package services

import (
	"context"
	"errors"
	"testing"

	"github.com/kalpovskii/nervetask/internal/app/models"
	"github.com/kalpovskii/nervetask/internal/app/repositories"
	"github.com/kalpovskii/nervetask/internal/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingHandle breaks taxonomy registration for one tenant.
type failingHandle struct {
	repositories.TenantHandle
	panic bool
}

func (h failingHandle) RegisterTaxonomy(ctx context.Context, taxonomy models.Taxonomy) error {
	if h.panic {
		panic("registry corrupted")
	}
	return errBoom
}

type flakyConnector struct {
	*repositories.MemoryNetwork
	failing map[int64]bool
	panics  map[int64]bool
	visits  map[int64]int
}

func (c *flakyConnector) Acquire(ctx context.Context, tenantID int64) (repositories.TenantHandle, error) {
	if c.visits == nil {
		c.visits = map[int64]int{}
	}
	c.visits[tenantID]++
	h, err := c.MemoryNetwork.Acquire(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if c.failing[tenantID] || c.panics[tenantID] {
		return failingHandle{TenantHandle: h, panic: c.panics[tenantID]}, nil
	}
	return h, nil
}

func TestProvisionTenantIsIdempotent(t *testing.T) {
	ctx := context.Background()
	n := repositories.NewMemoryNetwork()
	p := NewProvisioner(n, n, repositories.NewMemoryCache(), nil, StoreRelations{})

	h, err := n.Acquire(ctx, 1)
	require.NoError(t, err)
	defer h.Release()

	require.NoError(t, p.ProvisionTenant(ctx, h))
	store := h.(*repositories.MemoryStore)
	entities, taxonomies := store.EntityTypeNames(), store.TaxonomyNames()

	require.NoError(t, p.ProvisionTenant(ctx, h))
	assert.Equal(t, entities, store.EntityTypeNames())
	assert.Equal(t, taxonomies, store.TaxonomyNames())
	assert.Equal(t, []string{models.TaskType}, store.EntityTypeNames())
	assert.Len(t, store.TaxonomyNames(), 4)
	for _, tax := range models.Taxonomies() {
		assert.Zero(t, store.TermCount(tax.Name), tax.Name)
	}

	has, err := h.HasRelationType(ctx, models.RelationResponsible)
	require.NoError(t, err)
	assert.True(t, has)

	value, ok, err := h.GetOption(ctx, models.OptionWalledGarden)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "0", value)
}

func TestProvisionKeepsExistingWalledGarden(t *testing.T) {
	ctx := context.Background()
	n := repositories.NewMemoryNetwork()
	h := provisionedStore(t, n, 1)
	require.NoError(t, h.SetOption(ctx, models.OptionWalledGarden, "1"))

	p := NewProvisioner(n, n, repositories.NewMemoryCache(), nil, nil)
	require.NoError(t, p.ProvisionTenant(ctx, h))

	value, _, err := h.GetOption(ctx, models.OptionWalledGarden)
	require.NoError(t, err)
	assert.Equal(t, "1", value)
}

func TestProvisionWithoutRelationCapability(t *testing.T) {
	ctx := context.Background()
	n := repositories.NewMemoryNetwork()
	p := NewProvisioner(n, n, repositories.NewMemoryCache(), nil, nil)

	report, err := p.Activate(ctx, ScopeSingle, 3)
	require.NoError(t, err)
	require.NoError(t, report.Err())

	h, err := n.Acquire(ctx, 3)
	require.NoError(t, err)
	defer h.Release()
	has, err := h.HasRelationType(ctx, models.RelationResponsible)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestActivateNetworkVisitsActiveTenantsOnce(t *testing.T) {
	ctx := context.Background()
	n := repositories.NewMemoryNetwork()
	var ids []int64
	for _, domain := range []string{"a.example", "b.example", "c.example", "d.example", "e.example"} {
		tenant, err := n.CreateTenant(ctx, domain)
		require.NoError(t, err)
		ids = append(ids, tenant.ID)
	}
	yes := true
	_, err := n.UpdateTenantFlags(ctx, ids[3], models.TenantFlags{Spam: &yes})
	require.NoError(t, err)
	_, err = n.UpdateTenantFlags(ctx, ids[4], models.TenantFlags{Deleted: &yes})
	require.NoError(t, err)

	connector := &flakyConnector{MemoryNetwork: n, failing: map[int64]bool{ids[1]: true}}
	events := &recordingPublisher{}
	p := NewProvisioner(n, connector, repositories.NewMemoryCache(), events, StoreRelations{})

	report, err := p.Activate(ctx, ScopeNetwork, ids[0])
	require.NoError(t, err)

	assert.Equal(t, []int64{ids[0], ids[1], ids[2]}, report.Visited)
	assert.Equal(t, map[int64]int{ids[0]: 1, ids[1]: 1, ids[2]: 1}, connector.visits)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, ids[1], report.Failed[0].TenantID)
	assert.ErrorIs(t, report.Err(), errBoom)
	assert.Zero(t, n.OpenHandles())

	assert.ElementsMatch(t, []string{
		kafka.EventTenantProvisioned,
		kafka.EventTenantProvisionFailed,
		kafka.EventTenantProvisioned,
	}, events.types())

	h, err := n.Acquire(ctx, ids[2])
	require.NoError(t, err)
	defer h.Release()
	_, err = h.ListTasks(ctx)
	assert.NoError(t, err)
}

func TestActivateNetworkRecoversFromPanic(t *testing.T) {
	ctx := context.Background()
	n := repositories.NewMemoryNetwork()
	a, _ := n.CreateTenant(ctx, "a.example")
	b, _ := n.CreateTenant(ctx, "b.example")

	connector := &flakyConnector{MemoryNetwork: n, panics: map[int64]bool{a.ID: true}}
	p := NewProvisioner(n, connector, repositories.NewMemoryCache(), nil, nil)

	report, err := p.Activate(ctx, ScopeNetwork, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID, b.ID}, report.Visited)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, a.ID, report.Failed[0].TenantID)
	assert.Zero(t, n.OpenHandles())
}

func TestActivateNetworkStopsOnCancel(t *testing.T) {
	n := repositories.NewMemoryNetwork()
	n.CreateTenant(context.Background(), "a.example")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewProvisioner(n, n, repositories.NewMemoryCache(), nil, nil)
	report, err := p.Activate(ctx, ScopeNetwork, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, report.Visited)
	assert.Zero(t, n.OpenHandles())
}

func TestDeactivateChangesNothing(t *testing.T) {
	ctx := context.Background()
	n := repositories.NewMemoryNetwork()
	tenant, _ := n.CreateTenant(ctx, "a.example")
	h := provisionedStore(t, n, tenant.ID)
	task := createTask(t, h, "keep me")

	events := &recordingPublisher{}
	p := NewProvisioner(n, n, repositories.NewMemoryCache(), events, nil)
	report, err := p.Deactivate(ctx, ScopeNetwork, tenant.ID)
	require.NoError(t, err)
	require.NoError(t, report.Err())

	got, err := h.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "keep me", got.Title)
	assert.Equal(t, []string{kafka.EventTenantDeactivated}, events.types())
}

func TestOnNewTenantRunsOnce(t *testing.T) {
	ctx := context.Background()
	n := repositories.NewMemoryNetwork()
	tenant, _ := n.CreateTenant(ctx, "new.example")

	connector := &flakyConnector{MemoryNetwork: n}
	events := &recordingPublisher{}
	p := NewProvisioner(n, connector, repositories.NewMemoryCache(), events, nil)

	require.NoError(t, p.OnNewTenant(ctx, tenant.ID))
	require.NoError(t, p.OnNewTenant(ctx, tenant.ID))

	assert.Equal(t, 1, connector.visits[tenant.ID])
	assert.Equal(t, []string{kafka.EventTenantProvisioned}, events.types())
}

func TestOnNewTenantReportsFailure(t *testing.T) {
	ctx := context.Background()
	n := repositories.NewMemoryNetwork()
	tenant, _ := n.CreateTenant(ctx, "broken.example")

	connector := &flakyConnector{MemoryNetwork: n, failing: map[int64]bool{tenant.ID: true}}
	p := NewProvisioner(n, connector, repositories.NewMemoryCache(), nil, nil)

	err := p.OnNewTenant(ctx, tenant.ID)
	var perr *ProvisionError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, tenant.ID, perr.TenantID)
	assert.Zero(t, n.OpenHandles())
}

func TestOnNewTenantRetriesAfterFailure(t *testing.T) {
	ctx := context.Background()
	n := repositories.NewMemoryNetwork()
	tenant, _ := n.CreateTenant(ctx, "retry.example")

	connector := &flakyConnector{MemoryNetwork: n, failing: map[int64]bool{tenant.ID: true}}
	events := &recordingPublisher{}
	p := NewProvisioner(n, connector, repositories.NewMemoryCache(), events, nil)

	require.Error(t, p.OnNewTenant(ctx, tenant.ID))

	delete(connector.failing, tenant.ID)
	require.NoError(t, p.OnNewTenant(ctx, tenant.ID))
	assert.Equal(t, 2, connector.visits[tenant.ID])

	// a success is final
	require.NoError(t, p.OnNewTenant(ctx, tenant.ID))
	assert.Equal(t, 2, connector.visits[tenant.ID])
	assert.Equal(t, []string{kafka.EventTenantProvisionFailed, kafka.EventTenantProvisioned}, events.types())

	h, err := n.Acquire(ctx, tenant.ID)
	require.NoError(t, err)
	defer h.Release()
	_, ok, err := h.GetOption(ctx, models.OptionWalledGarden)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestParseScope(t *testing.T) {
	tests := map[string]Scope{
		"":             ScopeSingle,
		"single":       ScopeSingle,
		"Network":      ScopeNetwork,
		"network_wide": ScopeNetwork,
	}
	for in, want := range tests {
		got, err := ParseScope(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseScope("galaxy")
	assert.Error(t, err)
}
