package repositories

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/kalpovskii/nervetask/internal/app/models"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// postgresNetwork connects to NERVETASK_TEST_POSTGRES_DSN and registers a
// throwaway tenant. The pool is capped at one connection so the connection a
// handle releases is the one the next query gets.
func postgresNetwork(t *testing.T) (*PostgresNetwork, *models.Tenant) {
	t.Helper()
	dsn := os.Getenv("NERVETASK_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("NERVETASK_TEST_POSTGRES_DSN is not set")
	}

	n, err := NewPostgresNetwork(dsn)
	require.NoError(t, err)
	n.db.SetMaxOpenConns(1)

	ctx := context.Background()
	tenant, err := n.CreateTenant(ctx, fmt.Sprintf("pg-%d.test", time.Now().UnixNano()))
	require.NoError(t, err)

	t.Cleanup(func() {
		n.db.ExecContext(ctx, "DROP SCHEMA IF EXISTS "+pq.QuoteIdentifier(SchemaName(tenant.ID))+" CASCADE")
		n.db.ExecContext(ctx, "DELETE FROM tenants WHERE id = $1", tenant.ID)
		n.Close()
	})
	return n, tenant
}

func TestPostgresReleaseRestoresSearchPath(t *testing.T) {
	n, tenant := postgresNetwork(t)
	ctx := context.Background()

	h, err := n.Acquire(ctx, tenant.ID)
	require.NoError(t, err)
	require.NoError(t, h.EnsureSchema(ctx))
	require.NoError(t, h.Release())
	require.NoError(t, h.Release())

	var path string
	require.NoError(t, n.db.QueryRowContext(ctx, "SHOW search_path").Scan(&path))
	assert.Equal(t, "public", path)
}

func TestPostgresUnprovisionedTenant(t *testing.T) {
	n, tenant := postgresNetwork(t)
	ctx := context.Background()

	h, err := n.Acquire(ctx, tenant.ID)
	require.NoError(t, err)
	defer h.Release()

	_, err = h.ListTasks(ctx)
	assert.ErrorIs(t, err, ErrNotProvisioned)
}

func TestPostgresAssignTermsByNameReplacesSet(t *testing.T) {
	n, tenant := postgresNetwork(t)
	ctx := context.Background()

	h, err := n.Acquire(ctx, tenant.ID)
	require.NoError(t, err)
	defer h.Release()
	require.NoError(t, h.EnsureSchema(ctx))

	task := &models.Task{Title: "pg", AuthorID: 7}
	require.NoError(t, h.CreateTask(ctx, task))
	other := &models.Task{Title: "other", AuthorID: 7}
	require.NoError(t, h.CreateTask(ctx, other))

	_, err = h.AssignTermsByName(ctx, task.ID, models.TaxonomyTags, []string{"gamma", "alpha"})
	require.NoError(t, err)
	_, err = h.AssignTermsByName(ctx, task.ID, models.TaxonomyStatus, []string{"Open"})
	require.NoError(t, err)
	_, err = h.AssignTermsByName(ctx, other.ID, models.TaxonomyTags, []string{"gamma"})
	require.NoError(t, err)

	_, err = h.AssignTermsByName(ctx, task.ID, models.TaxonomyTags, []string{"alpha", "beta", "alpha"})
	require.NoError(t, err)

	names := func(taskID int64, taxonomy string) []string {
		terms, err := h.TaskTerms(ctx, taskID, taxonomy)
		require.NoError(t, err)
		out := make([]string, len(terms))
		for i, term := range terms {
			out[i] = term.Name
		}
		return out
	}
	assert.Equal(t, []string{"alpha", "beta"}, names(task.ID, models.TaxonomyTags))
	assert.Equal(t, []string{"Open"}, names(task.ID, models.TaxonomyStatus))
	assert.Equal(t, []string{"gamma"}, names(other.ID, models.TaxonomyTags))

	vocabulary, err := h.Terms(ctx, models.TaxonomyTags)
	require.NoError(t, err)
	assert.Len(t, vocabulary, 3)

	_, err = h.AssignTermsByName(ctx, 9999, models.TaxonomyTags, []string{"x"})
	assert.ErrorIs(t, err, ErrNotFound)
}
