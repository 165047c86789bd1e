package repositories

import (
	"context"
	"errors"
	"strings"

	"github.com/kalpovskii/nervetask/internal/app/models"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrTenantExists   = errors.New("tenant already exists")
	ErrNotProvisioned = errors.New("tenant is not provisioned")
)

// ContentStore is the content of a single tenant. Implementations are bound
// to one tenant for their whole lifetime.
type ContentStore interface {
	TenantID() int64

	EnsureSchema(ctx context.Context) error
	RegisterEntityType(ctx context.Context, entity models.EntityType) error
	RegisterTaxonomy(ctx context.Context, taxonomy models.Taxonomy) error
	RegisterRelationType(ctx context.Context, rel models.RelationType) error
	HasRelationType(ctx context.Context, name string) (bool, error)

	GetOption(ctx context.Context, name string) (string, bool, error)
	// AddOption stores the value only when the option does not exist yet.
	AddOption(ctx context.Context, name, value string) error
	SetOption(ctx context.Context, name, value string) error

	CreateTask(ctx context.Context, task *models.Task) error
	GetTask(ctx context.Context, id int64) (*models.Task, error)
	ListTasks(ctx context.Context) ([]models.Task, error)
	UpdateTask(ctx context.Context, task *models.Task) error
	DeleteTask(ctx context.Context, id int64) error
	Revisions(ctx context.Context, taskID int64) ([]models.Revision, error)
	SetResponsible(ctx context.Context, taskID int64, userID *int64) error

	// Terms returns the whole vocabulary of a taxonomy ordered by slug,
	// including terms no task uses.
	Terms(ctx context.Context, taxonomy string) ([]models.Term, error)
	TaskTerms(ctx context.Context, taskID int64, taxonomy string) ([]models.Term, error)
	// AssignTermsByName resolves or creates a term per name and replaces the
	// task's whole assignment in the taxonomy with exactly that set.
	AssignTermsByName(ctx context.Context, taskID int64, taxonomy string, names []string) ([]models.Term, error)
}

// TenantHandle is a ContentStore acquired for a scope. Release restores the
// connection's original context and must be called on every exit path.
type TenantHandle interface {
	ContentStore
	Release() error
}

type TenantConnector interface {
	Acquire(ctx context.Context, tenantID int64) (TenantHandle, error)
}

type TenantDirectory interface {
	// ActiveTenants lists tenants that are not archived, spam or deleted.
	ActiveTenants(ctx context.Context) ([]models.Tenant, error)
	CreateTenant(ctx context.Context, domain string) (*models.Tenant, error)
	EnsureTenant(ctx context.Context, domain string) (*models.Tenant, error)
	TenantByDomain(ctx context.Context, domain string) (*models.Tenant, error)
	UpdateTenantFlags(ctx context.Context, id int64, flags models.TenantFlags) (*models.Tenant, error)
}

// Network is a full multi-tenant backend.
type Network interface {
	TenantDirectory
	TenantConnector
	Close() error
}

// uniqueNames drops empty and repeated names, keyed by slug.
func uniqueNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		slug := models.Slugify(name)
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		out = append(out, name)
	}
	return out
}
