package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kalpovskii/nervetask/internal/app/models"
	"github.com/kalpovskii/nervetask/internal/app/repositories"
	"github.com/kalpovskii/nervetask/internal/kafka"
	"github.com/kalpovskii/nervetask/internal/logging"
)

const newTenantClaimTTL = 24 * time.Hour

type Scope int

const (
	ScopeSingle Scope = iota
	ScopeNetwork
)

func (s Scope) String() string {
	if s == ScopeNetwork {
		return "network"
	}
	return "single"
}

func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "single":
		return ScopeSingle, nil
	case "network", "network_wide", "network-wide":
		return ScopeNetwork, nil
	}
	return ScopeSingle, fmt.Errorf("unknown provisioning scope %q", s)
}

// Report lists the tenants a run visited and the ones that failed.
type Report struct {
	Visited []int64
	Failed  []*ProvisionError
}

func (r *Report) Err() error {
	if r == nil || len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failed))
	for i, f := range r.Failed {
		errs[i] = f
	}
	return errors.Join(errs...)
}

type tenantStep func(ctx context.Context, store repositories.ContentStore) error

type Provisioner struct {
	tenants   repositories.TenantDirectory
	connector repositories.TenantConnector
	claims    repositories.Cache
	events    EventPublisher
	relations RelationManager
}

// NewProvisioner wires the provisioning workflow. relations may be nil when
// the relation capability is not available.
func NewProvisioner(
	tenants repositories.TenantDirectory,
	connector repositories.TenantConnector,
	claims repositories.Cache,
	events EventPublisher,
	relations RelationManager,
) *Provisioner {
	return &Provisioner{
		tenants:   tenants,
		connector: connector,
		claims:    claims,
		events:    publisherOrNop(events),
		relations: relations,
	}
}

// ProvisionTenant installs the task entity, its taxonomies, the optional
// relation and the default options into one tenant. Safe to repeat.
func (p *Provisioner) ProvisionTenant(ctx context.Context, store repositories.ContentStore) error {
	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	if err := store.RegisterEntityType(ctx, models.TaskEntity()); err != nil {
		return fmt.Errorf("register entity: %w", err)
	}
	for _, tax := range models.Taxonomies() {
		if err := store.RegisterTaxonomy(ctx, tax); err != nil {
			return fmt.Errorf("register taxonomy %s: %w", tax.Name, err)
		}
	}

	if p.relations == nil {
		logging.Logger.Debugf("Event ID: RELATION_CAPABILITY_MISSING, Description: skipping %s for tenant %d", models.RelationResponsible, store.TenantID())
	} else if err := p.relations.Register(ctx, store, models.ResponsibleRelation()); err != nil {
		return fmt.Errorf("register relation: %w", err)
	}

	if err := store.AddOption(ctx, models.OptionWalledGarden, "0"); err != nil {
		return fmt.Errorf("default options: %w", err)
	}
	return nil
}

func deactivateTenant(ctx context.Context, store repositories.ContentStore) error {
	return nil
}

// Activate provisions the current tenant or, for ScopeNetwork, every active
// tenant one after another.
func (p *Provisioner) Activate(ctx context.Context, scope Scope, current int64) (*Report, error) {
	logging.Logger.Infof("Event ID: PROVISION_START, Description: activating with scope %s", scope)
	if scope == ScopeNetwork {
		return p.forEachTenant(ctx, p.ProvisionTenant, kafka.EventTenantProvisioned)
	}
	return p.single(ctx, current, p.ProvisionTenant, kafka.EventTenantProvisioned), nil
}

// Deactivate walks the same tenants as Activate. The per-tenant step is a
// hook point and changes nothing yet.
func (p *Provisioner) Deactivate(ctx context.Context, scope Scope, current int64) (*Report, error) {
	logging.Logger.Infof("Event ID: DEACTIVATE_START, Description: deactivating with scope %s", scope)
	if scope == ScopeNetwork {
		return p.forEachTenant(ctx, deactivateTenant, kafka.EventTenantDeactivated)
	}
	return p.single(ctx, current, deactivateTenant, kafka.EventTenantDeactivated), nil
}

// OnNewTenant provisions a tenant created after activation. Repeated
// notifications for the same tenant are dropped once a run succeeded; a
// failed run gives up its claim so the next notification retries.
func (p *Provisioner) OnNewTenant(ctx context.Context, tenantID int64) error {
	key := fmt.Sprintf("provisioned:tenant:%d", tenantID)
	claimed, err := p.claims.Claim(ctx, key, newTenantClaimTTL)
	if err != nil {
		logging.Logger.Warnf("Event ID: TENANT_CLAIM_FAILED, Description: claim for tenant %d failed, provisioning anyway: %v", tenantID, err)
	} else if !claimed {
		logging.Logger.Debugf("Event ID: TENANT_DUPLICATE_EVENT, Description: tenant %d already handled", tenantID)
		return nil
	}

	report := p.single(ctx, tenantID, p.ProvisionTenant, kafka.EventTenantProvisioned)
	if err := report.Err(); err != nil {
		if claimed {
			if rerr := p.claims.Release(ctx, key); rerr != nil {
				logging.Logger.Warnf("Event ID: TENANT_CLAIM_RELEASE_FAILED, Description: tenant %d: %v", tenantID, rerr)
			}
		}
		return err
	}
	return nil
}

func (p *Provisioner) single(ctx context.Context, tenantID int64, step tenantStep, okEvent string) *Report {
	report := &Report{Visited: []int64{tenantID}}
	p.run(ctx, tenantID, step, okEvent, report)
	return report
}

func (p *Provisioner) forEachTenant(ctx context.Context, step tenantStep, okEvent string) (*Report, error) {
	tenants, err := p.tenants.ActiveTenants(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}

	report := &Report{}
	for _, t := range tenants {
		if !t.Active() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Visited = append(report.Visited, t.ID)
		p.run(ctx, t.ID, step, okEvent, report)
	}

	logging.Logger.Infof("Event ID: PROVISION_DONE, Description: visited %d tenants, %d failed", len(report.Visited), len(report.Failed))
	return report, nil
}

func (p *Provisioner) run(ctx context.Context, tenantID int64, step tenantStep, okEvent string, report *Report) {
	if err := p.withTenant(ctx, tenantID, step); err != nil {
		var perr *ProvisionError
		if !errors.As(err, &perr) {
			perr = &ProvisionError{TenantID: tenantID, Err: err}
		}
		report.Failed = append(report.Failed, perr)
		logging.Logger.Errorf("Event ID: TENANT_PROVISION_FAILED, Description: %v", perr)

		event := kafka.NewEvent(kafka.EventTenantProvisionFailed, tenantID)
		event.Detail = perr.Err.Error()
		p.events.Publish(ctx, event)
		return
	}
	p.events.Publish(ctx, kafka.NewEvent(okEvent, tenantID))
}

// withTenant runs step against an acquired tenant handle and releases it on
// every exit path, panics included.
func (p *Provisioner) withTenant(ctx context.Context, tenantID int64, step tenantStep) (err error) {
	handle, err := p.connector.Acquire(ctx, tenantID)
	if err != nil {
		return &ProvisionError{TenantID: tenantID, Err: fmt.Errorf("acquire: %w", err)}
	}

	defer func() {
		if r := recover(); r != nil {
			err = &ProvisionError{TenantID: tenantID, Err: fmt.Errorf("panic: %v", r)}
		}
		if rerr := handle.Release(); rerr != nil {
			logging.Logger.Warnf("Event ID: TENANT_RELEASE_FAILED, Description: tenant %d: %v", tenantID, rerr)
			if err == nil {
				err = &ProvisionError{TenantID: tenantID, Err: fmt.Errorf("release: %w", rerr)}
			}
		}
	}()

	if err := step(ctx, handle); err != nil {
		return &ProvisionError{TenantID: tenantID, Err: err}
	}
	return nil
}
