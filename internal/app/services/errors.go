package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/kalpovskii/nervetask/internal/kafka"
)

var (
	ErrInvalidToken        = errors.New("invalid security token")
	ErrForbidden           = errors.New("viewer cannot edit tasks")
	ErrUnknownTaxonomy     = errors.New("unknown taxonomy")
	ErrRelationUnavailable = errors.New("responsible-party relation is not available")
)

// ProvisionError is one tenant's failure inside a provisioning run.
type ProvisionError struct {
	TenantID int64
	Err      error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("provision tenant %d: %v", e.TenantID, e.Err)
}

func (e *ProvisionError) Unwrap() error {
	return e.Err
}

type EventPublisher interface {
	Publish(ctx context.Context, event kafka.Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, kafka.Event) {}

func publisherOrNop(p EventPublisher) EventPublisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}
