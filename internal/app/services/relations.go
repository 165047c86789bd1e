package services

import (
	"context"
	"fmt"

	"github.com/kalpovskii/nervetask/internal/app/models"
	"github.com/kalpovskii/nervetask/internal/app/repositories"
)

// RelationManager is the optional relation capability. Components hold a nil
// RelationManager when it is not available.
type RelationManager interface {
	Register(ctx context.Context, store repositories.ContentStore, rel models.RelationType) error
	Connect(ctx context.Context, store repositories.ContentStore, rel models.RelationType, fromID int64, toID *int64) error
}

// StoreRelations keeps relation types and task-to-user links in the tenant
// store itself.
type StoreRelations struct{}

func (StoreRelations) Register(ctx context.Context, store repositories.ContentStore, rel models.RelationType) error {
	return store.RegisterRelationType(ctx, rel)
}

func (StoreRelations) Connect(ctx context.Context, store repositories.ContentStore, rel models.RelationType, fromID int64, toID *int64) error {
	registered, err := store.HasRelationType(ctx, rel.Name)
	if err != nil {
		return err
	}
	if !registered {
		return fmt.Errorf("%w: %s is not registered", ErrRelationUnavailable, rel.Name)
	}
	if rel.Name != models.RelationResponsible {
		return fmt.Errorf("%w: unsupported relation %s", ErrRelationUnavailable, rel.Name)
	}
	return store.SetResponsible(ctx, fromID, toID)
}
