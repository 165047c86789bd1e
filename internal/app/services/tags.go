package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kalpovskii/nervetask/internal/app/models"
	"github.com/kalpovskii/nervetask/internal/app/repositories"
	"github.com/kalpovskii/nervetask/internal/kafka"
	"github.com/kalpovskii/nervetask/internal/logging"
)

// UpdateTagsAction identifies the tag editor form to the nonce issuer.
const UpdateTagsAction = "nervetask_update_tags"

const vocabularyTTL = 5 * time.Minute

type NonceIssuer interface {
	MintNonce(action string, tenantID, objectID, userID int64) (string, error)
	VerifyNonce(token, action string, tenantID, objectID, userID int64) error
}

// TagEditor is everything the tag editor fragment needs for one task.
type TagEditor struct {
	TaskID     int64
	Vocabulary []models.Term
	Assigned   []models.Term
	CanEdit    bool
	Token      string
}

func (e *TagEditor) IsAssigned(termID int64) bool {
	for _, t := range e.Assigned {
		if t.ID == termID {
			return true
		}
	}
	return false
}

type TagService struct {
	nonces NonceIssuer
	cache  repositories.Cache
	events EventPublisher
}

func NewTagService(nonces NonceIssuer, cache repositories.Cache, events EventPublisher) *TagService {
	return &TagService{
		nonces: nonces,
		cache:  cache,
		events: publisherOrNop(events),
	}
}

func (s *TagService) Editor(ctx context.Context, store repositories.ContentStore, taskID int64, viewer *models.Viewer) (*TagEditor, error) {
	if _, err := store.GetTask(ctx, taskID); err != nil {
		return nil, err
	}

	vocabulary, err := s.vocabulary(ctx, store)
	if err != nil {
		return nil, err
	}
	assigned, err := store.TaskTerms(ctx, taskID, models.TaxonomyTags)
	if err != nil {
		return nil, err
	}

	editor := &TagEditor{
		TaskID:     taskID,
		Vocabulary: vocabulary,
		Assigned:   assigned,
		CanEdit:    viewer.CanEditTasks(),
	}
	if editor.CanEdit {
		editor.Token, err = s.nonces.MintNonce(UpdateTagsAction, store.TenantID(), taskID, viewer.ID())
		if err != nil {
			return nil, fmt.Errorf("mint nonce: %w", err)
		}
	}
	return editor, nil
}

func (s *TagService) vocabulary(ctx context.Context, store repositories.ContentStore) ([]models.Term, error) {
	tenantID := store.TenantID()
	if terms, err := s.cache.GetTerms(ctx, tenantID, models.TaxonomyTags); err == nil && terms != nil {
		return terms, nil
	}

	terms, err := store.Terms(ctx, models.TaxonomyTags)
	if err != nil {
		return nil, err
	}
	_ = s.cache.SetTerms(ctx, tenantID, models.TaxonomyTags, terms, vocabularyTTL)
	return terms, nil
}

// Submit replaces the task's whole tag assignment with names. The token must
// have been minted for this task on this tenant and this viewer.
func (s *TagService) Submit(ctx context.Context, store repositories.ContentStore, viewer *models.Viewer, taskID int64, names []string, token string) ([]models.Term, error) {
	if err := s.nonces.VerifyNonce(token, UpdateTagsAction, store.TenantID(), taskID, viewer.ID()); err != nil {
		logging.Logger.Warnf("Event ID: TAGS_TOKEN_REJECTED, Description: task %d tenant %d: %v", taskID, store.TenantID(), err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !viewer.CanEditTasks() {
		return nil, ErrForbidden
	}

	terms, err := store.AssignTermsByName(ctx, taskID, models.TaxonomyTags, names)
	if err != nil {
		return nil, err
	}
	_ = s.cache.DeleteTerms(ctx, store.TenantID(), models.TaxonomyTags)

	event := kafka.NewEvent(kafka.EventTaskTagsUpdated, store.TenantID())
	event.TaskID = taskID
	event.Detail = termNames(terms)
	s.events.Publish(ctx, event)

	logging.Logger.Infof("Event ID: TAGS_UPDATED, Description: task %d now has %d tags", taskID, len(terms))
	return terms, nil
}

func termNames(terms []models.Term) string {
	names := make([]string, len(terms))
	for i, t := range terms {
		names[i] = t.Name
	}
	return strings.Join(names, ", ")
}
