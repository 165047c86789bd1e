package services

import (
	"context"

	"github.com/kalpovskii/nervetask/internal/app/models"
)

type TermReader interface {
	TaskTerms(ctx context.Context, taskID int64, taxonomy string) ([]models.Term, error)
}

// PresentationTags appends status-<slug> and priority-<slug> for the task's
// terms to the classes another component already produced. Without a task the
// existing classes come back untouched.
func PresentationTags(ctx context.Context, store TermReader, task *models.Task, existing []string) ([]string, error) {
	if task == nil {
		return existing, nil
	}

	seen := make(map[string]bool, len(existing))
	for _, c := range existing {
		seen[c] = true
	}

	classes := existing[:len(existing):len(existing)]
	for _, axis := range []struct{ taxonomy, prefix string }{
		{models.TaxonomyStatus, "status-"},
		{models.TaxonomyPriority, "priority-"},
	} {
		terms, err := store.TaskTerms(ctx, task.ID, axis.taxonomy)
		if err != nil {
			return existing, err
		}
		for _, term := range terms {
			class := axis.prefix + term.Slug
			if seen[class] {
				continue
			}
			seen[class] = true
			classes = append(classes, class)
		}
	}
	return classes, nil
}
