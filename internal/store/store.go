// Package store defines the cache-aside persistence contracts for generated
// artifacts. Backends live in the gormstore, mongostore and memstore packages.
package store

import (
	"context"

	"github.com/slidehub/ai-service/internal/models"
)

// Store persists one artifact per logical key.
//
// Find returns (nil, nil) when nothing is stored under key. Save inserts the
// value or overwrites the record with the same key, keeping its ID and
// creation time.
type Store[K comparable, V any] interface {
	Find(ctx context.Context, key K) (*V, error)
	Save(ctx context.Context, v V) (V, error)
	Delete(ctx context.Context, key K) error
}

type AnalysisStore = Store[string, models.RepoAnalysis]

type GuideStore = Store[models.GuideKey, models.DeploymentGuide]

// NoteStore adds presentation-wide queries to the note cache.
type NoteStore interface {
	Store[models.NoteKey, models.PresenterNote]
	ListByPresentation(ctx context.Context, presentationID string) ([]models.PresenterNote, error)
	DeleteByPresentation(ctx context.Context, presentationID string) error
}
