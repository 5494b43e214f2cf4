// Package memstore keeps artifacts in process memory. It backs the "memory"
// storage driver and the service tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/slidehub/ai-service/internal/models"
)

type Store[K comparable, V any, P models.Record[V]] struct {
	mu      sync.RWMutex
	items   map[string]V
	keyHash func(K) string
	now     func() time.Time
}

func New[K comparable, V any, P models.Record[V]](keyHash func(K) string) *Store[K, V, P] {
	return &Store[K, V, P]{items: make(map[string]V), keyHash: keyHash, now: time.Now}
}

func (s *Store[K, V, P]) Find(_ context.Context, key K) (*V, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[s.keyHash(key)]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (s *Store[K, V, P]) Save(_ context.Context, v V) (V, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta := P(&v).Meta()
	meta.Hash = P(&v).KeyHash()
	if prev, ok := s.items[meta.Hash]; ok {
		pm := P(&prev).Meta()
		meta.ID = pm.ID
		meta.CreatedAt = pm.CreatedAt
	}
	meta.EnsureID()
	meta.Touch(s.now())
	s.items[meta.Hash] = v
	return v, nil
}

func (s *Store[K, V, P]) Delete(_ context.Context, key K) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, s.keyHash(key))
	return nil
}

// Len reports how many records are stored.
func (s *Store[K, V, P]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func NewAnalysisStore() *Store[string, models.RepoAnalysis, *models.RepoAnalysis] {
	return New[string, models.RepoAnalysis](models.AnalysisKeyHash)
}

func NewGuideStore() *Store[models.GuideKey, models.DeploymentGuide, *models.DeploymentGuide] {
	return New[models.GuideKey, models.DeploymentGuide](models.GuideKeyHash)
}

type NoteStore struct {
	*Store[models.NoteKey, models.PresenterNote, *models.PresenterNote]
}

func NewNoteStore() *NoteStore {
	return &NoteStore{Store: New[models.NoteKey, models.PresenterNote](models.NoteKeyHash)}
}

func (s *NoteStore) ListByPresentation(_ context.Context, presentationID string) ([]models.PresenterNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	notes := []models.PresenterNote{}
	for _, n := range s.items {
		if n.PresentationID == presentationID {
			notes = append(notes, n)
		}
	}
	sort.Slice(notes, func(i, j int) bool { return notes[i].SlideNumber < notes[j].SlideNumber })
	return notes, nil
}

func (s *NoteStore) DeleteByPresentation(_ context.Context, presentationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for hash, n := range s.items {
		if n.PresentationID == presentationID {
			delete(s.items, hash)
		}
	}
	return nil
}
