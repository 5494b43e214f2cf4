package gormstore

import (
	"context"
	"errors"
	"fmt"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/slidehub/ai-service/internal/models"
	"gorm.io/gorm"
)

// Store is a gorm backed store keyed by the model's hash column.
type Store[K comparable, V any, P models.Record[V]] struct {
	db      *gorm.DB
	keyHash func(K) string
}

func New[K comparable, V any, P models.Record[V]](db *gorm.DB, keyHash func(K) string) *Store[K, V, P] {
	return &Store[K, V, P]{db: db, keyHash: keyHash}
}

func (s *Store[K, V, P]) Find(ctx context.Context, key K) (*V, error) {
	return s.findByHash(ctx, s.keyHash(key))
}

func (s *Store[K, V, P]) findByHash(ctx context.Context, hash string) (*V, error) {
	var v V
	if err := s.db.WithContext(ctx).Where("hash = ?", hash).First(&v).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

func (s *Store[K, V, P]) Save(ctx context.Context, v V) (V, error) {
	meta := P(&v).Meta()
	meta.Hash = P(&v).KeyHash()

	// A concurrent insert of the same key loses on the unique index; the
	// second pass overwrites the winner instead.
	for attempt := 0; ; attempt++ {
		existing, err := s.findByHash(ctx, meta.Hash)
		if err != nil {
			return v, err
		}
		if existing != nil {
			prev := P(existing).Meta()
			meta.ID = prev.ID
			meta.CreatedAt = prev.CreatedAt
			if err := s.db.WithContext(ctx).Save(&v).Error; err != nil {
				return v, err
			}
			return v, nil
		}

		err = s.db.WithContext(ctx).Create(&v).Error
		if err == nil {
			return v, nil
		}
		if attempt == 0 && isDuplicateKeyError(err) {
			meta.ID = ""
			continue
		}
		return v, err
	}
}

func (s *Store[K, V, P]) Delete(ctx context.Context, key K) error {
	var v V
	return s.db.WithContext(ctx).Where("hash = ?", s.keyHash(key)).Delete(&v).Error
}

func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysqlDriver.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

// NoteStore adds presentation queries on top of the generic store.
type NoteStore struct {
	*Store[models.NoteKey, models.PresenterNote, *models.PresenterNote]
}

func NewNoteStore(db *gorm.DB) *NoteStore {
	return &NoteStore{Store: New[models.NoteKey, models.PresenterNote](db, models.NoteKeyHash)}
}

func (s *NoteStore) ListByPresentation(ctx context.Context, presentationID string) ([]models.PresenterNote, error) {
	notes := []models.PresenterNote{}
	if err := s.db.WithContext(ctx).
		Where("presentation_id = ?", presentationID).
		Order("slide_number ASC").
		Find(&notes).Error; err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}

func (s *NoteStore) DeleteByPresentation(ctx context.Context, presentationID string) error {
	return s.db.WithContext(ctx).
		Where("presentation_id = ?", presentationID).
		Delete(&models.PresenterNote{}).Error
}

func NewAnalysisStore(db *gorm.DB) *Store[string, models.RepoAnalysis, *models.RepoAnalysis] {
	return New[string, models.RepoAnalysis](db, models.AnalysisKeyHash)
}

func NewGuideStore(db *gorm.DB) *Store[models.GuideKey, models.DeploymentGuide, *models.DeploymentGuide] {
	return New[models.GuideKey, models.DeploymentGuide](db, models.GuideKeyHash)
}
