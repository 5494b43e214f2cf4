package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/slidehub/ai-service/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store is a MongoDB backed store keyed by the document's hash field.
type Store[K comparable, V any, P models.Record[V]] struct {
	coll    *mongo.Collection
	keyHash func(K) string
	now     func() time.Time
}

func New[K comparable, V any, P models.Record[V]](coll *mongo.Collection, keyHash func(K) string) *Store[K, V, P] {
	return &Store[K, V, P]{coll: coll, keyHash: keyHash, now: time.Now}
}

// EnsureIndexes creates the unique hash index plus any extra keys.
func (s *Store[K, V, P]) EnsureIndexes(ctx context.Context, extra ...mongo.IndexModel) error {
	indexes := append([]mongo.IndexModel{{
		Keys:    bson.D{{Key: "hash", Value: 1}},
		Options: options.Index().SetUnique(true),
	}}, extra...)
	if _, err := s.coll.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("create indexes on %s: %w", s.coll.Name(), err)
	}
	return nil
}

func (s *Store[K, V, P]) Find(ctx context.Context, key K) (*V, error) {
	return s.findByHash(ctx, s.keyHash(key))
}

func (s *Store[K, V, P]) findByHash(ctx context.Context, hash string) (*V, error) {
	var v V
	if err := s.coll.FindOne(ctx, bson.M{"hash": hash}).Decode(&v); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

func (s *Store[K, V, P]) Save(ctx context.Context, v V) (V, error) {
	meta := P(&v).Meta()
	meta.Hash = P(&v).KeyHash()

	for attempt := 0; ; attempt++ {
		existing, err := s.findByHash(ctx, meta.Hash)
		if err != nil {
			return v, err
		}
		if existing != nil {
			prev := P(existing).Meta()
			meta.ID = prev.ID
			meta.CreatedAt = prev.CreatedAt
		}
		meta.EnsureID()
		meta.Touch(s.now())

		_, err = s.coll.ReplaceOne(ctx,
			bson.M{"hash": meta.Hash},
			&v,
			options.Replace().SetUpsert(true))
		if err == nil {
			return v, nil
		}
		if attempt == 0 && mongo.IsDuplicateKeyError(err) {
			meta.ID = ""
			meta.CreatedAt = time.Time{}
			continue
		}
		return v, err
	}
}

func (s *Store[K, V, P]) Delete(ctx context.Context, key K) error {
	_, err := s.coll.DeleteOne(ctx, bson.M{"hash": s.keyHash(key)})
	return err
}

const (
	analysisCollection = "repo_analysis"
	notesCollection    = "presenter_notes"
	guidesCollection   = "deployment_guides"
)

func NewAnalysisStore(db *mongo.Database) *Store[string, models.RepoAnalysis, *models.RepoAnalysis] {
	return New[string, models.RepoAnalysis](db.Collection(analysisCollection), models.AnalysisKeyHash)
}

func NewGuideStore(db *mongo.Database) *Store[models.GuideKey, models.DeploymentGuide, *models.DeploymentGuide] {
	return New[models.GuideKey, models.DeploymentGuide](db.Collection(guidesCollection), models.GuideKeyHash)
}

// NoteStore adds presentation queries on top of the generic store.
type NoteStore struct {
	*Store[models.NoteKey, models.PresenterNote, *models.PresenterNote]
}

func NewNoteStore(db *mongo.Database) *NoteStore {
	return &NoteStore{Store: New[models.NoteKey, models.PresenterNote](db.Collection(notesCollection), models.NoteKeyHash)}
}

// EnsureIndexes adds the presentation lookup index to the hash index.
func (s *NoteStore) EnsureIndexes(ctx context.Context) error {
	return s.Store.EnsureIndexes(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "presentationId", Value: 1}, {Key: "slideNumber", Value: 1}},
	})
}

func (s *NoteStore) ListByPresentation(ctx context.Context, presentationID string) ([]models.PresenterNote, error) {
	cursor, err := s.coll.Find(ctx,
		bson.M{"presentationId": presentationID},
		options.Find().SetSort(bson.D{{Key: "slideNumber", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	notes := []models.PresenterNote{}
	if err := cursor.All(ctx, &notes); err != nil {
		return nil, fmt.Errorf("decode notes: %w", err)
	}
	return notes, nil
}

func (s *NoteStore) DeleteByPresentation(ctx context.Context, presentationID string) error {
	_, err := s.coll.DeleteMany(ctx, bson.M{"presentationId": presentationID})
	return err
}
