package app

import (
	"context"
	"fmt"

	"github.com/slidehub/ai-service/internal/config"
	"github.com/slidehub/ai-service/internal/database"
	"github.com/slidehub/ai-service/internal/store"
	"github.com/slidehub/ai-service/internal/store/gormstore"
	"github.com/slidehub/ai-service/internal/store/memstore"
	"github.com/slidehub/ai-service/internal/store/mongostore"
	"go.uber.org/zap"
)

type stores struct {
	analyses store.AnalysisStore
	guides   store.GuideStore
	notes    store.NoteStore
}

// openStorage connects the backend selected by storage.driver. Connections
// are kept on the App so that Shutdown can release them.
func (a *App) openStorage(ctx context.Context) (stores, error) {
	switch a.cfg.Storage.Driver {
	case config.StorageMySQL:
		db, err := database.Connect(a.cfg, true)
		if err != nil {
			return stores{}, fmt.Errorf("database: %w", err)
		}
		a.db = db
		a.logger.Info("storage ready", zap.String("driver", config.StorageMySQL))
		return stores{
			analyses: gormstore.NewAnalysisStore(db),
			guides:   gormstore.NewGuideStore(db),
			notes:    gormstore.NewNoteStore(db),
		}, nil

	case config.StorageMongo:
		client, db, err := database.ConnectMongo(ctx, a.cfg.Mongo)
		if err != nil {
			return stores{}, err
		}
		a.mongo = client
		analyses := mongostore.NewAnalysisStore(db)
		guides := mongostore.NewGuideStore(db)
		notes := mongostore.NewNoteStore(db)
		if err := analyses.EnsureIndexes(ctx); err != nil {
			return stores{}, fmt.Errorf("mongo indexes: %w", err)
		}
		if err := guides.EnsureIndexes(ctx); err != nil {
			return stores{}, fmt.Errorf("mongo indexes: %w", err)
		}
		if err := notes.EnsureIndexes(ctx); err != nil {
			return stores{}, fmt.Errorf("mongo indexes: %w", err)
		}
		a.logger.Info("storage ready",
			zap.String("driver", config.StorageMongo),
			zap.String("database", a.cfg.Mongo.Database))
		return stores{analyses: analyses, guides: guides, notes: notes}, nil

	default:
		a.logger.Warn("using in-memory storage, artifacts are lost on restart")
		return stores{
			analyses: memstore.NewAnalysisStore(),
			guides:   memstore.NewGuideStore(),
			notes:    memstore.NewNoteStore(),
		}, nil
	}
}
