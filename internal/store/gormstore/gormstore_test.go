package gormstore

import (
	"context"
	"testing"
	"time"

	"github.com/slidehub/ai-service/internal/database"
	"github.com/slidehub/ai-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every pooled connection would otherwise get its own empty database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func TestAnalysisStore(t *testing.T) {
	ctx := context.Background()
	s := NewAnalysisStore(openTestDB(t))
	url := "https://github.com/x/y"

	miss, err := s.Find(ctx, url)
	require.NoError(t, err)
	assert.Nil(t, miss)

	saved, err := s.Save(ctx, models.RepoAnalysis{
		RepoURL:      url,
		Language:     "Go",
		Technologies: models.StringArray{"chi"},
		Ports:        []int{8080},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, models.AnalysisKeyHash(url), saved.Hash)

	found, err := s.Find(ctx, url)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Go", found.Language)
	assert.Equal(t, models.StringArray{"chi"}, found.Technologies)
	assert.Equal(t, []int{8080}, found.Ports)

	found.Dockerfile = "FROM golang:1.24"
	updated, err := s.Save(ctx, *found)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, updated.ID)

	var count int64
	require.NoError(t, s.db.Model(&models.RepoAnalysis{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	require.NoError(t, s.Delete(ctx, url))
	gone, err := s.Find(ctx, url)
	require.NoError(t, err)
	assert.Nil(t, gone)

	assert.NoError(t, s.Delete(ctx, url))
}

func TestNoteStoreUpsertKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	s := NewNoteStore(openTestDB(t))
	key := models.NoteKey{PresentationID: "p1", SlideNumber: 1}

	first, err := s.Save(ctx, models.PresenterNote{PresentationID: "p1", SlideNumber: 1, Title: "first"})
	require.NoError(t, err)

	second, err := s.Save(ctx, models.PresenterNote{PresentationID: "p1", SlideNumber: 1, Title: "second"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	found, err := s.Find(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "second", found.Title)
	assert.WithinDuration(t, first.CreatedAt, found.CreatedAt, time.Second)
}

func TestNoteStorePresentationQueries(t *testing.T) {
	ctx := context.Background()
	s := NewNoteStore(openTestDB(t))
	for _, n := range []int{3, 1, 2} {
		_, err := s.Save(ctx, models.PresenterNote{PresentationID: "p1", SlideNumber: n})
		require.NoError(t, err)
	}
	_, err := s.Save(ctx, models.PresenterNote{PresentationID: "p2", SlideNumber: 1})
	require.NoError(t, err)

	notes, err := s.ListByPresentation(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, notes, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{notes[0].SlideNumber, notes[1].SlideNumber, notes[2].SlideNumber})

	require.NoError(t, s.DeleteByPresentation(ctx, "p1"))
	notes, err = s.ListByPresentation(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, notes)

	other, err := s.ListByPresentation(ctx, "p2")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestGuideStoreKeyedByPlatform(t *testing.T) {
	ctx := context.Background()
	s := NewGuideStore(openTestDB(t))
	url := "https://github.com/x/y"

	_, err := s.Save(ctx, models.DeploymentGuide{RepoURL: url, Platform: "render", Guide: "r"})
	require.NoError(t, err)
	_, err = s.Save(ctx, models.DeploymentGuide{RepoURL: url, Platform: "vercel", Guide: "v"})
	require.NoError(t, err)

	render, err := s.Find(ctx, models.GuideKey{RepoURL: url, Platform: "render"})
	require.NoError(t, err)
	require.NotNil(t, render)
	assert.Equal(t, "r", render.Guide)

	require.NoError(t, s.Delete(ctx, models.GuideKey{RepoURL: url, Platform: "render"}))
	vercel, err := s.Find(ctx, models.GuideKey{RepoURL: url, Platform: "vercel"})
	require.NoError(t, err)
	assert.NotNil(t, vercel)
}
