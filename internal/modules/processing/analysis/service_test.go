package analysis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/slidehub/ai-service/internal/models"
	"github.com/slidehub/ai-service/internal/modules/processing/llm"
	"github.com/slidehub/ai-service/internal/pkg/apperr"
	"github.com/slidehub/ai-service/internal/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const goRepoResponse = `{"language":"Go","framework":"net/http","technologies":["chi"],"buildSystem":"go mod","summary":"CLI tool","structure":"monolith","deploymentHints":"","dockerfile":""}`

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, gen llm.GeneratorFunc) (*Service, *memstore.Store[string, models.RepoAnalysis, *models.RepoAnalysis]) {
	t.Helper()
	st := memstore.NewAnalysisStore()
	client := llm.NewClient("fake", gen, zap.NewNop())
	return NewService(client, st, zap.NewNop(), WithClock(func() time.Time { return fixedNow })), st
}

func constant(text string, calls *atomic.Int32) llm.GeneratorFunc {
	return func(context.Context, llm.Request) (string, error) {
		calls.Add(1)
		return text, nil
	}
}

func TestAnalyzeGoRepository(t *testing.T) {
	var calls atomic.Int32
	svc, st := newTestService(t, constant(goRepoResponse, &calls))

	got, err := svc.Analyze(context.Background(), "https://github.com/x/y")
	require.NoError(t, err)

	assert.Equal(t, "Go", got.Language)
	assert.Equal(t, "net/http", got.Framework)
	assert.Equal(t, []string{"chi"}, []string(got.Technologies))
	assert.Equal(t, "go mod", got.BuildSystem)
	assert.Equal(t, "CLI tool", got.Summary)
	assert.Equal(t, fixedNow, got.AnalyzedAt)
	assert.NotEmpty(t, got.ID)

	stored, err := st.Find(context.Background(), "https://github.com/x/y")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "Go", stored.Language)
	assert.Equal(t, []string{"chi"}, []string(stored.Technologies))
}

func TestAnalyzeIsCached(t *testing.T) {
	var calls atomic.Int32
	svc, _ := newTestService(t, constant(goRepoResponse, &calls))
	ctx := context.Background()

	first, err := svc.Analyze(ctx, "https://github.com/x/y")
	require.NoError(t, err)
	second, err := svc.Analyze(ctx, "https://github.com/x/y")
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, first, second)
}

func TestReanalyzeBypassesCache(t *testing.T) {
	var calls atomic.Int32
	svc, st := newTestService(t, constant(goRepoResponse, &calls))
	ctx := context.Background()

	first, err := svc.Analyze(ctx, "https://github.com/x/y")
	require.NoError(t, err)
	second, err := svc.Reanalyze(ctx, "https://github.com/x/y")
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 1, st.Len())

	// no cached record is fine too
	_, err = svc.Reanalyze(ctx, "https://github.com/x/z")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestAnalyzeDegradedKeepsRawText(t *testing.T) {
	var calls atomic.Int32
	svc, st := newTestService(t, constant("I cannot analyze this.", &calls))

	got, err := svc.Analyze(context.Background(), "https://github.com/x/y")
	require.NoError(t, err)

	assert.Equal(t, "Desconocido", got.Language)
	assert.Equal(t, "Desconocido", got.Framework)
	assert.Equal(t, "Desconocido", got.BuildSystem)
	assert.Empty(t, got.Technologies)
	assert.Empty(t, got.Structure)
	assert.Empty(t, got.Dockerfile)
	assert.Equal(t, "I cannot analyze this.", got.Summary)
	assert.Equal(t, 1, st.Len())
}

func TestAnalyzeTransportFailureIsNotStored(t *testing.T) {
	var calls atomic.Int32
	svc, st := newTestService(t, func(context.Context, llm.Request) (string, error) {
		calls.Add(1)
		return "", errors.New("503")
	})

	got, err := svc.Analyze(context.Background(), "https://github.com/x/y")
	require.NoError(t, err)
	assert.Equal(t, "No se pudo analizar el repositorio.", got.Summary)
	assert.Equal(t, "Desconocido", got.Language)
	assert.Equal(t, 0, st.Len())

	_, err = svc.Analyze(context.Background(), "https://github.com/x/y")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestAnalyzeRejectsBlankURL(t *testing.T) {
	var calls atomic.Int32
	svc, _ := newTestService(t, constant(goRepoResponse, &calls))

	_, err := svc.Analyze(context.Background(), "   ")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	assert.Zero(t, calls.Load())
}

func TestAnalyzeCoalescesConcurrentMisses(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	svc, _ := newTestService(t, func(context.Context, llm.Request) (string, error) {
		calls.Add(1)
		<-release
		return goRepoResponse, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Analyze(context.Background(), "https://github.com/x/y")
			assert.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestSetDockerfile(t *testing.T) {
	var calls atomic.Int32
	svc, st := newTestService(t, constant(goRepoResponse, &calls))
	ctx := context.Background()

	ok, err := svc.SetDockerfile(ctx, "https://github.com/x/y", "FROM scratch")
	require.NoError(t, err)
	assert.False(t, ok)

	first, err := svc.Analyze(ctx, "https://github.com/x/y")
	require.NoError(t, err)
	ok, err = svc.SetDockerfile(ctx, "https://github.com/x/y", "FROM scratch")
	require.NoError(t, err)
	assert.True(t, ok)

	stored, err := st.Find(ctx, "https://github.com/x/y")
	require.NoError(t, err)
	assert.Equal(t, first.ID, stored.ID)
	assert.Equal(t, "FROM scratch", stored.Dockerfile)
}
