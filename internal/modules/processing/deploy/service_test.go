package deploy

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/slidehub/ai-service/internal/models"
	"github.com/slidehub/ai-service/internal/modules/processing/analysis"
	"github.com/slidehub/ai-service/internal/modules/processing/llm"
	"github.com/slidehub/ai-service/internal/pkg/apperr"
	"github.com/slidehub/ai-service/internal/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	repoURL          = "https://github.com/x/y"
	analysisNoDocker = `{"language":"Go","framework":"gin","technologies":["redis"],"buildSystem":"go mod","summary":"API","structure":"monolith","deploymentHints":"","dockerfile":"","environment":["DATABASE_URL","REDIS_URL"],"databases":["mysql"],"ports":[8080]}`
	dockerfileReply  = "```dockerfile\nFROM golang:1.24 AS build\nUSER app\n```"
	guideReply       = `{"guide":"1. Paso uno\n2. Paso dos","tips":["tip"],"environmentExample":"DATABASE_URL=\nREDIS_URL="}`
)

var fixedNow = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

type fakeProvider struct {
	mu      sync.Mutex
	prompts []string
	respond func(req llm.Request) (string, error)
}

func (p *fakeProvider) Generate(_ context.Context, req llm.Request) (string, error) {
	p.mu.Lock()
	p.prompts = append(p.prompts, req.Prompt)
	p.mu.Unlock()
	return p.respond(req)
}

func (p *fakeProvider) count(substr string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, prompt := range p.prompts {
		if strings.Contains(prompt, substr) {
			n++
		}
	}
	return n
}

type fixture struct {
	svc      *Service
	vision   *fakeProvider
	text     *fakeProvider
	analyses *memstore.Store[string, models.RepoAnalysis, *models.RepoAnalysis]
	guides   *memstore.Store[models.GuideKey, models.DeploymentGuide, *models.DeploymentGuide]
}

func newFixture(t *testing.T, analysisReply string, text func(req llm.Request) (string, error)) *fixture {
	t.Helper()
	f := &fixture{
		vision:   &fakeProvider{respond: func(llm.Request) (string, error) { return analysisReply, nil }},
		text:     &fakeProvider{respond: text},
		analyses: memstore.NewAnalysisStore(),
		guides:   memstore.NewGuideStore(),
	}
	clock := func() time.Time { return fixedNow }
	analysisSvc := analysis.NewService(llm.NewClient("vision", f.vision, zap.NewNop()), f.analyses, zap.NewNop(), analysis.WithClock(clock))
	f.svc = NewService(analysisSvc, llm.NewClient("text", f.text, zap.NewNop()), f.guides, zap.NewNop(), WithClock(clock))
	return f
}

func textReplies(req llm.Request) (string, error) {
	if req.System == dockerfileSystemPrompt {
		return dockerfileReply, nil
	}
	return guideReply, nil
}

func TestGenerateGuideBuildsFromAnalysis(t *testing.T) {
	f := newFixture(t, analysisNoDocker, textReplies)
	ctx := context.Background()

	g, err := f.svc.GenerateGuide(ctx, repoURL, "")
	require.NoError(t, err)

	assert.Equal(t, "render", g.Platform)
	assert.NotEmpty(t, g.ID)
	assert.Equal(t, fixedNow, g.GeneratedAt)
	assert.Equal(t, "FROM golang:1.24 AS build\nUSER app", g.Dockerfile)
	assert.Equal(t, "1. Paso uno\n2. Paso dos", g.Guide)
	assert.Equal(t, []string{"tip"}, []string(g.Tips))

	assert.Equal(t, 1, f.text.count("Genera un Dockerfile"))
	assert.Equal(t, 1, f.text.count("plataforma Render"))
	assert.Equal(t, 1, f.text.count("DATABASE_URL, REDIS_URL"))
	assert.Equal(t, 1, f.text.count("Bases de datos: mysql"))

	again, err := f.svc.GenerateGuide(ctx, repoURL, "RENDER")
	require.NoError(t, err)
	assert.Equal(t, g.ID, again.ID)
	assert.Equal(t, 1, f.text.count("plataforma Render"))
	assert.Equal(t, 1, f.vision.count(repoURL))
}

func TestGenerateGuideReusesAnalysisDockerfile(t *testing.T) {
	withDocker := strings.Replace(analysisNoDocker, `"dockerfile":""`, `"dockerfile":"FROM alpine"`, 1)
	f := newFixture(t, withDocker, textReplies)

	g, err := f.svc.GenerateGuide(context.Background(), repoURL, "vercel")
	require.NoError(t, err)

	assert.Equal(t, "FROM alpine", g.Dockerfile)
	assert.Zero(t, f.text.count("Genera un Dockerfile"))
}

func TestGenerateGuideFallback(t *testing.T) {
	f := newFixture(t, analysisNoDocker, func(req llm.Request) (string, error) {
		if req.System == dockerfileSystemPrompt {
			return dockerfileReply, nil
		}
		return "no JSON here", nil
	})

	g, err := f.svc.GenerateGuide(context.Background(), repoURL, "netlify")
	require.NoError(t, err)

	steps := strings.Split(g.Guide, "\n")
	require.Len(t, steps, 5)
	for i, step := range steps {
		assert.True(t, strings.HasPrefix(step, string(rune('1'+i))+". "), step)
	}
	assert.Contains(t, g.Guide, "Netlify")
	assert.Contains(t, g.Guide, "DATABASE_URL, REDIS_URL")
	assert.Len(t, g.Tips, 2)
	assert.Equal(t, "DATABASE_URL=\nREDIS_URL=", g.EnvironmentExample)

	again, err := f.svc.RegenerateGuide(context.Background(), repoURL, "netlify")
	require.NoError(t, err)
	assert.Equal(t, g.Guide, again.Guide)
	assert.Equal(t, g.Tips, again.Tips)
	assert.NotEqual(t, g.ID, again.ID)
}

func TestGenerateGuideFallbackWithoutEnv(t *testing.T) {
	f := newFixture(t, `{"language":"Go","framework":"none"}`, func(llm.Request) (string, error) {
		return "", errors.New("provider down")
	})

	g, err := f.svc.GenerateGuide(context.Background(), repoURL, "render")
	require.NoError(t, err)

	assert.Equal(t, "# Este proyecto no declara variables de entorno", g.EnvironmentExample)
	assert.Contains(t, g.Guide, "ninguna")
	assert.Empty(t, g.Dockerfile)
}

func TestGenerateGuideValidation(t *testing.T) {
	f := newFixture(t, analysisNoDocker, textReplies)

	_, err := f.svc.GenerateGuide(context.Background(), " ", "render")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	_, err = f.svc.GenerateGuide(context.Background(), repoURL, "heroku")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	_, err = f.svc.RegenerateGuide(context.Background(), repoURL, "heroku")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	assert.Zero(t, f.vision.count(repoURL))
}

func TestGenerateDockerfileBackfillsAnalysis(t *testing.T) {
	f := newFixture(t, analysisNoDocker, textReplies)
	ctx := context.Background()

	// no cached analysis: nothing to back-fill
	out, err := f.svc.GenerateDockerfile(ctx, repoURL, "Go", "gin", []int{8080}, nil)
	require.NoError(t, err)
	assert.Equal(t, "FROM golang:1.24 AS build\nUSER app", out)
	assert.Zero(t, f.analyses.Len())

	first, err := f.svc.AnalyzeRepository(ctx, repoURL)
	require.NoError(t, err)
	_, err = f.svc.GenerateDockerfile(ctx, repoURL, "Go", "gin", []int{8080}, []string{"PORT"})
	require.NoError(t, err)

	stored, err := f.analyses.Find(ctx, repoURL)
	require.NoError(t, err)
	assert.Equal(t, first.ID, stored.ID)
	assert.Equal(t, "FROM golang:1.24 AS build\nUSER app", stored.Dockerfile)
	assert.Equal(t, 2, f.text.count("Genera un Dockerfile"))
	assert.Equal(t, 2, f.text.count("Puertos que expone la aplicación: 8080"))
}

func TestGenerateDockerfileValidation(t *testing.T) {
	f := newFixture(t, analysisNoDocker, textReplies)

	for _, args := range [][3]string{{"", "Go", "gin"}, {repoURL, "", "gin"}, {repoURL, "Go", " "}} {
		_, err := f.svc.GenerateDockerfile(context.Background(), args[0], args[1], args[2], nil, nil)
		assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	}
	assert.Zero(t, f.text.count("Genera un Dockerfile"))
}

func TestCleanDockerfile(t *testing.T) {
	assert.Equal(t, "FROM alpine", cleanDockerfile("```Dockerfile\nFROM alpine\n```"))
	assert.Equal(t, "FROM alpine", cleanDockerfile("FROM alpine"))
	assert.Equal(t, "FROM node:22-slim\nUSER node",
		cleanDockerfile("Aquí tienes el Dockerfile:\n\n```dockerfile\nFROM node:22-slim\nUSER node\n```\n\nEspero que ayude."))
}

func TestEnvExample(t *testing.T) {
	assert.Equal(t, "A=\nB=", envExample([]string{"A", " B=default ", ""}))
	assert.Equal(t, noEnvPlaceholder, envExample(nil))
}

func TestRenderGuideHTML(t *testing.T) {
	html, err := RenderGuideHTML(models.DeploymentGuide{
		Platform:           "render",
		Guide:              "1. Uno\n2. Dos",
		Tips:               models.StringArray{"tip"},
		EnvironmentExample: "A=",
		Dockerfile:         "FROM alpine",
	})
	require.NoError(t, err)
	assert.Contains(t, html, "<h2>Render</h2>")
	assert.Contains(t, html, "<ol>")
	assert.Contains(t, html, "<li>tip</li>")
	assert.Contains(t, html, `class="language-dockerfile"`)
}
