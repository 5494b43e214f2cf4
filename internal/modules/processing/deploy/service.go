// Package deploy generates Dockerfiles and platform deployment guides from a
// repository analysis.
package deploy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/slidehub/ai-service/internal/models"
	"github.com/slidehub/ai-service/internal/modules/processing/analysis"
	"github.com/slidehub/ai-service/internal/modules/processing/llm"
	"github.com/slidehub/ai-service/internal/pkg/apperr"
	"github.com/slidehub/ai-service/internal/store"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type Service struct {
	analysis *analysis.Service
	text     *llm.Client
	guides   store.GuideStore
	logger   *zap.Logger
	now      func() time.Time
	group    singleflight.Group
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(analysisSvc *analysis.Service, text *llm.Client, guides store.GuideStore, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		analysis: analysisSvc,
		text:     text,
		guides:   guides,
		logger:   logger.Named("DeployService"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AnalyzeRepository returns the cached or freshly generated analysis.
func (s *Service) AnalyzeRepository(ctx context.Context, repoURL string) (models.RepoAnalysis, error) {
	return s.analysis.Analyze(ctx, repoURL)
}

// GenerateDockerfile always asks the provider for a new Dockerfile and
// back-fills it into the cached analysis of repoURL, if there is one. A
// provider failure yields an empty Dockerfile.
func (s *Service) GenerateDockerfile(ctx context.Context, repoURL, language, framework string, ports []int, envVars []string) (string, error) {
	repoURL = strings.TrimSpace(repoURL)
	switch {
	case repoURL == "":
		return "", apperr.Invalid("repoUrl is required")
	case strings.TrimSpace(language) == "":
		return "", apperr.Invalid("language is required")
	case strings.TrimSpace(framework) == "":
		return "", apperr.Invalid("framework is required")
	}

	dockerfile := s.dockerfile(ctx, repoURL, language, framework, ports, envVars)
	if dockerfile == "" {
		return "", nil
	}
	updated, err := s.analysis.SetDockerfile(ctx, repoURL, dockerfile)
	if err != nil {
		return "", err
	}
	if updated {
		s.logger.Debug("dockerfile stored on analysis", zap.String("repo", repoURL))
	}
	return dockerfile, nil
}

// GenerateGuide returns the cached guide for (repoURL, platform) or builds
// one from the repository analysis.
func (s *Service) GenerateGuide(ctx context.Context, repoURL, platform string) (models.DeploymentGuide, error) {
	repoURL = strings.TrimSpace(repoURL)
	if repoURL == "" {
		return models.DeploymentGuide{}, apperr.Invalid("repoUrl is required")
	}
	platform, err := normalizePlatform(platform)
	if err != nil {
		return models.DeploymentGuide{}, err
	}

	key := models.GuideKey{RepoURL: repoURL, Platform: platform}
	cached, err := s.guides.Find(ctx, key)
	if err != nil {
		return models.DeploymentGuide{}, fmt.Errorf("find guide: %w", err)
	}
	if cached != nil {
		s.logger.Debug("guide cache hit", zap.String("repo", repoURL), zap.String("platform", platform))
		return *cached, nil
	}

	v, err, _ := s.group.Do(key.Hash(), func() (any, error) {
		return s.buildGuide(ctx, key)
	})
	if err != nil {
		return models.DeploymentGuide{}, err
	}
	return v.(models.DeploymentGuide), nil
}

// RegenerateGuide drops the cached guide and builds a new one.
func (s *Service) RegenerateGuide(ctx context.Context, repoURL, platform string) (models.DeploymentGuide, error) {
	repoURL = strings.TrimSpace(repoURL)
	if repoURL == "" {
		return models.DeploymentGuide{}, apperr.Invalid("repoUrl is required")
	}
	p, err := normalizePlatform(platform)
	if err != nil {
		return models.DeploymentGuide{}, err
	}
	if err := s.guides.Delete(ctx, models.GuideKey{RepoURL: repoURL, Platform: p}); err != nil {
		return models.DeploymentGuide{}, fmt.Errorf("delete guide: %w", err)
	}
	return s.GenerateGuide(ctx, repoURL, p)
}

func (s *Service) buildGuide(ctx context.Context, key models.GuideKey) (models.DeploymentGuide, error) {
	log := s.logger.With(zap.String("repo", key.RepoURL), zap.String("platform", key.Platform))

	repo, err := s.analysis.Analyze(ctx, key.RepoURL)
	if err != nil {
		return models.DeploymentGuide{}, err
	}

	dockerfile := repo.Dockerfile
	if strings.TrimSpace(dockerfile) == "" {
		dockerfile = s.dockerfile(ctx, key.RepoURL, repo.Language, repo.Framework, repo.Ports, repo.Environment)
	}

	log.Info("generating deployment guide")
	content := s.guideContent(ctx, key.Platform, repo, log)

	saved, err := s.guides.Save(ctx, models.DeploymentGuide{
		Base:               models.Base{ID: uuid.NewString()},
		RepoURL:            key.RepoURL,
		Platform:           key.Platform,
		GeneratedAt:        s.now(),
		Dockerfile:         dockerfile,
		Guide:              content.Guide,
		Tips:               models.Strings(content.Tips),
		EnvironmentExample: content.EnvironmentExample,
	})
	if err != nil {
		return models.DeploymentGuide{}, fmt.Errorf("save guide: %w", err)
	}
	log.Info("deployment guide stored", zap.String("id", saved.ID))
	return saved, nil
}

func (s *Service) guideContent(ctx context.Context, platform string, repo models.RepoAnalysis, log *zap.Logger) guideContent {
	res := s.text.Complete(ctx, llm.Request{
		System: guideSystemPrompt,
		Prompt: guidePrompt(repo.Language, repo.Framework, platform, repo.Environment, repo.Databases),
		JSON:   true,
	})
	if !res.OK() {
		log.Warn("guide unavailable, using fallback", zap.String("reason", res.Reason()))
		return fallbackGuide(platform, repo.Environment)
	}
	out := parseGuide(res.Text)
	if out.Err != nil {
		log.Warn("guide response could not be decoded, using fallback", zap.Error(out.Err))
		return fallbackGuide(platform, repo.Environment)
	}
	return out.Content
}

func (s *Service) dockerfile(ctx context.Context, repoURL, language, framework string, ports []int, envVars []string) string {
	s.logger.Info("generating dockerfile",
		zap.String("repo", repoURL),
		zap.String("language", language),
		zap.String("framework", framework))
	res := s.text.Complete(ctx, llm.Request{
		System: dockerfileSystemPrompt,
		Prompt: dockerfilePrompt(language, framework, ports, envVars),
	})
	if !res.OK() {
		return ""
	}
	return cleanDockerfile(res.Text)
}
