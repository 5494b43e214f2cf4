// Package analysis produces and caches the technical analysis of a
// repository.
package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/slidehub/ai-service/internal/models"
	"github.com/slidehub/ai-service/internal/modules/processing/llm"
	"github.com/slidehub/ai-service/internal/pkg/apperr"
	"github.com/slidehub/ai-service/internal/store"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type Service struct {
	client *llm.Client
	store  store.AnalysisStore
	logger *zap.Logger
	now    func() time.Time
	group  singleflight.Group
}

type Option func(*Service)

// WithClock overrides the time source used for analyzedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(client *llm.Client, st store.AnalysisStore, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		client: client,
		store:  st,
		logger: logger.Named("AnalysisService"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Analyze returns the cached analysis for repoURL, generating and storing it
// on a miss.
func (s *Service) Analyze(ctx context.Context, repoURL string) (models.RepoAnalysis, error) {
	repoURL = strings.TrimSpace(repoURL)
	if repoURL == "" {
		return models.RepoAnalysis{}, apperr.Invalid("repoUrl is required")
	}

	cached, err := s.Cached(ctx, repoURL)
	if err != nil {
		return models.RepoAnalysis{}, err
	}
	if cached != nil {
		s.logger.Debug("analysis cache hit", zap.String("repo", repoURL))
		return *cached, nil
	}

	v, err, shared := s.group.Do(repoURL, func() (any, error) {
		return s.generate(ctx, repoURL)
	})
	if err != nil {
		return models.RepoAnalysis{}, err
	}
	if shared {
		s.logger.Debug("analysis shared with concurrent caller", zap.String("repo", repoURL))
	}
	return v.(models.RepoAnalysis), nil
}

// Reanalyze drops any cached analysis and generates a fresh one.
func (s *Service) Reanalyze(ctx context.Context, repoURL string) (models.RepoAnalysis, error) {
	repoURL = strings.TrimSpace(repoURL)
	if repoURL == "" {
		return models.RepoAnalysis{}, apperr.Invalid("repoUrl is required")
	}
	if err := s.store.Delete(ctx, repoURL); err != nil {
		return models.RepoAnalysis{}, fmt.Errorf("delete analysis: %w", err)
	}
	return s.Analyze(ctx, repoURL)
}

// Cached returns the stored analysis or nil.
func (s *Service) Cached(ctx context.Context, repoURL string) (*models.RepoAnalysis, error) {
	cached, err := s.store.Find(ctx, repoURL)
	if err != nil {
		return nil, fmt.Errorf("find analysis: %w", err)
	}
	return cached, nil
}

// SetDockerfile back-fills the Dockerfile of a cached analysis. It reports
// whether a record was updated.
func (s *Service) SetDockerfile(ctx context.Context, repoURL, dockerfile string) (bool, error) {
	cached, err := s.Cached(ctx, repoURL)
	if err != nil || cached == nil {
		return false, err
	}
	updated := *cached
	updated.Dockerfile = dockerfile
	if _, err := s.store.Save(ctx, updated); err != nil {
		return false, fmt.Errorf("save analysis: %w", err)
	}
	return true, nil
}

func (s *Service) generate(ctx context.Context, repoURL string) (models.RepoAnalysis, error) {
	s.logger.Info("analyzing repository", zap.String("repo", repoURL))

	res := s.client.Complete(ctx, llm.Request{Prompt: analysisPrompt(repoURL), JSON: true})
	if !res.OK() {
		// Transport failures are returned degraded but never cached, so an
		// outage does not pin the placeholder and the next request retries.
		s.logger.Warn("analysis unavailable",
			zap.String("repo", repoURL),
			zap.String("reason", res.Reason()))
		fields := defaultFields()
		fields.Summary = transportFailed
		return fields.toModel(repoURL, s.now()), nil
	}

	out := parseAnalysis(res.Text)
	if out.Degraded {
		s.logger.Warn("analysis response is not JSON, keeping raw text",
			zap.String("repo", repoURL),
			zap.Int("chars", len(out.Raw)))
	}

	saved, err := s.store.Save(ctx, out.Fields.toModel(repoURL, s.now()))
	if err != nil {
		return models.RepoAnalysis{}, fmt.Errorf("save analysis: %w", err)
	}
	s.logger.Info("analysis stored",
		zap.String("repo", repoURL),
		zap.String("id", saved.ID),
		zap.Bool("degraded", out.Degraded))
	return saved, nil
}
