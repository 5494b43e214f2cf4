// Package notes generates presenter notes for slides and caches them per
// presentation and slide number.
package notes

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/slidehub/ai-service/internal/models"
	"github.com/slidehub/ai-service/internal/modules/processing/llm"
	"github.com/slidehub/ai-service/internal/pkg/apperr"
	"github.com/slidehub/ai-service/internal/pkg/imagefetch"
	"github.com/slidehub/ai-service/internal/store"
	"go.uber.org/zap"
)

const defaultBatchDelay = 1500 * time.Millisecond

type Service struct {
	vision   *llm.Client
	text     *llm.Client
	images   imagefetch.Fetcher
	store    store.NoteStore
	logger   *zap.Logger
	language string
	delay    time.Duration
	sleep    SleepFunc

	tasks     TaskQueue
	heartbeat time.Duration
	mu        sync.Mutex
	running   map[string]context.CancelFunc
	closing   bool
	wg        sync.WaitGroup
}

type Option func(*Service)

func WithLanguage(code string) Option {
	return func(s *Service) {
		if v := strings.TrimSpace(code); v != "" {
			s.language = v
		}
	}
}

// WithBatchDelay sets the pause between slides in GenerateAll.
func WithBatchDelay(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.delay = d
		}
	}
}

func WithSleeper(fn SleepFunc) Option {
	return func(s *Service) {
		if fn != nil {
			s.sleep = fn
		}
	}
}

// WithTaskQueue enables EnqueueGenerateAll.
func WithTaskQueue(q TaskQueue) Option {
	return func(s *Service) { s.tasks = q }
}

func NewService(vision, text *llm.Client, images imagefetch.Fetcher, st store.NoteStore, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		vision:   vision,
		text:     text,
		images:   images,
		store:    st,
		logger:   logger.Named("NotesService"),
		language: "es",
		delay:    defaultBatchDelay,
		sleep:    sleepContext,
		running:  make(map[string]context.CancelFunc),

		heartbeat: defaultHeartbeat,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate runs the description, repository context and synthesis stages for
// one slide and upserts the resulting note.
func (s *Service) Generate(ctx context.Context, req GenerateNoteRequest) (models.PresenterNote, error) {
	req.PresentationID = strings.TrimSpace(req.PresentationID)
	if req.PresentationID == "" {
		return models.PresenterNote{}, apperr.Invalid("presentationId is required")
	}
	if req.SlideNumber < 1 {
		return models.PresenterNote{}, apperr.Invalid("slideNumber must be >= 1")
	}

	log := s.logger.With(zap.String("presentation", req.PresentationID), zap.Int("slide", req.SlideNumber))
	log.Info("generating note")

	description := s.describeSlide(ctx, req, log)
	repoContext := s.repoContext(ctx, req.RepoURL, description, log)
	content := s.synthesize(ctx, req.SlideNumber, description, repoContext, log)

	return s.upsert(ctx, req.PresentationID, req.SlideNumber, content)
}

func (s *Service) List(ctx context.Context, presentationID string) ([]models.PresenterNote, error) {
	if strings.TrimSpace(presentationID) == "" {
		return nil, apperr.Invalid("presentationId is required")
	}
	notes, err := s.store.ListByPresentation(ctx, presentationID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}

// Get returns nil when the slide has no note.
func (s *Service) Get(ctx context.Context, presentationID string, slideNumber int) (*models.PresenterNote, error) {
	if strings.TrimSpace(presentationID) == "" || slideNumber < 1 {
		return nil, apperr.Invalid("presentationId and a positive slideNumber are required")
	}
	note, err := s.store.Find(ctx, models.NoteKey{PresentationID: presentationID, SlideNumber: slideNumber})
	if err != nil {
		return nil, fmt.Errorf("find note: %w", err)
	}
	return note, nil
}

func (s *Service) DeleteAll(ctx context.Context, presentationID string) error {
	if strings.TrimSpace(presentationID) == "" {
		return apperr.Invalid("presentationId is required")
	}
	if err := s.store.DeleteByPresentation(ctx, presentationID); err != nil {
		return fmt.Errorf("delete notes: %w", err)
	}
	return nil
}

// describeSlide picks the first usable description: inline image, image URL,
// manual context, then a bare slide label.
func (s *Service) describeSlide(ctx context.Context, req GenerateNoteRequest, log *zap.Logger) string {
	if data := strings.TrimSpace(req.ImageData); data != "" {
		img, err := decodeImageData(data)
		if err != nil {
			log.Warn("imageData is not valid base64", zap.Error(err))
		} else if res := s.vision.DescribeImage(ctx, img); res.OK() {
			return strings.TrimSpace(res.Text)
		}
	}

	if url := strings.TrimSpace(req.ImageURL); url != "" && s.images != nil {
		img, err := s.images.Fetch(ctx, url)
		switch {
		case err != nil:
			log.Warn("image download failed", zap.String("url", url), zap.Error(err))
		case len(img) == 0:
			log.Warn("image download returned no data", zap.String("url", url))
		default:
			if res := s.vision.DescribeImage(ctx, img); res.OK() {
				return strings.TrimSpace(res.Text)
			}
		}
	}

	if strings.TrimSpace(req.SlideContext) != "" {
		return req.SlideContext
	}
	return fmt.Sprintf("Slide %d", req.SlideNumber)
}

func (s *Service) repoContext(ctx context.Context, repoURL, description string, log *zap.Logger) string {
	repoURL = strings.TrimSpace(repoURL)
	if repoURL == "" {
		return ""
	}
	res := s.vision.Complete(ctx, llm.Request{Prompt: repoContextPrompt(s.language, repoURL, description)})
	if !res.OK() {
		log.Warn("repository context unavailable", zap.String("repo", repoURL), zap.String("reason", res.Reason()))
		return ""
	}
	return strings.TrimSpace(res.Text)
}

func (s *Service) synthesize(ctx context.Context, slideNumber int, description, repoContext string, log *zap.Logger) NoteContent {
	res := s.text.Complete(ctx, llm.Request{
		System: noteSystemPrompt(s.language),
		Prompt: notePrompt(s.language, slideNumber, description, repoContext),
		JSON:   true,
	})
	if !res.OK() {
		return fallbackNote(s.language, slideNumber, res.Reason())
	}
	out := parseNote(res.Text)
	if out.Err != nil {
		log.Error("note response could not be decoded", zap.Error(out.Err))
		return fallbackNote(s.language, slideNumber, out.Err.Error())
	}
	return out.Content
}

func (s *Service) upsert(ctx context.Context, presentationID string, slideNumber int, content NoteContent) (models.PresenterNote, error) {
	key := models.NoteKey{PresentationID: presentationID, SlideNumber: slideNumber}
	existing, err := s.store.Find(ctx, key)
	if err != nil {
		return models.PresenterNote{}, fmt.Errorf("find note: %w", err)
	}

	note := models.PresenterNote{
		PresentationID: presentationID,
		SlideNumber:    slideNumber,
		Title:          content.Title,
		Points:         models.Strings(content.Points),
		SuggestedTime:  content.SuggestedTime,
		KeyPhrases:     models.Strings(content.KeyPhrases),
		DemoTags:       models.Strings(content.DemoTags),
	}
	if existing != nil {
		note.ID = existing.ID
		note.CreatedAt = existing.CreatedAt
	}

	saved, err := s.store.Save(ctx, note)
	if err != nil {
		return models.PresenterNote{}, fmt.Errorf("save note: %w", err)
	}
	return saved, nil
}

func decodeImageData(data string) ([]byte, error) {
	if strings.HasPrefix(data, "data:") {
		if idx := strings.Index(data, ","); idx >= 0 {
			data = data[idx+1:]
		}
	}
	if b, err := base64.StdEncoding.DecodeString(data); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(data)
}
