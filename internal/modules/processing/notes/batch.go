package notes

import (
	"context"
	"fmt"
	"strings"

	"github.com/slidehub/ai-service/internal/pkg/apperr"
	"go.uber.org/zap"
)

// GenerateAll generates notes for every slide in order, pausing between
// slides. A failing slide is logged and skipped. When ctx is cancelled no
// further slides are started and the count so far is returned with the
// context error. The count includes slides that ended with a fallback note.
func (s *Service) GenerateAll(ctx context.Context, req GenerateAllRequest) (int, error) {
	req.PresentationID = strings.TrimSpace(req.PresentationID)
	if req.PresentationID == "" {
		return 0, apperr.Invalid("presentationId is required")
	}

	log := s.logger.With(zap.String("presentation", req.PresentationID))
	log.Info("generate-all started", zap.Int("slides", len(req.Slides)))

	generated := 0
	for i, slide := range req.Slides {
		if err := ctx.Err(); err != nil {
			log.Warn("generate-all interrupted", zap.Int("slide", slide.SlideNumber))
			return generated, err
		}

		// in-flight provider calls are allowed to finish after cancellation
		err := s.generateSlide(context.WithoutCancel(ctx), GenerateNoteRequest{
			PresentationID: req.PresentationID,
			SlideNumber:    slide.SlideNumber,
			RepoURL:        req.RepoURL,
			ImageURL:       slide.ImageURL,
		})
		if err != nil {
			log.Error("slide failed during generate-all", zap.Int("slide", slide.SlideNumber), zap.Error(err))
		} else {
			generated++
			log.Debug("slide note generated", zap.Int("slide", slide.SlideNumber), zap.Int("of", len(req.Slides)))
		}

		if i < len(req.Slides)-1 {
			if err := s.sleep(ctx, s.delay); err != nil {
				log.Warn("generate-all interrupted", zap.Int("after_slide", slide.SlideNumber))
				return generated, err
			}
		}
	}

	log.Info("generate-all finished", zap.Int("generated", generated), zap.Int("slides", len(req.Slides)))
	return generated, nil
}

func (s *Service) generateSlide(ctx context.Context, req GenerateNoteRequest) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	_, err = s.Generate(ctx, req)
	return err
}
