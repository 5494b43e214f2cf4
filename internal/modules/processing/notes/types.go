package notes

import (
	"context"
	"time"
)

// GenerateNoteRequest describes one slide. Only PresentationID and
// SlideNumber are required; the rest feed the description and context stages.
type GenerateNoteRequest struct {
	PresentationID string `json:"presentationId"`
	SlideNumber    int    `json:"slideNumber"`
	RepoURL        string `json:"repoUrl,omitempty"`
	// ImageData is base64, optionally as a data: URL.
	ImageData    string `json:"imageData,omitempty"`
	ImageURL     string `json:"imageUrl,omitempty"`
	SlideContext string `json:"slideContext,omitempty"`
}

type SlideReference struct {
	SlideNumber int    `json:"slideNumber"`
	ImageURL    string `json:"imageUrl"`
}

type GenerateAllRequest struct {
	PresentationID string           `json:"presentationId"`
	RepoURL        string           `json:"repoUrl,omitempty"`
	Slides         []SlideReference `json:"slides"`
}

// NoteContent is the structured note produced by the synthesis stage.
type NoteContent struct {
	Title         string   `json:"title"`
	Points        []string `json:"points"`
	SuggestedTime string   `json:"suggestedTime"`
	KeyPhrases    []string `json:"keyPhrases"`
	DemoTags      []string `json:"demoTags"`
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
