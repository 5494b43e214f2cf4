package notes

import (
	"errors"
	"fmt"
	"strings"

	"github.com/slidehub/ai-service/internal/modules/processing/llm"
)

var errEmptyNote = errors.New("note has no title and no points")

// noteOutcome is either decoded content or the error that forced the fallback.
type noteOutcome struct {
	Content NoteContent
	Err     error
}

func parseNote(raw string) noteOutcome {
	var content NoteContent
	if err := llm.DecodeJSON(raw, &content); err != nil {
		return noteOutcome{Err: err}
	}
	if strings.TrimSpace(content.Title) == "" && len(content.Points) == 0 {
		return noteOutcome{Err: errEmptyNote}
	}
	content.Points = nonNil(content.Points)
	content.KeyPhrases = nonNil(content.KeyPhrases)
	content.DemoTags = nonNil(content.DemoTags)
	return noteOutcome{Content: content}
}

func fallbackNote(lang string, slideNumber int, reason string) NoteContent {
	return NoteContent{
		Title:         fmt.Sprintf("Slide %d", slideNumber),
		Points:        []string{fallbackReasonPrefix(lang) + reason},
		SuggestedTime: "~2 min",
		KeyPhrases:    []string{},
		DemoTags:      []string{},
	}
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
