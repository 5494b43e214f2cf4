package llm

import (
	"encoding/json"
	"errors"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var fenceFlavors = []string{"json", "dockerfile", "bash", "yaml"}

// ErrNoJSON reports provider text with no decodable JSON object.
var ErrNoJSON = errors.New("invalid JSON response from AI")

// StripFences removes a leading and trailing markdown code fence from raw
// provider text. Text without fences is only trimmed.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	for {
		next := stripOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

func stripOnce(s string) string {
	if rest, ok := strings.CutPrefix(s, "```"); ok {
		s = trimFlavor(rest)
	}
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func trimFlavor(s string) string {
	for _, flavor := range fenceFlavors {
		if len(s) < len(flavor) || !strings.EqualFold(s[:len(flavor)], flavor) {
			continue
		}
		rest := s[len(flavor):]
		if rest == "" {
			return rest
		}
		if r := []rune(rest)[0]; !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return rest
		}
	}
	return s
}

// ExtractFencedBlock returns the body of the first fenced code block found in
// raw, such as a Dockerfile wrapped in explanatory prose.
func ExtractFencedBlock(raw string) (string, bool) {
	src := []byte(raw)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var (
		body  strings.Builder
		found bool
	)
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		block, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		lines := block.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			body.Write(seg.Value(src))
		}
		found = true
		return ast.WalkStop, nil
	})
	if !found {
		return "", false
	}
	return strings.TrimSpace(body.String()), true
}

// DecodeJSON decodes the first JSON object it can recover from raw: the
// fence-stripped text, then an embedded fenced block, then the outermost
// brace-delimited substring.
func DecodeJSON(raw string, out any) error {
	cleaned := StripFences(raw)
	if cleaned == "" {
		return ErrNoJSON
	}
	if err := json.Unmarshal([]byte(cleaned), out); err == nil {
		return nil
	}

	if block, ok := ExtractFencedBlock(raw); ok {
		if err := json.Unmarshal([]byte(block), out); err == nil {
			return nil
		}
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(cleaned[start:end+1]), out); err == nil {
			return nil
		}
	}
	return ErrNoJSON
}
