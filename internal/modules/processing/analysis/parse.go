package analysis

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/slidehub/ai-service/internal/models"
	"github.com/slidehub/ai-service/internal/modules/processing/llm"
)

const (
	unknownValue    = "Desconocido"
	transportFailed = "No se pudo analizar el repositorio."
)

type analysisFields struct {
	Language        string
	Framework       string
	Technologies    []string
	BuildSystem     string
	Summary         string
	Structure       string
	DeploymentHints string
	Dockerfile      string
	Ports           []int
	Environment     []string
	Databases       []string
}

// analysisOutcome is the result of parsing provider text. Degraded is set when
// the text held no JSON object at all; Raw keeps the text as received.
type analysisOutcome struct {
	Fields   analysisFields
	Degraded bool
	Raw      string
}

func defaultFields() analysisFields {
	return analysisFields{
		Language:    unknownValue,
		Framework:   unknownValue,
		BuildSystem: unknownValue,
	}
}

func parseAnalysis(raw string) analysisOutcome {
	var root map[string]any
	if err := llm.DecodeJSON(raw, &root); err != nil || root == nil {
		fields := defaultFields()
		fields.Summary = raw
		return analysisOutcome{Fields: fields, Degraded: true, Raw: raw}
	}

	return analysisOutcome{
		Fields: analysisFields{
			Language:        textOr(root, "language", unknownValue),
			Framework:       textOr(root, "framework", unknownValue),
			Technologies:    textList(root["technologies"]),
			BuildSystem:     textOr(root, "buildSystem", unknownValue),
			Summary:         textOr(root, "summary", ""),
			Structure:       textOr(root, "structure", ""),
			DeploymentHints: textOr(root, "deploymentHints", ""),
			Dockerfile:      llm.StripFences(textOr(root, "dockerfile", "")),
			Ports:           intList(root["ports"]),
			Environment:     textList(root["environment"]),
			Databases:       textList(root["databases"]),
		},
		Raw: raw,
	}
}

func textOr(root map[string]any, key, def string) string {
	if s, ok := root[key].(string); ok {
		return s
	}
	return def
}

// textList keeps only the string items of a JSON array.
func textList(v any) []string {
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func intList(v any) []int {
	items, _ := v.([]any)
	out := make([]int, 0, len(items))
	for _, item := range items {
		switch n := item.(type) {
		case float64:
			if n == math.Trunc(n) && n > 0 && n < 65536 {
				out = append(out, int(n))
			}
		case string:
			if p, err := strconv.Atoi(strings.TrimSpace(n)); err == nil && p > 0 && p < 65536 {
				out = append(out, p)
			}
		}
	}
	return out
}

func (f analysisFields) toModel(repoURL string, now time.Time) models.RepoAnalysis {
	ports := f.Ports
	if ports == nil {
		ports = []int{}
	}
	return models.RepoAnalysis{
		RepoURL:         repoURL,
		AnalyzedAt:      now,
		Language:        f.Language,
		Framework:       f.Framework,
		Technologies:    models.Strings(f.Technologies),
		BuildSystem:     f.BuildSystem,
		Summary:         f.Summary,
		Structure:       f.Structure,
		DeploymentHints: f.DeploymentHints,
		Dockerfile:      f.Dockerfile,
		Ports:           ports,
		Environment:     models.Strings(f.Environment),
		Databases:       models.Strings(f.Databases),
	}
}
