package deploy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/slidehub/ai-service/internal/modules/processing/llm"
)

const noEnvPlaceholder = "# Este proyecto no declara variables de entorno"

var errEmptyGuide = errors.New("guide field is empty")

type guideContent struct {
	Guide              string
	Tips               []string
	EnvironmentExample string
}

// guideOutcome holds decoded guide content or the reason for the fallback.
type guideOutcome struct {
	Content guideContent
	Err     error
}

func parseGuide(raw string) guideOutcome {
	var root map[string]any
	if err := llm.DecodeJSON(raw, &root); err != nil {
		return guideOutcome{Err: err}
	}

	content := guideContent{
		Guide:              guideText(root["guide"]),
		Tips:               []string{},
		EnvironmentExample: "",
	}
	if tips, ok := root["tips"].([]any); ok {
		for _, t := range tips {
			if s, ok := t.(string); ok && strings.TrimSpace(s) != "" {
				content.Tips = append(content.Tips, s)
			}
		}
	}
	if env, ok := root["environmentExample"].(string); ok {
		content.EnvironmentExample = env
	}
	if strings.TrimSpace(content.Guide) == "" {
		return guideOutcome{Err: errEmptyGuide}
	}
	return guideOutcome{Content: content}
}

// guideText accepts either a string or a list of steps.
func guideText(v any) string {
	switch g := v.(type) {
	case string:
		return g
	case []any:
		lines := make([]string, 0, len(g))
		for _, item := range g {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				lines = append(lines, s)
			}
		}
		return strings.Join(lines, "\n")
	default:
		return ""
	}
}

// fallbackGuide is used whenever the provider gives no usable guide.
func fallbackGuide(platform string, envVars []string) guideContent {
	name := platformName(platform)
	steps := []string{
		fmt.Sprintf("1. Crea una cuenta en %s y conecta tu repositorio de GitHub.", name),
		fmt.Sprintf("2. Crea un nuevo servicio en %s a partir del repositorio usando el Dockerfile generado.", name),
		fmt.Sprintf("3. Configura las variables de entorno: %s.", joinOrNone(envVars)),
		"4. Lanza el despliegue y revisa los logs de build hasta que termine sin errores.",
		fmt.Sprintf("5. Verifica que la aplicación responde en la URL pública asignada por %s.", name),
	}
	return guideContent{
		Guide: strings.Join(steps, "\n"),
		Tips: []string{
			"Guarda los secretos como variables de entorno de la plataforma, nunca en el repositorio.",
			"Activa los despliegues automáticos para publicar cada push a la rama principal.",
		},
		EnvironmentExample: envExample(envVars),
	}
}

func envExample(envVars []string) string {
	var sb strings.Builder
	for _, v := range envVars {
		name := strings.TrimSpace(v)
		if idx := strings.Index(name, "="); idx >= 0 {
			name = strings.TrimSpace(name[:idx])
		}
		if name == "" {
			continue
		}
		sb.WriteString(name)
		sb.WriteString("=\n")
	}
	if sb.Len() == 0 {
		return noEnvPlaceholder
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// cleanDockerfile removes fences, or pulls the fenced block out of prose.
func cleanDockerfile(raw string) string {
	cleaned := llm.StripFences(raw)
	if strings.Contains(cleaned, "```") {
		if block, ok := llm.ExtractFencedBlock(raw); ok {
			return block
		}
	}
	return cleaned
}
