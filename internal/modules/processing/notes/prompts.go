package notes

import (
	"fmt"
	"strings"

	"github.com/slidehub/ai-service/internal/modules/processing/llm"
)

const noteSystemPromptES = "Eres un asistente que genera notas de presentación en español. " +
	"Responde SIEMPRE en JSON válido, sin markdown ni texto adicional."

const noteTemplateES = `Genera notas del presentador en JSON exactamente con este formato (sin texto extra):
{
  "title": "Título corto y descriptivo del slide",
  "points": ["punto técnico 1", "punto técnico 2", "punto técnico 3"],
  "suggestedTime": "~2 min",
  "keyPhrases": ["frase clave 1", "frase clave 2"],
  "demoTags": ["demo-tag-1"]
}
`

const noteTemplateEN = `Generate presenter notes as JSON with exactly this format (no extra text):
{
  "title": "Short descriptive slide title",
  "points": ["technical point 1", "technical point 2", "technical point 3"],
  "suggestedTime": "~2 min",
  "keyPhrases": ["key phrase 1", "key phrase 2"],
  "demoTags": ["demo-tag-1"]
}
`

const repoContextTemplateES = `Analiza el repositorio de GitHub en %s y extrae el contenido más relevante
para el siguiente tema de diapositiva: "%s"

Devuelve únicamente los puntos técnicos clave en forma de lista concisa,
relevantes para que un presentador pueda explicar este slide con profundidad.
Sin introducción ni conclusión, solo los puntos directamente útiles.`

const repoContextTemplateEN = `Analyze the GitHub repository at %s and extract the content most relevant
to the following slide topic: "%s"

Return only the key technical points as a concise list, useful for a presenter
explaining this slide in depth. No introduction or conclusion. Answer in %s.`

func noteSystemPrompt(lang string) string {
	if lang == "es" {
		return noteSystemPromptES
	}
	return fmt.Sprintf("You are an assistant that writes presentation notes in %s. "+
		"ALWAYS answer with valid JSON, without markdown or extra text.", llm.LanguageName(lang))
}

func notePrompt(lang string, slideNumber int, description, repoContext string) string {
	var sb strings.Builder
	if lang == "es" {
		if strings.TrimSpace(description) != "" {
			fmt.Fprintf(&sb, "Descripción del slide %d: %s\n\n", slideNumber, description)
		}
		if strings.TrimSpace(repoContext) != "" {
			fmt.Fprintf(&sb, "Contexto técnico del repositorio:\n%s\n\n", repoContext)
		}
		sb.WriteString(noteTemplateES)
		return sb.String()
	}
	if strings.TrimSpace(description) != "" {
		fmt.Fprintf(&sb, "Slide %d description: %s\n\n", slideNumber, description)
	}
	if strings.TrimSpace(repoContext) != "" {
		fmt.Fprintf(&sb, "Repository technical context:\n%s\n\n", repoContext)
	}
	sb.WriteString(noteTemplateEN)
	return sb.String()
}

func repoContextPrompt(lang, repoURL, description string) string {
	if lang == "es" {
		return fmt.Sprintf(repoContextTemplateES, repoURL, description)
	}
	return fmt.Sprintf(repoContextTemplateEN, repoURL, description, llm.LanguageName(lang))
}

func fallbackReasonPrefix(lang string) string {
	if lang == "es" {
		return "No se pudo generar la nota con IA. "
	}
	return "Could not generate the note with AI. "
}
