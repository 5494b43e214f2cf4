package llm

import "fmt"

const describeImagePromptES = "Analiza esta diapositiva de presentación. " +
	"¿Cuál es el tema principal? ¿Qué conceptos técnicos se muestran? " +
	"¿Qué tecnologías o herramientas se mencionan? " +
	"Responde de forma concisa y estructurada en español, máximo 3-4 oraciones."

func describeImagePrompt(lang string) string {
	if lang == "es" {
		return describeImagePromptES
	}
	return fmt.Sprintf("Analyze this presentation slide. "+
		"What is the main topic? Which technical concepts are shown? "+
		"Which technologies or tools are mentioned? "+
		"Answer concisely in %s, 3-4 sentences at most.", LanguageName(lang))
}

// LanguageName maps a language code to the English name used in prompts.
func LanguageName(code string) string {
	if name, ok := languageCodeToName[code]; ok {
		return name
	}
	return code
}

var languageCodeToName = map[string]string{
	"de": "German",
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"it": "Italian",
	"ja": "Japanese",
	"ko": "Korean",
	"nl": "Dutch",
	"pt": "Portuguese",
	"ru": "Russian",
	"zh": "Chinese",
}
