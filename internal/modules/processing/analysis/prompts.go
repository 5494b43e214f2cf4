package analysis

import "fmt"

const analysisPromptTemplate = `Analiza el repositorio de GitHub en %s y responde SOLO con un objeto JSON
con exactamente estas claves (sin texto adicional antes ni después):
{
  "language": "Lenguaje principal (Java, PHP, JavaScript, TypeScript, Python, etc.)",
  "framework": "Framework principal (Spring Boot, Laravel, Next.js, Django, etc.)",
  "technologies": ["lista", "de", "tecnologías"],
  "buildSystem": "Maven | Gradle | npm | Composer | pip | etc.",
  "summary": "Resumen de 1-2 oraciones del propósito del proyecto.",
  "structure": "Descripción de la arquitectura.",
  "deploymentHints": "Recomendaciones para desplegar en Render / Vercel / Railway.",
  "dockerfile": "Contenido completo de un Dockerfile apropiado."
}`

func analysisPrompt(repoURL string) string {
	return fmt.Sprintf(analysisPromptTemplate, repoURL)
}
