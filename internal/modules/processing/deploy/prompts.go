package deploy

import (
	"fmt"
	"strconv"
	"strings"
)

const dockerfileSystemPrompt = "Eres un experto en Docker y despliegue de aplicaciones. " +
	"Responde únicamente con el contenido del Dockerfile, sin explicaciones ni texto adicional."

const dockerfilePromptTemplate = `Genera un Dockerfile de producción para un proyecto %s con framework %s.
Puertos que expone la aplicación: %s
Variables de entorno requeridas: %s

Requisitos:
- Imagen base slim o alpine
- Build multi-stage cuando aplique
- Instrucción HEALTHCHECK
- Ejecutar con un usuario no root

Devuelve únicamente el contenido del Dockerfile.`

const guideSystemPrompt = "Eres un experto en DevOps que escribe guías de despliegue en español. " +
	"Responde SIEMPRE en JSON válido, sin markdown ni texto adicional."

const guidePromptTemplate = `Genera una guía de despliegue paso a paso para un proyecto %s con framework %s en la plataforma %s.
Variables de entorno requeridas: %s
Bases de datos: %s

Responde SOLO con un objeto JSON con exactamente estas claves (sin texto adicional antes ni después):
{
  "guide": "Pasos numerados (1., 2., 3., ...) separados por saltos de línea",
  "tips": ["consejo 1", "consejo 2"],
  "environmentExample": "Contenido de un archivo .env de ejemplo"
}`

func dockerfilePrompt(language, framework string, ports []int, envVars []string) string {
	return fmt.Sprintf(dockerfilePromptTemplate, language, framework, joinPorts(ports), joinOrNone(envVars))
}

func guidePrompt(language, framework, platform string, envVars, databases []string) string {
	return fmt.Sprintf(guidePromptTemplate, language, framework, platformName(platform), joinOrNone(envVars), joinOrNone(databases))
}

func joinPorts(ports []int) string {
	if len(ports) == 0 {
		return "no especificados"
	}
	parts := make([]string, len(ports))
	for i, p := range ports {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ", ")
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "ninguna"
	}
	return strings.Join(items, ", ")
}
