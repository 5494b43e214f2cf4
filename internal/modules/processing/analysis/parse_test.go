package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAnalysisFieldDefaults(t *testing.T) {
	out := parseAnalysis("```json\n" + `{"language":null,"framework":3,"technologies":["go",1,null,"redis"],"summary":"s","ports":[8080,"9090",70000]}` + "\n```")

	assert.False(t, out.Degraded)
	assert.Equal(t, "Desconocido", out.Fields.Language)
	assert.Equal(t, "Desconocido", out.Fields.Framework)
	assert.Equal(t, "Desconocido", out.Fields.BuildSystem)
	assert.Equal(t, []string{"go", "redis"}, out.Fields.Technologies)
	assert.Equal(t, "s", out.Fields.Summary)
	assert.Equal(t, "", out.Fields.Structure)
	assert.Equal(t, []int{8080, 9090}, out.Fields.Ports)
	assert.Empty(t, out.Fields.Environment)
}

func TestParseAnalysisProseWrappedJSON(t *testing.T) {
	out := parseAnalysis(`Claro, aquí está: {"language":"Python","framework":"Django"} espero que sirva`)

	assert.False(t, out.Degraded)
	assert.Equal(t, "Python", out.Fields.Language)
	assert.Equal(t, "Django", out.Fields.Framework)
}

func TestParseAnalysisDockerfileIsUnfenced(t *testing.T) {
	out := parseAnalysis(`{"dockerfile":"` + "```dockerfile\\nFROM golang:1.24\\n```" + `"}`)

	assert.Equal(t, "FROM golang:1.24", out.Fields.Dockerfile)
}
