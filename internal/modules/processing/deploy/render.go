package deploy

import (
	"bytes"
	"strings"

	"github.com/slidehub/ai-service/internal/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

var markdownEngine = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Linkify,
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithHardWraps(),
		htmlrenderer.WithXHTML(),
	),
)

// RenderGuideHTML renders the guide steps, tips, .env example and Dockerfile
// as one HTML fragment.
func RenderGuideHTML(g models.DeploymentGuide) (string, error) {
	var md strings.Builder
	md.WriteString("## " + platformName(g.Platform) + "\n\n")
	md.WriteString(g.Guide)
	md.WriteString("\n\n")
	if len(g.Tips) > 0 {
		md.WriteString("### Consejos\n\n")
		for _, tip := range g.Tips {
			md.WriteString("- " + tip + "\n")
		}
		md.WriteString("\n")
	}
	if strings.TrimSpace(g.EnvironmentExample) != "" {
		md.WriteString("### .env\n\n```bash\n" + g.EnvironmentExample + "\n```\n\n")
	}
	if strings.TrimSpace(g.Dockerfile) != "" {
		md.WriteString("### Dockerfile\n\n```dockerfile\n" + g.Dockerfile + "\n```\n")
	}

	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(md.String()), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
