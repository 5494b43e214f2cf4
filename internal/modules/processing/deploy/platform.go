package deploy

import (
	"strings"

	"github.com/slidehub/ai-service/internal/pkg/apperr"
)

const DefaultPlatform = "render"

var platformNames = map[string]string{
	"render":  "Render",
	"vercel":  "Vercel",
	"netlify": "Netlify",
}

// normalizePlatform lower-cases platform and defaults it to render.
func normalizePlatform(platform string) (string, error) {
	p := strings.ToLower(strings.TrimSpace(platform))
	if p == "" {
		return DefaultPlatform, nil
	}
	if _, ok := platformNames[p]; !ok {
		return "", apperr.Invalid("unsupported platform %q, expected render, vercel or netlify", platform)
	}
	return p, nil
}

func platformName(p string) string {
	if name, ok := platformNames[p]; ok {
		return name
	}
	return p
}
