package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/slidehub/ai-service/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const analysisJSON = `{"language":"Go","framework":"gin","technologies":[],"buildSystem":"go mod","summary":"API","structure":"","deploymentHints":"","dockerfile":"","environment":[],"databases":[],"ports":[8080]}`

// newProviderServer answers every chat completion with content.
func newProviderServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reply, _ := json.Marshal(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": content}}},
		})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(reply)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestApp(t *testing.T, extra string) *App {
	t.Helper()
	provider := newProviderServer(t, analysisJSON)
	cfg, err := config.Parse([]byte(fmt.Sprintf(`
env: production
storage:
  driver: memory
ai:
  vision:
    type: openai-compatible
    endpoint: %[1]s
    api_key: test
  text:
    type: openai-compatible
    endpoint: %[1]s
    api_key: test
%[2]s`, provider.URL, extra)))
	require.NoError(t, err)

	a, err := New(zap.NewNop(), cfg)
	require.NoError(t, err)
	t.Cleanup(a.Shutdown)
	return a
}

func serve(a *App, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, req)
	return w
}

func TestHealthAndFallbackRoutes(t *testing.T) {
	a := newTestApp(t, "")

	w := serve(a, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"storage":"memory"`)
	assert.Contains(t, w.Body.String(), `"redis":false`)
	assert.Contains(t, w.Body.String(), `"jobs":[]`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = serve(a, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"ok":0`)

	w = serve(a, http.MethodPut, "/health", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	w = serve(a, http.MethodPost, "/api/ai/notes/generate-all/task", `{"presentationId":"deck"}`, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAnalyzeRepoEndToEnd(t *testing.T) {
	a := newTestApp(t, "")

	w := serve(a, http.MethodPost, "/api/ai/analyze-repo", `{"repoUrl":"https://github.com/x/y"}`, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		Language string `json:"language"`
		Ports    []int  `json:"ports"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "Go", out.Language)
	assert.Equal(t, []int{8080}, out.Ports)
}

func TestCORSOriginPatterns(t *testing.T) {
	a := newTestApp(t, "allowed_origins:\n  - \"*.slidehub.dev\"\n  - \"localhost:*\"\n")

	w := serve(a, http.MethodGet, "/health", "", map[string]string{"Origin": "https://app.slidehub.dev"})
	assert.Equal(t, "https://app.slidehub.dev", w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(a, http.MethodGet, "/health", "", map[string]string{"Origin": "http://localhost:5173"})
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(a, http.MethodGet, "/health", "", map[string]string{"Origin": "https://evil.example"})
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMatchOriginPattern(t *testing.T) {
	assert.True(t, matchOriginPattern("example.com", "example.com"))
	assert.True(t, matchOriginPattern("*.example.com", "a.example.com"))
	assert.False(t, matchOriginPattern("*.example.com", "example.com"))
	assert.True(t, matchOriginPattern("localhost:*", "localhost:3000"))
	assert.Equal(t, "a.b:1", extractOriginHost("https://a.b:1"))
	assert.Equal(t, "garbage", extractOriginHost("garbage"))
}
