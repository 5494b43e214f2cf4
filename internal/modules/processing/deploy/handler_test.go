package deploy

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*gin.Engine, *fixture) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := newFixture(t, analysisNoDocker, textReplies)
	r := gin.New()
	NewHandler(f.svc).RegisterRoutes(r.Group("/api/ai"))
	return r, f
}

func post(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandlerGuide(t *testing.T) {
	r, _ := newTestRouter(t)

	w := post(r, "/api/ai/deploy/guide", `{"repoUrl":"`+repoURL+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var guide struct {
		ID       string   `json:"id"`
		Platform string   `json:"platform"`
		Tips     []string `json:"tips"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &guide))
	assert.Equal(t, "render", guide.Platform)
	assert.Equal(t, []string{"tip"}, guide.Tips)

	w = post(r, "/api/ai/deploy/guide?format=html", `{"repoUrl":"`+repoURL+`","platform":"render"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var withHTML struct {
		Guide struct {
			ID string `json:"id"`
		} `json:"guide"`
		HTML string `json:"html"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &withHTML))
	assert.Equal(t, guide.ID, withHTML.Guide.ID)
	assert.Contains(t, withHTML.HTML, "<h2>Render</h2>")

	w = post(r, "/api/ai/deploy/guide/refresh", `{"repoUrl":"`+repoURL+`"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), guide.ID)
}

func TestHandlerValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	w := post(r, "/api/ai/deploy/guide", `{"repoUrl":"`+repoURL+`","platform":"heroku"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unsupported platform")

	w = post(r, "/api/ai/deploy/dockerfile", `{"repoUrl":"`+repoURL+`","language":"Go"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(r, "/api/ai/deploy/analyze", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlerDockerfileAndAnalyze(t *testing.T) {
	r, _ := newTestRouter(t)

	w := post(r, "/api/ai/deploy/analyze", `{"repoUrl":"`+repoURL+`"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"language":"Go"`)

	w = post(r, "/api/ai/deploy/dockerfile", `{"repoUrl":"`+repoURL+`","language":"Go","framework":"gin","ports":[8080]}`)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Dockerfile string `json:"dockerfile"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "FROM golang:1.24 AS build\nUSER app", body.Dockerfile)
}
