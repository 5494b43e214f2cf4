package notes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, opts ...Option) (*gin.Engine, *fixture) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := newFixture(t, visionOK(), textOK(), opts...)
	r := gin.New()
	NewHandler(f.svc).RegisterRoutes(r.Group("/api/ai"))
	return r, f
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandlerGenerateAndRead(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, http.MethodPost, "/api/ai/notes/generate", `{"presentationId":"deck","slideNumber":1,"slideContext":"Intro"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Success bool `json:"success"`
		Note    struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"note"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "Arquitectura", body.Note.Title)

	w = do(r, http.MethodGet, "/api/ai/notes/deck/1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), body.Note.ID)

	w = do(r, http.MethodGet, "/api/ai/notes/deck/2", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(r, http.MethodGet, "/api/ai/notes/deck", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"data":[`)

	w = do(r, http.MethodDelete, "/api/ai/notes/deck", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(r, http.MethodGet, "/api/ai/notes/deck/1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestHandlerGenerateValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, http.MethodPost, "/api/ai/notes/generate", `{"presentationId":"deck","slideNumber":0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
	assert.Contains(t, w.Body.String(), "errorMessage")

	w = do(r, http.MethodGet, "/api/ai/notes/deck/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlerGenerateAll(t *testing.T) {
	r, _ := newTestRouter(t, WithBatchDelay(0))

	w := do(r, http.MethodPost, "/api/ai/notes/generate-all",
		`{"presentationId":"deck","slides":[{"slideNumber":1,"imageUrl":""},{"slideNumber":2,"imageUrl":""}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"notesGenerated":2}`, w.Body.String())
}

func TestHandlerTasks(t *testing.T) {
	r, _ := newTestRouter(t)
	w := do(r, http.MethodPost, "/api/ai/notes/generate-all/task", `{"presentationId":"deck","slides":[]}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	r, f := newTestRouter(t, WithTaskQueue(newMemQueue()))
	w = do(r, http.MethodPost, "/api/ai/notes/generate-all/task", `{"presentationId":"deck","slides":[{"slideNumber":1}]}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	var accepted struct {
		TaskID string `json:"taskId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))
	require.NotEmpty(t, accepted.TaskID)

	waitFinished(t, f.svc, accepted.TaskID)
	w = do(r, http.MethodGet, "/api/ai/notes/tasks/"+accepted.TaskID, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"completed"`)

	w = do(r, http.MethodPost, "/api/ai/notes/tasks/"+accepted.TaskID+"/cancel", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(r, http.MethodGet, "/api/ai/notes/tasks/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodGet, "/api/ai/notes/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, f.svc.Shutdown(context.Background()))
	w = do(r, http.MethodPost, "/api/ai/notes/generate-all/task", `{"presentationId":"deck","slides":[{"slideNumber":1}]}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
