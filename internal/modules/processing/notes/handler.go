package notes

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/slidehub/ai-service/internal/pkg/apperr"
	"github.com/slidehub/ai-service/internal/pkg/response"
	"github.com/slidehub/ai-service/internal/pkg/taskqueue"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// RegisterRoutes mounts the notes API. mw guards the generation endpoints.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, mw ...gin.HandlerFunc) {
	g := rg.Group("/notes")
	g.GET("/health", h.health)

	gen := g.Group("", mw...)
	gen.POST("/generate", h.generate)
	gen.POST("/generate-all", h.generateAll)
	gen.POST("/generate-all/task", h.enqueueGenerateAll)

	g.GET("/tasks/:id", h.getTask)
	g.POST("/tasks/:id/cancel", h.cancelTask)

	g.GET("/:presentationId", h.list)
	g.GET("/:presentationId/:slideNumber", h.get)
	g.DELETE("/:presentationId", h.deleteAll)
}

// GET /ai/notes/health
func (h *Handler) health(c *gin.Context) {
	response.OK(c, gin.H{"status": "UP", "service": "ai-service"})
}

// POST /ai/notes/generate
func (h *Handler) generate(c *gin.Context) {
	var req GenerateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	note, err := h.svc.Generate(c.Request.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, apperr.ErrInvalidInput) {
			status = http.StatusBadRequest
		}
		c.AbortWithStatusJSON(status, gin.H{"success": false, "errorMessage": err.Error()})
		return
	}
	response.OK(c, gin.H{"success": true, "note": note})
}

// POST /ai/notes/generate-all
func (h *Handler) generateAll(c *gin.Context) {
	var req GenerateAllRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	n, err := h.svc.GenerateAll(c.Request.Context(), req)
	if err != nil && n == 0 {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"success": true, "notesGenerated": n})
}

// POST /ai/notes/generate-all/task
func (h *Handler) enqueueGenerateAll(c *gin.Context) {
	var req GenerateAllRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	task, err := h.svc.EnqueueGenerateAll(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrTasksDisabled) {
			response.NotFoundMsg(c, err.Error())
			return
		}
		if errors.Is(err, ErrShuttingDown) {
			response.ServiceUnavailable(c, err.Error())
			return
		}
		response.Error(c, err)
		return
	}
	response.Accepted(c, gin.H{"taskId": task.ID, "status": task.Status})
}

// GET /ai/notes/tasks/:id
func (h *Handler) getTask(c *gin.Context) {
	task, err := h.svc.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrTasksDisabled) {
			response.NotFoundMsg(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	if task == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, task)
}

// POST /ai/notes/tasks/:id/cancel
func (h *Handler) cancelTask(c *gin.Context) {
	err := h.svc.CancelTask(c.Request.Context(), c.Param("id"))
	switch {
	case err == nil:
		response.NoContent(c)
	case errors.Is(err, ErrTasksDisabled), errors.Is(err, taskqueue.ErrTaskNotFound):
		response.NotFoundMsg(c, err.Error())
	case errors.Is(err, taskqueue.ErrTaskNotPending):
		response.Conflict(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}

// GET /ai/notes/:presentationId
func (h *Handler) list(c *gin.Context) {
	notes, err := h.svc.List(c.Request.Context(), c.Param("presentationId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, notes)
}

// GET /ai/notes/:presentationId/:slideNumber
func (h *Handler) get(c *gin.Context) {
	slide, err := strconv.Atoi(c.Param("slideNumber"))
	if err != nil {
		response.BadRequest(c, "slideNumber must be a number")
		return
	}
	note, err := h.svc.Get(c.Request.Context(), c.Param("presentationId"), slide)
	if err != nil {
		response.Error(c, err)
		return
	}
	if note == nil {
		response.NoContent(c)
		return
	}
	response.OK(c, note)
}

// DELETE /ai/notes/:presentationId
func (h *Handler) deleteAll(c *gin.Context) {
	if err := h.svc.DeleteAll(c.Request.Context(), c.Param("presentationId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
