package analysis

import (
	"github.com/gin-gonic/gin"
	"github.com/slidehub/ai-service/internal/pkg/response"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, mw ...gin.HandlerFunc) {
	g := rg.Group("/analyze-repo", mw...)
	g.POST("", h.analyze)
	g.POST("/refresh", h.refresh)
}

type analyzeRepoDTO struct {
	RepoURL string `json:"repoUrl"`
}

// POST /ai/analyze-repo
func (h *Handler) analyze(c *gin.Context) {
	var dto analyzeRepoDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	out, err := h.svc.Analyze(c.Request.Context(), dto.RepoURL)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, out)
}

// POST /ai/analyze-repo/refresh
func (h *Handler) refresh(c *gin.Context) {
	var dto analyzeRepoDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	out, err := h.svc.Reanalyze(c.Request.Context(), dto.RepoURL)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, out)
}
