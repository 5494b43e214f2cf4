package deploy

import (
	"github.com/gin-gonic/gin"
	"github.com/slidehub/ai-service/internal/models"
	"github.com/slidehub/ai-service/internal/pkg/response"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, mw ...gin.HandlerFunc) {
	g := rg.Group("/deploy", mw...)
	g.POST("/analyze", h.analyze)
	g.POST("/dockerfile", h.dockerfile)
	g.POST("/guide", h.guide)
	g.POST("/guide/refresh", h.refreshGuide)
}

type repoDTO struct {
	RepoURL string `json:"repoUrl"`
}

type dockerfileDTO struct {
	RepoURL     string   `json:"repoUrl"`
	Language    string   `json:"language"`
	Framework   string   `json:"framework"`
	Ports       []int    `json:"ports"`
	Environment []string `json:"environment"`
}

type guideDTO struct {
	RepoURL  string `json:"repoUrl"`
	Platform string `json:"platform"`
}

// POST /ai/deploy/analyze
func (h *Handler) analyze(c *gin.Context) {
	var dto repoDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	out, err := h.svc.AnalyzeRepository(c.Request.Context(), dto.RepoURL)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, out)
}

// POST /ai/deploy/dockerfile
func (h *Handler) dockerfile(c *gin.Context) {
	var dto dockerfileDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	out, err := h.svc.GenerateDockerfile(c.Request.Context(), dto.RepoURL, dto.Language, dto.Framework, dto.Ports, dto.Environment)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"dockerfile": out})
}

// POST /ai/deploy/guide?format=html
func (h *Handler) guide(c *gin.Context) {
	var dto guideDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	out, err := h.svc.GenerateGuide(c.Request.Context(), dto.RepoURL, dto.Platform)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.writeGuide(c, out)
}

// POST /ai/deploy/guide/refresh
func (h *Handler) refreshGuide(c *gin.Context) {
	var dto guideDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	out, err := h.svc.RegenerateGuide(c.Request.Context(), dto.RepoURL, dto.Platform)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.writeGuide(c, out)
}

func (h *Handler) writeGuide(c *gin.Context, g models.DeploymentGuide) {
	if c.Query("format") != "html" {
		response.OK(c, g)
		return
	}
	html, err := RenderGuideHTML(g)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"guide": g, "html": html})
}
