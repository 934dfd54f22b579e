package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/labtrace/labtrace-backend/internal/logger"
	"github.com/labtrace/labtrace-backend/internal/services"
)

type ProjectHandler struct {
	log            *logger.Logger
	projectService services.ProjectService
}

func NewProjectHandler(log *logger.Logger, projectService services.ProjectService) *ProjectHandler {
	return &ProjectHandler{log: log.With("handler", "ProjectHandler"), projectService: projectService}
}

func (ph *ProjectHandler) Create(c *gin.Context) {
	var req services.CreateProjectInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, ph.log)
		return
	}
	project, err := ph.projectService.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, ph.log, err)
		return
	}
	respondMutation(c, http.StatusCreated, project, "project created")
}

func (ph *ProjectHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, ph.log, "id")
	if !ok {
		return
	}
	project, err := ph.projectService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, ph.log, err)
		return
	}
	respondData(c, project)
}

func (ph *ProjectHandler) List(c *gin.Context) {
	projects, err := ph.projectService.List(c.Request.Context())
	if err != nil {
		respondError(c, ph.log, err)
		return
	}
	respondList(c, projects, len(projects))
}

func (ph *ProjectHandler) Update(c *gin.Context) {
	id, ok := pathUUID(c, ph.log, "id")
	if !ok {
		return
	}
	var req services.UpdateProjectInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, ph.log)
		return
	}
	project, err := ph.projectService.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, ph.log, err)
		return
	}
	respondMutation(c, http.StatusOK, project, "project updated")
}

func (ph *ProjectHandler) Delete(c *gin.Context) {
	id, ok := pathUUID(c, ph.log, "id")
	if !ok {
		return
	}
	if err := ph.projectService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, ph.log, err)
		return
	}
	respondMutation(c, http.StatusOK, nil, "project deleted")
}
