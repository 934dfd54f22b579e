package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/labtrace/labtrace-backend/internal/logger"
	"github.com/labtrace/labtrace-backend/internal/services"
)

type TrialHandler struct {
	log          *logger.Logger
	trialService services.TrialService
}

func NewTrialHandler(log *logger.Logger, trialService services.TrialService) *TrialHandler {
	return &TrialHandler{log: log.With("handler", "TrialHandler"), trialService: trialService}
}

func (th *TrialHandler) Create(c *gin.Context) {
	projectID, ok := pathUUID(c, th.log, "id")
	if !ok {
		return
	}
	var req services.CreateTrialInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, th.log)
		return
	}
	trial, err := th.trialService.Create(c.Request.Context(), projectID, req)
	if err != nil {
		respondError(c, th.log, err)
		return
	}
	respondMutation(c, http.StatusCreated, trial, "trial created")
}

func (th *TrialHandler) Get(c *gin.Context) {
	projectID, ok := pathUUID(c, th.log, "id")
	if !ok {
		return
	}
	id, ok := pathUUID(c, th.log, "trialId")
	if !ok {
		return
	}
	trial, err := th.trialService.Get(c.Request.Context(), projectID, id)
	if err != nil {
		respondError(c, th.log, err)
		return
	}
	respondData(c, trial)
}

func (th *TrialHandler) List(c *gin.Context) {
	projectID, ok := pathUUID(c, th.log, "id")
	if !ok {
		return
	}
	trials, err := th.trialService.ListByProject(c.Request.Context(), projectID)
	if err != nil {
		respondError(c, th.log, err)
		return
	}
	respondList(c, trials, len(trials))
}

func (th *TrialHandler) Update(c *gin.Context) {
	projectID, ok := pathUUID(c, th.log, "id")
	if !ok {
		return
	}
	id, ok := pathUUID(c, th.log, "trialId")
	if !ok {
		return
	}
	var req services.UpdateTrialInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, th.log)
		return
	}
	trial, err := th.trialService.Update(c.Request.Context(), projectID, id, req)
	if err != nil {
		respondError(c, th.log, err)
		return
	}
	respondMutation(c, http.StatusOK, trial, "trial updated")
}

func (th *TrialHandler) Delete(c *gin.Context) {
	projectID, ok := pathUUID(c, th.log, "id")
	if !ok {
		return
	}
	id, ok := pathUUID(c, th.log, "trialId")
	if !ok {
		return
	}
	if err := th.trialService.Delete(c.Request.Context(), projectID, id); err != nil {
		respondError(c, th.log, err)
		return
	}
	respondMutation(c, http.StatusOK, nil, "trial deleted")
}

func (th *TrialHandler) GetTemplate(c *gin.Context) {
	projectID, ok := pathUUID(c, th.log, "id")
	if !ok {
		return
	}
	template, err := th.trialService.GetTemplate(c.Request.Context(), projectID)
	if err != nil {
		respondError(c, th.log, err)
		return
	}
	respondData(c, template)
}

func (th *TrialHandler) PutTemplate(c *gin.Context) {
	projectID, ok := pathUUID(c, th.log, "id")
	if !ok {
		return
	}
	var req services.PutTemplateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, th.log)
		return
	}
	template, err := th.trialService.PutTemplate(c.Request.Context(), projectID, req)
	if err != nil {
		respondError(c, th.log, err)
		return
	}
	respondMutation(c, http.StatusOK, template, "parameter template replaced")
}
