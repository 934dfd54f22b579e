package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/labtrace/labtrace-backend/internal/logger"
	"github.com/labtrace/labtrace-backend/internal/services"
)

type SampleHandler struct {
	log           *logger.Logger
	sampleService services.SampleService
}

func NewSampleHandler(log *logger.Logger, sampleService services.SampleService) *SampleHandler {
	return &SampleHandler{log: log.With("handler", "SampleHandler"), sampleService: sampleService}
}

func (sh *SampleHandler) Create(c *gin.Context) {
	var req services.CreateSampleInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, sh.log)
		return
	}
	sample, err := sh.sampleService.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, sh.log, err)
		return
	}
	respondMutation(c, http.StatusCreated, sample, "sample created")
}

func (sh *SampleHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, sh.log, "id")
	if !ok {
		return
	}
	sample, err := sh.sampleService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, sh.log, err)
		return
	}
	respondData(c, sample)
}

func (sh *SampleHandler) ListByProject(c *gin.Context) {
	projectID, ok := pathUUID(c, sh.log, "id")
	if !ok {
		return
	}
	samples, err := sh.sampleService.ListByProject(c.Request.Context(), projectID)
	if err != nil {
		respondError(c, sh.log, err)
		return
	}
	respondList(c, samples, len(samples))
}

func (sh *SampleHandler) Update(c *gin.Context) {
	id, ok := pathUUID(c, sh.log, "id")
	if !ok {
		return
	}
	var req services.UpdateSampleInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, sh.log)
		return
	}
	sample, err := sh.sampleService.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, sh.log, err)
		return
	}
	respondMutation(c, http.StatusOK, sample, "sample updated")
}

func (sh *SampleHandler) Delete(c *gin.Context) {
	id, ok := pathUUID(c, sh.log, "id")
	if !ok {
		return
	}
	if err := sh.sampleService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, sh.log, err)
		return
	}
	respondMutation(c, http.StatusOK, nil, "sample deleted")
}

func (sh *SampleHandler) CreateDerived(c *gin.Context) {
	var req services.CreateDerivedSampleInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, sh.log)
		return
	}
	derived, err := sh.sampleService.CreateDerived(c.Request.Context(), req)
	if err != nil {
		respondError(c, sh.log, err)
		return
	}
	respondMutation(c, http.StatusCreated, derived, "derived sample created")
}

func (sh *SampleHandler) ListDerived(c *gin.Context) {
	id, ok := pathUUID(c, sh.log, "id")
	if !ok {
		return
	}
	derived, err := sh.sampleService.ListDerived(c.Request.Context(), id)
	if err != nil {
		respondError(c, sh.log, err)
		return
	}
	respondList(c, derived, len(derived))
}

func (sh *SampleHandler) GetLineage(c *gin.Context) {
	id, ok := pathUUID(c, sh.log, "id")
	if !ok {
		return
	}
	lineage, err := sh.sampleService.GetLineage(c.Request.Context(), id)
	if err != nil {
		respondError(c, sh.log, err)
		return
	}
	respondData(c, lineage)
}
