package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/labtrace/labtrace-backend/internal/logger"
	"github.com/labtrace/labtrace-backend/internal/services"
)

type SupplyChainHandler struct {
	log                *logger.Logger
	supplyChainService services.SupplyChainService
}

func NewSupplyChainHandler(log *logger.Logger, supplyChainService services.SupplyChainService) *SupplyChainHandler {
	return &SupplyChainHandler{log: log.With("handler", "SupplyChainHandler"), supplyChainService: supplyChainService}
}

func (sch *SupplyChainHandler) Create(c *gin.Context) {
	var req services.CreateHandoffInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, sch.log)
		return
	}
	request, err := sch.supplyChainService.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, sch.log, err)
		return
	}
	respondMutation(c, http.StatusCreated, request, "handoff request created")
}

func (sch *SupplyChainHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, sch.log, "id")
	if !ok {
		return
	}
	request, err := sch.supplyChainService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, sch.log, err)
		return
	}
	respondData(c, request)
}

func (sch *SupplyChainHandler) List(c *gin.Context) {
	requests, err := sch.supplyChainService.List(c.Request.Context())
	if err != nil {
		respondError(c, sch.log, err)
		return
	}
	respondList(c, requests, len(requests))
}

func (sch *SupplyChainHandler) Accept(c *gin.Context) {
	id, ok := pathUUID(c, sch.log, "id")
	if !ok {
		return
	}
	request, err := sch.supplyChainService.Accept(c.Request.Context(), id)
	if err != nil {
		respondError(c, sch.log, err)
		return
	}
	respondMutation(c, http.StatusOK, request, "handoff accepted")
}

func (sch *SupplyChainHandler) Reject(c *gin.Context) {
	id, ok := pathUUID(c, sch.log, "id")
	if !ok {
		return
	}
	request, err := sch.supplyChainService.Reject(c.Request.Context(), id)
	if err != nil {
		respondError(c, sch.log, err)
		return
	}
	respondMutation(c, http.StatusOK, request, "handoff rejected")
}

func (sch *SupplyChainHandler) Advance(c *gin.Context) {
	id, ok := pathUUID(c, sch.log, "id")
	if !ok {
		return
	}
	request, err := sch.supplyChainService.Advance(c.Request.Context(), id)
	if err != nil {
		respondError(c, sch.log, err)
		return
	}
	respondMutation(c, http.StatusOK, request, "handoff in progress")
}

func (sch *SupplyChainHandler) Complete(c *gin.Context) {
	id, ok := pathUUID(c, sch.log, "id")
	if !ok {
		return
	}
	request, err := sch.supplyChainService.Complete(c.Request.Context(), id)
	if err != nil {
		respondError(c, sch.log, err)
		return
	}
	respondMutation(c, http.StatusOK, request, "handoff completed")
}
