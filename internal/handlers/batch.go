package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/labtrace/labtrace-backend/internal/logger"
	"github.com/labtrace/labtrace-backend/internal/services"
)

type BatchHandler struct {
	log          *logger.Logger
	batchService services.BatchService
}

func NewBatchHandler(log *logger.Logger, batchService services.BatchService) *BatchHandler {
	return &BatchHandler{log: log.With("handler", "BatchHandler"), batchService: batchService}
}

func (bh *BatchHandler) Create(c *gin.Context) {
	var req services.CreateBatchInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, bh.log)
		return
	}
	batch, err := bh.batchService.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, bh.log, err)
		return
	}
	respondMutation(c, http.StatusCreated, batch, "batch created")
}

func (bh *BatchHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, bh.log, "id")
	if !ok {
		return
	}
	batch, err := bh.batchService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, bh.log, err)
		return
	}
	respondData(c, batch)
}

func (bh *BatchHandler) List(c *gin.Context) {
	batches, err := bh.batchService.List(c.Request.Context())
	if err != nil {
		respondError(c, bh.log, err)
		return
	}
	respondList(c, batches, len(batches))
}

func (bh *BatchHandler) AddSamples(c *gin.Context) {
	id, ok := pathUUID(c, bh.log, "id")
	if !ok {
		return
	}
	var req struct {
		SampleIDs []uuid.UUID `json:"sample_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, bh.log)
		return
	}
	if err := bh.batchService.AddSamples(c.Request.Context(), id, req.SampleIDs); err != nil {
		respondError(c, bh.log, err)
		return
	}
	respondMutation(c, http.StatusOK, nil, "samples added to batch")
}

func (bh *BatchHandler) ListSamples(c *gin.Context) {
	id, ok := pathUUID(c, bh.log, "id")
	if !ok {
		return
	}
	sampleIDs, err := bh.batchService.ListSampleIDs(c.Request.Context(), id)
	if err != nil {
		respondError(c, bh.log, err)
		return
	}
	respondList(c, sampleIDs, len(sampleIDs))
}

func (bh *BatchHandler) Transition(c *gin.Context) {
	id, ok := pathUUID(c, bh.log, "id")
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, bh.log)
		return
	}
	batch, err := bh.batchService.Transition(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, bh.log, err)
		return
	}
	respondMutation(c, http.StatusOK, batch, "batch transitioned")
}

func (bh *BatchHandler) Complete(c *gin.Context) {
	id, ok := pathUUID(c, bh.log, "id")
	if !ok {
		return
	}
	batch, err := bh.batchService.Complete(c.Request.Context(), id)
	if err != nil {
		respondError(c, bh.log, err)
		return
	}
	respondMutation(c, http.StatusOK, batch, "batch completed")
}
