package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/labtrace/labtrace-backend/internal/apierr"
	"github.com/labtrace/labtrace-backend/internal/logger"
	"github.com/labtrace/labtrace-backend/internal/services"
)

// maxReportSize caps report uploads at 32 MiB.
const maxReportSize = 32 << 20

type AnalysisHandler struct {
	log             *logger.Logger
	analysisService services.AnalysisService
}

func NewAnalysisHandler(log *logger.Logger, analysisService services.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{log: log.With("handler", "AnalysisHandler"), analysisService: analysisService}
}

func (ah *AnalysisHandler) Create(c *gin.Context) {
	var req services.CreateAnalysisInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, ah.log)
		return
	}
	analysis, err := ah.analysisService.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, ah.log, err)
		return
	}
	respondMutation(c, http.StatusCreated, analysis, "analysis created")
}

func (ah *AnalysisHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, ah.log, "id")
	if !ok {
		return
	}
	analysis, err := ah.analysisService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, ah.log, err)
		return
	}
	respondData(c, analysis)
}

func (ah *AnalysisHandler) ListByBatch(c *gin.Context) {
	batchID, ok := pathUUID(c, ah.log, "id")
	if !ok {
		return
	}
	analyses, err := ah.analysisService.ListByBatch(c.Request.Context(), batchID)
	if err != nil {
		respondError(c, ah.log, err)
		return
	}
	respondList(c, analyses, len(analyses))
}

func (ah *AnalysisHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathUUID(c, ah.log, "id")
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, ah.log)
		return
	}
	analysis, err := ah.analysisService.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, ah.log, err)
		return
	}
	respondMutation(c, http.StatusOK, analysis, "analysis status updated")
}

func (ah *AnalysisHandler) AttachReport(c *gin.Context) {
	id, ok := pathUUID(c, ah.log, "id")
	if !ok {
		return
	}
	fileHeader, err := c.FormFile("report")
	if err != nil {
		respondError(c, ah.log, apierr.InvalidData("report file is required"))
		return
	}
	if fileHeader.Size > maxReportSize {
		respondError(c, ah.log, apierr.InvalidData("report exceeds maximum size"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, ah.log, apierr.InvalidData("report file unreadable"))
		return
	}
	defer file.Close()

	analysis, err := ah.analysisService.AttachReport(c.Request.Context(), id, fileHeader.Filename, file)
	if err != nil {
		respondError(c, ah.log, err)
		return
	}
	respondMutation(c, http.StatusOK, analysis, "report attached")
}

func (ah *AnalysisHandler) DownloadReport(c *gin.Context) {
	id, ok := pathUUID(c, ah.log, "id")
	if !ok {
		return
	}
	file, filename, err := ah.analysisService.ReportFile(c.Request.Context(), id)
	if err != nil {
		respondError(c, ah.log, err)
		return
	}
	defer file.Close()
	c.DataFromReader(http.StatusOK, -1, "application/octet-stream", file, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", filename),
	})
}

func (ah *AnalysisHandler) DetachReport(c *gin.Context) {
	id, ok := pathUUID(c, ah.log, "id")
	if !ok {
		return
	}
	analysis, err := ah.analysisService.DetachReport(c.Request.Context(), id)
	if err != nil {
		respondError(c, ah.log, err)
		return
	}
	respondMutation(c, http.StatusOK, analysis, "report detached")
}

func (ah *AnalysisHandler) ListTypes(c *gin.Context) {
	analysisTypes, err := ah.analysisService.ListTypes(c.Request.Context())
	if err != nil {
		respondError(c, ah.log, err)
		return
	}
	respondList(c, analysisTypes, len(analysisTypes))
}
