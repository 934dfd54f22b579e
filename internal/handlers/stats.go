package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/labtrace/labtrace-backend/internal/logger"
	"github.com/labtrace/labtrace-backend/internal/services"
)

type StatsHandler struct {
	log          *logger.Logger
	statsService services.StatsService
}

func NewStatsHandler(log *logger.Logger, statsService services.StatsService) *StatsHandler {
	return &StatsHandler{log: log.With("handler", "StatsHandler"), statsService: statsService}
}

func (sh *StatsHandler) WorkspaceStats(c *gin.Context) {
	stats, err := sh.statsService.WorkspaceStats(c.Request.Context())
	if err != nil {
		respondError(c, sh.log, err)
		return
	}
	respondData(c, stats)
}
