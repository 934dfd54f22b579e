package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/labtrace/labtrace-backend/internal/logger"
	"github.com/labtrace/labtrace-backend/internal/services"
)

type OrganizationHandler struct {
	log        *logger.Logger
	orgService services.OrganizationService
}

func NewOrganizationHandler(log *logger.Logger, orgService services.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{log: log.With("handler", "OrganizationHandler"), orgService: orgService}
}

func (oh *OrganizationHandler) Create(c *gin.Context) {
	var req services.CreateOrganizationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, oh.log)
		return
	}
	org, err := oh.orgService.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, oh.log, err)
		return
	}
	respondMutation(c, http.StatusCreated, org, "organization created")
}

func (oh *OrganizationHandler) List(c *gin.Context) {
	orgs, err := oh.orgService.List(c.Request.Context())
	if err != nil {
		respondError(c, oh.log, err)
		return
	}
	respondList(c, orgs, len(orgs))
}

func (oh *OrganizationHandler) Update(c *gin.Context) {
	id, ok := pathUUID(c, oh.log, "id")
	if !ok {
		return
	}
	var req services.UpdateOrganizationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, oh.log)
		return
	}
	org, err := oh.orgService.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, oh.log, err)
		return
	}
	respondMutation(c, http.StatusOK, org, "organization updated")
}

func (oh *OrganizationHandler) Delete(c *gin.Context) {
	id, ok := pathUUID(c, oh.log, "id")
	if !ok {
		return
	}
	if err := oh.orgService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, oh.log, err)
		return
	}
	respondMutation(c, http.StatusOK, nil, "organization deleted")
}
