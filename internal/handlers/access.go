package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/labtrace/labtrace-backend/internal/logger"
	"github.com/labtrace/labtrace-backend/internal/services"
)

type AccessHandler struct {
	log           *logger.Logger
	accessService services.AccessService
}

func NewAccessHandler(log *logger.Logger, accessService services.AccessService) *AccessHandler {
	return &AccessHandler{log: log.With("handler", "AccessHandler"), accessService: accessService}
}

type grantRequest struct {
	UserID     uuid.UUID `json:"user_id"`
	ObjectType string    `json:"object_type"`
	ObjectID   uuid.UUID `json:"object_id"`
	Level      string    `json:"level"`
}

func (ah *AccessHandler) Grant(c *gin.Context) {
	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, ah.log)
		return
	}
	grant, err := ah.accessService.GrantAccess(c.Request.Context(), req.UserID, req.ObjectType, req.ObjectID, req.Level)
	if err != nil {
		respondError(c, ah.log, err)
		return
	}
	respondMutation(c, http.StatusCreated, grant, "access granted")
}

func (ah *AccessHandler) List(c *gin.Context) {
	objectType := c.Param("objectType")
	objectID, ok := pathUUID(c, ah.log, "objectId")
	if !ok {
		return
	}
	grants, err := ah.accessService.ListGrants(c.Request.Context(), objectType, objectID)
	if err != nil {
		respondError(c, ah.log, err)
		return
	}
	respondList(c, grants, len(grants))
}

func (ah *AccessHandler) Update(c *gin.Context) {
	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, ah.log)
		return
	}
	grant, err := ah.accessService.UpdateAccessLevel(c.Request.Context(), req.UserID, req.ObjectType, req.ObjectID, req.Level)
	if err != nil {
		respondError(c, ah.log, err)
		return
	}
	respondMutation(c, http.StatusOK, grant, "access level updated")
}

func (ah *AccessHandler) Revoke(c *gin.Context) {
	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, ah.log)
		return
	}
	if err := ah.accessService.RevokeAccess(c.Request.Context(), req.UserID, req.ObjectType, req.ObjectID); err != nil {
		respondError(c, ah.log, err)
		return
	}
	respondMutation(c, http.StatusOK, nil, "access revoked")
}

func (ah *AccessHandler) Resolve(c *gin.Context) {
	objectType := c.Param("objectType")
	objectID, ok := pathUUID(c, ah.log, "objectId")
	if !ok {
		return
	}
	level, err := ah.accessService.ResolveAccess(c.Request.Context(), objectType, objectID)
	if err != nil {
		respondError(c, ah.log, err)
		return
	}
	respondData(c, gin.H{"level": level})
}
