package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/labtrace/labtrace-backend/internal/logger"
	"github.com/labtrace/labtrace-backend/internal/requestdata"
	"github.com/labtrace/labtrace-backend/internal/services"
)

type AuthHandler struct {
	log         *logger.Logger
	authService services.AuthService
}

func NewAuthHandler(log *logger.Logger, authService services.AuthService) *AuthHandler {
	return &AuthHandler{log: log.With("handler", "AuthHandler"), authService: authService}
}

func (ah *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, ah.log)
		return
	}
	user, err := ah.authService.RegisterUser(c.Request.Context(), req)
	if err != nil {
		respondError(c, ah.log, err)
		return
	}
	respondMutation(c, http.StatusCreated, user, "user registered")
}

func (ah *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, ah.log)
		return
	}
	accessToken, refreshToken, err := ah.authService.LoginUser(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, ah.log, err)
		return
	}
	respondData(c, gin.H{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"expires_in":    int(ah.authService.GetAccessTTL().Seconds()),
	})
}

func (ah *AuthHandler) Refresh(c *gin.Context) {
	ctx := c.Request.Context()
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	// Clients may pass the refresh token explicitly; otherwise the one
	// resolved from the current session is used.
	if err := c.ShouldBindJSON(&req); err == nil && req.RefreshToken != "" {
		if rd := requestdata.GetRequestData(ctx); rd != nil {
			withToken := *rd
			withToken.RefreshToken = req.RefreshToken
			ctx = requestdata.WithRequestData(ctx, &withToken)
		}
	}
	accessToken, refreshToken, err := ah.authService.RefreshUser(ctx)
	if err != nil {
		respondError(c, ah.log, err)
		return
	}
	respondData(c, gin.H{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"expires_in":    int(ah.authService.GetAccessTTL().Seconds()),
	})
}

func (ah *AuthHandler) Logout(c *gin.Context) {
	if err := ah.authService.LogoutUser(c.Request.Context()); err != nil {
		respondError(c, ah.log, err)
		return
	}
	respondMutation(c, http.StatusOK, nil, "logged out")
}
