package services

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/labtrace/labtrace-backend/internal/apierr"
	"github.com/labtrace/labtrace-backend/internal/logger"
	"github.com/labtrace/labtrace-backend/internal/repos"
	"github.com/labtrace/labtrace-backend/internal/requestdata"
	"github.com/labtrace/labtrace-backend/internal/types"
	"github.com/labtrace/labtrace-backend/internal/utils"
)

// JWTClaims carries tenant identity inside the access token so protected
// requests resolve workspace and role without a user lookup.
type JWTClaims struct {
	WorkspaceID string `json:"workspace_id"`
	Role        string `json:"role"`
	jwt.RegisteredClaims
}

type RegisterInput struct {
	WorkspaceName string `json:"workspace_name"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
}

type AuthService interface {
	RegisterUser(ctx context.Context, input RegisterInput) (*types.User, error)
	LoginUser(ctx context.Context, email, password string) (string, string, error)
	RefreshUser(ctx context.Context) (string, string, error)
	LogoutUser(ctx context.Context) error
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	GetAccessTTL() time.Duration
}

type authService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	userTokenRepo repos.UserTokenRepo
	workspaceRepo repos.WorkspaceRepo
	jwtSecretKey  string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewAuthService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	userTokenRepo repos.UserTokenRepo,
	workspaceRepo repos.WorkspaceRepo,
	jwtSecretKey string,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) AuthService {
	serviceLog := log.With("service", "AuthService")
	return &authService{
		db:            db,
		log:           serviceLog,
		userRepo:      userRepo,
		userTokenRepo: userTokenRepo,
		workspaceRepo: workspaceRepo,
		jwtSecretKey:  jwtSecretKey,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// RegisterUser bootstraps a new workspace with its first user as admin.
func (as *authService) RegisterUser(ctx context.Context, input RegisterInput) (*types.User, error) {
	email := utils.NormalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, apierr.InvalidData("email and password are required")
	}
	if input.WorkspaceName == "" {
		return nil, apierr.InvalidData("workspace name is required")
	}
	exists, err := as.userRepo.EmailExists(ctx, nil, email)
	if err != nil {
		return nil, storeErr("register user", err)
	}
	if exists {
		return nil, apierr.AlreadyExists("email %s is already registered", email)
	}
	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, storeErr("register user", err)
	}

	var user *types.User
	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		workspaces, err := as.workspaceRepo.Create(ctx, tx, []*types.Workspace{{
			ID:   uuid.New(),
			Name: input.WorkspaceName,
		}})
		if err != nil {
			return storeErr("register user", err)
		}
		created, err := as.userRepo.Create(ctx, tx, []*types.User{{
			ID:          uuid.New(),
			WorkspaceID: workspaces[0].ID,
			Email:       email,
			Password:    hashed,
			FirstName:   input.FirstName,
			LastName:    input.LastName,
			Role:        types.RoleAdmin,
		}})
		if err != nil {
			return storeErr("register user", err)
		}
		user = created[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (as *authService) LoginUser(ctx context.Context, email, password string) (string, string, error) {
	email = utils.NormalizeEmail(email)
	if email == "" || password == "" {
		return "", "", apierr.InvalidData("email and password are required")
	}
	users, err := as.userRepo.GetByEmails(ctx, nil, []string{email})
	if err != nil {
		return "", "", storeErr("login user", err)
	}
	if len(users) == 0 || !utils.CheckPassword(users[0].Password, password) {
		return "", "", apierr.Unauthorized("invalid email or password")
	}
	user := users[0]

	var accessToken, refreshToken string
	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Stale sessions are replaced rather than rejected.
		if err := as.userTokenRepo.DeleteByUserIDs(ctx, tx, []uuid.UUID{user.ID}); err != nil {
			return storeErr("login user", err)
		}
		accessToken, err = as.generateAccessToken(user)
		if err != nil {
			return storeErr("login user", err)
		}
		refreshToken = uuid.New().String()
		_, err = as.userTokenRepo.Create(ctx, tx, []*types.UserToken{{
			ID:           uuid.New(),
			UserID:       user.ID,
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			ExpiresAt:    time.Now().Add(as.refreshTTL),
		}})
		if err != nil {
			return storeErr("login user", err)
		}
		return nil
	})
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

func (as *authService) RefreshUser(ctx context.Context) (string, string, error) {
	rd, err := caller(ctx)
	if err != nil {
		return "", "", err
	}
	if rd.RefreshToken == "" {
		return "", "", apierr.Unauthorized("refresh token not present")
	}

	var accessToken, newRefreshToken string
	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		foundTokens, err := as.userTokenRepo.GetByRefreshTokens(ctx, tx, []string{rd.RefreshToken})
		if err != nil {
			return storeErr("refresh user", err)
		}
		if len(foundTokens) == 0 {
			return apierr.Unauthorized("refresh token not recognized")
		}
		existing := foundTokens[0]
		if existing.ExpiresAt.Before(time.Now()) {
			if err := as.userTokenRepo.DeleteByIDs(ctx, tx, []uuid.UUID{existing.ID}); err != nil {
				return storeErr("refresh user", err)
			}
			return apierr.Unauthorized("refresh token expired")
		}
		users, err := as.userRepo.GetByIDs(ctx, tx, []uuid.UUID{existing.UserID})
		if err != nil {
			return storeErr("refresh user", err)
		}
		if len(users) == 0 {
			return apierr.Unauthorized("no user for refresh token")
		}
		user := users[0]
		accessToken, err = as.generateAccessToken(user)
		if err != nil {
			return storeErr("refresh user", err)
		}
		newRefreshToken = uuid.New().String()
		_, err = as.userTokenRepo.Create(ctx, tx, []*types.UserToken{{
			ID:           uuid.New(),
			UserID:       user.ID,
			AccessToken:  accessToken,
			RefreshToken: newRefreshToken,
			ExpiresAt:    time.Now().Add(as.refreshTTL),
		}})
		if err != nil {
			return storeErr("refresh user", err)
		}
		if err := as.userTokenRepo.DeleteByIDs(ctx, tx, []uuid.UUID{existing.ID}); err != nil {
			return storeErr("refresh user", err)
		}
		return nil
	})
	if err != nil {
		return "", "", err
	}
	return accessToken, newRefreshToken, nil
}

func (as *authService) LogoutUser(ctx context.Context) error {
	rd, err := caller(ctx)
	if err != nil {
		return err
	}
	if rd.TokenString == "" {
		return apierr.Unauthorized("access token not present")
	}
	return as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		foundTokens, err := as.userTokenRepo.GetByAccessTokens(ctx, tx, []string{rd.TokenString})
		if err != nil {
			return storeErr("logout user", err)
		}
		if len(foundTokens) == 0 {
			return nil
		}
		if err := as.userTokenRepo.DeleteByIDs(ctx, tx, []uuid.UUID{foundTokens[0].ID}); err != nil {
			return storeErr("logout user", err)
		}
		return nil
	})
}

func (as *authService) generateAccessToken(user *types.User) (string, error) {
	claims := JWTClaims{
		WorkspaceID: user.WorkspaceID.String(),
		Role:        user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(as.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.jwtSecretKey))
}

// SetContextFromToken validates the bearer token and threads the tenant
// identity into the request context.
func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, apierr.Unauthorized("missing bearer token")
	}
	parsedToken, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(as.jwtSecretKey), nil
	})
	if err != nil {
		return ctx, apierr.Unauthorized("invalid or expired token")
	}
	claims, ok := parsedToken.Claims.(*JWTClaims)
	if !ok || !parsedToken.Valid {
		return ctx, apierr.Unauthorized("invalid or expired token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, apierr.Unauthorized("invalid subject in token")
	}
	workspaceID, err := uuid.Parse(claims.WorkspaceID)
	if err != nil {
		return ctx, apierr.Unauthorized("invalid workspace in token")
	}

	var refreshToken string
	foundTokens, err := as.userTokenRepo.GetByAccessTokens(ctx, nil, []string{tokenString})
	if err != nil {
		as.log.Warn("failed to resolve session for access token", "error", err)
	} else if len(foundTokens) > 0 {
		refreshToken = foundTokens[0].RefreshToken
	}

	rd := &requestdata.RequestData{
		TokenString:  tokenString,
		RefreshToken: refreshToken,
		UserID:       userID,
		WorkspaceID:  workspaceID,
		Role:         claims.Role,
	}
	return requestdata.WithRequestData(ctx, rd), nil
}

func (as *authService) GetAccessTTL() time.Duration {
	return as.accessTTL
}
