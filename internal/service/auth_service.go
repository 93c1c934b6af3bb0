package service

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MarnickvdA/streepn-serverless/internal/apperr"
	"github.com/MarnickvdA/streepn-serverless/internal/auth"
	"github.com/MarnickvdA/streepn-serverless/internal/middleware"
	"github.com/MarnickvdA/streepn-serverless/internal/models"
	"github.com/MarnickvdA/streepn-serverless/internal/storage"
)

// AuthService handles registration, login and the current-user endpoint.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	store         storage.Store
	logger        *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, store storage.Store, logger *slog.Logger) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		store:         store,
		logger:        logger,
	}
}

// RegisterPublicRoutes mounts the unauthenticated endpoints.
func (s *AuthService) RegisterPublicRoutes(r gin.IRouter) {
	r.POST("/auth/register", s.Register)
	r.POST("/auth/login", s.Login)
}

// RegisterRoutes mounts the authenticated endpoints.
func (s *AuthService) RegisterRoutes(r gin.IRouter) {
	r.GET("/auth/me", s.Me)
}

type credentialsRequest struct {
	Email       string `json:"email" binding:"required,email"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password" binding:"required"`
}

type userResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toUserResponse(user *models.User) userResponse {
	return userResponse{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		CreatedAt:   time.Unix(user.CreatedAt, 0),
	}
}

// Register creates a new user account and returns it with a session token.
func (s *AuthService) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}
	if req.DisplayName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "displayName is required"})
		return
	}

	user, err := s.authenticator.Register(c.Request.Context(), req.Email, req.DisplayName, req.Password)
	if err != nil {
		s.logger.Warn("registration failed", "email", req.Email, "error", err)
		switch err {
		case auth.ErrEmailExists:
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case auth.ErrWeakPassword:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			respondErr(c, err)
		}
		return
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("failed to generate token", "user_id", user.ID, "error", err)
		respondErr(c, err)
		return
	}

	s.logger.Info("user registered", "user_id", user.ID, "email", user.Email)
	c.JSON(http.StatusCreated, gin.H{"user": toUserResponse(user), "token": token})
}

// Login authenticates a user and returns a session token.
func (s *AuthService) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	user, err := s.authenticator.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.logger.Warn("login failed", "email", req.Email)
		c.JSON(http.StatusUnauthorized, gin.H{"error": auth.ErrInvalidCredentials.Error()})
		return
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("failed to generate token", "user_id", user.ID, "error", err)
		respondErr(c, err)
		return
	}

	s.logger.Info("user logged in", "user_id", user.ID)
	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(user), "token": token})
}

// Me returns the authenticated user.
func (s *AuthService) Me(c *gin.Context) {
	user, err := s.store.GetUserByID(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	if user == nil {
		respondErr(c, apperr.New(apperr.CodeUnauthenticated, "user no longer exists"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(user)})
}
