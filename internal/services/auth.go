package services

import (
	"context"
	"strings"
	"time"

	"github.com/fileflow/fileflow/internal/models"
	"github.com/fileflow/fileflow/internal/pkg"
	"github.com/fileflow/fileflow/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Per-plan storage quotas.
var planQuotas = map[string]int64{
	models.PlanFree:    5 << 30,
	models.PlanPremium: 100 << 30,
	models.PlanFamily:  200 << 30,
}

// AuthService handles registration, login and token refresh.
type AuthService struct {
	userRepo   repository.UserRepository
	jwtManager *pkg.JWTManager
	validator  *pkg.Validator
	logger     *pkg.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo repository.UserRepository,
	jwtManager *pkg.JWTManager,
	validator *pkg.Validator,
	logger *pkg.Logger,
) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		jwtManager: jwtManager,
		validator:  validator,
		logger:     logger,
	}
}

// RegisterRequest creates an account.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,min=1,max=255"`
	Phone    string `json:"phone" validate:"omitempty,phone"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// LoginRequest authenticates an account.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResult is a user plus their token pair.
type AuthResult struct {
	User   *models.User   `json:"user"`
	Tokens *pkg.TokenPair `json:"tokens"`
}

// Register creates a user on the free plan with its storage quota.
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*AuthResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	passwordHash, err := pkg.HashPassword(req.Password)
	if err != nil {
		return nil, pkg.ErrInternalServer.WithCause(err)
	}

	user := &models.User{
		Email:             strings.ToLower(req.Email),
		Name:              req.Name,
		Phone:             req.Phone,
		PasswordHash:      passwordHash,
		Role:              models.RoleUser,
		IsActive:          true,
		Plan:              models.PlanFree,
		StorageUsedBytes:  0,
		StorageQuotaBytes: planQuotas[models.PlanFree],
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	tokens, err := s.jwtManager.GenerateTokenPair(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, pkg.ErrInternalServer.WithCause(err)
	}

	s.logger.Info("user registered", map[string]interface{}{
		"user_id": user.ID.Hex(),
	})

	return &AuthResult{User: user, Tokens: tokens}, nil
}

// Login verifies credentials and issues a token pair.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*AuthResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(req.Email))
	if err != nil {
		// Absent account and wrong password look identical.
		return nil, pkg.ErrInvalidCredentials
	}
	if !user.IsActive || !pkg.VerifyPassword(req.Password, user.PasswordHash) {
		return nil, pkg.ErrInvalidCredentials
	}

	tokens, err := s.jwtManager.GenerateTokenPair(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, pkg.ErrInternalServer.WithCause(err)
	}

	now := time.Now()
	if err := s.userRepo.Update(ctx, user.ID, map[string]interface{}{"last_login_at": now}); err != nil {
		s.logger.Warn("failed to stamp last login", map[string]interface{}{
			"user_id": user.ID.Hex(),
			"error":   err.Error(),
		})
	}
	user.LastLoginAt = &now

	return &AuthResult{User: user, Tokens: tokens}, nil
}

// Refresh exchanges a refresh token for a fresh pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*pkg.TokenPair, error) {
	tokens, err := s.jwtManager.RefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

// Me returns the authenticated user's profile with quota usage.
func (s *AuthService) Me(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// UpdateProfileRequest changes profile fields.
type UpdateProfileRequest struct {
	Name      *string `json:"name" validate:"omitempty,min=1,max=255"`
	Phone     *string `json:"phone" validate:"omitempty,phone"`
	Bio       *string `json:"bio" validate:"omitempty,max=500"`
	AvatarURL *string `json:"avatarUrl" validate:"omitempty,url,max=2048"`
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, req *UpdateProfileRequest) (*models.User, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Bio != nil {
		updates["bio"] = *req.Bio
	}
	if req.AvatarURL != nil {
		updates["avatar_url"] = *req.AvatarURL
	}
	if len(updates) > 0 {
		if err := s.userRepo.Update(ctx, userID, updates); err != nil {
			return nil, err
		}
	}

	return s.userRepo.GetByID(ctx, userID)
}
