package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"chatspace/internal/model"
	"chatspace/internal/repository"
	"chatspace/pkg/slug"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	accessTokenTTL  = 24 * time.Hour
	refreshTokenTTL = 7 * 24 * time.Hour
)

// --- DTOs ---

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=255"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AutoLoginRequest struct {
	Email     string `json:"email" binding:"required,email"`
	AccountID string `json:"account_id" binding:"required"`
}

type TokenResponse struct {
	Token        string        `json:"token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresIn    int64         `json:"expires_in"`
	User         *UserResponse `json:"user,omitempty"`
}

type UserResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	AccountID   string    `json:"account_id,omitempty"`
	Roles       []string  `json:"roles"`
	Permissions []string  `json:"permissions"`
	CreatedAt   string    `json:"created_at"`
}

type AutoLoginResponse struct {
	Token string        `json:"token"`
	User  *UserResponse `json:"user"`
	Room  *RoomResponse `json:"room"`
}

// AuthService handles registration, login, token refresh and the external
// auto-login provisioning flow.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error)
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context, userID uuid.UUID) (*UserResponse, error)
	AutoLogin(ctx context.Context, req AutoLoginRequest) (*AutoLoginResponse, error)
}

type authService struct {
	users repository.UserRepository
	roles repository.RoleRepository
	rooms RoomService
	db    *gorm.DB
}

// NewAuthService returns a new instance of AuthService
func NewAuthService(users repository.UserRepository, roles repository.RoleRepository, rooms RoomService, db *gorm.DB) AuthService {
	return &authService{users: users, roles: roles, rooms: rooms, db: db}
}

func (s *authService) toUserResponse(ctx context.Context, user *model.User) *UserResponse {
	perms, err := s.roles.GetPermissionsForUser(ctx, user.ID)
	if err != nil {
		perms = nil
	}
	roleNames, err := s.roles.GetRoleNamesForUser(ctx, user.ID)
	if err != nil {
		roleNames = nil
	}
	return &UserResponse{
		ID:          user.ID,
		Name:        user.Name,
		Email:       user.Email,
		AccountID:   user.AccountID,
		Roles:       roleNames,
		Permissions: perms,
		CreatedAt:   user.CreatedAt.Format(time.RFC3339),
	}
}

func signAccessToken(userID uuid.UUID) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID.String(),
		"exp": time.Now().Add(accessTokenTTL).Unix(),
		"iat": time.Now().Unix(),
	})

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "default_super_secret_key"
	}

	return token.SignedString([]byte(secret))
}

func newRefreshTokenValue() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func (s *authService) issueTokens(ctx context.Context, user *model.User) (*TokenResponse, error) {
	accessToken, err := signAccessToken(user.ID)
	if err != nil {
		return nil, errors.New("failed to generate token")
	}

	refreshValue, err := newRefreshTokenValue()
	if err != nil {
		return nil, errors.New("failed to generate refresh token")
	}

	refresh := &model.RefreshToken{
		UserID:    user.ID,
		Token:     refreshValue,
		ExpiresAt: time.Now().Add(refreshTokenTTL),
	}
	if err := s.db.WithContext(ctx).Create(refresh).Error; err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &TokenResponse{
		Token:        accessToken,
		RefreshToken: refreshValue,
		ExpiresIn:    int64(accessTokenTTL.Seconds()),
		User:         s.toUserResponse(ctx, user),
	}, nil
}

// Register creates a new user with the default "user" role and logs them in.
func (s *authService) Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error) {
	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		return nil, ErrConflict
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.New("failed to hash password")
	}

	user := &model.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: string(hashedPassword),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.assignDefaultRole(ctx, user.ID); err != nil {
		return nil, err
	}

	return s.issueTokens(ctx, user)
}

func (s *authService) assignDefaultRole(ctx context.Context, userID uuid.UUID) error {
	role, err := s.roles.FindOrCreateByName(ctx, model.RoleUser, "Default role for registered users")
	if err != nil {
		return fmt.Errorf("failed to resolve default role: %w", err)
	}
	return s.users.AssignRole(ctx, userID, role.ID)
}

func (s *authService) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, errors.New("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, errors.New("invalid email or password")
	}

	return s.issueTokens(ctx, user)
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	var stored model.RefreshToken
	err := s.db.WithContext(ctx).First(&stored, "token = ?", refreshToken).Error
	if err != nil {
		return nil, errors.New("invalid refresh token")
	}

	if time.Now().After(stored.ExpiresAt) {
		_ = s.db.WithContext(ctx).Delete(&stored).Error
		return nil, errors.New("refresh token expired")
	}

	user, err := s.users.GetByID(ctx, stored.UserID)
	if err != nil {
		return nil, errors.New("user not found")
	}

	// Rotate: the old refresh token is single-use.
	if err := s.db.WithContext(ctx).Delete(&stored).Error; err != nil {
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	return s.issueTokens(ctx, user)
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.db.WithContext(ctx).Where("token = ?", refreshToken).Delete(&model.RefreshToken{}).Error
}

func (s *authService) Me(ctx context.Context, userID uuid.UUID) (*UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, ErrNotFound
	}
	return s.toUserResponse(ctx, user), nil
}

// AutoLogin provisions a user and their private space for an external chat
// integration. The flow is idempotent: repeated calls with the same
// account_id converge on one user, one room, one membership pair.
func (s *authService) AutoLogin(ctx context.Context, req AutoLoginRequest) (*AutoLoginResponse, error) {
	// Template placeholders that were never substituted by the caller.
	if strings.HasPrefix(req.Email, "{{") || strings.HasPrefix(req.AccountID, "{{") {
		log.Printf("auto-login rejected: unsubstituted placeholder parameters (email=%q)", req.Email)
		return nil, errors.New("invalid placeholder parameters")
	}

	randomPassword, err := newRefreshTokenValue()
	if err != nil {
		return nil, errors.New("failed to generate password")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(randomPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.New("failed to hash password")
	}

	user, err := s.users.FirstOrCreateByEmail(ctx, req.Email, &model.User{
		Name:      req.Email,
		Password:  string(hashed),
		AccountID: req.AccountID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to provision user: %w", err)
	}

	if err := s.assignDefaultRole(ctx, user.ID); err != nil {
		return nil, err
	}

	expectedSlug := "space-" + slug.Make(req.AccountID)
	defaults := RoomDefaults{
		Name:        "Space #" + req.AccountID,
		Description: "Automatic room for account_id " + req.AccountID,
		IsPrivate:   true,
		CreatedBy:   user.ID,
	}

	room, err := s.rooms.FindOrCreateBySlug(ctx, expectedSlug, defaults)
	if err != nil {
		return nil, fmt.Errorf("failed to provision room: %w", err)
	}

	if err := s.rooms.EnsureMembership(ctx, room, user.ID); err != nil {
		return nil, err
	}

	token, err := signAccessToken(user.ID)
	if err != nil {
		return nil, errors.New("failed to generate token")
	}

	return &AutoLoginResponse{
		Token: token,
		User:  s.toUserResponse(ctx, user),
		Room: &RoomResponse{
			ID:          room.ID,
			Slug:        room.Slug,
			Name:        room.Name,
			Description: room.Description,
			IsPrivate:   room.IsPrivate,
			CreatedBy:   room.CreatedBy,
			CreatedAt:   room.CreatedAt.Format(time.RFC3339),
		},
	}, nil
}
