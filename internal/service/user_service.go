package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"markethub/internal/apperr"
	"markethub/internal/authz"
	"markethub/internal/domain"
	"markethub/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the cost factor for bcrypt hashing
	BcryptCost = 10

	// Token expiration times
	AccessTokenExpiration  = 15 * time.Minute
	RefreshTokenExpiration = 7 * 24 * time.Hour
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token has expired")
)

// Claims represents the JWT claims carried by access tokens. BusinessID is
// nil for users not yet assigned to a business.
type Claims struct {
	UserID     uuid.UUID   `json:"user_id"`
	BusinessID *uuid.UUID  `json:"business_id,omitempty"`
	Role       domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Actor converts token claims into the identity threaded through the core.
func (c *Claims) Actor() authz.Actor {
	return authz.Actor{
		UserID:     c.UserID,
		BusinessID: c.BusinessID,
		Role:       c.Role,
	}
}

// CreateUserInput carries the fields an admin supplies for a new user in
// their business.
type CreateUserInput struct {
	Username string
	Email    string
	Password string
	Role     *domain.Role
	IsActive *bool
}

// UpdateUserInput carries optional field changes for user management.
type UpdateUserInput struct {
	Email    *string
	Password *string
	Role     *domain.Role
	IsActive *bool
}

// UserService covers authentication and admin-scoped user management.
type UserService interface {
	Register(ctx context.Context, username, email, password string) (*domain.User, error)
	Login(ctx context.Context, username, password string) (accessToken, refreshToken string, user *domain.User, err error)
	Logout(ctx context.Context, refreshToken string) error
	RefreshToken(ctx context.Context, refreshToken string) (newAccessToken string, err error)
	ValidateToken(tokenString string) (*Claims, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)

	ListUsers(ctx context.Context, actor authz.Actor) ([]*domain.User, error)
	CreateUser(ctx context.Context, actor authz.Actor, input CreateUserInput) (*domain.User, error)
	GetUser(ctx context.Context, actor authz.Actor, id uuid.UUID) (*domain.User, error)
	UpdateUser(ctx context.Context, actor authz.Actor, id uuid.UUID, input UpdateUserInput) (*domain.User, error)
	DeleteUser(ctx context.Context, actor authz.Actor, id uuid.UUID) error
}

type userService struct {
	userRepo         repository.UserRepository
	refreshTokenRepo repository.RefreshTokenRepository
	jwtSecret        string
}

// NewUserService creates a new instance of UserService
func NewUserService(
	userRepo repository.UserRepository,
	refreshTokenRepo repository.RefreshTokenRepository,
	jwtSecret string,
) UserService {
	return &userService{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		jwtSecret:        jwtSecret,
	}
}

func validateUserFields(username, email, password string, passwordRequired bool) error {
	fields := map[string]string{}
	if strings.TrimSpace(username) == "" {
		fields["username"] = "is required"
	}
	if strings.TrimSpace(email) == "" {
		fields["email"] = "is required"
	}
	if passwordRequired && len(password) < 8 {
		fields["password"] = "must be at least 8 characters"
	}
	if len(fields) > 0 {
		return &apperr.ValidationError{Fields: fields}
	}
	return nil
}

// Register creates a new account with the defaults a fresh signup gets:
// viewer role, active, no business assignment.
func (s *userService) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	if err := validateUserFields(username, email, password, true); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil && err != repository.ErrUserNotFound {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, repository.ErrUserAlreadyExists
	}

	hashedPassword, err := s.hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: hashedPassword,
		Role:         domain.DefaultRole,
		BusinessID:   nil,
		IsActive:     true,
		DateJoined:   time.Now(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Login authenticates a user and returns JWT tokens
func (s *userService) Login(ctx context.Context, username, password string) (accessToken, refreshToken string, user *domain.User, err error) {
	user, err = s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if err == repository.ErrUserNotFound {
			return "", "", nil, ErrInvalidCredentials
		}
		return "", "", nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !user.IsActive {
		return "", "", nil, ErrInvalidCredentials
	}

	if err := s.verifyPassword(user.PasswordHash, password); err != nil {
		return "", "", nil, ErrInvalidCredentials
	}

	accessToken, err = s.generateAccessToken(user)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err = s.generateRefreshToken(ctx, user)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return accessToken, refreshToken, user, nil
}

// Logout invalidates the refresh token
func (s *userService) Logout(ctx context.Context, refreshToken string) error {
	if err := s.refreshTokenRepo.Revoke(ctx, refreshToken); err != nil {
		if err == repository.ErrRefreshTokenNotFound {
			// Token doesn't exist, consider it already logged out
			return nil
		}
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// RefreshToken generates a new access token using a valid refresh token
func (s *userService) RefreshToken(ctx context.Context, refreshTokenString string) (newAccessToken string, err error) {
	refreshToken, err := s.refreshTokenRepo.FindByToken(ctx, refreshTokenString)
	if err != nil {
		if err == repository.ErrRefreshTokenNotFound || err == repository.ErrRefreshTokenRevoked {
			return "", ErrInvalidToken
		}
		return "", fmt.Errorf("failed to find refresh token: %w", err)
	}

	if time.Now().After(refreshToken.ExpiresAt) {
		return "", ErrTokenExpired
	}

	user, err := s.userRepo.FindByID(ctx, refreshToken.UserID)
	if err != nil {
		return "", fmt.Errorf("failed to find user: %w", err)
	}

	newAccessToken, err = s.generateAccessToken(user)
	if err != nil {
		return "", fmt.Errorf("failed to generate access token: %w", err)
	}

	return newAccessToken, nil
}

// ValidateToken validates a JWT token and returns the claims
func (s *userService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// GetUserByID retrieves a user by ID
func (s *userService) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if err == repository.ErrUserNotFound {
			return nil, apperr.NotFound("user")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ListUsers returns the users of the actor's business. Admin only.
func (s *userService) ListUsers(ctx context.Context, actor authz.Actor) ([]*domain.User, error) {
	if d := authz.Decide(actor, authz.ActionManageUsers); !d.Allowed {
		return nil, d.Err("only business administrators can manage users")
	}
	return s.userRepo.ListByBusiness(ctx, *actor.BusinessID)
}

// CreateUser creates a user inside the actor's business. Admin only; the
// business assignment always comes from the actor, never from the request.
func (s *userService) CreateUser(ctx context.Context, actor authz.Actor, input CreateUserInput) (*domain.User, error) {
	if d := authz.Decide(actor, authz.ActionManageUsers); !d.Allowed {
		return nil, d.Err("only business administrators can manage users")
	}

	if err := validateUserFields(input.Username, input.Email, input.Password, true); err != nil {
		return nil, err
	}

	role := domain.DefaultRole
	if input.Role != nil {
		if !input.Role.Valid() {
			return nil, apperr.Validation("role", "unknown role value")
		}
		role = *input.Role
	}
	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	hashedPassword, err := s.hashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	businessID := *actor.BusinessID
	user := &domain.User{
		ID:           uuid.New(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hashedPassword,
		Role:         role,
		BusinessID:   &businessID,
		IsActive:     isActive,
		DateJoined:   time.Now(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// loadManaged fetches a user and checks the actor may manage them: admin
// role plus same business.
func (s *userService) loadManaged(ctx context.Context, actor authz.Actor, id uuid.UUID) (*domain.User, error) {
	if d := authz.Decide(actor, authz.ActionManageUsers); !d.Allowed {
		return nil, d.Err("only business administrators can manage users")
	}

	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if err == repository.ErrUserNotFound {
			return nil, apperr.NotFound("user")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if user.BusinessID == nil || !authz.SameBusiness(actor, *user.BusinessID) {
		return nil, apperr.Deny(apperr.ReasonCrossTenant, "this user does not belong to your business")
	}

	return user, nil
}

// GetUser retrieves one user in the actor's business. Admin only.
func (s *userService) GetUser(ctx context.Context, actor authz.Actor, id uuid.UUID) (*domain.User, error) {
	return s.loadManaged(ctx, actor, id)
}

// UpdateUser changes role, activation, email, or password for a user in the
// actor's business. Admin only.
func (s *userService) UpdateUser(ctx context.Context, actor authz.Actor, id uuid.UUID, input UpdateUserInput) (*domain.User, error) {
	user, err := s.loadManaged(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if input.Email != nil {
		if strings.TrimSpace(*input.Email) == "" {
			return nil, apperr.Validation("email", "is required")
		}
		user.Email = *input.Email
	}
	if input.Role != nil {
		if !input.Role.Valid() {
			return nil, apperr.Validation("role", "unknown role value")
		}
		user.Role = *input.Role
	}
	deactivated := false
	if input.IsActive != nil {
		deactivated = user.IsActive && !*input.IsActive
		user.IsActive = *input.IsActive
	}
	if input.Password != nil {
		if len(*input.Password) < 8 {
			return nil, apperr.Validation("password", "must be at least 8 characters")
		}
		hashed, err := s.hashPassword(*input.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = hashed
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if err == repository.ErrUserNotFound {
			return nil, apperr.NotFound("user")
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	// A deactivated account keeps its access token until expiry, but must not
	// be able to mint a new one.
	if deactivated {
		if err := s.refreshTokenRepo.RevokeAllForUser(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("failed to revoke sessions: %w", err)
		}
	}

	return user, nil
}

// DeleteUser removes a user from the actor's business. Admin only.
func (s *userService) DeleteUser(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	user, err := s.loadManaged(ctx, actor, id)
	if err != nil {
		return err
	}

	if err := s.refreshTokenRepo.RevokeAllForUser(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}

	if err := s.userRepo.Delete(ctx, user.ID); err != nil {
		if err == repository.ErrUserNotFound {
			return apperr.NotFound("user")
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// hashPassword hashes a password using bcrypt
func (s *userService) hashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// verifyPassword verifies a password against a bcrypt hash
func (s *userService) verifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// generateAccessToken generates a JWT access token with user, business, and
// role claims
func (s *userService) generateAccessToken(user *domain.User) (string, error) {
	expirationTime := time.Now().Add(AccessTokenExpiration)
	claims := &Claims{
		UserID:     user.ID,
		BusinessID: user.BusinessID,
		Role:       user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// generateRefreshToken generates a refresh token and stores it in the database
func (s *userService) generateRefreshToken(ctx context.Context, user *domain.User) (string, error) {
	tokenString := uuid.New().String()

	refreshToken := &domain.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		Token:     tokenString,
		ExpiresAt: time.Now().Add(RefreshTokenExpiration),
		CreatedAt: time.Now(),
		Revoked:   false,
	}

	if err := s.refreshTokenRepo.Create(ctx, refreshToken); err != nil {
		return "", err
	}

	return tokenString, nil
}
