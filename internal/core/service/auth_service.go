package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/element-app/backend/internal/core/domain"
	"github.com/element-app/backend/internal/core/ports"
)

const (
	minUsernameLen = 3
	minPasswordLen = 8
)

// AuthService implements registration, login and the password reset flow.
type AuthService struct {
	users  ports.UserRepository
	roles  ports.RoleRepository
	tokens ports.TokenService
	resets ports.ResetTokenStore
	log    zerolog.Logger
}

func NewAuthService(
	users ports.UserRepository,
	roles ports.RoleRepository,
	tokens ports.TokenService,
	resets ports.ResetTokenStore,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{users: users, roles: roles, tokens: tokens, resets: resets, log: log}
}

// Register creates a new account with the default "User" role. The role is
// resolved before the insert and written with the user in one repository
// call, so a role failure never leaves a roleless user behind.
func (s *AuthService) Register(ctx context.Context, username, password, email string) (*domain.User, error) {
	if len(username) < minUsernameLen || len(password) < minPasswordLen {
		return nil, domain.ErrInvalidCredentials
	}

	defaultRole, err := s.roles.FindByName(ctx, domain.RoleUser)
	if err != nil {
		return nil, fmt.Errorf("resolve default role: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		RoleID:       defaultRole.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("username", username).Int64("user_id", created.ID).Msg("user registered")
	return created, nil
}

// Login verifies credentials and issues a signed token.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	if username == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return "", nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.log.Warn().Str("username", username).Msg("invalid password")
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.RoleID)
	if err != nil {
		return "", nil, err
	}

	s.log.Info().Str("username", username).Msg("user logged in")
	return token, user, nil
}

// RequestPasswordReset generates a single-use reset token for the account
// behind email and stores it with a TTL. Delivery is out of scope; the token
// is logged for the mail pipeline to pick up.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	token, err := generateResetToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	if err := s.resets.Store(ctx, token, user.ID); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	s.log.Info().Int64("user_id", user.ID).Str("reset_token", token).Msg("password reset requested")
	return nil
}

// ConfirmPasswordReset consumes the token and replaces the user's password.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordLen {
		return domain.ErrInvalidCredentials
	}

	userID, err := s.resets.Consume(ctx, token)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if err := s.users.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return err
	}

	s.log.Info().Int64("user_id", userID).Msg("password reset confirmed")
	return nil
}

func generateResetToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
