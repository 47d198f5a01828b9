// Package service implements the business logic layer.
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math/big"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/utafrali/MarketGo/internal/auth"
	"github.com/utafrali/MarketGo/internal/domain"
	"github.com/utafrali/MarketGo/internal/event"
	"github.com/utafrali/MarketGo/internal/mailer"
	"github.com/utafrali/MarketGo/internal/repository"
	apperrors "github.com/utafrali/MarketGo/pkg/errors"
)

// bcryptCost is the cost factor for bcrypt password hashing.
const bcryptCost = 12

// minPasswordLength is the minimum password length required.
const minPasswordLength = 8

// verificationTTL is how long an emailed verification code stays valid.
const verificationTTL = 10 * time.Minute

// allowedProfileFields maps a role to the profile fields it may change.
// Only admins may change roles.
var allowedProfileFields = map[string]map[string]bool{
	domain.RoleCustomer: {"first_name": true, "last_name": true, "email": true},
	domain.RoleManager:  {"first_name": true, "last_name": true, "email": true},
	domain.RoleAdmin:    {"first_name": true, "last_name": true, "email": true, "role": true},
}

// UserService implements the business logic for user and auth operations.
type UserService struct {
	userRepo          repository.UserRepository
	refreshTokenRepo  repository.RefreshTokenRepository
	verificationStore repository.VerificationStore
	jwtManager        *auth.JWTManager
	mailer            mailer.Sender
	producer          *event.Producer
	logger            *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(
	userRepo repository.UserRepository,
	refreshTokenRepo repository.RefreshTokenRepository,
	verificationStore repository.VerificationStore,
	jwtManager *auth.JWTManager,
	mailSender mailer.Sender,
	producer *event.Producer,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		userRepo:          userRepo,
		refreshTokenRepo:  refreshTokenRepo,
		verificationStore: verificationStore,
		jwtManager:        jwtManager,
		mailer:            mailSender,
		producer:          producer,
		logger:            logger,
	}
}

// RegisterInput holds the parameters for registering a new user.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// LoginInput holds the parameters for user login.
type LoginInput struct {
	Email    string
	Password string
}

// UpdateProfileInput holds the parameters for updating a user's profile.
// Which fields apply depends on the acting user's role.
type UpdateProfileInput struct {
	FirstName *string
	LastName  *string
	Email     *string
	Role      *string
}

// Register creates a new user account with its basket, emails a verification
// code, and returns tokens.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*domain.User, *domain.TokenPair, error) {
	if input.Email == "" {
		return nil, nil, apperrors.InvalidInput("email is required")
	}
	if input.FirstName == "" {
		return nil, nil, apperrors.InvalidInput("first name is required")
	}
	if input.LastName == "" {
		return nil, nil, apperrors.InvalidInput("last name is required")
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        input.Email,
		PasswordHash: string(hashedPassword),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         domain.RoleCustomer,
		IsVerified:   false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.CreateWithBasket(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("create user: %w", err)
	}

	tokens, err := s.generateTokenPair(ctx, user)
	if err != nil {
		return nil, nil, fmt.Errorf("generate tokens: %w", err)
	}

	// Send the verification code; failure must not fail registration.
	if err := s.sendVerificationCode(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to send verification code",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	// Publish registration event (non-blocking on failure).
	if err := s.producer.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, tokens, nil
}

// Login authenticates a user with email and password, returning tokens.
func (s *UserService) Login(ctx context.Context, input LoginInput) (*domain.User, *domain.TokenPair, error) {
	if input.Email == "" {
		return nil, nil, apperrors.InvalidInput("email is required")
	}
	if input.Password == "" {
		return nil, nil, apperrors.InvalidInput("password is required")
	}

	user, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, nil, apperrors.Unauthorized("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, nil, apperrors.Unauthorized("invalid email or password")
	}

	tokens, err := s.generateTokenPair(ctx, user)
	if err != nil {
		return nil, nil, fmt.Errorf("generate tokens: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, tokens, nil
}

// RefreshToken validates a refresh token, rotates it, and generates a new pair.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	if refreshToken == "" {
		return nil, apperrors.InvalidInput("refresh token is required")
	}

	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid or expired refresh token")
	}

	tokenHash := hashToken(refreshToken)
	storedToken, err := s.refreshTokenRepo.GetByHash(ctx, tokenHash)
	if err != nil {
		return nil, apperrors.Unauthorized("refresh token not found")
	}

	if storedToken.RevokedAt != nil {
		return nil, apperrors.Unauthorized("refresh token has been revoked")
	}

	if time.Now().UTC().After(storedToken.ExpiresAt) {
		return nil, apperrors.Unauthorized("refresh token has expired")
	}

	// Rotate: revoke the old token before issuing a new one.
	if err := s.refreshTokenRepo.Revoke(ctx, tokenHash); err != nil {
		s.logger.ErrorContext(ctx, "failed to revoke old refresh token",
			slog.String("user_id", claims.UserID),
			slog.String("error", err.Error()),
		)
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user for token refresh: %w", err)
	}

	tokens, err := s.generateTokenPair(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("generate tokens: %w", err)
	}

	s.logger.InfoContext(ctx, "tokens refreshed",
		slog.String("user_id", user.ID),
	)

	return tokens, nil
}

// Logout revokes a refresh token so it can no longer be used.
func (s *UserService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return apperrors.InvalidInput("refresh token is required")
	}

	if err := s.refreshTokenRepo.Revoke(ctx, hashToken(refreshToken)); err != nil {
		return apperrors.Unauthorized("refresh token not found")
	}

	return nil
}

// Verify checks the emailed code and marks the account verified.
func (s *UserService) Verify(ctx context.Context, userID, code string) error {
	if code == "" {
		return apperrors.InvalidInput("verification code is required")
	}

	stored, err := s.verificationStore.GetCode(ctx, userID)
	if err != nil {
		return apperrors.InvalidInput("verification code is invalid or expired")
	}

	if stored != code {
		return apperrors.InvalidInput("verification code is invalid or expired")
	}

	if err := s.userRepo.SetVerified(ctx, userID); err != nil {
		return fmt.Errorf("mark user verified: %w", err)
	}

	if err := s.verificationStore.DeleteCode(ctx, userID); err != nil {
		s.logger.ErrorContext(ctx, "failed to delete used verification code",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user verified",
		slog.String("user_id", userID),
	)

	return nil
}

// ResendVerification issues a fresh verification code to an unverified user.
func (s *UserService) ResendVerification(ctx context.Context, userID string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user for verification resend: %w", err)
	}

	if user.IsVerified {
		return apperrors.InvalidInput("account is already verified")
	}

	return s.sendVerificationCode(ctx, user)
}

// GetProfile retrieves a user by their ID.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user profile: %w", err)
	}
	return user, nil
}

// UpdateProfile updates profile fields. The acting user's role determines
// which fields may change; a field outside the role's allowance is rejected.
func (s *UserService) UpdateProfile(ctx context.Context, userID, actorRole string, input UpdateProfileInput) (*domain.User, error) {
	allowed := allowedProfileFields[actorRole]
	if allowed == nil {
		return nil, apperrors.Forbidden("unknown role")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user for update: %w", err)
	}

	if input.FirstName != nil {
		if !allowed["first_name"] {
			return nil, apperrors.Forbidden("first_name cannot be changed by this role")
		}
		if *input.FirstName == "" {
			return nil, apperrors.InvalidInput("first name must not be empty")
		}
		user.FirstName = *input.FirstName
	}

	if input.LastName != nil {
		if !allowed["last_name"] {
			return nil, apperrors.Forbidden("last_name cannot be changed by this role")
		}
		if *input.LastName == "" {
			return nil, apperrors.InvalidInput("last name must not be empty")
		}
		user.LastName = *input.LastName
	}

	if input.Email != nil {
		if !allowed["email"] {
			return nil, apperrors.Forbidden("email cannot be changed by this role")
		}
		if *input.Email == "" {
			return nil, apperrors.InvalidInput("email must not be empty")
		}
		user.Email = *input.Email
	}

	if input.Role != nil {
		if !allowed["role"] {
			return nil, apperrors.Forbidden("role cannot be changed by this role")
		}
		if !domain.IsValidRole(*input.Role) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("invalid role %q", *input.Role))
		}
		user.Role = *input.Role
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.logger.InfoContext(ctx, "user profile updated",
		slog.String("user_id", user.ID),
	)

	return user, nil
}

// ChangePassword verifies the current password and stores a new hash. All
// refresh tokens are revoked so other sessions must log in again.
func (s *UserService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if currentPassword == "" {
		return apperrors.InvalidInput("current password is required")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	if currentPassword == newPassword {
		return apperrors.InvalidInput("new password must be different from current password")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user for password change: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return apperrors.Unauthorized("current password is incorrect")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}

	user.PasswordHash = string(hashedPassword)
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("update user password: %w", err)
	}

	if err := s.refreshTokenRepo.RevokeByUserID(ctx, user.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to revoke refresh tokens after password change",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "password changed",
		slog.String("user_id", user.ID),
	)

	return nil
}

// sendVerificationCode generates a 6-digit code, stores it with a TTL, and
// emails it to the user.
func (s *UserService) sendVerificationCode(ctx context.Context, user *domain.User) error {
	code, err := generateVerificationCode()
	if err != nil {
		return fmt.Errorf("generate verification code: %w", err)
	}

	if err := s.verificationStore.SaveCode(ctx, user.ID, code, verificationTTL); err != nil {
		return fmt.Errorf("store verification code: %w", err)
	}

	if err := s.mailer.SendVerificationCode(ctx, user.Email, code); err != nil {
		return fmt.Errorf("email verification code: %w", err)
	}

	return nil
}

func (s *UserService) generateTokenPair(ctx context.Context, user *domain.User) (*domain.TokenPair, error) {
	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	expiresAt := time.Now().UTC().Add(s.jwtManager.RefreshExpiry())
	if err := s.refreshTokenRepo.Create(ctx, user.ID, hashToken(refreshToken), expiresAt); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// hashToken returns the SHA256 hex digest of the given token string.
func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// generateVerificationCode returns a random 6-digit numeric code.
func generateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// validatePassword checks that the password meets minimum complexity requirements.
func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	var hasUpper, hasLower, hasDigit bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit {
		return apperrors.InvalidInput("password must contain at least one uppercase letter, one lowercase letter, and one digit")
	}

	return nil
}
