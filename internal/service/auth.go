// Package service contains the business logic layer of the application.
//
// Handlers parse HTTP and write responses; services validate input and
// enforce the campus rules; repositories talk to the database. Services
// depend on repository interfaces, never on the sqlite package, so tests
// exercise them with in-memory fakes.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/neristhub/campushub/internal/apperror"
	"github.com/neristhub/campushub/internal/auth"
	"github.com/neristhub/campushub/internal/model"
	"github.com/neristhub/campushub/internal/regnum"
	"github.com/neristhub/campushub/internal/repository"
)

const (
	MinPasswordLength     = 6
	MinSecurityCodeLength = 3
)

// AuthService handles registration, login and the security-code password
// reset flow.
type AuthService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	sessions  *auth.SessionStore
	resetTTL  time.Duration
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	passwords *auth.PasswordService,
	sessions *auth.SessionStore,
	resetTTL time.Duration,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		passwords: passwords,
		sessions:  sessions,
		resetTTL:  resetTTL,
		logger:    logger,
	}
}

// RegisterInput is everything a signup form submits. Email, phone and the
// hint are optional.
type RegisterInput struct {
	RegistrationNumber string
	Name               string
	Password           string
	SecurityCode       string
	SecurityCodeHint   string
	Email              string
	Phone              string
}

// Register creates a user account keyed by a NERIST registration number.
//
// The number is normalized first ("225 88", "225-88" and "225/088" all
// become "225/88") and must exist in the institute's issued ranges. The
// security code is a second credential the user picks at signup; it later
// authorizes password resets, so it gets the same bcrypt treatment as the
// password.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	if in.RegistrationNumber == "" || in.Name == "" || in.Password == "" || in.SecurityCode == "" {
		return nil, apperror.ValidationFailed("registrationNumber",
			"registration number, name, password, and security code are required")
	}
	if len(in.Password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if len(in.SecurityCode) < MinSecurityCodeLength {
		return nil, apperror.ValidationFailed("securityCode",
			fmt.Sprintf("security code must be at least %d characters", MinSecurityCodeLength))
	}

	formatted, ok := regnum.Format(in.RegistrationNumber)
	if !ok {
		return nil, apperror.ValidationFailed("registrationNumber",
			"invalid registration number format. Use format like: 225/88 or 225-88 or 225 88")
	}
	if !regnum.Valid(formatted) {
		return nil, apperror.ValidationFailed("registrationNumber",
			fmt.Sprintf("invalid registration number %q. Please check if the number exists in NERIST records", formatted))
	}

	passwordHash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", err.Error())
	}
	securityCodeHash, err := s.passwords.Hash(in.SecurityCode)
	if err != nil {
		return nil, apperror.ValidationFailed("securityCode", err.Error())
	}

	user := &model.User{
		RegistrationNumber: formatted,
		Name:               strings.TrimSpace(in.Name),
		PasswordHash:       passwordHash,
		SecurityCodeHash:   securityCodeHash,
		SecurityCodeHint:   strings.TrimSpace(in.SecurityCodeHint),
		Email:              strings.TrimSpace(in.Email),
		Phone:              strings.TrimSpace(in.Phone),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: registering %s: %w", formatted, err)
	}

	s.logger.Info("user registered", "registration", formatted)
	return user, nil
}

// LoginResult bundles the caller's public identity with the issued token.
type LoginResult struct {
	User  model.Identity
	Token string
}

// Login verifies credentials and issues an opaque session token. A wrong
// registration number and a wrong password produce the same error so the
// response does not reveal which one was at fault.
func (s *AuthService) Login(ctx context.Context, registrationNumber, password string) (*LoginResult, error) {
	formatted, ok := regnum.Format(registrationNumber)
	if !ok {
		return nil, apperror.ValidationFailed("registrationNumber", "invalid registration number format")
	}

	user, err := s.users.GetByRegistration(ctx, formatted)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthenticated("invalid registration number or password")
		}
		return nil, fmt.Errorf("service/auth: looking up %s: %w", formatted, err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, apperror.Unauthenticated("invalid registration number or password")
	}

	token := s.sessions.Issue(user.ID)
	s.logger.Info("user logged in", "registration", formatted)

	return &LoginResult{
		User: model.Identity{
			ID:                 user.ID,
			RegistrationNumber: user.RegistrationNumber,
			Name:               user.Name,
			Email:              user.Email,
			Phone:              user.Phone,
		},
		Token: token,
	}, nil
}

// Logout revokes the caller's token. Revoking twice is harmless.
func (s *AuthService) Logout(token string) {
	s.sessions.Revoke(token)
}

// RegistrationCheck is the outcome of a pre-signup format check.
type RegistrationCheck struct {
	Valid     bool
	Formatted string
	Message   string
}

// ValidateRegistration normalizes a candidate number and reports whether
// it exists in the issued ranges. Signup forms call this as the user
// types, before any account is created.
func (s *AuthService) ValidateRegistration(registrationNumber string) RegistrationCheck {
	if registrationNumber == "" {
		return RegistrationCheck{Message: "registration number is required"}
	}

	formatted, ok := regnum.Format(registrationNumber)
	if !ok {
		return RegistrationCheck{Message: "invalid format. Use format like: 225/88, 225-88, or 225 88"}
	}

	if !regnum.Valid(formatted) {
		return RegistrationCheck{
			Formatted: formatted,
			Message:   fmt.Sprintf("invalid registration number %q. Number does not exist in NERIST records", formatted),
		}
	}
	return RegistrationCheck{
		Valid:     true,
		Formatted: formatted,
		Message:   fmt.Sprintf("valid NERIST registration number: %s", formatted),
	}
}

// AccountHint reports whether an account exists for a registration number
// and, if so, its security code hint. First step of the reset flow.
type AccountHint struct {
	Exists             bool
	RegistrationNumber string
	Hint               string
}

func (s *AuthService) VerifyRegistration(ctx context.Context, registrationNumber string) (AccountHint, error) {
	formatted, ok := regnum.Format(registrationNumber)
	if !ok {
		return AccountHint{}, nil
	}

	user, err := s.users.GetByRegistration(ctx, formatted)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return AccountHint{}, nil
		}
		return AccountHint{}, fmt.Errorf("service/auth: verifying registration %s: %w", formatted, err)
	}

	return AccountHint{
		Exists:             true,
		RegistrationNumber: user.RegistrationNumber,
		Hint:               user.SecurityCodeHint,
	}, nil
}

// VerifySecurityCode checks the second credential and, on success, issues
// a single-use reset token with a short expiry. The token is stored on
// the user row; redeeming it (ResetPassword) clears it.
func (s *AuthService) VerifySecurityCode(ctx context.Context, registrationNumber, securityCode string) (string, error) {
	if registrationNumber == "" || securityCode == "" {
		return "", apperror.ValidationFailed("securityCode",
			"registration number and security code are required")
	}

	formatted, ok := regnum.Format(registrationNumber)
	if !ok {
		return "", apperror.ValidationFailed("registrationNumber", "invalid registration number format")
	}

	user, err := s.users.GetByRegistration(ctx, formatted)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return "", apperror.NotFound("user", formatted)
		}
		return "", fmt.Errorf("service/auth: looking up %s: %w", formatted, err)
	}

	if err := s.passwords.Verify(user.SecurityCodeHash, securityCode); err != nil {
		return "", apperror.ValidationFailed("securityCode", "invalid security code")
	}

	buf := make([]byte, 20)
	_, _ = rand.Read(buf)
	token := hex.EncodeToString(buf)

	expiry := time.Now().Add(s.resetTTL)
	if err := s.users.SetResetToken(ctx, user.ID, token, expiry); err != nil {
		return "", fmt.Errorf("service/auth: storing reset token for %s: %w", formatted, err)
	}

	s.logger.Info("security code verified, reset token issued", "registration", formatted)
	return token, nil
}

// ResetPassword redeems a reset token. The repository lookup only matches
// tokens whose expiry is still in the future, and UpdatePassword clears
// the token, so each token works at most once.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" || newPassword == "" {
		return apperror.ValidationFailed("token", "token and new password are required")
	}
	if len(newPassword) < MinPasswordLength {
		return apperror.ValidationFailed("newPassword",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	user, err := s.users.GetByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.ValidationFailed("token", "invalid or expired reset token")
		}
		return fmt.Errorf("service/auth: looking up reset token: %w", err)
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return apperror.ValidationFailed("newPassword", err.Error())
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("service/auth: updating password for %s: %w", user.RegistrationNumber, err)
	}

	s.logger.Info("password reset", "registration", user.RegistrationNumber)
	return nil
}

// ValidPrefixes lists the registration prefixes the institute has issued,
// for signup form dropdowns.
func (s *AuthService) ValidPrefixes() []string {
	return regnum.Prefixes()
}
