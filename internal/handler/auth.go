package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/neristhub/campushub/internal/apperror"
	"github.com/neristhub/campushub/internal/auth"
	"github.com/neristhub/campushub/internal/service"
)

// AuthHandler serves the /api/auth routes.
type AuthHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
}

func NewAuthHandler(authService *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: authService, logger: logger}
}

type registerRequest struct {
	RegistrationNumber string `json:"registrationNumber"`
	Name               string `json:"name"`
	Password           string `json:"password"`
	SecurityCode       string `json:"securityCode"`
	SecurityCodeHint   string `json:"securityCodeHint"`
	Email              string `json:"email"`
	Phone              string `json:"phone"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "malformed request body"))
		return
	}

	user, err := h.auth.Register(r.Context(), service.RegisterInput{
		RegistrationNumber: req.RegistrationNumber,
		Name:               req.Name,
		Password:           req.Password,
		SecurityCode:       req.SecurityCode,
		SecurityCodeHint:   req.SecurityCodeHint,
		Email:              req.Email,
		Phone:              req.Phone,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":            true,
		"message":            "Registration successful",
		"registrationNumber": user.RegistrationNumber,
	})
}

type loginRequest struct {
	RegistrationNumber string `json:"registrationNumber"`
	Password           string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "malformed request body"))
		return
	}

	result, err := h.auth.Login(r.Context(), req.RegistrationNumber, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    result.User,
		"token":   result.Token,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.auth.Logout(auth.BearerToken(r))
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Logged out successfully",
	})
}

// Check reports whether the caller's token (if any) is still good. It
// never errors, so login pages can poll it freely.
func (h *AuthHandler) Check(w http.ResponseWriter, r *http.Request) {
	if identity, ok := auth.IdentityFromContext(r.Context()); ok {
		writeJSON(w, http.StatusOK, map[string]any{
			"loggedIn": true,
			"user":     identity,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"loggedIn": false})
}

func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated("valid authentication required"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": identity})
}

type registrationRequest struct {
	RegistrationNumber string `json:"registrationNumber"`
}

func (h *AuthHandler) ValidateRegistration(w http.ResponseWriter, r *http.Request) {
	var req registrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "malformed request body"))
		return
	}

	check := h.auth.ValidateRegistration(req.RegistrationNumber)
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":     check.Valid,
		"formatted": check.Formatted,
		"message":   check.Message,
	})
}

func (h *AuthHandler) VerifyRegistration(w http.ResponseWriter, r *http.Request) {
	var req registrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "malformed request body"))
		return
	}

	hint, err := h.auth.VerifyRegistration(r.Context(), req.RegistrationNumber)
	if err != nil {
		writeError(w, err)
		return
	}

	if !hint.Exists {
		writeJSON(w, http.StatusOK, map[string]any{"exists": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"exists":             true,
		"registrationNumber": hint.RegistrationNumber,
		"hint":               hint.Hint,
	})
}

type securityCodeRequest struct {
	RegistrationNumber string `json:"registrationNumber"`
	SecurityCode       string `json:"securityCode"`
}

// VerifySecurityCode keeps the contract the reset form was built on: a
// wrong code or unknown account answers 200 with valid=false, so the form
// can show an inline message instead of an error page.
func (h *AuthHandler) VerifySecurityCode(w http.ResponseWriter, r *http.Request) {
	var req securityCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "malformed request body"))
		return
	}

	token, err := h.auth.VerifySecurityCode(r.Context(), req.RegistrationNumber, req.SecurityCode)
	if err != nil {
		var appErr *apperror.AppError
		switch {
		case errors.Is(err, apperror.ErrNotFound):
			writeJSON(w, http.StatusOK, map[string]any{"valid": false, "error": "User not found"})
		case errors.As(err, &appErr) && appErr.Field == "securityCode" && errors.Is(err, apperror.ErrValidation):
			writeJSON(w, http.StatusOK, map[string]any{"valid": false, "error": "Invalid security code"})
		default:
			writeError(w, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"valid":      true,
		"resetToken": token,
	})
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "malformed request body"))
		return
	}

	if err := h.auth.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Password reset successful. You can now login with your new password.",
	})
}

func (h *AuthHandler) ValidPrefixes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"prefixes": h.auth.ValidPrefixes()})
}
