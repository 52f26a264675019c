package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vanbook/backend/internal/dtos"
	"github.com/vanbook/backend/internal/middleware"
	"github.com/vanbook/backend/internal/services"
	"github.com/vanbook/backend/internal/utils"
)

type AuthController struct {
	authService services.AuthService
}

func NewAuthController(authService services.AuthService) *AuthController {
	return &AuthController{authService: authService}
}

func (c *AuthController) SignUp(w http.ResponseWriter, r *http.Request) {
	var req dtos.SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid payload", nil, err,
		)
		return
	}

	resp, err := c.authService.SignUp(r.Context(), req)
	if err != nil {
		respondAuthError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, resp)
}

func (c *AuthController) SignIn(w http.ResponseWriter, r *http.Request) {
	var req dtos.SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid payload", nil, err,
		)
		return
	}

	resp, err := c.authService.SignIn(r.Context(), req)
	if err != nil {
		respondAuthError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

func (c *AuthController) VerifyUser(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	var req dtos.VerifyUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid payload", nil, err,
		)
		return
	}

	if err := c.authService.StartVerification(r.Context(), user, req); err != nil {
		respondAuthError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.MessageResponse{Message: "Verification code sent"})
}

func (c *AuthController) ConfirmOTP(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	var req dtos.ConfirmOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid payload", nil, err,
		)
		return
	}

	if err := c.authService.ConfirmOTP(r.Context(), user, req.Code); err != nil {
		respondAuthError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.MessageResponse{Message: "Phone number verified"})
}

func (c *AuthController) ResendOTP(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	if err := c.authService.ResendOTP(r.Context(), user); err != nil {
		respondAuthError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.MessageResponse{Message: "Verification code resent"})
}

func (c *AuthController) RequestResetPassword(w http.ResponseWriter, r *http.Request) {
	var req dtos.RequestResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid payload", nil, err,
		)
		return
	}

	if err := c.authService.RequestResetPassword(r.Context(), req.Email, req.Role); err != nil {
		respondAuthError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.MessageResponse{Message: "Reset password email sent"})
}

func (c *AuthController) ResendResetPassword(w http.ResponseWriter, r *http.Request) {
	var req dtos.RequestResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid payload", nil, err,
		)
		return
	}

	if err := c.authService.ResendResetPassword(r.Context(), req.Email, req.Role); err != nil {
		respondAuthError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.MessageResponse{Message: "Reset password email resent"})
}

func (c *AuthController) ResetPassword(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Missing code parameter", nil,
		)
		return
	}

	var req dtos.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid payload", nil, err,
		)
		return
	}

	if err := c.authService.ResetPassword(r.Context(), code, req); err != nil {
		respondAuthError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.MessageResponse{Message: "Password updated"})
}

func (c *AuthController) SetupPassword(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Missing code parameter", nil,
		)
		return
	}

	var req dtos.SetupPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid payload", nil, err,
		)
		return
	}

	resp, err := c.authService.SetupPassword(r.Context(), code, req)
	if err != nil {
		respondAuthError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

func (c *AuthController) CreateUserByAdmin(w http.ResponseWriter, r *http.Request) {
	var req dtos.CreateUserByAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid payload", nil, err,
		)
		return
	}

	resp, err := c.authService.CreateUserByAdmin(r.Context(), req)
	if err != nil {
		respondAuthError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, resp)
}

// respondAuthError maps service errors onto HTTP responses. Validation
// failures carry their field list in the details payload.
func respondAuthError(w http.ResponseWriter, err error) {
	var valErr *services.ValidationError
	if errors.As(err, &valErr) {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "Validation failed", valErr.Fields,
		)
		return
	}

	switch {
	case errors.Is(err, utils.ErrEmailExists):
		utils.RespondErrorWithCode(
			w, http.StatusConflict, utils.ErrCodeConflict, "An account with this email already exists", nil,
		)
	case errors.Is(err, utils.ErrInvalidCredential):
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeInvalidCredentials, "Invalid email or password", nil,
		)
	case errors.Is(err, utils.ErrAccountInactive):
		utils.RespondErrorWithCode(
			w, http.StatusForbidden, utils.ErrCodeAccountInactive, "This account has been deactivated", nil,
		)
	case errors.Is(err, utils.ErrAccessInvalid):
		utils.RespondErrorWithCode(
			w, http.StatusForbidden, utils.ErrCodeAccessInvalid, "This account cannot access the requested panel", nil,
		)
	case errors.Is(err, utils.ErrUserNotFound):
		utils.RespondErrorWithCode(
			w, http.StatusNotFound, utils.ErrCodeResourceNotFound, "No account found for this email", nil,
		)
	case errors.Is(err, utils.ErrAlreadyVerified):
		utils.RespondErrorWithCode(
			w, http.StatusConflict, utils.ErrCodeAlreadyVerified, "This account is already verified", nil,
		)
	case errors.Is(err, utils.ErrCodeNotFound):
		utils.RespondErrorWithCode(
			w, http.StatusNotFound, utils.ErrCodeCodeNotFound, "Code not found", nil,
		)
	case errors.Is(err, utils.ErrCodeExpired):
		utils.RespondErrorWithCode(
			w, http.StatusGone, utils.ErrCodeCodeExpired, "Code has expired, please request a new one", nil,
		)
	case errors.Is(err, utils.ErrCooldownActive):
		utils.RespondErrorWithCode(
			w, http.StatusTooManyRequests, utils.ErrCodeCooldownActive, "Please wait before requesting another code", nil,
		)
	default:
		utils.HandleAppError(w, err)
	}
}
