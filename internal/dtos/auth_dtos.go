package dtos

import (
	"github.com/vanbook/backend/internal/models"
)

// ----------------------
// Sign up / sign in
// ----------------------

type SignUpRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Role            string `json:"role"`
	DOB             string `json:"dob,omitempty"`
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// AuthResponse is returned by signup, signin and setupPassword. VerifyData
// is only attached while the user awaits OTP confirmation (stage 2).
type AuthResponse struct {
	User            *models.User    `json:"user"`
	Token           string          `json:"token"`
	CurrentProgress int             `json:"current_progress"`
	VerifyData      map[string]any  `json:"verify_data,omitempty"`
	Company         *models.Company `json:"company,omitempty"`
}

// ----------------------
// Phone verification
// ----------------------

type VerifyUserRequest struct {
	DOB         string `json:"dob"`
	CountryCode string `json:"country_code"`
	PhoneNumber string `json:"phone_number"`
}

type ConfirmOTPRequest struct {
	Code string `json:"code"`
}

// ----------------------
// Password workflows
// ----------------------

type RequestResetPasswordRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type ResetPasswordRequest struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type SetupPasswordRequest struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// ----------------------
// Admin
// ----------------------

type CreateUserByAdminRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

type CreateUserByAdminResponse struct {
	User              *models.User `json:"user"`
	SetupPasswordCode string       `json:"setup_password_code"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
