package dtos

import (
	"github.com/vanbook/backend/internal/models"
)

type UpdateProfileRequest struct {
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	DOB         string `json:"dob,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// ProfileResponse mirrors AuthResponse without a token. ChangePhoneNumber
// flags that the update started a phone-change OTP round-trip.
type ProfileResponse struct {
	User              *models.User    `json:"user"`
	CurrentProgress   int             `json:"current_progress"`
	ChangePhoneNumber bool            `json:"change_phone_number"`
	VerifyData        map[string]any  `json:"verify_data,omitempty"`
	Company           *models.Company `json:"company,omitempty"`
}
