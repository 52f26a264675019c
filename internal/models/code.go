package models

import (
	"time"

	"github.com/google/uuid"
)

// CodeType distinguishes the one-time-code workflows.
type CodeType string

const (
	CodeTypeVerify        CodeType = "verify"
	CodeTypeResetPassword CodeType = "resetPassword"
	CodeTypeSetupPassword CodeType = "setupPassword"
)

// VerifyDataKeyChangePhoneNumber marks a verify code issued for a pending
// phone-number change rather than first-time verification. The onboarding
// progress calculation keys off its absence.
const VerifyDataKeyChangePhoneNumber = "changePhoneNumber"

// Code is a one-time-use credential for the codes table. At most one active
// row exists per (user_id, type); re-issuance overwrites the previous code,
// its expiry and any pending verify_data.
type Code struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Type       CodeType
	Code       string
	VerifyData map[string]any
	ExpiredAt  time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// HasChangePhoneNumber reports whether this code was issued for a pending
// phone-number change.
func (c *Code) HasChangePhoneNumber() bool {
	if c == nil || c.VerifyData == nil {
		return false
	}
	_, ok := c.VerifyData[VerifyDataKeyChangePhoneNumber]
	return ok
}
