package models

import (
	"time"

	"github.com/google/uuid"
)

type RoleType string

const (
	RoleCustomer RoleType = "customer" // normal rider
	RoleCompany  RoleType = "company"  // drivers / fleet operators
	RoleMaster   RoleType = "master"   // full admin
	RoleContent  RoleType = "content"  // limited admin
)

type SubRoleType string

const (
	SubRoleAdmin  SubRoleType = "admin"
	SubRoleMember SubRoleType = "member"
)

// User for the users table. Rows are never hard-deleted by this service;
// DeletedAt acts as the soft-delete marker.
type User struct {
	ID                    uuid.UUID   `json:"id"`
	Email                 string      `json:"email"`
	Password              string      `json:"-"`
	Provider              string      `json:"provider,omitempty"`
	FirstName             string      `json:"first_name"`
	LastName              string      `json:"last_name"`
	Roles                 []RoleType  `json:"roles"`
	SubRole               SubRoleType `json:"sub_role,omitempty"`
	CountryCode           string      `json:"country_code,omitempty"`
	PhoneNumber           string      `json:"phone_number,omitempty"`
	DOB                   *time.Time  `json:"dob,omitempty"`
	IsVerified            bool        `json:"is_verified"`
	SignUpCompleted       bool        `json:"sign_up_completed"`
	IsCompletedDriverInfo bool        `json:"is_completed_driver_info"`
	PaymentAccountID      *uuid.UUID  `json:"payment_account_id,omitempty"`
	Active                bool        `json:"active"`
	DeletedAt             *time.Time  `json:"-"`
	CreatedAt             time.Time   `json:"created_at"`
	UpdatedAt             time.Time   `json:"updated_at"`
}

// HasRole reports whether the user carries the given role.
func (u *User) HasRole(role RoleType) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the user may access the admin panel.
func (u *User) IsAdmin() bool {
	return u.HasRole(RoleMaster) || u.HasRole(RoleContent)
}
