package models

import (
	"time"

	"github.com/google/uuid"
)

// BankAccount is one payout destination on a company's payout account.
type BankAccount struct {
	ID            uuid.UUID `json:"id"`
	BankName      string    `json:"bank_name"`
	AccountNumber string    `json:"account_number"`
	SortCode      string    `json:"sort_code,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// PayoutAccount groups a company's bank entries.
type PayoutAccount struct {
	ID        uuid.UUID     `json:"id"`
	CompanyID uuid.UUID     `json:"company_id"`
	Banks     []BankAccount `json:"banks"`
}

// LicenseEntry is one licenses-and-certifications record attached to a
// driver company during onboarding.
type LicenseEntry struct {
	ID        uuid.UUID `json:"id"`
	CompanyID uuid.UUID `json:"company_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Company for the companies table. The onboarding progress calculation only
// consults licensing completeness and payout-account bank details.
type Company struct {
	ID                         uuid.UUID      `json:"id"`
	OwnedBy                    uuid.UUID      `json:"owned_by"`
	Name                       string         `json:"name"`
	LicensesAndCertifications  []LicenseEntry `json:"licenses_and_certifications"`
	PayoutAccount              *PayoutAccount `json:"payout_account,omitempty"`
	CreatedAt                  time.Time      `json:"created_at"`
	UpdatedAt                  time.Time      `json:"updated_at"`
}

// HasLicenses reports whether at least one licenses-and-certifications entry
// exists.
func (c *Company) HasLicenses() bool {
	return c != nil && len(c.LicensesAndCertifications) != 0
}

// HasBankAccount reports whether the payout account carries at least one
// bank entry.
func (c *Company) HasBankAccount() bool {
	return c != nil && c.PayoutAccount != nil && len(c.PayoutAccount.Banks) != 0
}
