package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/vanbook/backend/internal/models"
)

type CompanyRepository interface {
	// GetByOwner loads a company with its license entries and payout banks,
	// or nil when the user owns no company.
	GetByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Company, error)
	Create(ctx context.Context, c *models.Company) error
}

type companyRepository struct {
	db DB
}

func NewCompanyRepository(db DB) CompanyRepository {
	return &companyRepository{db: db}
}

func (r *companyRepository) GetByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Company, error) {
	q := `
        SELECT id, owned_by, name, created_at, updated_at
        FROM companies
        WHERE owned_by = $1
    `
	var c models.Company
	err := r.db.QueryRow(ctx, q, ownerID).Scan(&c.ID, &c.OwnedBy, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := r.loadLicenses(ctx, &c); err != nil {
		return nil, err
	}
	if err := r.loadPayoutAccount(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *companyRepository) Create(ctx context.Context, c *models.Company) error {
	q := `
        INSERT INTO companies (id, owned_by, name, created_at, updated_at)
        VALUES ($1, $2, $3, NOW(), NOW())
    `
	_, err := r.db.Exec(ctx, q, c.ID, c.OwnedBy, c.Name)
	return err
}

func (r *companyRepository) loadLicenses(ctx context.Context, c *models.Company) error {
	q := `
        SELECT id, company_id, name, created_at
        FROM licenses_and_certifications
        WHERE company_id = $1
        ORDER BY created_at
    `
	rows, err := r.db.Query(ctx, q, c.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var entry models.LicenseEntry
		if err := rows.Scan(&entry.ID, &entry.CompanyID, &entry.Name, &entry.CreatedAt); err != nil {
			return err
		}
		c.LicensesAndCertifications = append(c.LicensesAndCertifications, entry)
	}
	return rows.Err()
}

func (r *companyRepository) loadPayoutAccount(ctx context.Context, c *models.Company) error {
	q := `SELECT id, company_id FROM payout_accounts WHERE company_id = $1`
	var pa models.PayoutAccount
	err := r.db.QueryRow(ctx, q, c.ID).Scan(&pa.ID, &pa.CompanyID)
	if err == pgx.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}

	bq := `
        SELECT id, bank_name, account_number, sort_code, created_at
        FROM bank_accounts
        WHERE payout_account_id = $1
        ORDER BY created_at
    `
	rows, err := r.db.Query(ctx, bq, pa.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var bank models.BankAccount
		if err := rows.Scan(&bank.ID, &bank.BankName, &bank.AccountNumber, &bank.SortCode, &bank.CreatedAt); err != nil {
			return err
		}
		pa.Banks = append(pa.Banks, bank)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	c.PayoutAccount = &pa
	return nil
}
