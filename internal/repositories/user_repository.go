package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/vanbook/backend/internal/models"
)

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// GetByEmail skips soft-deleted rows.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// GetCompletedByEmail additionally requires sign_up_completed, the gate
	// used by the password-reset flows.
	GetCompletedByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, u *models.User) error
	// SetPassword stores a new hash and optionally completes signup.
	SetPassword(ctx context.Context, id uuid.UUID, passwordHash string, completeSignup bool) error
	// ApplyVerifyData applies a confirmed code's pending payload. Only
	// whitelisted fields are honored; unknown keys are ignored.
	ApplyVerifyData(ctx context.Context, id uuid.UUID, data map[string]any) error
}

type userRepository struct {
	db DB
}

func NewUserRepository(db DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, email, password, provider, first_name, last_name, roles, sub_role,
       country_code, phone_number, dob, is_verified, sign_up_completed,
       is_completed_driver_info, payment_account_id, active, deleted_at, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, u *models.User) error {
	q := `
        INSERT INTO users
            (id, email, password, provider, first_name, last_name, roles, sub_role,
             country_code, phone_number, dob, is_verified, sign_up_completed,
             is_completed_driver_info, payment_account_id, active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW(), NOW())
    `
	roles := make([]string, len(u.Roles))
	for i, role := range u.Roles {
		roles[i] = string(role)
	}
	_, err := r.db.Exec(ctx, q,
		u.ID, u.Email, u.Password, u.Provider, u.FirstName, u.LastName,
		roles, u.SubRole, u.CountryCode, u.PhoneNumber, u.DOB,
		u.IsVerified, u.SignUpCompleted, u.IsCompletedDriverInfo,
		u.PaymentAccountID, u.Active,
	)
	return err
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND deleted_at IS NULL`
	return noUserRowsAsNil(r.scanUser(r.db.QueryRow(ctx, q, id)))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE email = $1 AND deleted_at IS NULL`
	return noUserRowsAsNil(r.scanUser(r.db.QueryRow(ctx, q, email)))
}

func (r *userRepository) GetCompletedByEmail(ctx context.Context, email string) (*models.User, error) {
	q := `
        SELECT ` + userColumns + `
        FROM users
        WHERE email = $1 AND deleted_at IS NULL AND sign_up_completed = TRUE
    `
	return noUserRowsAsNil(r.scanUser(r.db.QueryRow(ctx, q, email)))
}

func (r *userRepository) UpdateProfile(ctx context.Context, u *models.User) error {
	q := `
        UPDATE users
        SET first_name = $2,
            last_name = $3,
            dob = $4,
            sub_role = $5,
            is_completed_driver_info = $6,
            payment_account_id = $7,
            updated_at = NOW()
        WHERE id = $1
    `
	_, err := r.db.Exec(ctx, q,
		u.ID, u.FirstName, u.LastName, u.DOB, u.SubRole,
		u.IsCompletedDriverInfo, u.PaymentAccountID,
	)
	return err
}

func (r *userRepository) SetPassword(ctx context.Context, id uuid.UUID, passwordHash string, completeSignup bool) error {
	q := `
        UPDATE users
        SET password = $2,
            sign_up_completed = (sign_up_completed OR $3),
            updated_at = NOW()
        WHERE id = $1
    `
	_, err := r.db.Exec(ctx, q, id, passwordHash, completeSignup)
	return err
}

// verifyDataColumns maps confirmed verify_data keys to user columns. The
// isVerified key is injected by the confirm flow itself.
var verifyDataColumns = map[string]string{
	"countryCode": "country_code",
	"phoneNumber": "phone_number",
	"dob":         "dob",
	"isVerified":  "is_verified",
	"firstName":   "first_name",
	"lastName":    "last_name",
}

func (r *userRepository) ApplyVerifyData(ctx context.Context, id uuid.UUID, data map[string]any) error {
	set := ""
	args := []interface{}{id}
	for key, value := range data {
		col, ok := verifyDataColumns[key]
		if !ok {
			continue
		}
		if key == "dob" {
			if s, isString := value.(string); isString {
				parsed, err := time.Parse(time.RFC3339, s)
				if err != nil {
					continue
				}
				value = parsed
			}
		}
		args = append(args, value)
		if set != "" {
			set += ", "
		}
		set += fmt.Sprintf("%s = $%d", col, len(args))
	}
	if set == "" {
		return nil
	}
	q := fmt.Sprintf("UPDATE users SET %s, updated_at = NOW() WHERE id = $1", set)
	_, err := r.db.Exec(ctx, q, args...)
	return err
}

func (r *userRepository) scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	var roles []string
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Password,
		&u.Provider,
		&u.FirstName,
		&u.LastName,
		&roles,
		&u.SubRole,
		&u.CountryCode,
		&u.PhoneNumber,
		&u.DOB,
		&u.IsVerified,
		&u.SignUpCompleted,
		&u.IsCompletedDriverInfo,
		&u.PaymentAccountID,
		&u.Active,
		&u.DeletedAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Roles = make([]models.RoleType, len(roles))
	for i, role := range roles {
		u.Roles[i] = models.RoleType(role)
	}
	return &u, nil
}

func noUserRowsAsNil(u *models.User, err error) (*models.User, error) {
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return u, err
}
