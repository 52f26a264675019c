package repositories

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"

	"github.com/vanbook/backend/internal/models"
)

// CodeRepository persists one-time verification and password codes. The
// UNIQUE(user_id, type) constraint plus upsert-on-conflict gives the
// at-most-one-active-code-per-(user, type) invariant without any in-process
// locking; the store is the sole synchronization point.
type CodeRepository interface {
	// Upsert atomically creates or overwrites the code for (userID, type).
	// Overwrite-wins: the previous code value and expiry are always
	// replaced, and a non-nil verifyData replaces any pending payload. A nil
	// verifyData keeps the stored payload, which lets a resend rotate the
	// code without losing the data awaiting confirmation.
	Upsert(ctx context.Context, userID uuid.UUID, typ models.CodeType, code string, verifyData map[string]any, expiredAt time.Time) (*models.Code, error)

	// FindByUserAndType returns the active code for (userID, type), or nil
	// when none exists.
	FindByUserAndType(ctx context.Context, userID uuid.UUID, typ models.CodeType) (*models.Code, error)

	// FindPendingSignupVerify returns the user's verify code only when its
	// verify_data lacks the changePhoneNumber marker. Phone-change codes are
	// deliberately excluded; the onboarding stage calculation depends on it.
	FindPendingSignupVerify(ctx context.Context, userID uuid.UUID) (*models.Code, error)

	// FindByUserCodeAndType matches a submitted code value for a known user.
	FindByUserCodeAndType(ctx context.Context, userID uuid.UUID, code string, typ models.CodeType) (*models.Code, error)

	// FindByCodeAndType matches a submitted code value alone (password URL
	// flows identify the user through the code). Latest issuance wins.
	FindByCodeAndType(ctx context.Context, code string, typ models.CodeType) (*models.Code, error)

	// DeleteByUserAndType removes the code for (userID, type).
	DeleteByUserAndType(ctx context.Context, userID uuid.UUID, typ models.CodeType) error

	// DeleteByCodeAndType removes by (code, type). Absence is not an error;
	// the scheduled sweep relies on this being idempotent.
	DeleteByCodeAndType(ctx context.Context, code string, typ models.CodeType) error

	// DeleteExpired removes every code past its expiry, the nightly backstop
	// for sweep tasks that never fired.
	DeleteExpired(ctx context.Context) error
}

type codeRepository struct {
	db DB
}

func NewCodeRepository(db DB) CodeRepository {
	return &codeRepository{db: db}
}

const codeColumns = `id, user_id, type, code, verify_data, expired_at, created_at, updated_at`

func (r *codeRepository) Upsert(
	ctx context.Context,
	userID uuid.UUID,
	typ models.CodeType,
	code string,
	verifyData map[string]any,
	expiredAt time.Time,
) (*models.Code, error) {
	q := `
        INSERT INTO codes (id, user_id, type, code, verify_data, expired_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
        ON CONFLICT (user_id, type) DO UPDATE
        SET code = EXCLUDED.code,
            verify_data = COALESCE(EXCLUDED.verify_data, codes.verify_data),
            expired_at = EXCLUDED.expired_at,
            updated_at = NOW()
        RETURNING ` + codeColumns
	vd, err := marshalVerifyData(verifyData)
	if err != nil {
		return nil, err
	}
	row := r.db.QueryRow(ctx, q, uuid.New(), userID, typ, code, vd, expiredAt)
	return scanCode(row)
}

func (r *codeRepository) FindByUserAndType(ctx context.Context, userID uuid.UUID, typ models.CodeType) (*models.Code, error) {
	q := `SELECT ` + codeColumns + ` FROM codes WHERE user_id = $1 AND type = $2`
	return noRowsAsNil(scanCode(r.db.QueryRow(ctx, q, userID, typ)))
}

func (r *codeRepository) FindPendingSignupVerify(ctx context.Context, userID uuid.UUID) (*models.Code, error) {
	q := `
        SELECT ` + codeColumns + `
        FROM codes
        WHERE user_id = $1
          AND type = $2
          AND (verify_data IS NULL OR NOT verify_data ? $3)
    `
	row := r.db.QueryRow(ctx, q, userID, models.CodeTypeVerify, models.VerifyDataKeyChangePhoneNumber)
	return noRowsAsNil(scanCode(row))
}

func (r *codeRepository) FindByUserCodeAndType(ctx context.Context, userID uuid.UUID, code string, typ models.CodeType) (*models.Code, error) {
	q := `SELECT ` + codeColumns + ` FROM codes WHERE user_id = $1 AND code = $2 AND type = $3`
	return noRowsAsNil(scanCode(r.db.QueryRow(ctx, q, userID, code, typ)))
}

func (r *codeRepository) FindByCodeAndType(ctx context.Context, code string, typ models.CodeType) (*models.Code, error) {
	q := `
        SELECT ` + codeColumns + `
        FROM codes
        WHERE code = $1 AND type = $2
        ORDER BY updated_at DESC
        LIMIT 1
    `
	return noRowsAsNil(scanCode(r.db.QueryRow(ctx, q, code, typ)))
}

func (r *codeRepository) DeleteByUserAndType(ctx context.Context, userID uuid.UUID, typ models.CodeType) error {
	q := `DELETE FROM codes WHERE user_id = $1 AND type = $2`
	_, err := r.db.Exec(ctx, q, userID, typ)
	return err
}

func (r *codeRepository) DeleteByCodeAndType(ctx context.Context, code string, typ models.CodeType) error {
	q := `DELETE FROM codes WHERE code = $1 AND type = $2`
	_, err := r.db.Exec(ctx, q, code, typ)
	return err
}

func (r *codeRepository) DeleteExpired(ctx context.Context) error {
	q := `DELETE FROM codes WHERE expired_at < NOW()`
	_, err := r.db.Exec(ctx, q)
	return err
}

func marshalVerifyData(verifyData map[string]any) (*pgtype.JSONB, error) {
	vd := &pgtype.JSONB{Status: pgtype.Null}
	if verifyData != nil {
		raw, err := json.Marshal(verifyData)
		if err != nil {
			return nil, err
		}
		vd.Bytes = raw
		vd.Status = pgtype.Present
	}
	return vd, nil
}

func scanCode(row pgx.Row) (*models.Code, error) {
	var rec models.Code
	var vd pgtype.JSONB
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.Type,
		&rec.Code,
		&vd,
		&rec.ExpiredAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if vd.Status == pgtype.Present && len(vd.Bytes) > 0 {
		if err := json.Unmarshal(vd.Bytes, &rec.VerifyData); err != nil {
			return nil, err
		}
	}
	return &rec, nil
}

// noRowsAsNil folds pgx.ErrNoRows into a nil record so the service layer can
// treat absence as a domain condition rather than an infra error.
func noRowsAsNil(rec *models.Code, err error) (*models.Code, error) {
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return rec, err
}
