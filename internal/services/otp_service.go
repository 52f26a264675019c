package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vanbook/backend/internal/config"
	"github.com/vanbook/backend/internal/models"
	"github.com/vanbook/backend/internal/repositories"
	"github.com/vanbook/backend/internal/utils"
)

// OTPService issues, confirms, resends and expires one-time codes for phone
// verification and the password workflows.
//
// Per (user, type) a code moves ABSENT -> ACTIVE and leaves ACTIVE by
// confirmation, expiry (both delete the row) or by being overwritten on
// re-issue. A resend inside the cooldown window is rejected; the initial
// issuance path always overwrites.
type OTPService interface {
	// Issue upserts the code for (userID, type) and registers the deferred
	// expiry sweep. A non-nil extraData becomes the pending verify_data.
	Issue(ctx context.Context, userID uuid.UUID, typ models.CodeType, codeValue string, ttl time.Duration, extraData map[string]any) (*models.Code, error)

	// Resend re-issues with a fresh code value and the type's default TTL.
	// Fails with utils.ErrCooldownActive while the previous issuance is
	// younger than the cooldown, and with utils.ErrCodeNotFound when there
	// is nothing to resend.
	Resend(ctx context.Context, userID uuid.UUID, typ models.CodeType) (*models.Code, error)

	// Confirm validates a submitted code for a known user. On success the
	// record is deleted and returned so the caller can apply its pending
	// verify_data. Expired records are deleted as a side effect.
	Confirm(ctx context.Context, userID uuid.UUID, submitted string, typ models.CodeType) (*models.Code, error)

	// ConfirmByCode is Confirm for flows where the code value alone
	// identifies the user (password reset/setup links).
	ConfirmByCode(ctx context.Context, submitted string, typ models.CodeType) (*models.Code, error)

	// RemoveExpired deletes by (code, type); invoked by the scheduled sweep.
	// Absence of a matching record is not an error.
	RemoveExpired(ctx context.Context, code string, typ models.CodeType) error
}

type otpService struct {
	codeRepo  repositories.CodeRepository
	scheduler TaskScheduler
	now       func() time.Time
}

func NewOTPService(codeRepo repositories.CodeRepository, scheduler TaskScheduler) OTPService {
	return &otpService{
		codeRepo:  codeRepo,
		scheduler: scheduler,
		now:       time.Now,
	}
}

// TTLForType returns the fixed lifetime of each code type.
func TTLForType(typ models.CodeType) time.Duration {
	switch typ {
	case models.CodeTypeResetPassword:
		return config.ResetPasswordCodeTTL
	case models.CodeTypeSetupPassword:
		return config.SetupPasswordCodeTTL
	default:
		return config.VerifyCodeTTL
	}
}

func (s *otpService) Issue(
	ctx context.Context,
	userID uuid.UUID,
	typ models.CodeType,
	codeValue string,
	ttl time.Duration,
	extraData map[string]any,
) (*models.Code, error) {
	expiredAt := s.now().Add(ttl)
	rec, err := s.codeRepo.Upsert(ctx, userID, typ, codeValue, extraData, expiredAt)
	if err != nil {
		return nil, err
	}

	// The sweep is fire-and-forget; confirm-time validation owns expiry
	// correctness, so a scheduling failure must not fail the issuance.
	schedErr := s.scheduler.Schedule(ctx, ttl, models.TaskRemoveExpiredCode, map[string]any{
		"code": rec.Code,
		"type": string(rec.Type),
	})
	if schedErr != nil {
		utils.Logger.WithError(schedErr).Warnf("Failed to schedule expiry sweep for %s code of user %s", typ, userID)
	}

	return rec, nil
}

func (s *otpService) Resend(ctx context.Context, userID uuid.UUID, typ models.CodeType) (*models.Code, error) {
	existing, err := s.codeRepo.FindByUserAndType(ctx, userID, typ)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, utils.ErrCodeNotFound
	}
	if s.now().Before(existing.UpdatedAt.Add(config.ResendCooldown)) {
		return nil, utils.ErrCooldownActive
	}

	codeValue, err := s.freshCodeValue(typ)
	if err != nil {
		return nil, err
	}

	// nil extraData keeps the stored verify_data, so a pending phone-number
	// change survives the rotation.
	return s.Issue(ctx, userID, typ, codeValue, TTLForType(typ), nil)
}

func (s *otpService) Confirm(ctx context.Context, userID uuid.UUID, submitted string, typ models.CodeType) (*models.Code, error) {
	rec, err := s.codeRepo.FindByUserCodeAndType(ctx, userID, submitted, typ)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, utils.ErrCodeNotFound
	}
	return s.finishConfirm(ctx, rec)
}

func (s *otpService) ConfirmByCode(ctx context.Context, submitted string, typ models.CodeType) (*models.Code, error) {
	rec, err := s.codeRepo.FindByCodeAndType(ctx, submitted, typ)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, utils.ErrCodeNotFound
	}
	return s.finishConfirm(ctx, rec)
}

func (s *otpService) finishConfirm(ctx context.Context, rec *models.Code) (*models.Code, error) {
	if s.now().After(rec.ExpiredAt) {
		if err := s.codeRepo.DeleteByUserAndType(ctx, rec.UserID, rec.Type); err != nil {
			return nil, err
		}
		return nil, utils.ErrCodeExpired
	}
	if err := s.codeRepo.DeleteByUserAndType(ctx, rec.UserID, rec.Type); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *otpService) RemoveExpired(ctx context.Context, code string, typ models.CodeType) error {
	return s.codeRepo.DeleteByCodeAndType(ctx, code, typ)
}

func (s *otpService) freshCodeValue(typ models.CodeType) (string, error) {
	if typ == models.CodeTypeVerify {
		return generateVerifyCode(), nil
	}
	return generateURLCode(), nil
}
