package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/vanbook/backend/internal/models"
	"github.com/vanbook/backend/internal/repositories"
)

// Onboarding stages reported to clients. Stages are not monotonic in time: a
// verified user who requests a phone-number change gets a verify code whose
// verify_data carries changePhoneNumber, which stageFor deliberately ignores.
const (
	StageAccountCreated   = 1
	StageAwaitingOTP      = 2
	StageVerified         = 3
	StagePaymentAccount   = 4
	StageBankDetails      = 5
	StageLicensesComplete = 6
	StageDriverInfoDone   = 7
)

// ProgressService computes a user's onboarding stage from user, company and
// code state. It mutates nothing.
type ProgressService interface {
	CurrentProgress(ctx context.Context, user *models.User) (int, error)
	// PendingVerifyData returns the verify_data awaiting OTP confirmation,
	// attached to responses when the user sits at stage 2.
	PendingVerifyData(ctx context.Context, userID uuid.UUID) (map[string]any, error)
}

type progressService struct {
	codeRepo    repositories.CodeRepository
	companyRepo repositories.CompanyRepository
}

func NewProgressService(codeRepo repositories.CodeRepository, companyRepo repositories.CompanyRepository) ProgressService {
	return &progressService{codeRepo: codeRepo, companyRepo: companyRepo}
}

func (s *progressService) CurrentProgress(ctx context.Context, user *models.User) (int, error) {
	var company *models.Company
	if user.PaymentAccountID != nil && user.HasRole(models.RoleCompany) && user.SubRole == models.SubRoleMember {
		loaded, err := s.companyRepo.GetByOwner(ctx, user.ID)
		if err != nil {
			return 0, err
		}
		company = loaded
	}

	hasPendingVerify := false
	if user.PaymentAccountID == nil && !user.IsVerified {
		rec, err := s.codeRepo.FindPendingSignupVerify(ctx, user.ID)
		if err != nil {
			return 0, err
		}
		hasPendingVerify = rec != nil
	}

	return stageFor(user, company, hasPendingVerify), nil
}

func (s *progressService) PendingVerifyData(ctx context.Context, userID uuid.UUID) (map[string]any, error) {
	rec, err := s.codeRepo.FindByUserAndType(ctx, userID, models.CodeTypeVerify)
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.VerifyData, nil
}

// stageFor is the pure stage derivation. Evaluation order matters: payment
// account presence first, then company sub-stages, then verification, then
// code presence, then the default.
func stageFor(user *models.User, company *models.Company, hasPendingVerifyCode bool) int {
	if user.PaymentAccountID != nil {
		if user.HasRole(models.RoleCompany) && user.SubRole == models.SubRoleMember {
			if user.IsCompletedDriverInfo {
				return StageDriverInfoDone
			}
			if company.HasLicenses() {
				return StageLicensesComplete
			}
			if company.HasBankAccount() {
				return StageBankDetails
			}
		}
		return StagePaymentAccount
	}

	if user.IsVerified {
		return StageVerified
	}

	if hasPendingVerifyCode {
		return StageAwaitingOTP
	}

	return StageAccountCreated
}
