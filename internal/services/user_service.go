package services

import (
	"context"
	"net/http"
	"time"

	"github.com/vanbook/backend/internal/config"
	"github.com/vanbook/backend/internal/dtos"
	"github.com/vanbook/backend/internal/models"
	"github.com/vanbook/backend/internal/repositories"
	"github.com/vanbook/backend/internal/utils"
)

// UserService serves the authenticated profile endpoints.
type UserService interface {
	GetMe(ctx context.Context, user *models.User) (*dtos.ProfileResponse, error)
	UpdateProfile(ctx context.Context, user *models.User, req dtos.UpdateProfileRequest) (*dtos.ProfileResponse, error)
}

type userService struct {
	userRepo    repositories.UserRepository
	companyRepo repositories.CompanyRepository
	otp         OTPService
	progress    ProgressService
	notifier    NotificationService
	now         func() time.Time
}

func NewUserService(
	userRepo repositories.UserRepository,
	companyRepo repositories.CompanyRepository,
	otp OTPService,
	progress ProgressService,
	notifier NotificationService,
) UserService {
	return &userService{
		userRepo:    userRepo,
		companyRepo: companyRepo,
		otp:         otp,
		progress:    progress,
		notifier:    notifier,
		now:         time.Now,
	}
}

func (s *userService) GetMe(ctx context.Context, user *models.User) (*dtos.ProfileResponse, error) {
	return s.buildProfile(ctx, user, false)
}

func (s *userService) UpdateProfile(ctx context.Context, user *models.User, req dtos.UpdateProfileRequest) (*dtos.ProfileResponse, error) {
	if errs := ValidateWorkflow(WorkflowUpdateProfile, profileFields(req)); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	if req.DOB != "" {
		dob, err := time.Parse(time.RFC3339, req.DOB)
		if err != nil {
			return nil, &ValidationError{Fields: []FieldError{{Field: "dob", Code: "dob.invalid"}}}
		}
		if ageAt(dob, s.now()) < config.MinUserAge {
			return nil, &utils.AppError{
				StatusCode: http.StatusBadRequest,
				Code:       utils.ErrCodeValidation,
				Message:    "You must be at least 18 years old",
			}
		}
		user.DOB = &dob
	}

	if req.FirstName != "" {
		user.FirstName = req.FirstName
	}
	if req.LastName != "" {
		user.LastName = req.LastName
	}

	// A phone change never lands directly on the profile. It is parked in
	// verify_data and applied when the OTP is confirmed.
	changePhone := false
	if req.PhoneNumber != "" || req.CountryCode != "" {
		countryCode := req.CountryCode
		if countryCode == "" {
			countryCode = user.CountryCode
		}
		phone := stripLeadingZero(req.PhoneNumber)
		if phone == "" {
			phone = user.PhoneNumber
		}
		if countryCode != user.CountryCode || phone != user.PhoneNumber {
			changePhone = true
			if err := s.startPhoneChange(ctx, user, countryCode, phone); err != nil {
				return nil, err
			}
		}
	}

	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}

	return s.buildProfile(ctx, user, changePhone)
}

func (s *userService) startPhoneChange(ctx context.Context, user *models.User, countryCode, phone string) error {
	codeValue := generateVerifyCode()

	verifyData := map[string]any{
		"countryCode":                         countryCode,
		"phoneNumber":                         phone,
		models.VerifyDataKeyChangePhoneNumber: true,
	}
	rec, err := s.otp.Issue(ctx, user.ID, models.CodeTypeVerify, codeValue, config.VerifyCodeTTL, verifyData)
	if err != nil {
		return err
	}

	s.notifier.SendSMS(countryCode+phone, verifySMSBody(rec.Code))
	return nil
}

func (s *userService) buildProfile(ctx context.Context, user *models.User, changePhone bool) (*dtos.ProfileResponse, error) {
	progress, err := s.progress.CurrentProgress(ctx, user)
	if err != nil {
		return nil, err
	}

	resp := &dtos.ProfileResponse{
		User:              user,
		CurrentProgress:   progress,
		ChangePhoneNumber: changePhone,
	}

	if progress == StageAwaitingOTP || changePhone {
		verifyData, vdErr := s.progress.PendingVerifyData(ctx, user.ID)
		if vdErr != nil {
			return nil, vdErr
		}
		resp.VerifyData = verifyData
	}

	company, err := s.companyRepo.GetByOwner(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	resp.Company = company

	return resp, nil
}

func profileFields(req dtos.UpdateProfileRequest) map[string]string {
	fields := make(map[string]string)
	if req.FirstName != "" {
		fields["firstName"] = req.FirstName
	}
	if req.LastName != "" {
		fields["lastName"] = req.LastName
	}
	if req.CountryCode != "" {
		fields["countryCode"] = req.CountryCode
	}
	if req.PhoneNumber != "" {
		fields["phoneNumber"] = req.PhoneNumber
	}
	return fields
}
