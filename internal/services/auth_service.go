package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vanbook/backend/internal/config"
	"github.com/vanbook/backend/internal/dtos"
	"github.com/vanbook/backend/internal/models"
	"github.com/vanbook/backend/internal/repositories"
	"github.com/vanbook/backend/internal/utils"
)

// ValidationError carries the per-field failures of a rule group up to the
// controller, which serializes them as the error details list.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

// AuthService implements signup, login, phone verification and the password
// code workflows.
type AuthService interface {
	SignUp(ctx context.Context, req dtos.SignUpRequest) (*dtos.AuthResponse, error)
	SignIn(ctx context.Context, req dtos.SignInRequest) (*dtos.AuthResponse, error)

	StartVerification(ctx context.Context, user *models.User, req dtos.VerifyUserRequest) error
	ConfirmOTP(ctx context.Context, user *models.User, submitted string) error
	ResendOTP(ctx context.Context, user *models.User) error

	RequestResetPassword(ctx context.Context, email, role string) error
	ResendResetPassword(ctx context.Context, email, role string) error
	ResetPassword(ctx context.Context, code string, req dtos.ResetPasswordRequest) error
	SetupPassword(ctx context.Context, code string, req dtos.SetupPasswordRequest) (*dtos.AuthResponse, error)

	CreateUserByAdmin(ctx context.Context, req dtos.CreateUserByAdminRequest) (*dtos.CreateUserByAdminResponse, error)
}

type authService struct {
	userRepo    repositories.UserRepository
	companyRepo repositories.CompanyRepository
	codeRepo    repositories.CodeRepository
	otp         OTPService
	progress    ProgressService
	notifier    NotificationService
	jwt         JWTService
	cfg         *config.Config
	now         func() time.Time
}

func NewAuthService(
	userRepo repositories.UserRepository,
	companyRepo repositories.CompanyRepository,
	codeRepo repositories.CodeRepository,
	otp OTPService,
	progress ProgressService,
	notifier NotificationService,
	jwtSvc JWTService,
	cfg *config.Config,
) AuthService {
	return &authService{
		userRepo:    userRepo,
		companyRepo: companyRepo,
		codeRepo:    codeRepo,
		otp:         otp,
		progress:    progress,
		notifier:    notifier,
		jwt:         jwtSvc,
		cfg:         cfg,
		now:         time.Now,
	}
}

// ---------------------------------------------------------------------
// SignUp
// ---------------------------------------------------------------------
func (s *authService) SignUp(ctx context.Context, req dtos.SignUpRequest) (*dtos.AuthResponse, error) {
	if errs := ValidateWorkflow(WorkflowSignUp, map[string]string{
		"email":     req.Email,
		"password":  req.Password,
		"firstName": req.FirstName,
		"lastName":  req.LastName,
		"role":      req.Role,
	}); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	if req.Password != req.ConfirmPassword {
		return nil, &utils.AppError{
			StatusCode: http.StatusBadRequest,
			Code:       utils.ErrCodeValidation,
			Message:    "Password and confirmation do not match",
		}
	}

	existing, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}

	// A social signup without a password can be taken over by setting one.
	if existing != nil && !existing.SignUpCompleted {
		hash, hashErr := utils.HashPassword(req.Password)
		if hashErr != nil {
			return nil, hashErr
		}
		if err := s.userRepo.SetPassword(ctx, existing.ID, hash, true); err != nil {
			return nil, err
		}
		existing.SignUpCompleted = true
		return s.buildAuthResponse(ctx, existing)
	}
	if existing != nil {
		return nil, utils.ErrEmailExists
	}

	roles := []models.RoleType{models.RoleType(req.Role)}
	if req.Role == "" {
		roles = []models.RoleType{models.RoleCustomer}
	}
	var subRole models.SubRoleType
	if req.Role == string(models.RoleCompany) {
		subRole = models.SubRoleMember
	}
	// Everyone can also book as a rider.
	hasCustomer := false
	for _, role := range roles {
		if role == models.RoleCustomer {
			hasCustomer = true
		}
	}
	if !hasCustomer {
		roles = append(roles, models.RoleCustomer)
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:              uuid.New(),
		Email:           req.Email,
		Password:        hash,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Roles:           roles,
		SubRole:         subRole,
		SignUpCompleted: true,
		Active:          true,
	}
	if req.DOB != "" {
		if dob, dobErr := time.Parse(time.RFC3339, req.DOB); dobErr == nil {
			user.DOB = &dob
		}
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	if user.HasRole(models.RoleCompany) {
		company := &models.Company{
			ID:      uuid.New(),
			OwnedBy: user.ID,
			Name:    fmt.Sprintf("%s %s", user.FirstName, user.LastName),
		}
		if err := s.companyRepo.Create(ctx, company); err != nil {
			return nil, err
		}
	}

	return s.buildAuthResponse(ctx, user)
}

// ---------------------------------------------------------------------
// SignIn
// ---------------------------------------------------------------------
func (s *authService) SignIn(ctx context.Context, req dtos.SignInRequest) (*dtos.AuthResponse, error) {
	if errs := ValidateWorkflow(WorkflowSignIn, map[string]string{
		"email":    req.Email,
		"password": req.Password,
	}); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if user == nil || !utils.CheckPasswordHash(req.Password, user.Password) {
		return nil, utils.ErrInvalidCredential
	}
	if !user.Active {
		return nil, utils.ErrAccountInactive
	}
	if err := checkPanelAccess(user, req.Role); err != nil {
		return nil, err
	}

	return s.buildAuthResponse(ctx, user)
}

// checkPanelAccess keeps riders out of the admin panel and admins out of the
// customer app.
func checkPanelAccess(user *models.User, requestedRole string) error {
	isCustomerPanel := requestedRole == "" || requestedRole == string(models.RoleCustomer)
	if isCustomerPanel {
		if !user.HasRole(models.RoleCustomer) && !user.HasRole(models.RoleCompany) {
			return utils.ErrAccessInvalid
		}
		return nil
	}
	if !user.IsAdmin() {
		return utils.ErrAccessInvalid
	}
	return nil
}

// ---------------------------------------------------------------------
// Phone verification
// ---------------------------------------------------------------------
func (s *authService) StartVerification(ctx context.Context, user *models.User, req dtos.VerifyUserRequest) error {
	if user.IsVerified {
		return utils.ErrAlreadyVerified
	}

	pending, err := s.codeRepo.FindPendingSignupVerify(ctx, user.ID)
	if err != nil {
		return err
	}
	if pending != nil {
		return &utils.AppError{
			StatusCode: http.StatusConflict,
			Code:       utils.ErrCodeConflict,
			Message:    "A verification code is already pending",
		}
	}

	if errs := ValidateWorkflow(WorkflowVerifyUser, map[string]string{
		"dob":         req.DOB,
		"countryCode": req.CountryCode,
		"phoneNumber": req.PhoneNumber,
	}); len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}

	dob, err := time.Parse(time.RFC3339, req.DOB)
	if err != nil {
		return &ValidationError{Fields: []FieldError{{Field: "dob", Code: "dob.invalid"}}}
	}
	minAge := config.MinUserAge
	if user.HasRole(models.RoleCompany) {
		minAge = config.MinDriverAge
	}
	if ageAt(dob, s.now()) < minAge {
		return &utils.AppError{
			StatusCode: http.StatusBadRequest,
			Code:       utils.ErrCodeValidation,
			Message:    fmt.Sprintf("Drivers must be at least %d years old", minAge),
		}
	}

	phone := stripLeadingZero(req.PhoneNumber)

	codeValue := generateVerifyCode()

	verifyData := map[string]any{
		"dob":         dob.Format(time.RFC3339),
		"countryCode": req.CountryCode,
		"phoneNumber": phone,
	}
	rec, err := s.otp.Issue(ctx, user.ID, models.CodeTypeVerify, codeValue, config.VerifyCodeTTL, verifyData)
	if err != nil {
		return err
	}

	s.notifier.SendSMS(req.CountryCode+phone, verifySMSBody(rec.Code))
	return nil
}

func (s *authService) ConfirmOTP(ctx context.Context, user *models.User, submitted string) error {
	rec, err := s.codeRepo.FindByUserCodeAndType(ctx, user.ID, submitted, models.CodeTypeVerify)
	if err != nil {
		return err
	}
	if rec == nil {
		return utils.ErrCodeNotFound
	}

	// Verified users may only confirm a pending phone-number change.
	if user.IsVerified && !rec.HasChangePhoneNumber() {
		return utils.ErrAlreadyVerified
	}

	confirmed, err := s.otp.Confirm(ctx, user.ID, submitted, models.CodeTypeVerify)
	if err != nil {
		return err
	}

	data := confirmed.VerifyData
	if data == nil {
		data = map[string]any{}
	}
	data["isVerified"] = true

	return s.userRepo.ApplyVerifyData(ctx, confirmed.UserID, data)
}

func (s *authService) ResendOTP(ctx context.Context, user *models.User) error {
	existing, err := s.codeRepo.FindByUserAndType(ctx, user.ID, models.CodeTypeVerify)
	if err != nil {
		return err
	}
	if existing == nil {
		return utils.ErrCodeNotFound
	}
	if user.IsVerified && !existing.HasChangePhoneNumber() {
		return utils.ErrAlreadyVerified
	}

	rec, err := s.otp.Resend(ctx, user.ID, models.CodeTypeVerify)
	if err != nil {
		return err
	}

	s.notifier.SendSMS(smsDestination(rec, user), verifySMSBody(rec.Code))
	return nil
}

// smsDestination prefers the pending (unconfirmed) number in verify_data and
// falls back to the user's stored one.
func smsDestination(rec *models.Code, user *models.User) string {
	if rec.VerifyData != nil {
		cc, _ := rec.VerifyData["countryCode"].(string)
		phone, _ := rec.VerifyData["phoneNumber"].(string)
		if cc != "" && phone != "" {
			return cc + phone
		}
	}
	return user.CountryCode + user.PhoneNumber
}

// ---------------------------------------------------------------------
// Password reset / setup
// ---------------------------------------------------------------------
func (s *authService) RequestResetPassword(ctx context.Context, email, role string) error {
	user, err := s.lookupResetUser(ctx, email, role)
	if err != nil {
		return err
	}
	return s.issueResetPassword(ctx, user)
}

func (s *authService) ResendResetPassword(ctx context.Context, email, role string) error {
	user, err := s.lookupResetUser(ctx, email, role)
	if err != nil {
		return err
	}

	existing, err := s.codeRepo.FindByUserAndType(ctx, user.ID, models.CodeTypeResetPassword)
	if err != nil {
		return err
	}
	if existing == nil {
		return s.issueResetPassword(ctx, user)
	}

	rec, err := s.otp.Resend(ctx, user.ID, models.CodeTypeResetPassword)
	if err != nil {
		return err
	}
	s.sendPasswordEmail(user, rec.Code, "resetPassword", "Reset your password")
	return nil
}

func (s *authService) lookupResetUser(ctx context.Context, email, role string) (*models.User, error) {
	user, err := s.userRepo.GetCompletedByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, utils.ErrUserNotFound
	}
	if err := checkPanelAccess(user, role); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *authService) issueResetPassword(ctx context.Context, user *models.User) error {
	rec, err := s.otp.Issue(ctx, user.ID, models.CodeTypeResetPassword, generateURLCode(), config.ResetPasswordCodeTTL, nil)
	if err != nil {
		return err
	}
	s.sendPasswordEmail(user, rec.Code, "resetPassword", "Reset your password")
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, code string, req dtos.ResetPasswordRequest) error {
	if errs := ValidateWorkflow(WorkflowResetPassword, map[string]string{
		"password":        req.Password,
		"confirmPassword": req.ConfirmPassword,
	}); len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	if req.Password != req.ConfirmPassword {
		return &utils.AppError{
			StatusCode: http.StatusBadRequest,
			Code:       utils.ErrCodeValidation,
			Message:    "Password and confirmation do not match",
		}
	}

	rec, err := s.otp.ConfirmByCode(ctx, code, models.CodeTypeResetPassword)
	if err != nil {
		return err
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return err
	}
	return s.userRepo.SetPassword(ctx, rec.UserID, hash, false)
}

func (s *authService) SetupPassword(ctx context.Context, code string, req dtos.SetupPasswordRequest) (*dtos.AuthResponse, error) {
	if errs := ValidateWorkflow(WorkflowSetupPassword, map[string]string{
		"password":        req.Password,
		"confirmPassword": req.ConfirmPassword,
	}); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}
	if req.Password != req.ConfirmPassword {
		return nil, &utils.AppError{
			StatusCode: http.StatusBadRequest,
			Code:       utils.ErrCodeValidation,
			Message:    "Password and confirmation do not match",
		}
	}

	rec, err := s.otp.ConfirmByCode(ctx, code, models.CodeTypeSetupPassword)
	if err != nil {
		return nil, err
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.SetPassword(ctx, rec.UserID, hash, true); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, rec.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, utils.ErrUserNotFound
	}
	return s.buildAuthResponse(ctx, user)
}

// ---------------------------------------------------------------------
// Admin user creation
// ---------------------------------------------------------------------
func (s *authService) CreateUserByAdmin(ctx context.Context, req dtos.CreateUserByAdminRequest) (*dtos.CreateUserByAdminResponse, error) {
	if errs := ValidateWorkflow(WorkflowCreateByAdmin, map[string]string{
		"email":     req.Email,
		"firstName": req.FirstName,
		"lastName":  req.LastName,
		"role":      req.Role,
	}); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	existing, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, utils.ErrEmailExists
	}

	user := &models.User{
		ID:        uuid.New(),
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Roles:     []models.RoleType{models.RoleType(req.Role)},
		Active:    true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	rec, err := s.otp.Issue(ctx, user.ID, models.CodeTypeSetupPassword, generateURLCode(), config.SetupPasswordCodeTTL, nil)
	if err != nil {
		return nil, err
	}
	s.sendPasswordEmail(user, rec.Code, "setupPassword", "Set up your password")

	return &dtos.CreateUserByAdminResponse{User: user, SetupPasswordCode: rec.Code}, nil
}

// ---------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------
func (s *authService) buildAuthResponse(ctx context.Context, user *models.User) (*dtos.AuthResponse, error) {
	token, err := s.jwt.GenerateAccessToken(user.ID)
	if err != nil {
		return nil, err
	}

	progress, err := s.progress.CurrentProgress(ctx, user)
	if err != nil {
		return nil, err
	}

	resp := &dtos.AuthResponse{
		User:            user,
		Token:           token,
		CurrentProgress: progress,
	}

	if progress == StageAwaitingOTP {
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

func (s *authService) sendPasswordEmail(user *models.User, code, path, subject string) {
	link := fmt.Sprintf("%s/%s?code=%s", s.cfg.AppUrl, path, code)
	plain := fmt.Sprintf("Hi %s, open this link to continue: %s", user.FirstName, link)
	html := fmt.Sprintf(passwordEmailHTML,
		subject, subject, user.FirstName,
		"Use the button below to continue. The link expires automatically.",
		link, subject, s.now().Year(),
	)
	s.notifier.SendEmail(user.Email, user.FirstName, s.cfg.OrganizationName+" - "+subject, plain, html)
}

// stripLeadingZero drops the national dialing prefix before the country code
// is prepended.
func stripLeadingZero(phone string) string {
	return strings.TrimPrefix(phone, "0")
}

func ageAt(dob, now time.Time) int {
	years := now.Year() - dob.Year()
	if now.YearDay() < dob.YearDay() {
		years--
	}
	return years
}
