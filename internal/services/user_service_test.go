package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/vanbook/backend/internal/dtos"
	"github.com/vanbook/backend/internal/models"
)

func newUserFixture(t *testing.T) (*userService, *fakeUserRepo, *fakeCodeRepo, *fakeNotifier, *fakeClock) {
	t.Helper()
	clock := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	userRepo := newFakeUserRepo()
	companyRepo := newFakeCompanyRepo()
	codeRepo := newFakeCodeRepo(clock)
	notifier := &fakeNotifier{}

	svc := &userService{
		userRepo:    userRepo,
		companyRepo: companyRepo,
		otp:         &otpService{codeRepo: codeRepo, scheduler: noopScheduler{}, now: clock.Now},
		progress:    NewProgressService(codeRepo, companyRepo),
		notifier:    notifier,
		now:         clock.Now,
	}
	return svc, userRepo, codeRepo, notifier, clock
}

func verifiedUser() *models.User {
	return &models.User{
		ID:          uuid.New(),
		Email:       "rider@example.com",
		FirstName:   "Ada",
		LastName:    "Driver",
		Roles:       []models.RoleType{models.RoleCustomer},
		CountryCode: "+44",
		PhoneNumber: "7001112222",
		IsVerified:  true,
		Active:      true,
	}
}

func TestGetMeReportsProgress(t *testing.T) {
	svc, userRepo, _, _, _ := newUserFixture(t)
	ctx := context.Background()

	user := verifiedUser()
	require.NoError(t, userRepo.Create(ctx, user))

	resp, err := svc.GetMe(ctx, user)
	require.NoError(t, err)
	require.Equal(t, StageVerified, resp.CurrentProgress)
	require.False(t, resp.ChangePhoneNumber)
	require.Nil(t, resp.VerifyData)
}

func TestUpdateProfileNameAndDOB(t *testing.T) {
	svc, userRepo, _, notifier, _ := newUserFixture(t)
	ctx := context.Background()

	user := verifiedUser()
	require.NoError(t, userRepo.Create(ctx, user))

	resp, err := svc.UpdateProfile(ctx, user, dtos.UpdateProfileRequest{
		FirstName: "Grace",
		DOB:       "1995-06-15T00:00:00Z",
	})
	require.NoError(t, err)
	require.False(t, resp.ChangePhoneNumber)

	stored, err := userRepo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "Grace", stored.FirstName)
	require.Equal(t, "Driver", stored.LastName)
	require.NotNil(t, stored.DOB)
	require.Equal(t, 0, notifier.smsCount())
}

func TestUpdateProfileUnderageRejected(t *testing.T) {
	svc, userRepo, _, _, clock := newUserFixture(t)
	ctx := context.Background()

	user := verifiedUser()
	require.NoError(t, userRepo.Create(ctx, user))

	_, err := svc.UpdateProfile(ctx, user, dtos.UpdateProfileRequest{
		DOB: clock.Now().AddDate(-16, 0, 0).Format(time.RFC3339),
	})
	require.Error(t, err)
}

func TestUpdateProfilePhoneChangeStartsOTPRoundTrip(t *testing.T) {
	svc, userRepo, codeRepo, notifier, _ := newUserFixture(t)
	ctx := context.Background()

	user := verifiedUser()
	require.NoError(t, userRepo.Create(ctx, user))

	resp, err := svc.UpdateProfile(ctx, user, dtos.UpdateProfileRequest{
		PhoneNumber: "07009998888",
	})
	require.NoError(t, err)
	require.True(t, resp.ChangePhoneNumber)
	require.Equal(t, 1, notifier.smsCount())

	// The stored profile still has the old number; the new one is parked on
	// the code awaiting confirmation.
	stored, err := userRepo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "7001112222", stored.PhoneNumber)

	rec, err := codeRepo.FindByUserAndType(ctx, user.ID, models.CodeTypeVerify)
	require.NoError(t, err)
	require.True(t, rec.HasChangePhoneNumber())
	require.Equal(t, "7009998888", rec.VerifyData["phoneNumber"])
	require.Equal(t, "+44", rec.VerifyData["countryCode"])

	// The pending change rides along in the response.
	require.Equal(t, "7009998888", resp.VerifyData["phoneNumber"])

	// A verified user's phone-change code does not knock them back a stage.
	require.Equal(t, StageVerified, resp.CurrentProgress)
}

func TestUpdateProfileSamePhoneIsNoop(t *testing.T) {
	svc, userRepo, codeRepo, notifier, _ := newUserFixture(t)
	ctx := context.Background()

	user := verifiedUser()
	require.NoError(t, userRepo.Create(ctx, user))

	resp, err := svc.UpdateProfile(ctx, user, dtos.UpdateProfileRequest{
		CountryCode: "+44",
		PhoneNumber: "07001112222",
	})
	require.NoError(t, err)
	require.False(t, resp.ChangePhoneNumber)
	require.Equal(t, 0, notifier.smsCount())

	rec, err := codeRepo.FindByUserAndType(ctx, user.ID, models.CodeTypeVerify)
	require.NoError(t, err)
	require.Nil(t, rec)
}

func TestUpdateProfileValidation(t *testing.T) {
	svc, userRepo, _, _, _ := newUserFixture(t)
	ctx := context.Background()

	user := verifiedUser()
	require.NoError(t, userRepo.Create(ctx, user))

	_, err := svc.UpdateProfile(ctx, user, dtos.UpdateProfileRequest{
		FirstName:   "Ada1234",
		CountryCode: "44",
	})
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	require.Len(t, valErr.Fields, 2)
}
