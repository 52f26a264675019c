package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/vanbook/backend/internal/config"
	"github.com/vanbook/backend/internal/models"
	"github.com/vanbook/backend/internal/utils"
)

func newOTPFixture(t *testing.T) (*otpService, *fakeCodeRepo, *fakeTaskRepo, *fakeClock) {
	t.Helper()
	clock := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	codeRepo := newFakeCodeRepo(clock)
	taskRepo := &fakeTaskRepo{}
	scheduler := &schedulerService{repo: taskRepo, now: clock.Now}
	svc := &otpService{codeRepo: codeRepo, scheduler: scheduler, now: clock.Now}
	return svc, codeRepo, taskRepo, clock
}

func TestIssueOverwritesPreviousCode(t *testing.T) {
	svc, _, taskRepo, _ := newOTPFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	first, err := svc.Issue(ctx, userID, models.CodeTypeVerify, "111111", config.VerifyCodeTTL, map[string]any{"phoneNumber": "7001"})
	require.NoError(t, err)

	second, err := svc.Issue(ctx, userID, models.CodeTypeVerify, "222222", config.VerifyCodeTTL, map[string]any{"phoneNumber": "7002"})
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID, "re-issue must overwrite the existing row, not add one")
	require.Equal(t, "222222", second.Code)
	require.Equal(t, "7002", second.VerifyData["phoneNumber"])

	// Only the first submitted value is gone; the second confirms.
	rec, err := svc.Confirm(ctx, userID, "111111", models.CodeTypeVerify)
	require.ErrorIs(t, err, utils.ErrCodeNotFound)
	require.Nil(t, rec)

	rec, err = svc.Confirm(ctx, userID, "222222", models.CodeTypeVerify)
	require.NoError(t, err)
	require.Equal(t, "7002", rec.VerifyData["phoneNumber"])

	require.Equal(t, 2, taskRepo.pending(), "each issuance enqueues a sweep task")
}

func TestResendCooldown(t *testing.T) {
	svc, _, _, clock := newOTPFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.Issue(ctx, userID, models.CodeTypeVerify, "111111", config.VerifyCodeTTL, nil)
	require.NoError(t, err)

	// Inside the cooldown window the resend is rejected.
	clock.Advance(config.ResendCooldown - time.Second)
	_, err = svc.Resend(ctx, userID, models.CodeTypeVerify)
	require.ErrorIs(t, err, utils.ErrCooldownActive)

	// At the boundary the resend goes through with a fresh value.
	clock.Advance(time.Second)
	rec, err := svc.Resend(ctx, userID, models.CodeTypeVerify)
	require.NoError(t, err)
	require.NotEqual(t, "111111", rec.Code)
	require.Len(t, rec.Code, config.VerifyCodeLength)
}

func TestResendResetsCooldownWindow(t *testing.T) {
	svc, _, _, clock := newOTPFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.Issue(ctx, userID, models.CodeTypeVerify, "111111", config.VerifyCodeTTL, nil)
	require.NoError(t, err)

	clock.Advance(config.ResendCooldown)
	_, err = svc.Resend(ctx, userID, models.CodeTypeVerify)
	require.NoError(t, err)

	// The successful resend restarts the window.
	clock.Advance(time.Second)
	_, err = svc.Resend(ctx, userID, models.CodeTypeVerify)
	require.ErrorIs(t, err, utils.ErrCooldownActive)
}

func TestResendPreservesPendingVerifyData(t *testing.T) {
	svc, _, _, clock := newOTPFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.Issue(ctx, userID, models.CodeTypeVerify, "111111", config.VerifyCodeTTL, map[string]any{
		"phoneNumber":                         "7001",
		models.VerifyDataKeyChangePhoneNumber: true,
	})
	require.NoError(t, err)

	clock.Advance(config.ResendCooldown)
	rec, err := svc.Resend(ctx, userID, models.CodeTypeVerify)
	require.NoError(t, err)
	require.Equal(t, "7001", rec.VerifyData["phoneNumber"])
	require.True(t, rec.HasChangePhoneNumber())
}

func TestResendWithoutExistingCode(t *testing.T) {
	svc, _, _, _ := newOTPFixture(t)

	_, err := svc.Resend(context.Background(), uuid.New(), models.CodeTypeVerify)
	require.ErrorIs(t, err, utils.ErrCodeNotFound)
}

func TestConfirmDeletesOnSuccess(t *testing.T) {
	svc, _, _, _ := newOTPFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.Issue(ctx, userID, models.CodeTypeVerify, "111111", config.VerifyCodeTTL, nil)
	require.NoError(t, err)

	rec, err := svc.Confirm(ctx, userID, "111111", models.CodeTypeVerify)
	require.NoError(t, err)
	require.NotNil(t, rec)

	// Single use: the same submission now misses.
	_, err = svc.Confirm(ctx, userID, "111111", models.CodeTypeVerify)
	require.ErrorIs(t, err, utils.ErrCodeNotFound)
}

func TestConfirmExpiredCodeDeletes(t *testing.T) {
	svc, _, _, clock := newOTPFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.Issue(ctx, userID, models.CodeTypeVerify, "111111", config.VerifyCodeTTL, nil)
	require.NoError(t, err)

	clock.Advance(config.VerifyCodeTTL + time.Minute)

	_, err = svc.Confirm(ctx, userID, "111111", models.CodeTypeVerify)
	require.ErrorIs(t, err, utils.ErrCodeExpired)

	// The expired row was removed, so a retry reports absence.
	_, err = svc.Confirm(ctx, userID, "111111", models.CodeTypeVerify)
	require.ErrorIs(t, err, utils.ErrCodeNotFound)
}

func TestConfirmWrongCodeValue(t *testing.T) {
	svc, _, _, _ := newOTPFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.Issue(ctx, userID, models.CodeTypeVerify, "111111", config.VerifyCodeTTL, nil)
	require.NoError(t, err)

	_, err = svc.Confirm(ctx, userID, "999999", models.CodeTypeVerify)
	require.ErrorIs(t, err, utils.ErrCodeNotFound)

	// The miss leaves the stored code untouched.
	_, err = svc.Confirm(ctx, userID, "111111", models.CodeTypeVerify)
	require.NoError(t, err)
}

func TestConfirmByCodeFindsUserThroughCode(t *testing.T) {
	svc, _, _, _ := newOTPFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.Issue(ctx, userID, models.CodeTypeResetPassword, "url-code-abc", config.ResetPasswordCodeTTL, nil)
	require.NoError(t, err)

	rec, err := svc.ConfirmByCode(ctx, "url-code-abc", models.CodeTypeResetPassword)
	require.NoError(t, err)
	require.Equal(t, userID, rec.UserID)

	// Type mismatch never matches.
	_, err = svc.ConfirmByCode(ctx, "url-code-abc", models.CodeTypeSetupPassword)
	require.ErrorIs(t, err, utils.ErrCodeNotFound)
}

func TestRemoveExpiredIsIdempotent(t *testing.T) {
	svc, codeRepo, _, _ := newOTPFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.Issue(ctx, userID, models.CodeTypeVerify, "111111", config.VerifyCodeTTL, nil)
	require.NoError(t, err)

	require.NoError(t, svc.RemoveExpired(ctx, "111111", models.CodeTypeVerify))
	require.NoError(t, svc.RemoveExpired(ctx, "111111", models.CodeTypeVerify))

	rec, err := codeRepo.FindByUserAndType(ctx, userID, models.CodeTypeVerify)
	require.NoError(t, err)
	require.Nil(t, rec)
}

func TestSweepDoesNotTouchRotatedCode(t *testing.T) {
	svc, codeRepo, _, clock := newOTPFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.Issue(ctx, userID, models.CodeTypeVerify, "111111", config.VerifyCodeTTL, nil)
	require.NoError(t, err)

	clock.Advance(config.ResendCooldown)
	rotated, err := svc.Resend(ctx, userID, models.CodeTypeVerify)
	require.NoError(t, err)

	// The stale sweep task still carries the old value and must miss.
	require.NoError(t, svc.RemoveExpired(ctx, "111111", models.CodeTypeVerify))

	rec, err := codeRepo.FindByUserAndType(ctx, userID, models.CodeTypeVerify)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, rotated.Code, rec.Code)
}

func TestTTLForType(t *testing.T) {
	require.Equal(t, config.VerifyCodeTTL, TTLForType(models.CodeTypeVerify))
	require.Equal(t, config.ResetPasswordCodeTTL, TTLForType(models.CodeTypeResetPassword))
	require.Equal(t, config.SetupPasswordCodeTTL, TTLForType(models.CodeTypeSetupPassword))
}
