package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vanbook/backend/internal/models"
)

// fakeClock is a controllable time source shared by the services under test.
type fakeClock struct {
	mu  sync.Mutex
	cur time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{cur: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(d)
}

// fakeCodeRepo mirrors the codes table semantics in memory: one row per
// (user_id, type), overwrite on upsert, COALESCE on nil verify_data.
type fakeCodeRepo struct {
	mu    sync.Mutex
	rows  map[string]*models.Code
	clock *fakeClock
}

func newFakeCodeRepo(clock *fakeClock) *fakeCodeRepo {
	return &fakeCodeRepo{rows: make(map[string]*models.Code), clock: clock}
}

func codeKey(userID uuid.UUID, typ models.CodeType) string {
	return userID.String() + "/" + string(typ)
}

func copyCode(rec *models.Code) *models.Code {
	if rec == nil {
		return nil
	}
	out := *rec
	if rec.VerifyData != nil {
		out.VerifyData = make(map[string]any, len(rec.VerifyData))
		for k, v := range rec.VerifyData {
			out.VerifyData[k] = v
		}
	}
	return &out
}

func (r *fakeCodeRepo) Upsert(_ context.Context, userID uuid.UUID, typ models.CodeType, code string, verifyData map[string]any, expiredAt time.Time) (*models.Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	key := codeKey(userID, typ)
	existing, ok := r.rows[key]
	if !ok {
		rec := &models.Code{
			ID:         uuid.New(),
			UserID:     userID,
			Type:       typ,
			Code:       code,
			VerifyData: verifyData,
			ExpiredAt:  expiredAt,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		r.rows[key] = rec
		return copyCode(rec), nil
	}

	existing.Code = code
	existing.ExpiredAt = expiredAt
	existing.UpdatedAt = now
	if verifyData != nil {
		existing.VerifyData = verifyData
	}
	return copyCode(existing), nil
}

func (r *fakeCodeRepo) FindByUserAndType(_ context.Context, userID uuid.UUID, typ models.CodeType) (*models.Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copyCode(r.rows[codeKey(userID, typ)]), nil
}

func (r *fakeCodeRepo) FindPendingSignupVerify(_ context.Context, userID uuid.UUID) (*models.Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.rows[codeKey(userID, models.CodeTypeVerify)]
	if rec == nil || rec.HasChangePhoneNumber() {
		return nil, nil
	}
	return copyCode(rec), nil
}

func (r *fakeCodeRepo) FindByUserCodeAndType(_ context.Context, userID uuid.UUID, code string, typ models.CodeType) (*models.Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.rows[codeKey(userID, typ)]
	if rec == nil || rec.Code != code {
		return nil, nil
	}
	return copyCode(rec), nil
}

func (r *fakeCodeRepo) FindByCodeAndType(_ context.Context, code string, typ models.CodeType) (*models.Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *models.Code
	for _, rec := range r.rows {
		if rec.Code != code || rec.Type != typ {
			continue
		}
		if latest == nil || rec.UpdatedAt.After(latest.UpdatedAt) {
			latest = rec
		}
	}
	return copyCode(latest), nil
}

func (r *fakeCodeRepo) DeleteByUserAndType(_ context.Context, userID uuid.UUID, typ models.CodeType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, codeKey(userID, typ))
	return nil
}

func (r *fakeCodeRepo) DeleteByCodeAndType(_ context.Context, code string, typ models.CodeType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, rec := range r.rows {
		if rec.Code == code && rec.Type == typ {
			delete(r.rows, key)
		}
	}
	return nil
}

func (r *fakeCodeRepo) DeleteExpired(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock.Now()
	for key, rec := range r.rows {
		if rec.ExpiredAt.Before(now) {
			delete(r.rows, key)
		}
	}
	return nil
}

// fakeTaskRepo is the in-memory scheduled_tasks queue.
type fakeTaskRepo struct {
	mu    sync.Mutex
	tasks []*models.ScheduledTask
}

func (r *fakeTaskRepo) Create(_ context.Context, task *models.ScheduledTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, task)
	return nil
}

func (r *fakeTaskRepo) ClaimDue(_ context.Context, now time.Time, limit int) ([]*models.ScheduledTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var due []*models.ScheduledTask
	var rest []*models.ScheduledTask
	for _, task := range r.tasks {
		if len(due) < limit && !task.RunAt.After(now) {
			due = append(due, task)
		} else {
			rest = append(rest, task)
		}
	}
	r.tasks = rest
	sort.Slice(due, func(i, j int) bool { return due[i].RunAt.Before(due[j].RunAt) })
	return due, nil
}

func (r *fakeTaskRepo) CleanupOrphaned(_ context.Context, olderThan time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	var rest []*models.ScheduledTask
	for _, task := range r.tasks {
		if task.RunAt.After(cutoff) {
			rest = append(rest, task)
		}
	}
	r.tasks = rest
	return nil
}

func (r *fakeTaskRepo) pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// fakeUserRepo stores users by ID with email lookup.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*models.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || u.DeletedAt != nil {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email && u.DeletedAt == nil {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) GetCompletedByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := r.GetByEmail(ctx, email)
	if err != nil || u == nil || !u.SignUpCompleted {
		return nil, err
	}
	return u, nil
}

func (r *fakeUserRepo) UpdateProfile(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *fakeUserRepo) SetPassword(_ context.Context, id uuid.UUID, passwordHash string, completeSignup bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil
	}
	u.Password = passwordHash
	u.SignUpCompleted = u.SignUpCompleted || completeSignup
	return nil
}

func (r *fakeUserRepo) ApplyVerifyData(_ context.Context, id uuid.UUID, data map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil
	}
	if v, ok := data["countryCode"].(string); ok {
		u.CountryCode = v
	}
	if v, ok := data["phoneNumber"].(string); ok {
		u.PhoneNumber = v
	}
	if v, ok := data["firstName"].(string); ok {
		u.FirstName = v
	}
	if v, ok := data["lastName"].(string); ok {
		u.LastName = v
	}
	if v, ok := data["dob"].(string); ok {
		if dob, err := time.Parse(time.RFC3339, v); err == nil {
			u.DOB = &dob
		}
	}
	if v, ok := data["isVerified"].(bool); ok {
		u.IsVerified = v
	}
	return nil
}

// fakeCompanyRepo returns a fixed company per owner.
type fakeCompanyRepo struct {
	mu        sync.Mutex
	companies map[uuid.UUID]*models.Company
}

func newFakeCompanyRepo() *fakeCompanyRepo {
	return &fakeCompanyRepo{companies: make(map[uuid.UUID]*models.Company)}
}

func (r *fakeCompanyRepo) GetByOwner(_ context.Context, ownerID uuid.UUID) (*models.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.companies[ownerID], nil
}

func (r *fakeCompanyRepo) Create(_ context.Context, c *models.Company) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.companies[c.OwnedBy] = c
	return nil
}

// fakeNotifier records outgoing messages instead of delivering them.
type fakeNotifier struct {
	mu     sync.Mutex
	sms    []string
	emails []string
}

func (n *fakeNotifier) SendSMS(to, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sms = append(n.sms, to+": "+message)
}

func (n *fakeNotifier) SendEmail(toEmail, _, subject, _, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.emails = append(n.emails, toEmail+": "+subject)
}

func (n *fakeNotifier) smsCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sms)
}

func (n *fakeNotifier) emailCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.emails)
}

// noopScheduler drops every scheduled task.
type noopScheduler struct{}

func (noopScheduler) Schedule(context.Context, time.Duration, string, map[string]any) error {
	return nil
}
