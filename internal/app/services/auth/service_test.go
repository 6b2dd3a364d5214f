package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	domainauth "hlopg/internal/domain/auth"
	domainuser "hlopg/internal/domain/user"
	"hlopg/internal/infra/security"
	"hlopg/internal/infra/storage/memory"
	"hlopg/internal/infra/validation"
)

type fixedCode string

func (c fixedCode) NewCode() (string, error) { return string(c), nil }

type capturedOTP struct {
	to   string
	code string
}

type otpNotifier struct {
	sent []capturedOTP
}

func (n *otpNotifier) Send(ctx context.Context, to, template string, data any) error {
	n.sent = append(n.sent, capturedOTP{to: to, code: data.(map[string]any)["code"].(string)})
	return nil
}

type fixture struct {
	svc      *Service
	notifier *otpNotifier
	now      *time.Time
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	notifier := &otpNotifier{}
	svc := &Service{
		Users:      memory.NewUserRepository(),
		Sessions:   memory.NewSessionStore(clock),
		Challenges: memory.NewChallengeStore(),
		Passwords:  security.BcryptHasher{Cost: bcrypt.MinCost},
		Tokens:     security.RandomTokenGenerator{},
		Codes:      fixedCode("424242"),
		Notifier:   notifier,
		Resends:    security.NewKeyLimiter(30*time.Second, 1, clock),
		Validator:  validation.New(),
		Clock:      clock,
	}
	return fixture{svc: svc, notifier: notifier, now: &now}
}

func studentParams() RegisterParams {
	return RegisterParams{
		Role:            domainuser.RoleStudent,
		Name:            "Ravi Kumar",
		Email:           "Ravi@Example.com",
		Phone:           "9876543210",
		Gender:          "Male",
		Password:        "secret12",
		ConfirmPassword: "secret12",
	}
}

func TestService_RegisterVerifyLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	reg, err := f.svc.Register(ctx, studentParams())
	require.NoError(t, err)
	assert.Equal(t, "9876543210", reg.Identifier)
	assert.Equal(t, "ravi@example.com", reg.User.Email)
	assert.Equal(t, "male", reg.User.Gender)
	assert.False(t, reg.User.Verified)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "424242", f.notifier.sent[0].code)

	_, err = f.svc.Login(ctx, LoginParams{Role: domainuser.RoleStudent, Email: "ravi@example.com", Password: "secret12"})
	assert.ErrorIs(t, err, ErrNotVerified)

	_, err = f.svc.VerifyOTP(ctx, "9876543210", "000000")
	assert.ErrorIs(t, err, domainauth.ErrOTPMismatch)

	verified, err := f.svc.VerifyOTP(ctx, "ravi@example.com", "424242")
	require.NoError(t, err)
	assert.True(t, verified.User.Verified)
	assert.NotEmpty(t, verified.Token)

	login, err := f.svc.Login(ctx, LoginParams{Role: domainuser.RoleStudent, Email: "RAVI@example.com", Password: "secret12"})
	require.NoError(t, err)

	resolved, err := f.svc.ResolveToken(ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, resolved.User.ID)
	assert.Equal(t, domainuser.RoleStudent, resolved.Session.Role)

	require.NoError(t, f.svc.Logout(ctx, login.Token))
	_, err = f.svc.ResolveToken(ctx, login.Token)
	assert.ErrorIs(t, err, domainauth.ErrSessionNotFound)
}

func TestService_RegisterRejectsInvalidAndDuplicates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	bad := studentParams()
	bad.Password = "abcdef"
	bad.ConfirmPassword = "abcdef"
	_, err := f.svc.Register(ctx, bad)
	assert.ErrorIs(t, err, validation.ErrInvalid)

	bad = studentParams()
	bad.Phone = "98765-4321"
	_, err = f.svc.Register(ctx, bad)
	assert.ErrorIs(t, err, validation.ErrInvalid)

	_, err = f.svc.Register(ctx, studentParams())
	require.NoError(t, err)

	dup := studentParams()
	dup.Phone = "9000000000"
	_, err = f.svc.Register(ctx, dup)
	assert.ErrorIs(t, err, domainuser.ErrEmailAlreadyUsed)

	dup = studentParams()
	dup.Email = "other@example.com"
	_, err = f.svc.Register(ctx, dup)
	assert.ErrorIs(t, err, domainuser.ErrPhoneAlreadyUsed)
}

func TestService_LoginThroughWrongPortal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.Register(ctx, studentParams())
	require.NoError(t, err)
	_, err = f.svc.VerifyOTP(ctx, "9876543210", "424242")
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, LoginParams{Role: domainuser.RoleOwner, Email: "ravi@example.com", Password: "secret12"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, LoginParams{Role: domainuser.RoleStudent, Email: "ravi@example.com", Password: "wrong12"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_ResendOTPThrottled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.Register(ctx, studentParams())
	require.NoError(t, err)

	_, err = f.svc.ResendOTP(ctx, "9876543210")
	require.NoError(t, err)
	_, err = f.svc.ResendOTP(ctx, "9876543210")
	assert.ErrorIs(t, err, ErrOTPThrottled)

	*f.now = f.now.Add(31 * time.Second)
	res, err := f.svc.ResendOTP(ctx, "9876543210")
	require.NoError(t, err)
	assert.Equal(t, f.now.Add(defaultOTPTTL), res.OTPExpiresAt)
	assert.Len(t, f.notifier.sent, 3)

	_, err = f.svc.VerifyOTP(ctx, "9876543210", "424242")
	require.NoError(t, err)
	_, err = f.svc.ResendOTP(ctx, "9876543210")
	assert.ErrorIs(t, err, ErrAlreadyVerified)
}

func TestService_ExpiredSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.Register(ctx, studentParams())
	require.NoError(t, err)
	res, err := f.svc.VerifyOTP(ctx, "9876543210", "424242")
	require.NoError(t, err)

	*f.now = f.now.Add(defaultSessionTTL)
	_, err = f.svc.ResolveToken(ctx, res.Token)
	assert.ErrorIs(t, err, domainauth.ErrSessionNotFound)
}

func TestService_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	reg, err := f.svc.Register(ctx, studentParams())
	require.NoError(t, err)
	other := studentParams()
	other.Email, other.Phone = "sita@example.com", "9123456780"
	_, err = f.svc.Register(ctx, other)
	require.NoError(t, err)

	updated, err := f.svc.UpdateProfile(ctx, reg.User.ID, ProfileParams{
		Name: "Ravi K", Email: "ravi.k@example.com", Phone: "9876543210", Gender: "Male", City: "Chennai",
	})
	require.NoError(t, err)
	assert.Equal(t, "Chennai", updated.City)
	assert.Equal(t, "male", updated.Gender)

	stored, err := f.svc.Users.ByEmail(ctx, "ravi.k@example.com")
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, stored.ID)
	_, err = f.svc.Users.ByEmail(ctx, "ravi@example.com")
	assert.ErrorIs(t, err, domainuser.ErrNotFound)

	_, err = f.svc.UpdateProfile(ctx, reg.User.ID, ProfileParams{Name: "Ravi K", Email: "sita@example.com", Phone: "9876543210"})
	assert.ErrorIs(t, err, domainuser.ErrEmailAlreadyUsed)
	_, err = f.svc.UpdateProfile(ctx, reg.User.ID, ProfileParams{Name: "Ravi K", Email: "ravi.k@example.com", Phone: "9123456780"})
	assert.ErrorIs(t, err, domainuser.ErrPhoneAlreadyUsed)
	_, err = f.svc.UpdateProfile(ctx, reg.User.ID, ProfileParams{Name: "Ravi K", Email: "ravi.k@example.com", Phone: "9876543210", Gender: "robot"})
	assert.ErrorIs(t, err, validation.ErrInvalid)
	_, err = f.svc.UpdateProfile(ctx, "missing", ProfileParams{Name: "Ravi K", Email: "x@example.com", Phone: "9876543219"})
	assert.ErrorIs(t, err, domainuser.ErrNotFound)
}

func TestService_ChangePasswordRevokesSessions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.Register(ctx, studentParams())
	require.NoError(t, err)
	verified, err := f.svc.VerifyOTP(ctx, "9876543210", "424242")
	require.NoError(t, err)
	id := verified.User.ID

	_, err = f.svc.ChangePassword(ctx, id, ChangePasswordParams{Current: "secret12", New: "secret34", Confirm: "secret34"})
	assert.ErrorIs(t, err, validation.ErrInvalid)
	_, err = f.svc.ChangePassword(ctx, id, ChangePasswordParams{Current: "wrong123", New: "s3cret!!", Confirm: "s3cret!!"})
	assert.ErrorIs(t, err, ErrCurrentPassword)

	changed, err := f.svc.ChangePassword(ctx, id, ChangePasswordParams{Current: "secret12", New: "s3cret!!", Confirm: "s3cret!!"})
	require.NoError(t, err)

	_, err = f.svc.ResolveToken(ctx, verified.Token)
	assert.ErrorIs(t, err, domainauth.ErrSessionNotFound)
	_, err = f.svc.ResolveToken(ctx, changed.Token)
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, LoginParams{Role: domainuser.RoleStudent, Email: "ravi@example.com", Password: "secret12"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, LoginParams{Role: domainuser.RoleStudent, Email: "ravi@example.com", Password: "s3cret!!"})
	assert.NoError(t, err)
}
