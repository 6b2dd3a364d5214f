package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"hlopg/internal/app/policies"
	domainauth "hlopg/internal/domain/auth"
	domainuser "hlopg/internal/domain/user"
)

var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrNotVerified        = errors.New("auth: phone number not verified")
	ErrAlreadyVerified    = errors.New("auth: account already verified")
	ErrOTPThrottled       = errors.New("auth: otp resend requested too soon")
	ErrCurrentPassword    = errors.New("auth: current password is incorrect")
)

const (
	defaultSessionTTL = 24 * time.Hour
	defaultOTPTTL     = 5 * time.Minute
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type TokenGenerator interface {
	NewToken() (string, error)
}

type CodeGenerator interface {
	NewCode() (string, error)
}

type Limiter interface {
	Allow(key string) bool
}

type Validator interface {
	Validate(ctx context.Context, message any) error
}

type Service struct {
	Users      domainuser.Repository
	Sessions   domainauth.SessionStore
	Challenges domainauth.ChallengeStore
	Passwords  PasswordHasher
	Tokens     TokenGenerator
	Codes      CodeGenerator
	Notifier   policies.Notifier
	Resends    Limiter
	Validator  Validator
	SessionTTL time.Duration
	OTPTTL     time.Duration
	Clock      func() time.Time
	Logger     *slog.Logger
}

type RegisterParams struct {
	Role            domainuser.Role `validate:"required,oneof=student owner"`
	Name            string          `validate:"required,min=3,max=22"`
	Email           string          `validate:"required,email"`
	Phone           string          `validate:"required,number,min=10,max=12"`
	Gender          string          `validate:"omitempty,oneof=male female other"`
	Password        string          `validate:"required,min=6,letters_digits"`
	ConfirmPassword string          `validate:"required,eqfield=Password"`
}

type LoginParams struct {
	Role     domainuser.Role `validate:"required,oneof=student owner"`
	Email    string          `validate:"required,email"`
	Password string          `validate:"required"`
}

type ProfileParams struct {
	Name   string `validate:"required,min=3,max=22"`
	Email  string `validate:"required,email"`
	Phone  string `validate:"required,number,min=10,max=12"`
	Gender string `validate:"omitempty,oneof=male female other"`
	City   string `validate:"omitempty,max=40"`
}

type ChangePasswordParams struct {
	Current string `validate:"required"`
	New     string `validate:"required,min=6,letters_digits_symbols"`
	Confirm string `validate:"required,eqfield=New"`
}

type AuthResult struct {
	User  *domainuser.User
	Token string
}

type RegistrationResult struct {
	User         *domainuser.User
	Identifier   string
	OTPExpiresAt time.Time
}

type ResolveResult struct {
	User    *domainuser.User
	Session *domainauth.Session
}

// Register creates an unverified account and sends an OTP to its phone.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*RegistrationResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	params.Name = strings.TrimSpace(params.Name)
	params.Email = domainuser.NormalizeEmail(params.Email)
	params.Phone = domainuser.NormalizePhone(params.Phone)
	params.Gender = strings.ToLower(strings.TrimSpace(params.Gender))
	if s.Validator != nil {
		if err := s.Validator.Validate(ctx, params); err != nil {
			return nil, err
		}
	}
	if _, err := s.Users.ByEmail(ctx, params.Email); err == nil {
		return nil, domainuser.ErrEmailAlreadyUsed
	} else if !errors.Is(err, domainuser.ErrNotFound) {
		return nil, err
	}
	if _, err := s.Users.ByPhone(ctx, params.Phone); err == nil {
		return nil, domainuser.ErrPhoneAlreadyUsed
	} else if !errors.Is(err, domainuser.ErrNotFound) {
		return nil, err
	}
	hash, err := s.Passwords.Hash(params.Password)
	if err != nil {
		return nil, err
	}
	user, err := domainuser.NewUser(domainuser.CreateParams{
		ID:           domainuser.ID(uuid.NewString()),
		Email:        params.Email,
		Phone:        params.Phone,
		Name:         params.Name,
		Gender:       params.Gender,
		PasswordHash: hash,
		Role:         params.Role,
		CreatedAt:    s.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.Users.Save(ctx, user); err != nil {
		return nil, err
	}
	challenge, err := s.sendOTP(ctx, user)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("user registered", "user_id", user.ID, "role", user.Role)
	}
	return &RegistrationResult{User: user, Identifier: user.Phone, OTPExpiresAt: challenge.ExpiresAt}, nil
}

// VerifyOTP confirms the phone number and signs the user in.
func (s *Service) VerifyOTP(ctx context.Context, identifier, code string) (*AuthResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	user, err := s.userByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}
	challenge, err := s.Challenges.Get(ctx, user.Phone)
	if err != nil {
		return nil, err
	}
	match := func(hash, code string) bool { return s.Passwords.Compare(hash, code) == nil }
	if err := challenge.Verify(code, match, s.now()); err != nil {
		if errors.Is(err, domainauth.ErrOTPMismatch) {
			if saveErr := s.Challenges.Save(ctx, challenge); saveErr != nil {
				return nil, errors.Join(err, saveErr)
			}
		}
		return nil, err
	}
	if err := s.Challenges.Delete(ctx, user.Phone); err != nil {
		return nil, err
	}
	user.MarkVerified(s.now())
	if err := s.Users.Save(ctx, user); err != nil {
		return nil, err
	}
	token, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("phone verified", "user_id", user.ID)
	}
	return &AuthResult{User: user, Token: token}, nil
}

func (s *Service) ResendOTP(ctx context.Context, identifier string) (*RegistrationResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	user, err := s.userByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if user.Verified {
		return nil, ErrAlreadyVerified
	}
	if s.Resends != nil && !s.Resends.Allow(user.Phone) {
		return nil, ErrOTPThrottled
	}
	challenge, err := s.sendOTP(ctx, user)
	if err != nil {
		return nil, err
	}
	return &RegistrationResult{User: user, Identifier: user.Phone, OTPExpiresAt: challenge.ExpiresAt}, nil
}

// Login signs in through the portal of params.Role; accounts of the other role are rejected.
func (s *Service) Login(ctx context.Context, params LoginParams) (*AuthResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	params.Email = domainuser.NormalizeEmail(params.Email)
	if s.Validator != nil {
		if err := s.Validator.Validate(ctx, params); err != nil {
			return nil, ErrInvalidCredentials
		}
	}
	user, err := s.Users.ByEmail(ctx, params.Email)
	if err != nil {
		if errors.Is(err, domainuser.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.HasRole(params.Role) {
		return nil, ErrInvalidCredentials
	}
	if err := s.Passwords.Compare(user.PasswordHash, params.Password); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.Verified {
		return nil, ErrNotVerified
	}
	token, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("user authenticated", "user_id", user.ID, "role", user.Role)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// UpdateProfile edits the caller's own account. Email and phone stay unique across accounts.
func (s *Service) UpdateProfile(ctx context.Context, id domainuser.ID, params ProfileParams) (*domainuser.User, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	params.Name = strings.TrimSpace(params.Name)
	params.Email = domainuser.NormalizeEmail(params.Email)
	params.Phone = domainuser.NormalizePhone(params.Phone)
	params.Gender = strings.ToLower(strings.TrimSpace(params.Gender))
	params.City = strings.TrimSpace(params.City)
	if s.Validator != nil {
		if err := s.Validator.Validate(ctx, params); err != nil {
			return nil, err
		}
	}
	user, err := s.Users.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUnclaimed(ctx, user.ID, params.Email, params.Phone); err != nil {
		return nil, err
	}
	err = user.UpdateProfile(domainuser.ProfileParams{
		Name:   params.Name,
		Email:  params.Email,
		Phone:  params.Phone,
		Gender: params.Gender,
		City:   params.City,
	}, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.Users.Save(ctx, user); err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("profile updated", "user_id", user.ID)
	}
	return user, nil
}

// ChangePassword checks the current password, stores the new hash and revokes every
// session of the account. The returned token replaces the caller's old one.
func (s *Service) ChangePassword(ctx context.Context, id domainuser.ID, params ChangePasswordParams) (*AuthResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	if s.Validator != nil {
		if err := s.Validator.Validate(ctx, params); err != nil {
			return nil, err
		}
	}
	user, err := s.Users.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.Passwords.Compare(user.PasswordHash, params.Current); err != nil {
		return nil, ErrCurrentPassword
	}
	hash, err := s.Passwords.Hash(params.New)
	if err != nil {
		return nil, err
	}
	if err := user.ChangePasswordHash(hash, s.now()); err != nil {
		return nil, err
	}
	if err := s.Users.Save(ctx, user); err != nil {
		return nil, err
	}
	if err := s.Sessions.DeleteByUser(ctx, user.ID); err != nil {
		return nil, err
	}
	token, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("password changed", "user_id", user.ID)
	}
	return &AuthResult{User: user, Token: token}, nil
}

func (s *Service) ensureUnclaimed(ctx context.Context, id domainuser.ID, email, phone string) error {
	if other, err := s.Users.ByEmail(ctx, email); err == nil && other.ID != id {
		return domainuser.ErrEmailAlreadyUsed
	} else if err != nil && !errors.Is(err, domainuser.ErrNotFound) {
		return err
	}
	if other, err := s.Users.ByPhone(ctx, phone); err == nil && other.ID != id {
		return domainuser.ErrPhoneAlreadyUsed
	} else if err != nil && !errors.Is(err, domainuser.ErrNotFound) {
		return err
	}
	return nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.ensureDependencies(); err != nil {
		return err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	return s.Sessions.Delete(ctx, domainauth.Token(token))
}

func (s *Service) ResolveToken(ctx context.Context, token string) (*ResolveResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domainauth.ErrTokenRequired
	}
	session, err := s.Sessions.Get(ctx, domainauth.Token(token))
	if err != nil {
		return nil, err
	}
	if session.Expired(s.now()) {
		_ = s.Sessions.Delete(ctx, session.Token)
		return nil, domainauth.ErrSessionNotFound
	}
	user, err := s.Users.ByID(ctx, session.UserID)
	if err != nil {
		_ = s.Sessions.Delete(ctx, session.Token)
		if errors.Is(err, domainuser.ErrNotFound) {
			return nil, domainauth.ErrSessionNotFound
		}
		return nil, err
	}
	return &ResolveResult{User: user, Session: session}, nil
}

func (s *Service) sendOTP(ctx context.Context, user *domainuser.User) (*domainauth.Challenge, error) {
	code, err := s.Codes.NewCode()
	if err != nil {
		return nil, err
	}
	hash, err := s.Passwords.Hash(code)
	if err != nil {
		return nil, err
	}
	challenge, err := domainauth.NewChallenge(domainauth.ChallengeParams{
		Identifier: user.Phone,
		UserID:     user.ID,
		CodeHash:   hash,
		TTL:        s.otpTTL(),
		Now:        s.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.Challenges.Save(ctx, challenge); err != nil {
		return nil, err
	}
	if s.Notifier != nil {
		data := map[string]any{"code": code, "name": user.Name, "expires_at": challenge.ExpiresAt}
		if err := s.Notifier.Send(ctx, user.Phone, policies.TemplateOTP, data); err != nil {
			return nil, err
		}
	}
	return challenge, nil
}

func (s *Service) userByIdentifier(ctx context.Context, identifier string) (*domainuser.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, domainauth.ErrChallengeNotFound
	}
	var (
		user *domainuser.User
		err  error
	)
	if strings.Contains(identifier, "@") {
		user, err = s.Users.ByEmail(ctx, domainuser.NormalizeEmail(identifier))
	} else {
		user, err = s.Users.ByPhone(ctx, domainuser.NormalizePhone(identifier))
	}
	if errors.Is(err, domainuser.ErrNotFound) {
		return nil, domainauth.ErrChallengeNotFound
	}
	return user, err
}

func (s *Service) issueSession(ctx context.Context, user *domainuser.User) (string, error) {
	token, err := s.Tokens.NewToken()
	if err != nil {
		return "", err
	}
	session, err := domainauth.NewSession(domainauth.Token(token), user, s.now(), s.sessionTTL())
	if err != nil {
		return "", err
	}
	if err := s.Sessions.Save(ctx, session); err != nil {
		return "", err
	}
	return token, nil
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

func (s *Service) sessionTTL() time.Duration {
	if s.SessionTTL > 0 {
		return s.SessionTTL
	}
	return defaultSessionTTL
}

func (s *Service) otpTTL() time.Duration {
	if s.OTPTTL > 0 {
		return s.OTPTTL
	}
	return defaultOTPTTL
}

func (s *Service) ensureDependencies() error {
	switch {
	case s.Users == nil:
		return errors.New("auth: user repository required")
	case s.Sessions == nil:
		return errors.New("auth: session store required")
	case s.Challenges == nil:
		return errors.New("auth: otp store required")
	case s.Passwords == nil:
		return errors.New("auth: password hasher required")
	case s.Tokens == nil:
		return errors.New("auth: token generator required")
	case s.Codes == nil:
		return errors.New("auth: otp code generator required")
	default:
		return nil
	}
}
