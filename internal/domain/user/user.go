package user

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrIDRequired          = errors.New("user: id is required")
	ErrEmailRequired       = errors.New("user: email is required")
	ErrPhoneRequired       = errors.New("user: phone is required")
	ErrPasswordHashMissing = errors.New("user: password hash is required")
	ErrNameRequired        = errors.New("user: name is required")
	ErrInvalidRole         = errors.New("user: invalid role")
	ErrEmailAlreadyUsed    = errors.New("user: email already used")
	ErrPhoneAlreadyUsed    = errors.New("user: phone already used")
	ErrNotFound            = errors.New("user: not found")
)

type ID string

type Role string

const (
	RoleStudent Role = "student"
	RoleOwner   Role = "owner"
)

type User struct {
	ID           ID
	Email        string
	Phone        string
	Name         string
	Gender       string
	City         string
	PasswordHash string
	Role         Role
	Verified     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*User, error)
	ByEmail(ctx context.Context, email string) (*User, error)
	ByPhone(ctx context.Context, phone string) (*User, error)
	Save(ctx context.Context, user *User) error
}

type CreateParams struct {
	ID           ID
	Email        string
	Phone        string
	Name         string
	Gender       string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// NewUser creates an unverified account. It becomes usable after the phone OTP check.
func NewUser(params CreateParams) (*User, error) {
	role, err := ParseRole(string(params.Role))
	if err != nil {
		return nil, err
	}
	now := params.CreatedAt.UTC()
	u := &User{
		ID:           ID(strings.TrimSpace(string(params.ID))),
		Email:        NormalizeEmail(params.Email),
		Phone:        NormalizePhone(params.Phone),
		Name:         strings.TrimSpace(params.Name),
		Gender:       strings.ToLower(strings.TrimSpace(params.Gender)),
		PasswordHash: params.PasswordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := u.validate(); err != nil {
		return nil, err
	}
	return u, nil
}

func (u *User) validate() error {
	required := []struct {
		value string
		err   error
	}{
		{string(u.ID), ErrIDRequired},
		{u.Email, ErrEmailRequired},
		{u.Phone, ErrPhoneRequired},
		{strings.TrimSpace(u.PasswordHash), ErrPasswordHashMissing},
		{u.Name, ErrNameRequired},
	}
	for _, field := range required {
		if field.value == "" {
			return field.err
		}
	}
	return nil
}

// ProfileParams are the account fields a user may edit themselves.
type ProfileParams struct {
	Name   string
	Email  string
	Phone  string
	Gender string
	City   string
}

// UpdateProfile replaces the editable fields. On error u is left unchanged.
func (u *User) UpdateProfile(params ProfileParams, now time.Time) error {
	next := *u
	next.Name = strings.TrimSpace(params.Name)
	next.Email = NormalizeEmail(params.Email)
	next.Phone = NormalizePhone(params.Phone)
	next.Gender = strings.ToLower(strings.TrimSpace(params.Gender))
	next.City = strings.TrimSpace(params.City)
	if err := next.validate(); err != nil {
		return err
	}
	next.UpdatedAt = now.UTC()
	*u = next
	return nil
}

func (u *User) ChangePasswordHash(hash string, now time.Time) error {
	if strings.TrimSpace(hash) == "" {
		return ErrPasswordHashMissing
	}
	u.PasswordHash = hash
	u.UpdatedAt = now.UTC()
	return nil
}

func (u *User) MarkVerified(now time.Time) {
	if u.Verified {
		return
	}
	u.Verified = true
	u.UpdatedAt = now.UTC()
}

func (u *User) HasRole(role Role) bool { return u.Role == role }

func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleStudent:
		return RoleStudent, nil
	case RoleOwner:
		return RoleOwner, nil
	default:
		return "", ErrInvalidRole
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone drops separators and a leading plus so "+91 98765-43210" and
// "919876543210" match the same account.
func NormalizePhone(phone string) string {
	phone = strings.TrimPrefix(strings.TrimSpace(phone), "+")
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')':
			return -1
		}
		return r
	}, phone)
}
