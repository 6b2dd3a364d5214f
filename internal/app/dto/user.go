package dto

import (
	"strings"
	"time"

	domainuser "hlopg/internal/domain/user"
)

type UserProfile struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Gender    string    `json:"gender,omitempty"`
	City      string    `json:"city,omitempty"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
}

func MapUserProfile(u *domainuser.User) UserProfile {
	if u == nil {
		return UserProfile{}
	}
	return UserProfile{
		ID:        string(u.ID),
		Role:      string(u.Role),
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		Gender:    u.Gender,
		City:      u.City,
		Verified:  u.Verified,
		CreatedAt: u.CreatedAt,
	}
}

type AuthResponse struct {
	Token string      `json:"token"`
	User  UserProfile `json:"user"`
}

func NewAuthResponse(u *domainuser.User, token string) AuthResponse {
	return AuthResponse{Token: token, User: MapUserProfile(u)}
}

// RegistrationResponse points the client at the pending OTP. Identifier is what
// verify-otp expects back; SentTo is safe to display.
type RegistrationResponse struct {
	User       UserProfile `json:"user"`
	Identifier string      `json:"identifier"`
	SentTo     string      `json:"sent_to"`
	OTPExpires time.Time   `json:"otp_expires_at"`
}

func NewRegistrationResponse(u *domainuser.User, identifier string, expires time.Time) RegistrationResponse {
	return RegistrationResponse{
		User:       MapUserProfile(u),
		Identifier: identifier,
		SentTo:     MaskIdentifier(identifier),
		OTPExpires: expires,
	}
}

// MaskIdentifier keeps the last four characters of a phone number, or the first letter
// and domain of an email address.
func MaskIdentifier(identifier string) string {
	if local, domain, ok := strings.Cut(identifier, "@"); ok {
		if local == "" {
			return "@" + domain
		}
		return local[:1] + strings.Repeat("*", len(local)-1) + "@" + domain
	}
	const visible = 4
	if len(identifier) <= visible {
		return identifier
	}
	return strings.Repeat("*", len(identifier)-visible) + identifier[len(identifier)-visible:]
}
