package middleware

import (
	"context"
	"errors"

	"hlopg/internal/domain/user"
)

var ErrForbidden = errors.New("middleware: actor role not permitted")

// Validator checks struct tags on commands and queries before they are handled.
type Validator interface {
	Validate(ctx context.Context, message any) error
}

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

// RoleRestricted is implemented by messages only one role may send.
type RoleRestricted interface {
	RequiredRole() user.Role
	ActorRole() user.Role
}

// RoleAuthorizer rejects RoleRestricted messages sent by another role.
// Messages without a role restriction pass.
type RoleAuthorizer struct{}

func (RoleAuthorizer) Authorize(_ context.Context, message any) error {
	if r, ok := message.(RoleRestricted); ok && r.ActorRole() != r.RequiredRole() {
		return ErrForbidden
	}
	return nil
}

func Validation(v Validator) CommandMiddleware {
	mustHave(v != nil, "validator")
	return guardCommands(v.Validate)
}

func QueryValidation(v Validator) QueryMiddleware {
	mustHave(v != nil, "validator")
	return guardQueries(v.Validate)
}

func Authorization(a Authorizer) CommandMiddleware {
	mustHave(a != nil, "authorizer")
	return guardCommands(a.Authorize)
}

func QueryAuthorization(a Authorizer) QueryMiddleware {
	mustHave(a != nil, "authorizer")
	return guardQueries(a.Authorize)
}

// mustHave panics at wiring time so a misconfigured bus never serves a request.
func mustHave(ok bool, what string) {
	if !ok {
		panic("middleware: " + what + " required")
	}
}
