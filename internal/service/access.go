package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"parcel-delivery-service/internal/model"
	"parcel-delivery-service/internal/repository"
)

// RoleLookup is the slice of the user store the guard needs.
type RoleLookup interface {
	FindByEmail(ctx context.Context, email string) (*model.Identity, error)
}

// AccessGuard authenticates bearer credentials and authorizes the resulting
// identity against its stored role. It never writes.
type AccessGuard struct {
	verifier IdentityVerifier
	roles    RoleLookup
}

func NewAccessGuard(verifier IdentityVerifier, roles RoleLookup) *AccessGuard {
	return &AccessGuard{verifier: verifier, roles: roles}
}

// ParseBearer extracts the token from an Authorization header value of the
// form "<scheme> <token>".
func ParseBearer(header string) (string, error) {
	raw := strings.TrimSpace(header)
	if raw == "" {
		return "", fmt.Errorf("%w: missing authorization header", ErrUnauthenticated)
	}
	parts := strings.Fields(raw)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", fmt.Errorf("%w: malformed authorization header", ErrUnauthenticated)
	}
	return parts[1], nil
}

// Authenticate turns an Authorization header into a verified identity.
// A missing or malformed header is ErrUnauthenticated; a token the verifier
// rejects is ErrForbidden.
func (g *AccessGuard) Authenticate(ctx context.Context, header string) (*VerifiedIdentity, error) {
	token, err := ParseBearer(header)
	if err != nil {
		return nil, err
	}

	id, err := g.verifier.Verify(ctx, token)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			return nil, fmt.Errorf("%w: %v", ErrForbidden, err)
		}
		return nil, fmt.Errorf("%w: identity verifier: %v", ErrUpstreamFailure, err)
	}
	return id, nil
}

// RoleOf returns the stored role for email, or RoleNone when no identity
// record exists.
func (g *AccessGuard) RoleOf(ctx context.Context, email string) (model.Role, error) {
	identity, err := g.roles.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return model.RoleNone, nil
	}
	if err != nil {
		return model.RoleNone, storeErr(err, "identity")
	}
	return model.ParseRole(string(identity.Role)), nil
}

// Authorize resolves the identity's role and checks it satisfies required.
func (g *AccessGuard) Authorize(ctx context.Context, id *VerifiedIdentity, required model.Role) (model.Role, error) {
	if id == nil {
		return model.RoleNone, ErrUnauthenticated
	}
	role, err := g.RoleOf(ctx, id.Email)
	if err != nil {
		return model.RoleNone, err
	}
	if err := CheckRole(role, required); err != nil {
		return role, err
	}
	return role, nil
}

// CheckRole is the pure half of Authorize.
func CheckRole(role, required model.Role) error {
	if role == model.RoleNone {
		return fmt.Errorf("%w: no identity record", ErrForbidden)
	}
	if !role.Satisfies(required) {
		return fmt.Errorf("%w: %s role required", ErrForbidden, required)
	}
	return nil
}

// AuthorizeOwner enforces that ownerEmail is exactly the caller's email.
// The comparison is byte-for-byte and applies to admins too.
func AuthorizeOwner(id *VerifiedIdentity, ownerEmail string) error {
	if id == nil {
		return ErrUnauthenticated
	}
	if id.Email != ownerEmail {
		return fmt.Errorf("%w: resource belongs to another user", ErrForbidden)
	}
	return nil
}
