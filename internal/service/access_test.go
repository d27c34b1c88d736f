package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"parcel-delivery-service/internal/model"
	"parcel-delivery-service/internal/repository"
	"parcel-delivery-service/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGuard(s *memory.Store) *AccessGuard {
	return NewAccessGuard(fakeVerifier{
		"tok-admin": {Email: "admin@x.com"},
		"tok-user":  {Email: "a@x.com", Name: "A"},
		"tok-ghost": {Email: "ghost@x.com"},
	}, s.UserRepo())
}

func TestParseBearer(t *testing.T) {
	cases := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"  Bearer   abc  ", "abc", true},
		{"", "", false},
		{"Bearer", "", false},
		{"Basic abc", "", false},
		{"Bearer a b", "", false},
		{"abc", "", false},
	}
	for _, tc := range cases {
		token, err := ParseBearer(tc.header)
		if tc.ok {
			require.NoError(t, err, tc.header)
			assert.Equal(t, tc.token, token)
		} else {
			assert.ErrorIs(t, err, ErrUnauthenticated, tc.header)
		}
	}
}

func TestAccessGuard_Authenticate(t *testing.T) {
	g := newGuard(memory.NewStore())
	ctx := context.Background()

	t.Run("Should return the verified identity", func(t *testing.T) {
		id, err := g.Authenticate(ctx, "Bearer tok-user")
		require.NoError(t, err)
		assert.Equal(t, "a@x.com", id.Email)
		assert.Equal(t, "A", id.Name)
	})

	t.Run("Should be unauthenticated without a header", func(t *testing.T) {
		_, err := g.Authenticate(ctx, "")
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("Should be forbidden for a rejected token", func(t *testing.T) {
		_, err := g.Authenticate(ctx, "Bearer nope")
		assert.ErrorIs(t, err, ErrForbidden)
		assert.False(t, errors.Is(err, ErrUnauthenticated))
	})

	t.Run("Should be an upstream failure when the verifier is unreachable", func(t *testing.T) {
		_, err := g.Authenticate(ctx, "Bearer down")
		assert.ErrorIs(t, err, ErrUpstreamFailure)
	})
}

func TestAccessGuard_Authorize(t *testing.T) {
	s := memory.NewStore()
	s.AddUser("admin@x.com", model.RoleAdmin)
	s.AddUser("a@x.com", model.RoleUser)
	s.AddUser("r@x.com", model.RoleRider)
	g := newGuard(s)
	ctx := context.Background()

	t.Run("Should let admins through admin checks", func(t *testing.T) {
		role, err := g.Authorize(ctx, &VerifiedIdentity{Email: "admin@x.com"}, model.RoleAdmin)
		require.NoError(t, err)
		assert.Equal(t, model.RoleAdmin, role)
	})

	t.Run("Should forbid a user on an admin check", func(t *testing.T) {
		role, err := g.Authorize(ctx, &VerifiedIdentity{Email: "a@x.com"}, model.RoleAdmin)
		assert.ErrorIs(t, err, ErrForbidden)
		assert.Equal(t, model.RoleUser, role)
	})

	t.Run("Should forbid an identity with no record", func(t *testing.T) {
		role, err := g.Authorize(ctx, &VerifiedIdentity{Email: "ghost@x.com"}, model.RoleUser)
		assert.ErrorIs(t, err, ErrForbidden)
		assert.Equal(t, model.RoleNone, role)
	})

	t.Run("Should let a rider through user checks", func(t *testing.T) {
		_, err := g.Authorize(ctx, &VerifiedIdentity{Email: "r@x.com"}, model.RoleUser)
		assert.NoError(t, err)
	})

	t.Run("Should surface store outages as unavailable", func(t *testing.T) {
		s.FailOn["users.find"] = fmt.Errorf("%w: server selection timeout", repository.ErrUnavailable)
		defer delete(s.FailOn, "users.find")
		_, err := g.Authorize(ctx, &VerifiedIdentity{Email: "a@x.com"}, model.RoleUser)
		assert.ErrorIs(t, err, ErrStoreUnavailable)
	})
}

func TestAuthorizeOwner(t *testing.T) {
	id := &VerifiedIdentity{Email: "a@x.com"}
	assert.NoError(t, AuthorizeOwner(id, "a@x.com"))
	assert.ErrorIs(t, AuthorizeOwner(id, "A@x.com"), ErrForbidden)
	assert.ErrorIs(t, AuthorizeOwner(id, "b@x.com"), ErrForbidden)
	assert.ErrorIs(t, AuthorizeOwner(nil, "a@x.com"), ErrUnauthenticated)
}
