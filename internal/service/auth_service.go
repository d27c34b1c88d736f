package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
)

// VerifiedIdentity is what an IdentityVerifier vouches for.
type VerifiedIdentity struct {
	Email string
	Name  string
}

// IdentityVerifier checks a bearer token and returns the identity behind it.
// Rejections wrap ErrInvalidToken; anything else is an upstream problem.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (*VerifiedIdentity, error)
}

// RemoteVerifier asks the identity service who owns the token.
type RemoteVerifier struct {
	client *resty.Client
}

type remoteUser struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Login   string `json:"login"`
	Enabled bool   `json:"enabled"`
}

func NewRemoteVerifier(authURL string) *RemoteVerifier {
	client := resty.New().
		SetBaseURL(strings.TrimRight(authURL, "/")).
		SetTimeout(5 * time.Second).
		SetHeader("Accept", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(100 * time.Millisecond).
		SetRetryMaxWaitTime(time.Second)

	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		return r != nil && r.StatusCode() >= http.StatusInternalServerError
	})

	return &RemoteVerifier{client: client}
}

// Verify calls GET /users/current with the caller's token.
func (v *RemoteVerifier) Verify(ctx context.Context, token string) (*VerifiedIdentity, error) {
	var user remoteUser
	resp, err := v.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&user).
		Get("/users/current")
	if err != nil {
		return nil, fmt.Errorf("auth request failed: %w", err)
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusOK:
	case code >= http.StatusInternalServerError:
		return nil, fmt.Errorf("auth service returned %d", code)
	default:
		return nil, fmt.Errorf("%w: auth service returned %d", ErrInvalidToken, code)
	}

	if !user.Enabled {
		return nil, fmt.Errorf("%w: user disabled", ErrInvalidToken)
	}

	email := user.Email
	if email == "" {
		email = user.Login
	}
	if email == "" {
		return nil, fmt.Errorf("%w: identity has no email", ErrInvalidToken)
	}
	return &VerifiedIdentity{Email: email, Name: user.Name}, nil
}

// JWTVerifier validates HS256 identity tokens locally.
type JWTVerifier struct {
	secret   []byte
	audience string
}

func NewJWTVerifier(secret, audience string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), audience: audience}
}

func (v *JWTVerifier) Verify(_ context.Context, token string) (*VerifiedIdentity, error) {
	if len(v.secret) == 0 {
		return nil, errors.New("jwt secret not configured")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	email, _ := claims["email"].(string)
	if strings.TrimSpace(email) == "" {
		return nil, fmt.Errorf("%w: email claim missing", ErrInvalidToken)
	}
	name, _ := claims["name"].(string)

	return &VerifiedIdentity{Email: email, Name: name}, nil
}
