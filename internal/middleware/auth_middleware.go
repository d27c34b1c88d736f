// auth_middleware.go
package middleware

import (
	"context"

	"parcel-delivery-service/internal/model"
	"parcel-delivery-service/internal/service"

	"github.com/gin-gonic/gin"
)

// Context keys set by the auth chain.
const (
	CtxUserEmail = "userEmail"
	CtxUserName  = "userName"
	CtxUserRole  = "userRole"
)

// Guard is what the auth middlewares need from the access guard.
type Guard interface {
	Authenticate(ctx context.Context, header string) (*service.VerifiedIdentity, error)
	RoleOf(ctx context.Context, email string) (model.Role, error)
}

// AuthMiddleware verifies the bearer token and stores the identity in the context.
func AuthMiddleware(guard Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := guard.Authenticate(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(CtxUserEmail, id.Email)
		c.Set(CtxUserName, id.Name)
		c.Next()
	}
}

// WithRole loads the caller's stored role without enforcing one. Callers with
// no identity record get RoleNone.
func WithRole(guard Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := loadRole(c, guard); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func loadRole(c *gin.Context, guard Guard) (model.Role, error) {
	if v, ok := c.Get(CtxUserRole); ok {
		return v.(model.Role), nil
	}
	email := c.GetString(CtxUserEmail)
	if email == "" {
		return model.RoleNone, service.ErrUnauthenticated
	}
	role, err := guard.RoleOf(c.Request.Context(), email)
	if err != nil {
		return model.RoleNone, err
	}
	c.Set(CtxUserRole, role)
	return role, nil
}

// CallerFrom reads the identity the auth chain stored in the context.
func CallerFrom(c *gin.Context) service.Caller {
	caller := service.Caller{
		Email: c.GetString(CtxUserEmail),
		Name:  c.GetString(CtxUserName),
	}
	if v, ok := c.Get(CtxUserRole); ok {
		caller.Role, _ = v.(model.Role)
	}
	return caller
}
