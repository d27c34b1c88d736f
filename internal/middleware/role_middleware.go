package middleware

import (
	"parcel-delivery-service/internal/model"
	"parcel-delivery-service/internal/service"

	"github.com/gin-gonic/gin"
)

// RequireRole rejects callers whose stored role does not satisfy required.
// Must run after AuthMiddleware.
func RequireRole(guard Guard, required model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, err := loadRole(c, guard)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if err := service.CheckRole(role, required); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func AdminOnly(guard Guard) gin.HandlerFunc {
	return RequireRole(guard, model.RoleAdmin)
}

// OwnerOnly requires the path parameter param to equal the caller's email
// exactly. Admins are not exempt.
func OwnerOnly(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := c.GetString(CtxUserEmail)
		if email == "" {
			AbortWithError(c, service.ErrUnauthenticated)
			return
		}
		id := &service.VerifiedIdentity{Email: email, Name: c.GetString(CtxUserName)}
		if err := service.AuthorizeOwner(id, c.Param(param)); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}
