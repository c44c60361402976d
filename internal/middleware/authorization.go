package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/proofscan/proof-manager/internal/errdef"
	"github.com/proofscan/proof-manager/pkg/model"
)

type AuthorizationMiddleware struct{}

func NewAuthorization() AuthorizationMiddleware {
	return AuthorizationMiddleware{}
}

// RequireAdministrator aborts the request unless the authenticated user is an
// administrator.
func (m AuthorizationMiddleware) RequireAdministrator(c *gin.Context) {
	user, ok := model.GetUserFromContext(c.Request.Context())
	if !ok {
		_ = c.Error(errdef.NewUnauthorized("user not found on context"))
		c.Abort()
		return
	}

	if !user.Admin {
		_ = c.Error(errdef.NewForbidden("administrator access required"))
		c.Abort()
		return
	}

	c.Next()
}
